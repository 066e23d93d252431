// Package store 用 SQLite 保存合成与识别历史。
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iabetor/taigivoice/internal/logger"
	"github.com/iabetor/taigivoice/internal/stt"
	"github.com/iabetor/taigivoice/internal/tts"
)

// DB 是历史记录数据库连接。
type DB struct {
	*sql.DB
	path string
	now  func() time.Time
}

// Open 打开或创建数据库并完成迁移。
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("数据库路径不能为空")
	}

	// 确保目录存在
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// 设置 WAL 模式（更好的并发性能）
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 busy_timeout 失败: %w", err)
	}

	s := &DB{DB: db, path: dbPath, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Infof("[store] 数据库已打开: %s", dbPath)
	return s, nil
}

// Path 返回数据库文件路径。
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS syntheses (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			romanized TEXT NOT NULL,
			mode TEXT NOT NULL,
			reason TEXT DEFAULT '',
			segments INTEGER DEFAULT 0,
			cached BOOLEAN DEFAULT 0,
			audio_ms INTEGER DEFAULT 0,
			elapsed_ms INTEGER DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS recognitions (
			id TEXT PRIMARY KEY,
			transcript TEXT DEFAULT '',
			route TEXT DEFAULT '',
			confidence REAL,
			primary_confidence REAL,
			error TEXT DEFAULT '',
			audio_ms INTEGER DEFAULT 0,
			elapsed_ms INTEGER DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_syntheses_created ON syntheses(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_recognitions_created ON recognitions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_recognitions_route ON recognitions(route)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			logger.Warnf("[store] 创建索引失败: %v", err)
		}
	}
	return nil
}

// Synthesis 一条合成记录。
type Synthesis struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Romanized string    `json:"romanized"`
	Mode      string    `json:"mode"`
	Reason    string    `json:"reason,omitempty"`
	Segments  int       `json:"segments"`
	Cached    bool      `json:"cached"`
	AudioMs   int64     `json:"audio_ms"`
	ElapsedMs int64     `json:"elapsed_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// Recognition 一条识别记录。
type Recognition struct {
	ID                string    `json:"id"`
	Transcript        string    `json:"transcript"`
	Route             string    `json:"route"`
	Confidence        *float64  `json:"confidence"`
	PrimaryConfidence *float64  `json:"primary_confidence,omitempty"`
	Error             string    `json:"error,omitempty"`
	AudioMs           int64     `json:"audio_ms"`
	ElapsedMs         int64     `json:"elapsed_ms"`
	CreatedAt         time.Time `json:"created_at"`
}

// SaveSynthesis 写入合成记录。
func (db *DB) SaveSynthesis(ctx context.Context, s Synthesis) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = db.now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO syntheses (id, text, romanized, mode, reason, segments, cached, audio_ms, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Text, s.Romanized, s.Mode, s.Reason, s.Segments, s.Cached, s.AudioMs, s.ElapsedMs,
		s.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("保存合成记录失败: %w", err)
	}
	return nil
}

// SaveRecognition 写入识别记录。
func (db *DB) SaveRecognition(ctx context.Context, r Recognition) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = db.now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO recognitions (id, transcript, route, confidence, primary_confidence, error, audio_ms, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Transcript, r.Route, nullFloat(r.Confidence), nullFloat(r.PrimaryConfidence), r.Error,
		r.AudioMs, r.ElapsedMs, r.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("保存识别记录失败: %w", err)
	}
	return nil
}

// ListSyntheses 按时间倒序返回最近的合成记录。
func (db *DB) ListSyntheses(ctx context.Context, limit int) ([]Synthesis, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, text, romanized, mode, reason, segments, cached, audio_ms, elapsed_ms, created_at
		 FROM syntheses ORDER BY created_at DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("查询合成记录失败: %w", err)
	}
	defer rows.Close()

	var out []Synthesis
	for rows.Next() {
		var s Synthesis
		var created string
		if err := rows.Scan(&s.ID, &s.Text, &s.Romanized, &s.Mode, &s.Reason, &s.Segments, &s.Cached,
			&s.AudioMs, &s.ElapsedMs, &created); err != nil {
			return nil, fmt.Errorf("读取合成记录失败: %w", err)
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListRecognitions 按时间倒序返回最近的识别记录。
func (db *DB) ListRecognitions(ctx context.Context, limit int) ([]Recognition, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, transcript, route, confidence, primary_confidence, error, audio_ms, elapsed_ms, created_at
		 FROM recognitions ORDER BY created_at DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("查询识别记录失败: %w", err)
	}
	defer rows.Close()

	var out []Recognition
	for rows.Next() {
		var r Recognition
		var conf, primary sql.NullFloat64
		var created string
		if err := rows.Scan(&r.ID, &r.Transcript, &r.Route, &conf, &primary, &r.Error,
			&r.AudioMs, &r.ElapsedMs, &created); err != nil {
			return nil, fmt.Errorf("读取识别记录失败: %w", err)
		}
		r.Confidence = floatPtr(conf)
		r.PrimaryConfidence = floatPtr(primary)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RouteCounts 统计各识别来源的次数，失败记录计入空字符串键。
func (db *DB) RouteCounts(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT route, COUNT(*) FROM recognitions GROUP BY route`)
	if err != nil {
		return nil, fmt.Errorf("统计识别记录失败: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var route string
		var n int
		if err := rows.Scan(&route, &n); err != nil {
			return nil, fmt.Errorf("读取统计失败: %w", err)
		}
		counts[route] = n
	}
	return counts, rows.Err()
}

// SynthesisHook 返回把合成结果写入数据库的回调。
func (db *DB) SynthesisHook() tts.Hook {
	return func(ctx context.Context, r *tts.Result) {
		rec := Synthesis{
			ID:        r.ID,
			Text:      r.Text,
			Romanized: r.Romanized,
			Mode:      string(r.Mode),
			Reason:    r.Reason,
			Segments:  r.Segments,
			Cached:    r.Cached,
			ElapsedMs: r.Elapsed.Milliseconds(),
		}
		if r.Clip != nil {
			rec.AudioMs = r.Clip.Duration().Milliseconds()
		}
		if err := db.SaveSynthesis(context.WithoutCancel(ctx), rec); err != nil {
			logger.Warnf("[store] %v", err)
		}
	}
}

// RecognitionHook 返回把识别结果写入数据库的回调。
func (db *DB) RecognitionHook() stt.Hook {
	return func(ctx context.Context, r *stt.Result, err error) {
		rec := Recognition{
			ID:                r.ID,
			Transcript:        r.Transcript,
			Route:             string(r.Route),
			Confidence:        r.Confidence,
			PrimaryConfidence: r.PrimaryConfidence,
			AudioMs:           r.AudioDuration.Milliseconds(),
			ElapsedMs:         r.Elapsed.Milliseconds(),
		}
		if err != nil {
			rec.Error = err.Error()
		}
		if err := db.SaveRecognition(context.WithoutCancel(ctx), rec); err != nil {
			logger.Warnf("[store] %v", err)
		}
	}
}

// Close 关闭数据库连接。
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
