package audio

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/iabetor/taigivoice/internal/logger"
)

// CacheEntry 缓存索引中的一条记录。
type CacheEntry struct {
	Engine   string    `json:"engine"`
	Text     string    `json:"text"`
	Mode     string    `json:"mode"`
	Size     int64     `json:"size"`
	CachedAt time.Time `json:"cached_at"`
	LastUsed time.Time `json:"last_used"`
}

// ClipCache 按 (引擎, 罗马字) 缓存合成好的 WAV，超出容量按最久未使用淘汰。
type ClipCache struct {
	mu       sync.RWMutex
	cacheDir string
	maxSize  int64 // 字节，0 表示禁用
	index    map[string]*CacheEntry
	now      func() time.Time
}

// CacheKey 计算缓存键。
func CacheKey(engine, text string) string {
	sum := sha1.Sum([]byte(engine + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// NewClipCache 创建缓存。maxSizeMB 为 0 时禁用。
func NewClipCache(cacheDir string, maxSizeMB int64) (*ClipCache, error) {
	cc := &ClipCache{
		cacheDir: cacheDir,
		index:    make(map[string]*CacheEntry),
		now:      time.Now,
	}
	if maxSizeMB <= 0 {
		return cc, nil
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("创建缓存目录失败: %w", err)
	}
	cc.maxSize = maxSizeMB * 1024 * 1024

	if err := cc.loadIndex(); err != nil {
		logger.Warnf("[cache] 加载缓存索引失败（将使用空索引）: %v", err)
	}
	cc.validateIndex()
	return cc, nil
}

// Enabled 返回缓存是否启用。nil 视为禁用。
func (cc *ClipCache) Enabled() bool {
	return cc != nil && cc.maxSize > 0
}

// Get 读取缓存的音频和生成方式。
func (cc *ClipCache) Get(engine, text string) (*Clip, string, bool) {
	if !cc.Enabled() {
		return nil, "", false
	}
	key := CacheKey(engine, text)

	cc.mu.Lock()
	defer cc.mu.Unlock()

	entry, ok := cc.index[key]
	if !ok {
		return nil, "", false
	}
	clip, err := ReadWAVFile(cc.filePath(key))
	if err != nil {
		logger.Warnf("[cache] 读取缓存失败，移除条目 %s: %v", key, err)
		delete(cc.index, key)
		cc.saveIndexLocked()
		return nil, "", false
	}

	entry.LastUsed = cc.now()
	cc.saveIndexLocked()
	return clip, entry.Mode, true
}

// Put 写入缓存并在超出容量时淘汰。
func (cc *ClipCache) Put(engine, text, mode string, clip *Clip) error {
	if !cc.Enabled() {
		return nil
	}
	key := CacheKey(engine, text)
	data := EncodeWAV(clip)

	cc.mu.Lock()
	defer cc.mu.Unlock()

	tmp := cc.filePath(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("写入缓存文件失败: %w", err)
	}
	if err := os.Rename(tmp, cc.filePath(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("写入缓存文件失败: %w", err)
	}

	now := cc.now()
	cc.index[key] = &CacheEntry{
		Engine:   engine,
		Text:     text,
		Mode:     mode,
		Size:     int64(len(data)),
		CachedAt: now,
		LastUsed: now,
	}
	if err := cc.saveIndexLocked(); err != nil {
		return fmt.Errorf("保存缓存索引失败: %w", err)
	}
	cc.evictLocked()
	return nil
}

// List 返回所有条目，最近使用的在前。
func (cc *ClipCache) List() []CacheEntry {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	results := make([]CacheEntry, 0, len(cc.index))
	for _, entry := range cc.index {
		results = append(results, *entry)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].LastUsed.After(results[j].LastUsed)
	})
	return results
}

// Size 返回缓存总字节数。
func (cc *ClipCache) Size() int64 {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	var total int64
	for _, e := range cc.index {
		total += e.Size
	}
	return total
}

func (cc *ClipCache) filePath(key string) string {
	return filepath.Join(cc.cacheDir, key+".wav")
}

func (cc *ClipCache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(cc.cacheDir, "cache_index.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &cc.index)
}

// saveIndexLocked 持久化索引（调用方需持有锁）。
func (cc *ClipCache) saveIndexLocked() error {
	data, err := json.MarshalIndent(cc.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cc.cacheDir, "cache_index.json"), data, 0644)
}

// validateIndex 移除本地文件已不存在的条目。
func (cc *ClipCache) validateIndex() {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	removed := 0
	for key := range cc.index {
		if _, err := os.Stat(cc.filePath(key)); err != nil {
			delete(cc.index, key)
			removed++
		}
	}
	if removed > 0 {
		logger.Infof("[cache] 索引校验：移除 %d 个无效条目", removed)
		cc.saveIndexLocked()
	}
	logger.Infof("[cache] 缓存已加载: %d 条, 目录 %s", len(cc.index), cc.cacheDir)
}

// evictLocked 超出容量时淘汰最久未使用的条目（调用方需持有锁）。
func (cc *ClipCache) evictLocked() {
	var total int64
	for _, e := range cc.index {
		total += e.Size
	}
	if total <= cc.maxSize {
		return
	}

	type keyEntry struct {
		key   string
		entry *CacheEntry
	}
	entries := make([]keyEntry, 0, len(cc.index))
	for k, v := range cc.index {
		entries = append(entries, keyEntry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].entry.LastUsed.Before(entries[j].entry.LastUsed)
	})

	evicted := 0
	for _, ke := range entries {
		if total <= cc.maxSize {
			break
		}
		if err := os.Remove(cc.filePath(ke.key)); err != nil && !os.IsNotExist(err) {
			logger.Warnf("[cache] 删除缓存文件失败: %s: %v", ke.key, err)
			continue
		}
		total -= ke.entry.Size
		delete(cc.index, ke.key)
		evicted++
	}
	if evicted > 0 {
		logger.Infof("[cache] 淘汰 %d 条缓存，当前 %d bytes", evicted, total)
		cc.saveIndexLocked()
	}
}
