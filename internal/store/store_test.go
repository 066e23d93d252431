package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/iabetor/taigivoice/internal/audio"
	"github.com/iabetor/taigivoice/internal/stt"
	"github.com/iabetor/taigivoice/internal/tts"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sub", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSynthesis_SaveAndList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, text := range []string{"你好", "食飽未", "多謝"} {
		err := db.SaveSynthesis(ctx, Synthesis{
			ID:        text,
			Text:      text,
			Romanized: "x",
			Mode:      "neural",
			Segments:  i + 1,
			Cached:    i == 2,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.ListSyntheses(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Text != "多謝" || got[1].Text != "食飽未" {
		t.Fatalf("got %+v", got)
	}
	if !got[0].Cached || got[0].Segments != 3 || !got[0].CreatedAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("row = %+v", got[0])
	}
}

func TestRecognition_NullableConfidence(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	conf := 0.4

	if err := db.SaveRecognition(ctx, Recognition{ID: "a", Transcript: "你好", Route: "secondary", PrimaryConfidence: &conf}); err != nil {
		t.Fatal(err)
	}
	got, err := db.ListRecognitions(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows", len(got))
	}
	if got[0].Confidence != nil {
		t.Errorf("confidence should be NULL, got %v", *got[0].Confidence)
	}
	if got[0].PrimaryConfidence == nil || *got[0].PrimaryConfidence != 0.4 {
		t.Errorf("primary confidence = %v", got[0].PrimaryConfidence)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestHooks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	db.SynthesisHook()(ctx, &tts.Result{
		ID:        "s1",
		Text:      "你好",
		Romanized: "li2 ho2",
		Mode:      tts.ModeTonalFallback,
		Reason:    "model missing",
		Clip:      audio.NewClip16(make([]int16, 22050), 22050, 1),
	})
	syn, err := db.ListSyntheses(ctx, 10)
	if err != nil || len(syn) != 1 {
		t.Fatalf("syntheses = %+v, %v", syn, err)
	}
	if syn[0].Mode != "tonal-fallback" || syn[0].AudioMs != 1000 || syn[0].Reason != "model missing" {
		t.Errorf("synthesis row = %+v", syn[0])
	}

	hook := db.RecognitionHook()
	conf := 0.92
	hook(ctx, &stt.Result{ID: "r1", Transcript: "你好", Route: stt.RoutePrimary, Confidence: &conf}, nil)
	hook(ctx, &stt.Result{ID: "r2"}, stt.ErrNoTranscript)

	counts, err := db.RouteCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["primary"] != 1 || counts[""] != 1 {
		t.Errorf("counts = %v", counts)
	}

	recs, _ := db.ListRecognitions(ctx, 10)
	var failed *Recognition
	for i := range recs {
		if recs[i].ID == "r2" {
			failed = &recs[i]
		}
	}
	if failed == nil || failed.Error != stt.ErrNoTranscript.Error() {
		t.Errorf("failed row = %+v", failed)
	}
}

func TestHook_IgnoresCancelledContext(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	db.SynthesisHook()(ctx, &tts.Result{ID: "s1", Text: "a", Romanized: "a", Mode: tts.ModeTonal})
	got, err := db.ListSyntheses(context.Background(), 10)
	if err != nil || len(got) != 1 {
		t.Errorf("record should be saved after request cancel: %v %v", got, err)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error")
	}
}
