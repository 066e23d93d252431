package audio

import (
	"bytes"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *ClipCache {
	t.Helper()
	cc, err := NewClipCache(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("NewClipCache: %v", err)
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	cc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return cc
}

func TestClipCache_PutGet(t *testing.T) {
	cc := newTestCache(t)
	clip := NewClip16([]int16{1, 2, 3}, 22050, 1)

	if _, _, ok := cc.Get("sherpa", "li2 ho2"); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	if err := cc.Put("sherpa", "li2 ho2", "neural", clip); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, mode, ok := cc.Get("sherpa", "li2 ho2")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if mode != "neural" || !bytes.Equal(got.Data, clip.Data) || got.Format != clip.Format {
		t.Errorf("got mode %q clip %+v", mode, got)
	}
	if _, _, ok := cc.Get("tonal", "li2 ho2"); ok {
		t.Error("engine must be part of the key")
	}
}

func TestClipCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cc := newTestCache(t)
	clip := NewClip16(make([]int16, 100), 22050, 1)
	entrySize := int64(len(EncodeWAV(clip)))
	cc.maxSize = entrySize * 2

	for _, text := range []string{"a", "b"} {
		if err := cc.Put("e", text, "neural", clip); err != nil {
			t.Fatal(err)
		}
	}
	// 访问 a，使 b 成为最久未使用
	if _, _, ok := cc.Get("e", "a"); !ok {
		t.Fatal("expected hit for a")
	}
	if err := cc.Put("e", "c", "neural", clip); err != nil {
		t.Fatal(err)
	}

	if _, _, ok := cc.Get("e", "b"); ok {
		t.Error("b should have been evicted")
	}
	for _, text := range []string{"a", "c"} {
		if _, _, ok := cc.Get("e", text); !ok {
			t.Errorf("%s should still be cached", text)
		}
	}
	if cc.Size() > cc.maxSize {
		t.Errorf("size %d exceeds max %d", cc.Size(), cc.maxSize)
	}
}

func TestClipCache_EvictsBySubSecondTime(t *testing.T) {
	cc := newTestCache(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stamps := []time.Duration{0, 500 * time.Millisecond, 900 * time.Millisecond}
	tick := 0
	cc.now = func() time.Time {
		d := stamps[min(tick, len(stamps)-1)]
		tick++
		return base.Add(d)
	}
	clip := NewClip16(make([]int16, 100), 22050, 1)
	cc.maxSize = int64(len(EncodeWAV(clip))) * 2

	// a 的时间戳恰好是整秒
	for _, text := range []string{"a", "b", "c"} {
		if err := cc.Put("e", text, "neural", clip); err != nil {
			t.Fatal(err)
		}
	}

	list := cc.List()
	if len(list) != 2 || list[0].Text != "c" || list[1].Text != "b" {
		t.Fatalf("entries after eviction = %+v, want c, b", list)
	}
}

func TestClipCache_ReloadsIndex(t *testing.T) {
	dir := t.TempDir()
	cc, err := NewClipCache(dir, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := cc.Put("e", "x", "tonal-fallback", NewClip16([]int16{9}, 8000, 1)); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewClipCache(dir, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(reopened.List()) != 1 {
		t.Fatalf("expected 1 entry after reload, got %v", reopened.List())
	}
	if _, mode, ok := reopened.Get("e", "x"); !ok || mode != "tonal-fallback" {
		t.Errorf("reload lost entry: ok=%v mode=%q", ok, mode)
	}
}

func TestClipCache_Disabled(t *testing.T) {
	cc, err := NewClipCache(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if cc.Enabled() {
		t.Fatal("expected disabled cache")
	}
	if err := cc.Put("e", "x", "neural", NewClip16([]int16{1}, 8000, 1)); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := cc.Get("e", "x"); ok {
		t.Error("disabled cache should never hit")
	}
}

func TestCacheKey_Distinct(t *testing.T) {
	if CacheKey("ab", "c") == CacheKey("a", "bc") {
		t.Error("keys should not collide across the engine/text boundary")
	}
}
