package tts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iabetor/taigivoice/internal/audio"
	"github.com/iabetor/taigivoice/internal/segment"
)

// fakeEngine 每段返回 frames 个采样点，值为 values[text]（默认 1000）。
type fakeEngine struct {
	rate   int
	rates  map[string]int
	fail   map[string]error
	values map[string]int16
	delay  map[string]time.Duration
	frames int

	mu    sync.Mutex
	calls []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{rate: 1000, frames: 100}
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if d := f.delay[text]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.fail[text]; err != nil {
		return nil, err
	}
	rate := f.rate
	if r, ok := f.rates[text]; ok {
		rate = r
	}
	v := int16(1000)
	if x, ok := f.values[text]; ok {
		v = x
	}
	samples := make([]int16, f.frames)
	for i := range samples {
		samples[i] = v
	}
	return audio.NewClip16(samples, rate, 1), nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func noFade() AssemblerConfig { return AssemblerConfig{FadeMs: -1} }

func TestAssemble_DurationIsSumPlusPauses(t *testing.T) {
	eng := newFakeEngine()
	a := NewAssembler(eng, noFade())

	clip, err := a.Assemble(context.Background(), segment.Split("a1 b2, c3. d4"))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// 3 段各 100 帧 + 两个 180ms 停顿（1000Hz 下 180 帧）
	if got, want := clip.Frames(), 3*100+2*180; got != want {
		t.Errorf("frames = %d, want %d", got, want)
	}
	if clip.Duration() != 660*time.Millisecond {
		t.Errorf("duration = %v", clip.Duration())
	}
}

func TestAssemble_PauseByClass(t *testing.T) {
	a := NewAssembler(newFakeEngine(), AssemblerConfig{FadeMs: -1, ClausePauseMs: 100, SentencePauseMs: 300})

	clip, err := a.Assemble(context.Background(), segment.Split("a1, b2."))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := clip.Frames(), 200+100+300; got != want {
		t.Errorf("frames = %d, want %d", got, want)
	}
}

func TestAssemble_EmptySegments(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		frames int
	}{
		{"consecutive punctuation adds pause", "a1?!", 100 + 180 + 180},
		{"leading punctuation before format is known", ",a1", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newFakeEngine()
			clip, err := NewAssembler(eng, noFade()).Assemble(context.Background(), segment.Split(tt.text))
			if err != nil {
				t.Fatal(err)
			}
			if clip.Frames() != tt.frames {
				t.Errorf("frames = %d, want %d", clip.Frames(), tt.frames)
			}
			if eng.callCount() != 1 {
				t.Errorf("engine called %d times, want 1", eng.callCount())
			}
		})
	}
}

func TestAssemble_FormatMismatch(t *testing.T) {
	eng := newFakeEngine()
	eng.rates = map[string]int{"a1": 22050, "b2": 16000}

	clip, err := NewAssembler(eng, noFade()).Assemble(context.Background(), segment.Split("a1, b2."))
	if !errors.Is(err, ErrAudioFormatMismatch) {
		t.Fatalf("expected ErrAudioFormatMismatch, got %v", err)
	}
	if clip != nil {
		t.Error("expected no output on mismatch")
	}
	var fm *FormatMismatchError
	if !errors.As(err, &fm) || fm.Index != 1 || fm.Want.SampleRate != 22050 || fm.Got.SampleRate != 16000 {
		t.Errorf("unexpected error detail: %+v", fm)
	}
}

func TestAssemble_SynthesisFailure(t *testing.T) {
	eng := newFakeEngine()
	boom := errors.New("model crashed")
	eng.fail = map[string]error{"b2": boom}

	clip, err := NewAssembler(eng, noFade()).Assemble(context.Background(), segment.Split("a1, b2. c3"))
	if clip != nil {
		t.Error("expected no partial output")
	}
	if !errors.Is(err, ErrSynthesisFailed) || !errors.Is(err, boom) {
		t.Fatalf("expected synthesis failure wrapping cause, got %v", err)
	}
	var se *SynthesisError
	if !errors.As(err, &se) || se.Index != 1 || se.Content != "b2" {
		t.Errorf("unexpected error detail: %+v", se)
	}
	if eng.callCount() != 2 {
		t.Errorf("sequential assembly should stop at the failing segment, calls = %d", eng.callCount())
	}
}

func TestAssemble_EmptyAudioIsFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.frames = 0
	_, err := NewAssembler(eng, noFade()).Assemble(context.Background(), segment.Split("a1"))
	if !errors.Is(err, ErrSynthesisFailed) || !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio synthesis failure, got %v", err)
	}
}

func TestAssemble_NothingToSynthesize(t *testing.T) {
	_, err := NewAssembler(newFakeEngine(), noFade()).Assemble(context.Background(), segment.Split(",.!"))
	if !errors.Is(err, ErrSynthesisFailed) || !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestAssemble_AppliesFade(t *testing.T) {
	clip, err := NewAssembler(newFakeEngine(), AssemblerConfig{}).Assemble(context.Background(), segment.Split("a1"))
	if err != nil {
		t.Fatal(err)
	}
	samples, _ := clip.Samples16()
	if samples[0] != 0 {
		t.Errorf("first sample = %d, want 0 after fade-in", samples[0])
	}
	if samples[50] != 1000 {
		t.Errorf("middle sample = %d, want 1000", samples[50])
	}
}

func TestAssemble_ParallelPreservesOrder(t *testing.T) {
	eng := newFakeEngine()
	eng.frames = 1
	eng.values = map[string]int16{"a1": 1, "b2": 2, "c3": 3, "d4": 4}
	eng.delay = map[string]time.Duration{"a1": 40 * time.Millisecond, "b2": 20 * time.Millisecond}

	clip, err := NewAssembler(eng, AssemblerConfig{FadeMs: -1, Parallel: 4}).
		Assemble(context.Background(), []segment.Segment{
			{Index: 0, Content: "a1"},
			{Index: 1, Content: "b2"},
			{Index: 2, Content: "c3"},
			{Index: 3, Content: "d4"},
		})
	if err != nil {
		t.Fatal(err)
	}
	samples, _ := clip.Samples16()
	want := []int16{1, 2, 3, 4}
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("samples = %v, want %v", samples, want)
		}
	}
}

func TestAssemble_ParallelReportsRealFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.fail = map[string]error{"b2": errors.New("b"), "d4": errors.New("d")}
	eng.delay = map[string]time.Duration{"b2": 30 * time.Millisecond}

	_, err := NewAssembler(eng, AssemblerConfig{FadeMs: -1, Parallel: 2}).
		Assemble(context.Background(), []segment.Segment{
			{Index: 0, Content: "a1"},
			{Index: 1, Content: "b2"},
			{Index: 2, Content: "c3"},
			{Index: 3, Content: "d4"},
		})
	var se *SynthesisError
	if !errors.As(err, &se) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if se.Index != 1 && se.Index != 3 {
		t.Errorf("reported segment %d, want a genuinely failing one", se.Index)
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("should report the real failure, not a cancellation: %v", err)
	}
}
