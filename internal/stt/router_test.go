package stt

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/iabetor/taigivoice/internal/audio"
)

type fakeRecognizer struct {
	name  string
	out   Recognition
	err   error
	calls int
	gotN  int
}

func (f *fakeRecognizer) Name() string { return f.name }

func (f *fakeRecognizer) Recognize(ctx context.Context, pcm []int16, sampleRate int) (Recognition, error) {
	f.calls++
	f.gotN = len(pcm)
	return f.out, f.err
}

func primaryWith(text string, conf float64) *fakeRecognizer {
	return &fakeRecognizer{name: "google", out: Recognition{Transcript: text, Confidence: conf, HasConfidence: true}}
}

func secondaryWith(text string) *fakeRecognizer {
	return &fakeRecognizer{name: "yating", out: Recognition{Transcript: text}}
}

func TestRouter_Scenarios(t *testing.T) {
	tests := []struct {
		name          string
		primary       *fakeRecognizer
		secondary     *fakeRecognizer
		wantText      string
		wantRoute     Route
		wantConf      *float64
		wantSecondary int
	}{
		{
			name:          "high confidence primary",
			primary:       primaryWith("你好", 0.92),
			secondary:     secondaryWith("不該用到"),
			wantText:      "你好",
			wantRoute:     RoutePrimary,
			wantConf:      ptr(0.92),
			wantSecondary: 0,
		},
		{
			name:          "low confidence goes to secondary",
			primary:       primaryWith("你好", 0.40),
			secondary:     secondaryWith("你好"),
			wantText:      "你好",
			wantRoute:     RouteSecondary,
			wantConf:      nil,
			wantSecondary: 1,
		},
		{
			name:          "secondary empty keeps low confidence primary",
			primary:       primaryWith("恁好", 0.40),
			secondary:     secondaryWith(""),
			wantText:      "恁好",
			wantRoute:     RoutePrimaryLowConfidence,
			wantConf:      ptr(0.40),
			wantSecondary: 1,
		},
		{
			name:          "threshold is inclusive",
			primary:       primaryWith("食飽未", 0.80),
			secondary:     secondaryWith("x"),
			wantText:      "食飽未",
			wantRoute:     RoutePrimary,
			wantConf:      ptr(0.80),
			wantSecondary: 0,
		},
		{
			name:          "empty high confidence primary still asks secondary",
			primary:       primaryWith("", 0.95),
			secondary:     secondaryWith("歹勢"),
			wantText:      "歹勢",
			wantRoute:     RouteSecondary,
			wantSecondary: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRouter(tt.primary, tt.secondary, RouterConfig{})
			if err != nil {
				t.Fatal(err)
			}
			res, err := r.RecognizePCM(context.Background(), make([]int16, 1600))
			if err != nil {
				t.Fatalf("RecognizePCM: %v", err)
			}
			if res.Transcript != tt.wantText || res.Route != tt.wantRoute {
				t.Errorf("got (%q, %q), want (%q, %q)", res.Transcript, res.Route, tt.wantText, tt.wantRoute)
			}
			if !sameConf(res.Confidence, tt.wantConf) {
				t.Errorf("confidence = %v, want %v", deref(res.Confidence), deref(tt.wantConf))
			}
			if tt.secondary.calls != tt.wantSecondary {
				t.Errorf("secondary called %d times, want %d", tt.secondary.calls, tt.wantSecondary)
			}
			if res.State != StateResolved || res.ID == "" {
				t.Errorf("state = %s, id = %q", res.State, res.ID)
			}
		})
	}
}

func TestRouter_NoTranscript(t *testing.T) {
	var hookErr error
	var hookRes *Result
	r, _ := NewRouter(primaryWith("", 0), secondaryWith(""), RouterConfig{
		Hooks: []Hook{func(ctx context.Context, res *Result, err error) { hookRes, hookErr = res, err }},
	})

	res, err := r.RecognizePCM(context.Background(), make([]int16, 10))
	if !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
	if res.State != StateFailed {
		t.Errorf("state = %s", res.State)
	}
	if hookRes != res || !errors.Is(hookErr, ErrNoTranscript) {
		t.Error("hook not invoked with failure")
	}
}

func TestRouter_ProviderTimeoutIsNoResult(t *testing.T) {
	primary := &fakeRecognizer{name: "google", err: fmt.Errorf("post: %w", context.DeadlineExceeded)}
	secondary := secondaryWith("你好")
	r, _ := NewRouter(primary, secondary, RouterConfig{})

	res, err := r.RecognizePCM(context.Background(), make([]int16, 10))
	if err != nil {
		t.Fatalf("timeout should not be fatal: %v", err)
	}
	if res.Route != RouteSecondary || res.PrimaryConfidence != nil {
		t.Errorf("result = %+v", res)
	}
	if names := res.TimedOut(); len(names) != 1 || names[0] != "google" {
		t.Errorf("TimedOut = %v", names)
	}
}

func TestRouter_SecondaryFailureFallsBackToPrimary(t *testing.T) {
	secondary := &fakeRecognizer{name: "yating", err: errors.New("403 forbidden")}
	r, _ := NewRouter(primaryWith("恁好", 0.3), secondary, RouterConfig{})

	res, err := r.RecognizePCM(context.Background(), make([]int16, 10))
	if err != nil {
		t.Fatal(err)
	}
	if res.Route != RoutePrimaryLowConfidence || len(res.Errors) != 1 || res.Errors[0].Timeout {
		t.Errorf("result = %+v", res)
	}
}

func TestRouter_SingleProvider(t *testing.T) {
	r, _ := NewRouter(nil, secondaryWith("你好"), RouterConfig{})
	res, err := r.RecognizePCM(context.Background(), make([]int16, 10))
	if err != nil || res.Route != RouteSecondary {
		t.Errorf("secondary only: %+v %v", res, err)
	}

	r, _ = NewRouter(primaryWith("你好", 0.5), nil, RouterConfig{})
	res, err = r.RecognizePCM(context.Background(), make([]int16, 10))
	if err != nil || res.Route != RoutePrimaryLowConfidence {
		t.Errorf("primary only: %+v %v", res, err)
	}

	if _, err := NewRouter(nil, nil, RouterConfig{}); err == nil {
		t.Error("expected error without providers")
	}
}

func TestRouter_RecognizeClipPreparesAudio(t *testing.T) {
	primary := primaryWith("你好", 0.9)
	r, _ := NewRouter(primary, nil, RouterConfig{TrimSilence: true})

	// 1 秒 32kHz 立体声：前 0.1 秒有声音，其余静音
	frames := 32000
	samples := make([]int16, frames*2)
	for i := 0; i < 3200*2; i++ {
		samples[i] = 5000
	}
	clip := audio.NewClip16(samples, 32000, 2)

	res, err := r.Recognize(context.Background(), clip)
	if err != nil {
		t.Fatal(err)
	}
	// 16kHz 下不短于 500ms
	if primary.gotN != 8000 {
		t.Errorf("primary received %d samples, want 8000", primary.gotN)
	}
	if res.AudioDuration.Milliseconds() != 500 {
		t.Errorf("audio duration = %v", res.AudioDuration)
	}
}

func TestRouter_CustomThreshold(t *testing.T) {
	secondary := secondaryWith("x")
	r, _ := NewRouter(primaryWith("你好", 0.6), secondary, RouterConfig{Threshold: 0.5})
	res, _ := r.RecognizePCM(context.Background(), make([]int16, 10))
	if res.Route != RoutePrimary || secondary.calls != 0 || r.Threshold() != 0.5 {
		t.Errorf("result = %+v", res)
	}
}

func ptr(v float64) *float64 { return &v }

func deref(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func sameConf(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
