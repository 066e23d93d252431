package audio

import (
	"testing"
	"time"
)

func constantClip(n, channels, rate int, v int16) *Clip {
	s := make([]int16, n*channels)
	for i := range s {
		s[i] = v
	}
	return NewClip16(s, rate, channels)
}

func TestApplyFade_Mono(t *testing.T) {
	clip := constantClip(10, 1, 1000, 1000)
	ApplyFade(clip, 5)

	got, _ := clip.Samples16()
	want := []int16{0, 200, 400, 600, 800, 200, 400, 600, 800, 1000}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("samples = %v, want %v", got, want)
		}
	}
}

func TestApplyFade_StereoPerChannel(t *testing.T) {
	clip := constantClip(4, 2, 1000, 1000)
	ApplyFade(clip, 2)

	got, _ := clip.Samples16()
	// 每个声道独立：首帧为 0，末帧不变
	want := []int16{0, 0, 500, 500, 500, 500, 1000, 1000}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("samples = %v, want %v", got, want)
		}
	}
}

func TestApplyFade_NoOp(t *testing.T) {
	tests := []struct {
		name   string
		clip   *Clip
		fadeMs int
	}{
		{"zero fade", constantClip(10, 1, 1000, 1000), 0},
		{"fade shorter than one sample", constantClip(10, 1, 100, 1000), 5},
		{"single frame", constantClip(1, 1, 1000, 1000), 50},
		{"8-bit", &Clip{Format: Format{SampleRate: 1000, Channels: 1, BitDepth: 8}, Data: []byte{200, 200, 200}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]byte(nil), tt.clip.Data...)
			ApplyFade(tt.clip, tt.fadeMs)
			if string(before) != string(tt.clip.Data) {
				t.Errorf("data changed: %v -> %v", before, tt.clip.Data)
			}
		})
	}
}

func TestApplyFade_LongerThanClip(t *testing.T) {
	clip := constantClip(4, 1, 1000, 1000)
	ApplyFade(clip, 100)

	got, _ := clip.Samples16()
	// fadeLen 截断为 4，淡入淡出叠加
	want := []int16{0, 125, 375, 750}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("samples = %v, want %v", got, want)
		}
	}
}

func TestSilenceAndConcat(t *testing.T) {
	f := Mono16(22050)
	sil := Silence(f, 180)
	if sil.Frames() != 3969 {
		t.Fatalf("silence frames = %d, want 3969", sil.Frames())
	}

	a := constantClip(100, 1, 22050, 7)
	out, err := Concat(a, sil, a)
	if err != nil {
		t.Fatal(err)
	}
	if out.Frames() != 100+3969+100 {
		t.Errorf("frames = %d", out.Frames())
	}
	if d := out.Duration(); d < 180*time.Millisecond {
		t.Errorf("duration = %v", d)
	}

	if _, err := Concat(a, constantClip(10, 1, 16000, 1)); err == nil {
		t.Error("expected format mismatch error")
	}
	if _, err := Concat(); err == nil {
		t.Error("expected error for empty input")
	}
}
