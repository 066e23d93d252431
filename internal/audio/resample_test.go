package audio

import "testing"

func TestResample_Lengths(t *testing.T) {
	in := make([]int16, 4800)
	tests := []struct {
		from, to, want int
	}{
		{16000, 16000, 4800},
		{48000, 16000, 1600},
		{8000, 16000, 9600},
		{22050, 16000, 3482},
	}
	for _, tt := range tests {
		if got := len(Resample(in, tt.from, tt.to)); got != tt.want {
			t.Errorf("Resample %d->%d: len = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestResample_Interpolates(t *testing.T) {
	got := Resample([]int16{0, 100, 200, 300}, 8000, 16000)
	want := []int16{0, 50, 100, 150, 200, 250, 300, 300}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestToSpeechPCM_DownmixesStereo(t *testing.T) {
	clip := NewClip16([]int16{100, 300, -100, -300}, 16000, 2)
	got, err := ToSpeechPCM(clip)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 200 || got[1] != -200 {
		t.Errorf("got %v", got)
	}

	bad := &Clip{Format: Format{SampleRate: 16000, Channels: 1, BitDepth: 8}, Data: []byte{1}}
	if _, err := ToSpeechPCM(bad); err == nil {
		t.Error("expected error for 8-bit input")
	}
}

func TestTrimTrailingSilence(t *testing.T) {
	const rate = 16000
	voice := make([]int16, rate)
	for i := range voice {
		voice[i] = 1000
	}

	tests := []struct {
		name string
		pcm  []int16
		want int
	}{
		{"trims long tail", append(append([]int16{}, voice...), make([]int16, rate)...), rate + rate/5},
		{"short input untouched", make([]int16, rate/4), rate / 4},
		{"all silence untouched", make([]int16, rate*2), rate * 2},
		{"little tail untouched", append(append([]int16{}, voice...), make([]int16, 100)...), rate + 100},
		{"keeps minimum", append([]int16{1000}, make([]int16, rate*2)...), rate / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrimTrailingSilence(tt.pcm, rate, 300, 500, 200)
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}
