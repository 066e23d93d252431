package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"
)

func TestEncodeWAV_Header(t *testing.T) {
	clip := NewClip16([]int16{1, -1, 100, -100}, 22050, 1)
	data := EncodeWAV(clip)

	if len(data) != WAVHeaderSize+8 {
		t.Fatalf("expected %d bytes, got %d", WAVHeaderSize+8, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[36:40]) != "data" {
		t.Fatalf("bad chunk ids: %q", data[:40])
	}
	le := binary.LittleEndian
	checks := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"riff size", le.Uint32(data[4:8]), 36 + 8},
		{"fmt size", le.Uint32(data[16:20]), 16},
		{"format", uint32(le.Uint16(data[20:22])), 1},
		{"channels", uint32(le.Uint16(data[22:24])), 1},
		{"sample rate", le.Uint32(data[24:28]), 22050},
		{"byte rate", le.Uint32(data[28:32]), 44100},
		{"block align", uint32(le.Uint16(data[32:34])), 2},
		{"bits", uint32(le.Uint16(data[34:36])), 16},
		{"data size", le.Uint32(data[40:44]), 8},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestDecodeWAV_PreservesFormat(t *testing.T) {
	clip := NewClip16([]int16{0, 1000, -1000, 32767, -32768, 5}, 44100, 2)

	got, err := DecodeWAVBytes(EncodeWAV(clip))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if got.Format != clip.Format {
		t.Errorf("format = %s, want %s", got.Format, clip.Format)
	}
	if !bytes.Equal(got.Data, clip.Data) {
		t.Errorf("data = %v, want %v", got.Data, clip.Data)
	}
	if got.Frames() != 3 {
		t.Errorf("frames = %d, want 3", got.Frames())
	}
}

func TestDecodeWAV_Invalid(t *testing.T) {
	_, err := DecodeWAVBytes([]byte("definitely not a wav file, just text"))
	if !errors.Is(err, ErrInvalidWAV) {
		t.Fatalf("expected ErrInvalidWAV, got %v", err)
	}
}

func TestWAVFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	clip := NewClip16([]int16{10, 20, 30}, 16000, 1)
	if err := WriteWAVFile(path, clip); err != nil {
		t.Fatal(err)
	}
	got, err := ReadWAVFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Data, clip.Data) || got.Format.SampleRate != 16000 {
		t.Errorf("got %+v", got)
	}
	if _, err := ReadWAVFile(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIsMP3(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"id3", []byte("ID3\x04\x00"), true},
		{"frame sync", []byte{0xFF, 0xFB, 0x90}, true},
		{"wav", []byte("RIFF...."), false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		if got := IsMP3(tt.data); got != tt.want {
			t.Errorf("%s: IsMP3 = %v, want %v", tt.name, got, tt.want)
		}
	}
}
