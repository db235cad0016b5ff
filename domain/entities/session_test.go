package entities

import (
	"bytes"
	"testing"
)

func TestMinPCMBytes(t *testing.T) {
	// 100ms of 16-bit mono samples.
	cases := []struct {
		sampleRate int
		want       int
	}{
		{16000, 3200},
		{48000, 9600},
		{8000, 1600},
	}
	for _, tc := range cases {
		if got := MinPCMBytes(tc.sampleRate); got != tc.want {
			t.Errorf("MinPCMBytes(%d) = %d, want %d", tc.sampleRate, got, tc.want)
		}
	}
}

func TestNewStreamSession_Defaults(t *testing.T) {
	s := NewStreamSession(0)

	if s.ID == "" {
		t.Error("expected generated session ID")
	}
	if s.SampleRate != DefaultSampleRate {
		t.Errorf("expected sample rate %d, got %d", DefaultSampleRate, s.SampleRate)
	}
	if s.Format != FormatPCM16 {
		t.Errorf("expected pcm16 format, got %s", s.Format)
	}
	if s.BufferedBytes() != 0 {
		t.Errorf("expected empty buffer, got %d bytes", s.BufferedBytes())
	}

	other := NewStreamSession(0)
	if other.ID == s.ID {
		t.Error("expected unique session IDs")
	}
}

func TestStreamSession_SetMetadata(t *testing.T) {
	s := NewStreamSession(0)
	if err := s.AppendAudio([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	s.SetMetadata(48000, "webm_opus")
	if s.SampleRate != 48000 {
		t.Errorf("expected sample rate 48000, got %d", s.SampleRate)
	}
	if s.Format != FormatWebmOpus {
		t.Errorf("expected webm_opus, got %s", s.Format)
	}
	if s.BufferedBytes() != 4 {
		t.Errorf("metadata update must not touch the buffer, got %d bytes", s.BufferedBytes())
	}

	// Last write wins; zero and blank values leave fields alone.
	s.SetMetadata(16000, "pcm16")
	s.SetMetadata(0, "")
	if s.SampleRate != 16000 || s.Format != FormatPCM16 {
		t.Errorf("expected 16000/pcm16 after updates, got %d/%s", s.SampleRate, s.Format)
	}
}

func TestStreamSession_AppendTakeCycle(t *testing.T) {
	s := NewStreamSession(0)

	chunkA := []byte{1, 2, 3}
	chunkB := []byte{4, 5}
	s.AppendAudio(chunkA)
	s.AppendAudio(chunkB)

	got := s.TakeAudio()
	want := []byte{1, 2, 3, 4, 5}
	if !bytes.Equal(got, want) {
		t.Errorf("TakeAudio = %v, want %v", got, want)
	}

	if s.BufferedBytes() != 0 {
		t.Errorf("expected empty buffer after take, got %d bytes", s.BufferedBytes())
	}
	if len(s.TakeAudio()) != 0 {
		t.Error("second take must return nothing")
	}

	// Session stays usable for the next cycle.
	s.AppendAudio([]byte{9})
	if !bytes.Equal(s.TakeAudio(), []byte{9}) {
		t.Error("expected fresh audio in the next cycle")
	}
}

func TestStreamSession_MinProcessBytes(t *testing.T) {
	s := NewStreamSession(0)
	if got := s.MinProcessBytes(); got != 3200 {
		t.Errorf("expected 3200 at default rate, got %d", got)
	}
	s.SetMetadata(48000, "")
	if got := s.MinProcessBytes(); got != 9600 {
		t.Errorf("expected 9600 at 48kHz, got %d", got)
	}
}
