package audio

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/siseonlab/voicecoach/domain/repositories"
)

type fakeRunner struct {
	calls  int
	output []byte
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls++
	return f.output, f.err
}

func newTestDecoder(runner CommandRunner) *Decoder {
	return &Decoder{
		runner: runner,
		ffmpeg: "ffmpeg",
		logger: zap.NewNop(),
	}
}

func TestPassthroughPCMAddsNoFraming(t *testing.T) {
	d := NewDecoder(zap.NewNop())
	pcm := bytes.Repeat([]byte{0x05, 0x06}, 4000)

	req := d.PassthroughPCM(pcm, 16000)

	if !bytes.Equal(req.Audio, pcm) {
		t.Error("PCM bytes were modified by passthrough")
	}
	if IsWAV(req.Audio) {
		t.Error("passthrough must not add a container header")
	}
	if req.Encoding != repositories.EncodingLinear16 {
		t.Errorf("encoding = %q, want %q", req.Encoding, repositories.EncodingLinear16)
	}
	if req.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", req.SampleRate)
	}
}

func TestPassthroughContainer(t *testing.T) {
	d := NewDecoder(zap.NewNop())
	upload := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x01, 0x02, 0x03} // WebM magic

	req := d.PassthroughContainer(upload)

	if !bytes.Equal(req.Audio, upload) {
		t.Error("container bytes were modified by passthrough")
	}
	if req.Encoding != repositories.EncodingWebmOpus {
		t.Errorf("encoding = %q, want %q", req.Encoding, repositories.EncodingWebmOpus)
	}
}

func TestMaterializeWAVInProcess(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDecoder(runner)

	pcm := bytes.Repeat([]byte{0x01, 0x02}, 800)
	wav, err := d.MaterializeWAV(context.Background(), pcm, 16000)
	if err != nil {
		t.Fatalf("MaterializeWAV failed: %v", err)
	}
	if !IsWAV(wav) {
		t.Error("output is not WAV")
	}
	if runner.calls != 0 {
		t.Errorf("subprocess invoked %d times for valid PCM, want 0", runner.calls)
	}
}

func TestMaterializeWAVPassthroughForWAVInput(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDecoder(runner)

	wavIn, err := EncodePCM16([]byte{1, 2, 3, 4}, 16000)
	if err != nil {
		t.Fatalf("EncodePCM16 failed: %v", err)
	}

	out, err := d.MaterializeWAV(context.Background(), wavIn, 16000)
	if err != nil {
		t.Fatalf("MaterializeWAV failed: %v", err)
	}
	if !bytes.Equal(out, wavIn) {
		t.Error("WAV input should pass through unchanged")
	}
}

func TestMaterializeWAVFallsBackToSubprocess(t *testing.T) {
	fallbackWAV, err := EncodePCM16(bytes.Repeat([]byte{0, 1}, 100), 16000)
	if err != nil {
		t.Fatalf("EncodePCM16 failed: %v", err)
	}
	runner := &fakeRunner{output: fallbackWAV}
	d := newTestDecoder(runner)

	// Odd length fails the in-process encode and triggers the fallback.
	out, err := d.MaterializeWAV(context.Background(), []byte{1, 2, 3}, 16000)
	if err != nil {
		t.Fatalf("MaterializeWAV failed: %v", err)
	}
	if runner.calls != 1 {
		t.Errorf("subprocess invoked %d times, want 1", runner.calls)
	}
	if !bytes.Equal(out, fallbackWAV) {
		t.Error("fallback output was not returned")
	}
}

func TestMaterializeWAVSurfacesOriginalError(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("exit status 1")}
	d := newTestDecoder(runner)

	_, err := d.MaterializeWAV(context.Background(), []byte{1, 2, 3}, 16000)
	if err == nil {
		t.Fatal("expected an error when both decode paths fail")
	}
	// The first decode error is the more diagnostic one; the subprocess
	// error must not mask it.
	if want := "must be even"; !bytes.Contains([]byte(err.Error()), []byte(want)) {
		t.Errorf("error %q should carry the original decode error (%q)", err, want)
	}
}
