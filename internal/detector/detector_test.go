package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"anpr-pipeline/internal/domain/plates"
)

func collect(t *testing.T, s *Stream) []plates.Candidate {
	t.Helper()
	var out []plates.Candidate
	for {
		c, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, c)
	}
}

func TestMockSourceYieldsAll(t *testing.T) {
	src := &MockSource{Candidates: []plates.Candidate{
		{Plate: "ABC 123", NormalizedPlate: "ABC123", Confidence: 0.9, FrameNo: 1},
		{Plate: "XYZ 777", NormalizedPlate: "XYZ777", Confidence: 0.8, FrameNo: 5},
	}}

	stream, err := src.Detect(context.Background(), "/tmp/video.mp4", "cam-1")
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	got := collect(t, stream)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].CameraID != "cam-1" {
		t.Errorf("camera id not propagated: %q", got[0].CameraID)
	}
	if got[1].FrameNo < got[0].FrameNo {
		t.Error("frame numbers not non-decreasing")
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
}

func TestStreamTerminalError(t *testing.T) {
	boom := errors.New("video truncated")
	src := &MockSource{
		Candidates: []plates.Candidate{{Plate: "A", Confidence: 1}},
		Err:        boom,
	}

	stream, err := src.Detect(context.Background(), "v.mp4", "")
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	got := collect(t, stream)
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if !errors.Is(stream.Err(), boom) {
		t.Fatalf("stream.Err() = %v, want %v", stream.Err(), boom)
	}
}

func TestStreamEarlyClose(t *testing.T) {
	// Many more candidates than the channel buffer so the producer would
	// block forever if Close leaked it.
	cands := make([]plates.Candidate, 500)
	for i := range cands {
		cands[i] = plates.Candidate{Plate: "P", Confidence: 1, FrameNo: i}
	}
	src := &MockSource{Candidates: cands}

	stream, err := src.Detect(context.Background(), "v.mp4", "")
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := stream.Next(); !ok {
		t.Fatal("expected at least one candidate")
	}

	done := make(chan struct{})
	go func() {
		stream.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not release the producer")
	}

	// Close twice is safe.
	stream.Close()
}

func TestDecodeLine(t *testing.T) {
	d := NewExecSource(execTestConfig(), zerolog.Nop())

	line := []byte(`{"plate":"ab-12","confidence":0.92,"bbox":{"x1":1,"y1":2,"x2":3,"y2":4},"frame_no":7,"crop_jpeg":"aGVsbG8="}`)
	cand, ok := d.decodeLine(line, "cam-9")
	if !ok {
		t.Fatal("expected candidate")
	}
	if cand.Plate != "ab-12" {
		t.Errorf("plate = %q", cand.Plate)
	}
	if cand.NormalizedPlate != "AB12" {
		t.Errorf("normalized = %q, want AB12", cand.NormalizedPlate)
	}
	if cand.BBox.X2 != 3 || cand.BBox.Y2 != 4 {
		t.Errorf("bbox = %+v", cand.BBox)
	}
	if string(cand.Crop) != "hello" {
		t.Errorf("crop = %q", cand.Crop)
	}
	if cand.CameraID != "cam-9" {
		t.Errorf("camera id = %q", cand.CameraID)
	}
}

func TestDecodeLineMalformed(t *testing.T) {
	d := NewExecSource(execTestConfig(), zerolog.Nop())

	for _, line := range []string{"", "{not json", `{"plate":"A","crop_jpeg":"!!!"}`} {
		if _, ok := d.decodeLine([]byte(line), ""); ok {
			t.Errorf("decodeLine(%q) accepted malformed input", line)
		}
	}
}
