package detector

import (
	"context"

	"anpr-pipeline/internal/domain/plates"
)

// MockSource yields a fixed set of candidates and an optional terminal
// error. It exists for tests and for running the pipeline without a real
// detector binary.
type MockSource struct {
	Candidates []plates.Candidate
	// Err, when set, surfaces as the stream error after all candidates
	// are consumed.
	Err error
	// OpenErr, when set, fails Detect itself.
	OpenErr error
}

func (m *MockSource) Detect(ctx context.Context, mediaPath, cameraID string) (*Stream, error) {
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}

	runCtx, cancel := context.WithCancel(ctx)
	stream := newStream(cancel, 4)

	go func() {
		defer stream.finish()
		for _, cand := range m.Candidates {
			if cand.CameraID == "" {
				cand.CameraID = cameraID
			}
			select {
			case stream.ch <- cand:
			case <-runCtx.Done():
				return
			}
		}
		if m.Err != nil {
			stream.setErr(m.Err)
		}
	}()

	return stream, nil
}
