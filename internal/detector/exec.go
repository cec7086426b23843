package detector

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"anpr-pipeline/internal/config"
	"anpr-pipeline/internal/domain/plates"
	"anpr-pipeline/internal/utils"
)

// maxLineSize bounds a single detection line. Crops travel base64-encoded on
// the same line, so the limit has to accommodate a full JPEG.
const maxLineSize = 16 << 20

// ExecSource runs an external detector command per video. The command
// receives the media path and camera id as flags, emits one JSON object per
// detection on stdout and diagnostics on stderr, and exits zero when the
// video is exhausted.
type ExecSource struct {
	command   string
	fps       int
	threshold float64
	log       zerolog.Logger
}

func NewExecSource(cfg config.DetectorConfig, log zerolog.Logger) *ExecSource {
	return &ExecSource{
		command:   cfg.Command,
		fps:       cfg.ExtractionFPS,
		threshold: cfg.ConfidenceThreshold,
		log:       log,
	}
}

// wireDetection is the detector's stdout line format.
type wireDetection struct {
	Plate      string      `json:"plate"`
	Confidence float64     `json:"confidence"`
	BBox       plates.BBox `json:"bbox"`
	FrameNo    int         `json:"frame_no"`
	CropJPEG   string      `json:"crop_jpeg"`
}

func (d *ExecSource) Detect(ctx context.Context, mediaPath, cameraID string) (*Stream, error) {
	runCtx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(runCtx, d.command,
		"--video", mediaPath,
		"--camera", cameraID,
		"--fps", strconv.Itoa(d.fps),
		"--min-confidence", strconv.FormatFloat(d.threshold, 'f', -1, 64),
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("detector stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("detector stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start detector: %w", err)
	}

	stream := newStream(cancel, 16)

	go d.logStderr(stderr)
	go d.produce(runCtx, cmd, stdout, cameraID, stream)

	return stream, nil
}

func (d *ExecSource) produce(ctx context.Context, cmd *exec.Cmd, stdout io.Reader, cameraID string, stream *Stream) {
	defer stream.finish()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64<<10), maxLineSize)

	processed := 0
	for scanner.Scan() {
		cand, ok := d.decodeLine(scanner.Bytes(), cameraID)
		if !ok {
			continue
		}
		// Inclusive threshold; below-threshold candidates never leave
		// this boundary.
		if cand.Confidence < d.threshold {
			continue
		}

		select {
		case stream.ch <- cand:
			processed++
		case <-ctx.Done():
			_ = cmd.Wait()
			return
		}
	}

	if err := scanner.Err(); err != nil {
		stream.setErr(fmt.Errorf("read detector output: %w", err))
		_ = cmd.Wait()
		return
	}

	if err := cmd.Wait(); err != nil && !stream.wasClosed() {
		stream.setErr(fmt.Errorf("detector exited: %w", err))
		return
	}

	d.log.Info().Int("detections", processed).Msg("detector finished")
}

// decodeLine turns one stdout line into a candidate. A malformed line is a
// single frame's fault: it is logged and skipped, never fatal to the stream.
func (d *ExecSource) decodeLine(line []byte, cameraID string) (plates.Candidate, bool) {
	if len(line) == 0 {
		return plates.Candidate{}, false
	}

	var w wireDetection
	if err := json.Unmarshal(line, &w); err != nil {
		d.log.Error().Err(err).Msg("malformed detector line, skipping")
		return plates.Candidate{}, false
	}

	crop, err := base64.StdEncoding.DecodeString(w.CropJPEG)
	if err != nil {
		d.log.Error().Err(err).Int("frame_no", w.FrameNo).Msg("bad crop encoding, skipping detection")
		return plates.Candidate{}, false
	}

	return plates.Candidate{
		Plate:           w.Plate,
		NormalizedPlate: utils.NormalizePlate(w.Plate),
		Confidence:      w.Confidence,
		BBox:            w.BBox,
		FrameNo:         w.FrameNo,
		CapturedAt:      time.Now().UTC(),
		CameraID:        cameraID,
		Crop:            crop,
	}, true
}

func (d *ExecSource) logStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		d.log.Debug().Str("detector", scanner.Text()).Msg("detector stderr")
	}
}
