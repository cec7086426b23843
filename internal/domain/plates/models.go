package plates

import (
	"time"
)

// UploadStatus is the lifecycle of one uploaded video. Transitions are
// monotonic: queued -> processing -> done|failed.
type UploadStatus string

const (
	StatusQueued     UploadStatus = "queued"
	StatusProcessing UploadStatus = "processing"
	StatusDone       UploadStatus = "done"
	StatusFailed     UploadStatus = "failed"
)

// ReviewState is the human-review workflow state of a detection event.
// The worker only ever writes ReviewUnreviewed; the review API owns the rest.
type ReviewState string

const (
	ReviewUnreviewed ReviewState = "unreviewed"
	ReviewConfirmed  ReviewState = "confirmed"
	ReviewCorrected  ReviewState = "corrected"
	ReviewRejected   ReviewState = "rejected"
)

// BBox is the pixel bounding box of a detected plate within its frame.
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// JobMessage is the queue payload for one video-processing job.
type JobMessage struct {
	JobID       string `json:"job_id"`
	UploadID    string `json:"upload_id"`
	StoragePath string `json:"storage_path"`
	CameraID    string `json:"camera_id,omitempty"`
}

// Candidate is one plate observation produced by the detection source.
// FrameNo and CapturedAt are monotonically non-decreasing within one video.
// Crop holds the JPEG-encoded plate region.
type Candidate struct {
	Plate           string    `json:"plate"`
	NormalizedPlate string    `json:"normalized_plate"`
	Confidence      float64   `json:"confidence"`
	BBox            BBox      `json:"bbox"`
	FrameNo         int       `json:"frame_no"`
	CapturedAt      time.Time `json:"captured_at"`
	CameraID        string    `json:"camera_id,omitempty"`
	Crop            []byte    `json:"-"`
}
