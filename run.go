package dropout

import (
	"time"

	"github.com/xraph/dropout/id"
)

// Run describes one execution of the job. It is handed to middleware and
// extensions.
type Run struct {
	ID        id.RunID
	Name      string
	BatchSize int
	Policy    Policy
	StartedAt time.Time
}

// Summary is the outcome of a run.
type Summary struct {
	RunID               id.RunID      `json:"runId"`
	Cutoff              time.Time     `json:"cutoff"`
	Eligible            int64         `json:"eligible"`
	DroppedOut          int64         `json:"droppedOut"`
	ExcludedFromDropout int64         `json:"excludedFromDropout"`
	Pages               int           `json:"pages"`
	Elapsed             time.Duration `json:"-"`
	ElapsedMs           int64         `json:"elapsedMs"`
	Committed           bool          `json:"committed"`
}

// Finalize derives the excluded count and elapsed milliseconds.
func (s *Summary) Finalize(elapsed time.Duration) {
	s.ExcludedFromDropout = s.Eligible - s.DroppedOut
	s.Elapsed = elapsed
	s.ElapsedMs = elapsed.Milliseconds()
}
