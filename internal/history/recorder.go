package history

import (
	"log/slog"
	"time"

	"github.com/dgnsrekt/ui_capture/internal/capture"
	"github.com/dgnsrekt/ui_capture/internal/shots"
)

// Recorder writes one report line per finished run.
type Recorder struct {
	w       *Writer
	baseURL string
}

var _ capture.Observer = (*Recorder)(nil)

func NewRecorder(w *Writer, baseURL string) *Recorder {
	return &Recorder{w: w, baseURL: baseURL}
}

func (r *Recorder) RunStarted(string, time.Time) {}
func (r *Recorder) EntryFinished(string, shots.Entry) {}

func (r *Recorder) RunFinished(res capture.Result) {
	report := shots.Report{
		RunID:      res.RunID,
		BaseURL:    r.baseURL,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Captured:   res.Captured,
		Errors:     res.Errors,
		Entries:    res.Entries,
	}
	if err := r.w.Write(report); err != nil {
		slog.Warn("history record dropped", "run_id", res.RunID, "error", err)
	}
}
