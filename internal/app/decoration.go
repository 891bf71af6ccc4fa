package app

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// StepResult is the outcome of one best-effort platform call made after the
// primary operation already succeeded.
type StepResult struct {
	Step string
	Err  error
}

// Decoration collects the step results of one operation. A failed step
// leaves the room usable with degraded permissions or UI.
type Decoration struct {
	Steps []StepResult
}

func (d *Decoration) Record(step string, err error) {
	d.Steps = append(d.Steps, StepResult{Step: step, Err: err})
}

func (d *Decoration) OK() bool {
	return len(d.Failed()) == 0
}

func (d *Decoration) Failed() []StepResult {
	var out []StepResult
	for _, s := range d.Steps {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Err joins the failed steps, or returns nil.
func (d *Decoration) Err() error {
	var errs []error
	for _, s := range d.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", s.Step, s.Err))
	}
	return errors.Join(errs...)
}

// Report logs each failed step at warn level and counts it.
func (d *Decoration) Report(l zerolog.Logger, m *Metrics) {
	for _, s := range d.Failed() {
		l.Warn().Err(s.Err).Str("step", s.Step).Msg("decoration step failed")
		if m != nil {
			m.DecorationFailures.WithLabelValues(s.Step).Inc()
		}
	}
}
