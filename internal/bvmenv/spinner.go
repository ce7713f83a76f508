package bvmenv

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
)

// spinnerProgress wraps briandowns/spinner as a ProgressReporter, matching
// the teacher's use of a spinner around long-running install steps.
type spinnerProgress struct {
	s     *spinner.Spinner
	total int64
}

func newSpinnerProgress(message string, total int64) *spinnerProgress {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Prefix = message + " "
	s.Start()
	return &spinnerProgress{s: s, total: total}
}

func (p *spinnerProgress) UpdateSize(completed int64) {
	if p.total > 0 {
		p.s.Suffix = fmt.Sprintf(" %d/%d bytes", completed, p.total)
	}
}

func (p *spinnerProgress) Finish() {
	p.s.Stop()
}
