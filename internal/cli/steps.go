package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// step is one action in a multi-call command, with an optional
// compensating action run during rollback.
type step struct {
	name string
	run  func() error
	undo func() error
}

// runSteps executes steps in order. On failure, the undo actions of every
// completed step run in reverse order before the failure is returned.
// Rollback failures are logged, not surfaced, so the original error stays
// visible.
func runSteps(steps []step) error {
	var done []step
	for _, s := range steps {
		if err := s.run(); err != nil {
			for i := len(done) - 1; i >= 0; i-- {
				if done[i].undo == nil {
					continue
				}
				if uerr := done[i].undo(); uerr != nil {
					logrus.WithError(uerr).Warnf("rollback of %q failed", done[i].name)
				}
			}
			return fmt.Errorf("%s: %w", s.name, err)
		}
		done = append(done, s)
	}
	return nil
}
