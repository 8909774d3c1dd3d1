package yearstructure

import (
	"context"

	"registration-bot/internal/apperr"
)

type Step string

const (
	StepRoles           Step = "roles"
	StepChannels        Step = "channels"
	StepArchivePrevious Step = "archive-previous"
	StepSettings        Step = "settings"

	StepLocate          Step = "locate"
	StepCategories      Step = "categories"
	StepArchiveChannels Step = "archive-channels"
)

type Status string

const (
	StatusSucceeded    Status = "succeeded"
	StatusFailed       Status = "failed"
	StatusSkipped      Status = "skipped"
	StatusNotAttempted Status = "not-attempted"
)

// NoteNotRequested marks an optional step the caller left off.
const NoteNotRequested = "not requested"

type StepResult struct {
	Step   Step
	Status Status
	// Note explains a skip.
	Note string
	Err  error
}

// Progress receives human readable status lines while a saga runs.
type Progress func(ctx context.Context, msg string)

func (p Progress) send(ctx context.Context, msg string) {
	if p != nil {
		p(ctx, msg)
	}
}

// Observer sees every step outcome. Used for metrics.
type Observer func(saga string, r StepResult)

// skip is returned by a step body that had nothing to do.
type skip struct{ reason string }

func (s skip) Error() string { return s.reason }

type step struct {
	name Step
	// off marks a step the caller did not ask for.
	off bool
	run func(ctx context.Context) error
}

// runSteps executes steps strictly in order and stops at the first failure.
// Completed steps are never undone.
func runSteps(ctx context.Context, saga string, steps []step, observe Observer) ([]StepResult, error) {
	results := make([]StepResult, len(steps))
	for i, s := range steps {
		results[i] = StepResult{Step: s.name, Status: StatusNotAttempted}
	}

	for i, s := range steps {
		r := &results[i]
		if s.off {
			r.Status = StatusSkipped
			r.Note = NoteNotRequested
		} else if err := s.run(ctx); err != nil {
			if sk, ok := err.(skip); ok {
				r.Status = StatusSkipped
				r.Note = sk.reason
			} else {
				r.Status = StatusFailed
				r.Err = err
			}
		} else {
			r.Status = StatusSucceeded
		}
		if observe != nil {
			observe(saga, *r)
		}
		if r.Status == StatusFailed {
			for _, rest := range results[i+1:] {
				if observe != nil {
					observe(saga, rest)
				}
			}
			return results, partialFailure(results, i)
		}
	}
	return results, nil
}

func partialFailure(results []StepResult, failed int) *apperr.PartialFailureError {
	pf := &apperr.PartialFailureError{Step: string(results[failed].Step), Err: results[failed].Err}
	for _, r := range results[:failed] {
		if r.Status == StatusSucceeded {
			pf.Completed = append(pf.Completed, string(r.Step))
		}
	}
	for _, r := range results[failed+1:] {
		pf.NotAttempted = append(pf.NotAttempted, string(r.Step))
	}
	return pf
}
