package results

import (
	"fmt"

	"github.com/padraicbc/oresults/models"
)

// SequenceValidator checks a run's punches against its course (or Course,
// when set) with the LCS diff.
type SequenceValidator struct {
	Course *models.Course
}

func (v SequenceValidator) Tag() string {
	if v.Course != nil {
		return fmt.Sprintf("sequence:course=%d", v.Course.ID)
	}
	return "sequence"
}

func (v SequenceValidator) Validate(_ *Event, s Subject) (*Validation, error) {
	run, err := asRun(s, ErrValidation)
	if err != nil {
		return nil, err
	}
	course := v.Course
	if course == nil {
		course = run.Course
	}
	if course == nil {
		return nil, fmt.Errorf("%w: run %d has no course", ErrValidation, run.ID)
	}

	effective, ignored := SelectPunches(run)
	diff := Diff(effective, course.ValidControls())
	return &Validation{
		Status:     runStatus(run, hasMissing(diff)),
		Entries:    insertIgnored(diff, ignored),
		OutOfOrder: outOfOrder(effective),
	}, nil
}

// runStatus applies the status rules in priority order: operator override
// (never claiming completion of an incomplete readout), completeness, finish,
// missing controls.
func runStatus(run *models.Run, missing bool) models.Status {
	if run.Override != nil {
		if *run.Override == models.StatusOK && !run.Complete {
			return models.StatusNotCompleted
		}
		return *run.Override
	}
	switch {
	case !run.Complete:
		return models.StatusNotCompleted
	case run.FinishTime() == nil:
		return models.StatusDidNotFinish
	case missing:
		return models.StatusMissingControls
	}
	return models.StatusOK
}

// RunnerValidator validates a runner through its latest run.
type RunnerValidator struct {
	Run Validator
}

func (v RunnerValidator) Tag() string { return "runner:" + v.Run.Tag() }

func (v RunnerValidator) Validate(e *Event, s Subject) (*Validation, error) {
	runner, ok := s.(*models.Runner)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a runner", ErrValidation, s.Ref())
	}
	run := runner.LatestRun()
	if run == nil {
		return &Validation{Status: models.StatusDidNotStart}, nil
	}
	return e.Validate(run, v.Run)
}

// RunnerScorer scores a runner through its latest run.
type RunnerScorer struct {
	Run Scorer
}

func (sc RunnerScorer) Tag() string { return "runner:" + sc.Run.Tag() }

func (sc RunnerScorer) Score(e *Event, s Subject) (*Score, error) {
	runner, ok := s.(*models.Runner)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a runner", ErrUnscoreable, s.Ref())
	}
	run := runner.LatestRun()
	if run == nil {
		return nil, fmt.Errorf("%w: runner %d has no run", ErrUnscoreable, runner.ID)
	}
	return e.Score(run, sc.Run)
}

func asRun(s Subject, kind error) (*models.Run, error) {
	run, ok := s.(*models.Run)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a run", kind, s.Ref())
	}
	return run, nil
}
