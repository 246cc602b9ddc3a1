package results

import (
	"fmt"

	"github.com/padraicbc/oresults/models"
)

// ElapsedScorer scores a run by finish minus start.
type ElapsedScorer struct {
	Start StartTimer
}

func (sc ElapsedScorer) Tag() string { return "elapsed:" + sc.start().Tag() }

func (sc ElapsedScorer) start() StartTimer {
	if sc.Start == nil {
		return SelfStart{}
	}
	return sc.Start
}

func (sc ElapsedScorer) Score(e *Event, s Subject) (*Score, error) {
	run, err := asRun(s, ErrUnscoreable)
	if err != nil {
		return nil, err
	}
	return elapsed(e, run, sc.start())
}

func elapsed(e *Event, run *models.Run, st StartTimer) (*Score, error) {
	start, err := st.StartTime(e, run)
	if err != nil {
		return nil, err
	}
	finish := run.FinishTime()
	if finish == nil {
		return nil, fmt.Errorf("%w: run %d has no finish time", ErrUnscoreable, run.ID)
	}
	d := finish.Sub(start)
	if d < 0 {
		return nil, fmt.Errorf("%w: run %d finished before its start", ErrUnscoreable, run.ID)
	}
	f := *finish
	return &Score{Start: &start, Finish: &f, Value: Duration(d)}, nil
}
