package results

import (
	"fmt"
	"time"

	"github.com/padraicbc/oresults/models"
)

// RoundsValidator counts laps on a cyclic course. The course controls form
// one lap; punches are matched in order lap after lap, and a match that comes
// sooner than MinGap after the previous one is reclassified as additional.
// The controls left in an unfinished last lap are reported as missing.
type RoundsValidator struct {
	Course *models.Course
	MinGap time.Duration
}

func (v RoundsValidator) Tag() string {
	tag := fmt.Sprintf("rounds:gap=%s", v.MinGap)
	if v.Course != nil {
		tag += fmt.Sprintf(",course=%d", v.Course.ID)
	}
	return tag
}

func (v RoundsValidator) Validate(_ *Event, s Subject) (*Validation, error) {
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

	lap := course.ValidControls()
	effective, ignored := SelectPunches(run)
	diff := make([]DiffEntry, 0, len(effective))
	laps, pos := 0, 0
	var last *time.Time
	for _, p := range effective {
		t := p.PunchTime()
		if len(lap) > 0 && matches(p, lap[pos]) && (last == nil || t.Sub(*last) >= v.MinGap) {
			diff = append(diff, DiffEntry{Mark: MarkOK, Punch: p, Control: lap[pos]})
			last = t
			if pos++; pos == len(lap) {
				laps, pos = laps+1, 0
			}
			continue
		}
		mark := MarkAdditional
		if models.IsSpecialStation(p.StationID) {
			mark = MarkSpecial
		}
		diff = append(diff, DiffEntry{Mark: mark, Punch: p, Control: p.Control()})
	}
	if pos > 0 {
		for _, c := range lap[pos:] {
			diff = append(diff, DiffEntry{Mark: MarkMissing, Control: c})
		}
	}

	return &Validation{
		Status:     runStatus(run, false),
		Entries:    insertIgnored(diff, ignored),
		OutOfOrder: outOfOrder(effective),
		Laps:       laps,
	}, nil
}

// RoundsScorer scores a run by its completed lap count.
type RoundsScorer struct {
	Validator RoundsValidator
}

func (sc RoundsScorer) Tag() string { return "rounds:" + sc.Validator.Tag() }

func (sc RoundsScorer) Score(e *Event, s Subject) (*Score, error) {
	run, err := asRun(s, ErrUnscoreable)
	if err != nil {
		return nil, err
	}
	val, err := e.Validate(run, sc.Validator)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnscoreable, err)
	}
	return &Score{Start: run.StartTime(), Finish: run.FinishTime(), Value: Laps(val.Laps)}, nil
}
