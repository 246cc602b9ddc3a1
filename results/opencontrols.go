package results

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/padraicbc/oresults/models"
)

// OpenControlValidator marks a run OK once it punched any of the watched
// controls. Used for advance-warning boards before the finish.
type OpenControlValidator struct {
	Controls []int64
}

func (v OpenControlValidator) Tag() string { return "open:" + idList(v.Controls) }

func (v OpenControlValidator) Validate(_ *Event, s Subject) (*Validation, error) {
	run, err := asRun(s, ErrValidation)
	if err != nil {
		return nil, err
	}
	if firstWatchedPunch(run, v.Controls) == nil {
		return &Validation{Status: models.StatusNotCompleted}, nil
	}
	return &Validation{Status: models.StatusOK}, nil
}

// OpenControlScorer scores a run by the time of its first punch at a watched
// control; runs without one get the zero Timestamp.
type OpenControlScorer struct {
	Controls []int64
}

func (sc OpenControlScorer) Tag() string { return "open:" + idList(sc.Controls) }

func (sc OpenControlScorer) Score(_ *Event, s Subject) (*Score, error) {
	run, err := asRun(s, ErrUnscoreable)
	if err != nil {
		return nil, err
	}
	t := firstWatchedPunch(run, sc.Controls)
	if t == nil {
		return &Score{Start: run.StartTime(), Value: Timestamp{}}, nil
	}
	return &Score{Start: run.StartTime(), Finish: t, Value: Timestamp(*t)}, nil
}

func firstWatchedPunch(run *models.Run, controls []int64) *time.Time {
	watched := make(map[int64]bool, len(controls))
	for _, id := range controls {
		watched[id] = true
	}
	var first *time.Time
	for _, p := range run.Punches {
		c, t := p.Control(), p.PunchTime()
		if p.Ignore || c == nil || t == nil || !watched[c.ID] {
			continue
		}
		if first == nil || t.Before(*first) {
			first = t
		}
	}
	return first
}

func idList(ids []int64) string {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
