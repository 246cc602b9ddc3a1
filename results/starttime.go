package results

import (
	"fmt"
	"time"

	"github.com/padraicbc/oresults/models"
)

// StartTimer resolves the instant a run's clock starts.
type StartTimer interface {
	Tag() string
	StartTime(e *Event, run *models.Run) (time.Time, error)
}

// SelfStart uses the run's own start punch.
type SelfStart struct{}

func (SelfStart) Tag() string { return "self" }

func (SelfStart) StartTime(_ *Event, run *models.Run) (time.Time, error) {
	if t := run.StartTime(); t != nil {
		return *t, nil
	}
	return time.Time{}, fmt.Errorf("%w: run %d has no start time", ErrUnscoreable, run.ID)
}

// MassStart gives every run the same start instant.
type MassStart struct {
	At time.Time
}

func (m MassStart) Tag() string { return "mass@" + m.At.UTC().Format(time.RFC3339) }

func (m MassStart) StartTime(*Event, *models.Run) (time.Time, error) { return m.At, nil }

// RelayStart chains runs inside a team: a run starts when the previous
// runner in roster order finished, falling back to the run's manual start and
// then to MassStart. Unordered instead takes the latest teammate finish before
// the run's first punch, for relays with free running order.
type RelayStart struct {
	MassStart *time.Time
	Unordered bool
}

func (r RelayStart) Tag() string {
	tag := "relay"
	if r.Unordered {
		tag = "relay_unordered"
	}
	if r.MassStart != nil {
		tag += "@" + r.MassStart.UTC().Format(time.RFC3339)
	}
	return tag
}

func (r RelayStart) StartTime(_ *Event, run *models.Run) (time.Time, error) {
	var handover *time.Time
	if r.Unordered {
		handover = latestTeamFinishBefore(run)
	} else {
		handover = previousRunnerFinish(run)
	}
	switch {
	case handover != nil:
		return *handover, nil
	case run.ManualStart != nil:
		return *run.ManualStart, nil
	case r.MassStart != nil:
		return *r.MassStart, nil
	}
	return time.Time{}, fmt.Errorf("%w: run %d has no relay start", ErrUnscoreable, run.ID)
}

// RelayMassStart is RelayStart that never starts before the mass start.
type RelayMassStart struct {
	MassStart *time.Time
	Unordered bool
}

func (r RelayMassStart) Tag() string {
	return "relay_mass:" + RelayStart(r).Tag()
}

func (r RelayMassStart) StartTime(e *Event, run *models.Run) (time.Time, error) {
	t, err := RelayStart(r).StartTime(e, run)
	if r.MassStart == nil {
		return t, err
	}
	if err != nil || t.Before(*r.MassStart) {
		return *r.MassStart, nil
	}
	return t, nil
}

func previousRunnerFinish(run *models.Run) *time.Time {
	team := run.Team()
	if team == nil {
		return nil
	}
	for i, m := range team.Members {
		if m != run.Runner {
			continue
		}
		if i == 0 {
			return nil
		}
		prev := team.Members[i-1].LatestRun()
		if prev == nil {
			return nil
		}
		return prev.FinishTime()
	}
	return nil
}

func latestTeamFinishBefore(run *models.Run) *time.Time {
	team := run.Team()
	first := firstRealPunch(run)
	if team == nil || first == nil {
		return nil
	}
	var latest *time.Time
	for _, m := range team.Members {
		for _, other := range m.Runs {
			if other == run || !other.Complete {
				continue
			}
			f := other.FinishTime()
			if f == nil || !f.Before(*first) {
				continue
			}
			if latest == nil || f.After(*latest) {
				latest = f
			}
		}
	}
	return latest
}

// firstRealPunch is the earliest counted punch on a control station.
func firstRealPunch(run *models.Run) *time.Time {
	var first *time.Time
	for _, p := range run.Punches {
		t := p.PunchTime()
		if p.Ignore || t == nil || models.IsSpecialStation(p.StationID) {
			continue
		}
		if first == nil || t.Before(*first) {
			first = t
		}
	}
	return first
}
