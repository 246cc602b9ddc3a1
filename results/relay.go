package results

import (
	"fmt"
	"strings"
	"time"

	"github.com/padraicbc/oresults/models"
)

func legsTag(legs []Leg) string {
	parts := make([]string, len(legs))
	for i, l := range legs {
		p := l.Name + "=" + strings.Join(l.Courses, "|")
		if l.DefaultTime != nil {
			p += "~" + l.DefaultTime.String()
		}
		if l.MassStart != nil {
			p += "@" + l.MassStart.UTC().Format(time.RFC3339)
		}
		parts[i] = p
	}
	return strings.Join(parts, ";")
}

// legRuns assigns one team run to each leg: the first unused run, in roster
// order, whose course code is accepted by the leg.
func legRuns(team *models.Team, legs []Leg) []*models.Run {
	used := make(map[*models.Run]bool)
	out := make([]*models.Run, len(legs))
	for i, leg := range legs {
		for _, m := range team.Members {
			if out[i] != nil {
				break
			}
			for _, run := range m.Runs {
				if used[run] || run.Course == nil || !acceptsCourse(leg, run.Course.Code) {
					continue
				}
				out[i], used[run] = run, true
				break
			}
		}
	}
	return out
}

func acceptsCourse(leg Leg, code string) bool {
	for _, c := range leg.Courses {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

func legStart(leg Leg, mass *time.Time) StartTimer {
	if leg.MassStart != nil {
		return RelayMassStart{MassStart: leg.MassStart}
	}
	return RelayStart{MassStart: mass}
}

func asTeam(s Subject, kind error) (*models.Team, error) {
	team, ok := s.(*models.Team)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a team", kind, s.Ref())
	}
	return team, nil
}

// RelayValidator validates a classic relay team leg by leg. A leg without a
// valid run counts as OK when it has a default time. A leg with neither
// disqualifies the team when a later leg was run, and leaves it
// NOT_COMPLETED otherwise. Legs must finish in leg order.
type RelayValidator struct {
	Legs []Leg
}

func (v RelayValidator) Tag() string { return "relay:" + legsTag(v.Legs) }

func (v RelayValidator) Validate(e *Event, s Subject) (*Validation, error) {
	team, err := asTeam(s, ErrValidation)
	if err != nil {
		return nil, err
	}
	if len(v.Legs) == 0 {
		return nil, fmt.Errorf("%w: relay has no legs", ErrValidation)
	}

	runs := legRuns(team, v.Legs)
	lastRun := -1
	for i, r := range runs {
		if r != nil {
			lastRun = i
		}
	}

	out := &Validation{Status: models.StatusOK, Legs: make([]LegValidation, len(v.Legs))}
	var prevFinish *time.Time
	for i, leg := range v.Legs {
		lv := LegValidation{Index: i, Leg: leg.Name, Run: runs[i]}
		switch {
		case runs[i] != nil:
			lv.Status = legRunStatus(e, runs[i])
			if lv.Status != models.StatusOK && leg.DefaultTime != nil {
				lv.Status, lv.Defaulted = models.StatusOK, true
			}
			f := runs[i].FinishTime()
			if f != nil && prevFinish != nil && f.Before(*prevFinish) {
				lv.Status = models.StatusDisqualified
			}
			if f != nil {
				prevFinish = f
			}
		case leg.DefaultTime != nil:
			lv.Status, lv.Defaulted = models.StatusOK, true
		case i < lastRun:
			lv.Status = models.StatusDisqualified
		default:
			lv.Status = models.StatusNotCompleted
		}
		out.Legs[i] = lv
		out.Status = max(out.Status, lv.Status)
	}
	return out, nil
}

func legRunStatus(e *Event, run *models.Run) models.Status {
	val, err := e.Validate(run, nil)
	if err != nil {
		return models.StatusNotCompleted
	}
	return val.Status
}

// RelayScorer sums leg times. A valid run counts its elapsed time, capped at
// the leg's default time; a leg without a valid run counts its default time.
// When any leg has neither the whole team scores zero.
type RelayScorer struct {
	Legs      []Leg
	MassStart *time.Time
}

func (sc RelayScorer) Tag() string {
	tag := "relay:" + legsTag(sc.Legs)
	if sc.MassStart != nil {
		tag += "@" + sc.MassStart.UTC().Format(time.RFC3339)
	}
	return tag
}

func (sc RelayScorer) Score(e *Event, s Subject) (*Score, error) {
	team, err := asTeam(s, ErrUnscoreable)
	if err != nil {
		return nil, err
	}
	if len(sc.Legs) == 0 {
		return nil, fmt.Errorf("%w: relay has no legs", ErrUnscoreable)
	}

	runs := legRuns(team, sc.Legs)
	out := &Score{Legs: make([]LegScore, len(sc.Legs))}
	var total time.Duration
	collapsed := false
	for i, leg := range sc.Legs {
		ls := LegScore{Index: i, Leg: leg.Name, Run: runs[i]}
		if runs[i] != nil && legRunStatus(e, runs[i]) == models.StatusOK {
			if res, err := e.Score(runs[i], ElapsedScorer{Start: legStart(leg, sc.MassStart)}); err == nil {
				d := time.Duration(res.Value.(Duration))
				if leg.DefaultTime != nil && d > *leg.DefaultTime {
					d = *leg.DefaultTime
				}
				ls.Start, ls.Finish, ls.Time, ls.Valid = res.Start, res.Finish, Duration(d), true
			}
		}
		if !ls.Valid && leg.DefaultTime != nil {
			ls.Time, ls.Valid, ls.Defaulted = Duration(*leg.DefaultTime), true, true
		}
		if !ls.Valid {
			collapsed = true
		}
		total += time.Duration(ls.Time)
		out.Legs[i] = ls
		if out.Start == nil && ls.Start != nil {
			out.Start = ls.Start
		}
		if ls.Finish != nil {
			out.Finish = ls.Finish
		}
	}
	if collapsed {
		total = 0
	}
	out.Value = Duration(total)
	return out, nil
}

// LegScorer scores a team by one relay leg.
type LegScorer struct {
	Index int
	Relay RelayScorer
}

func (sc LegScorer) Tag() string { return fmt.Sprintf("leg:%d:%s", sc.Index, sc.Relay.Tag()) }

func (sc LegScorer) Score(e *Event, s Subject) (*Score, error) {
	res, err := e.Score(s, sc.Relay)
	if err != nil {
		return nil, err
	}
	if sc.Index < 0 || sc.Index >= len(res.Legs) {
		return nil, fmt.Errorf("%w: no leg %d", ErrUnscoreable, sc.Index)
	}
	ls := res.Legs[sc.Index]
	if !ls.Valid {
		return nil, fmt.Errorf("%w: leg %d of %s has no valid run", ErrUnscoreable, sc.Index, s.Ref())
	}
	return &Score{Start: ls.Start, Finish: ls.Finish, Value: ls.Time, Legs: []LegScore{ls}}, nil
}

// SplitScorer scores a team by its cumulative time through leg Index.
type SplitScorer struct {
	Index int
	Relay RelayScorer
}

func (sc SplitScorer) Tag() string { return fmt.Sprintf("split:%d:%s", sc.Index, sc.Relay.Tag()) }

func (sc SplitScorer) Score(e *Event, s Subject) (*Score, error) {
	res, err := e.Score(s, sc.Relay)
	if err != nil {
		return nil, err
	}
	if sc.Index < 0 || sc.Index >= len(res.Legs) {
		return nil, fmt.Errorf("%w: no leg %d", ErrUnscoreable, sc.Index)
	}
	out := &Score{Start: res.Start}
	var total time.Duration
	for _, ls := range res.Legs[:sc.Index+1] {
		if !ls.Valid {
			return nil, fmt.Errorf("%w: leg %d of %s has no valid run", ErrUnscoreable, ls.Index, s.Ref())
		}
		total += time.Duration(ls.Time)
		if ls.Finish != nil {
			out.Finish = ls.Finish
		}
	}
	out.Value = Duration(total)
	return out, nil
}

// LegValidator validates a team by one relay leg.
type LegValidator struct {
	Index int
	Relay RelayValidator
}

func (v LegValidator) Tag() string { return fmt.Sprintf("leg:%d:%s", v.Index, v.Relay.Tag()) }

func (v LegValidator) Validate(e *Event, s Subject) (*Validation, error) {
	res, err := e.Validate(s, v.Relay)
	if err != nil {
		return nil, err
	}
	if v.Index < 0 || v.Index >= len(res.Legs) {
		return nil, fmt.Errorf("%w: no leg %d", ErrValidation, v.Index)
	}
	lv := res.Legs[v.Index]
	return &Validation{Status: lv.Status, Legs: []LegValidation{lv}}, nil
}

// SplitValidator validates a team by its worst leg status through leg Index.
type SplitValidator struct {
	Index int
	Relay RelayValidator
}

func (v SplitValidator) Tag() string { return fmt.Sprintf("split:%d:%s", v.Index, v.Relay.Tag()) }

func (v SplitValidator) Validate(e *Event, s Subject) (*Validation, error) {
	res, err := e.Validate(s, v.Relay)
	if err != nil {
		return nil, err
	}
	if v.Index < 0 || v.Index >= len(res.Legs) {
		return nil, fmt.Errorf("%w: no leg %d", ErrValidation, v.Index)
	}
	out := &Validation{Status: models.StatusOK, Legs: res.Legs[:v.Index+1]}
	for _, lv := range out.Legs {
		out.Status = max(out.Status, lv.Status)
	}
	return out, nil
}
