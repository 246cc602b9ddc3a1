package results

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/padraicbc/oresults/models"
)

// Scoring methods of the 24h relay.
const (
	MethodRuns  = "runs"
	MethodKm    = "lkm"
	MethodSpeed = "speed"
)

const defaultOmissionPenalty = 30 * time.Minute

// Pools are the course codes of a 24h relay, consumed in order: the start
// pool in fixed order, the night and day pools in free order, then the finish
// pool in fixed order. An empty pool is skipped.
type Pools struct {
	Start  []string
	Night  []string
	Day    []string
	Finish []string
}

func (p Pools) tag() string {
	return strings.Join([]string{
		strings.Join(p.Start, "|"), strings.Join(p.Night, "|"),
		strings.Join(p.Day, "|"), strings.Join(p.Finish, "|"),
	}, "/")
}

// Relay24Config configures the 24h (and 12h) relay.
type Relay24Config struct {
	Start    time.Time
	Duration time.Duration
	Method   string
	// Speed is the expected time per performance km, used for courses
	// without an Expected entry.
	Speed           time.Duration
	Expected        map[string]time.Duration
	OmissionPenalty time.Duration
	// FreeOrder disables the roster rotation check; the 12h relay forces it.
	FreeOrder bool
	Pools     Pools
}

func (c Relay24Config) withDefaults() Relay24Config {
	if c.Method == "" {
		c.Method = MethodRuns
	}
	if c.OmissionPenalty == 0 {
		c.OmissionPenalty = defaultOmissionPenalty
	}
	return c
}

func (c Relay24Config) tag() string {
	keys := make([]string, 0, len(c.Expected))
	for k := range c.Expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	exp := make([]string, len(keys))
	for i, k := range keys {
		exp[i] = k + "=" + c.Expected[k].String()
	}
	return fmt.Sprintf("start=%s,dur=%s,method=%s,speed=%s,omit=%s,free=%t,pools=%s,exp=%s",
		c.Start.UTC().Format(time.RFC3339), c.Duration, c.Method, c.Speed,
		c.OmissionPenalty, c.FreeOrder, c.Pools.tag(), strings.Join(exp, ","))
}

// expected returns the expected running time of a course.
func (c Relay24Config) expected(course *models.Course) time.Duration {
	if course == nil {
		return 0
	}
	if d, ok := c.Expected[course.Code]; ok {
		return d
	}
	for code, d := range c.Expected {
		if strings.EqualFold(code, course.Code) {
			return d
		}
	}
	return time.Duration(course.PerformanceKm() * float64(c.Speed))
}

// completedRuns returns the team's complete, finished runs with a course,
// ordered by finish time.
func completedRuns(team *models.Team) []*models.Run {
	var runs []*models.Run
	for _, m := range team.Members {
		for _, r := range m.Runs {
			if r.Complete && r.Course != nil && r.FinishTime() != nil {
				runs = append(runs, r)
			}
		}
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].FinishTime().Before(*runs[j].FinishTime())
	})
	return runs
}

// checkOrder walks the runs against the rotating roster. Members passed over
// are dropped from the rotation for good. It returns the omitted-runner count
// and false when the rotation is violated.
func checkOrder(members []*models.Runner, runs []*models.Run) (int, bool) {
	remaining := append([]*models.Runner(nil), members...)
	cursor, removed := 0, 0
	for _, run := range runs {
		found := false
		for len(remaining) > 0 {
			if cursor >= len(remaining) {
				cursor = 0
			}
			if remaining[cursor] == run.Runner {
				found = true
				cursor++
				break
			}
			remaining = append(remaining[:cursor], remaining[cursor+1:]...)
			removed++
		}
		if !found {
			return 0, false
		}
	}
	return max(removed-1, 0), true
}

type pool struct {
	codes   []string
	ordered bool
}

func (p *pool) take(code string) bool {
	for i, c := range p.codes {
		if strings.EqualFold(c, code) {
			p.codes = append(p.codes[:i], p.codes[i+1:]...)
			return true
		}
		if p.ordered {
			return false
		}
	}
	return false
}

// checkPools consumes the runs' courses against the pools.
func checkPools(runs []*models.Run, pools Pools) bool {
	if len(pools.Start)+len(pools.Night)+len(pools.Day)+len(pools.Finish) == 0 {
		return true
	}
	var seq []*pool
	for _, p := range []pool{
		{codes: pools.Start, ordered: true},
		{codes: pools.Night},
		{codes: pools.Day},
	} {
		if len(p.codes) > 0 {
			seq = append(seq, &pool{codes: append([]string(nil), p.codes...), ordered: p.ordered})
		}
	}

	i, active := 0, 0
	for ; i < len(runs) && active < len(seq); i++ {
		code := runs[i].Course.Code
		taken := false
		for p := 0; p <= active && !taken; p++ {
			taken = seq[p].take(code)
		}
		if !taken {
			return false
		}
		for active < len(seq) && len(seq[active].codes) == 0 {
			active++
		}
	}

	rest := runs[i:]
	if len(rest) > len(pools.Finish) {
		return false
	}
	for k, r := range rest {
		if !strings.EqualFold(r.Course.Code, pools.Finish[k]) {
			return false
		}
	}
	return true
}

// Relay24Validator checks the running order and the course pools of a 24h
// relay team. Individual failed runs do not disqualify the team; they are
// penalized by the scorer.
type Relay24Validator struct {
	Config Relay24Config
}

func (v Relay24Validator) Tag() string { return "relay24:" + v.Config.tag() }

func (v Relay24Validator) Validate(e *Event, s Subject) (*Validation, error) {
	team, err := asTeam(s, ErrValidation)
	if err != nil {
		return nil, err
	}
	runs := completedRuns(team)
	if len(runs) == 0 {
		return &Validation{Status: models.StatusDidNotStart}, nil
	}

	out := &Validation{Status: models.StatusOK, Legs: make([]LegValidation, len(runs))}
	for i, r := range runs {
		out.Legs[i] = LegValidation{Index: i, Run: r, Status: legRunStatus(e, r)}
		if r.Course != nil {
			out.Legs[i].Leg = r.Course.Code
		}
	}
	if !v.Config.FreeOrder {
		omitted, ok := checkOrder(team.Members, runs)
		if !ok {
			out.Status = models.StatusDisqualified
			return out, nil
		}
		out.Omitted = omitted
	}
	if !checkPools(runs, v.Config.Pools) {
		out.Status = models.StatusDisqualified
	}
	return out, nil
}

// Relay24Scorer scores a 24h relay team. The effective deadline is the event
// end minus penalties for failed runs (expected minus actual time, never
// negative) and for omitted runners; valid runs finishing by the deadline
// count.
type Relay24Scorer struct {
	Config Relay24Config
}

func (sc Relay24Scorer) Tag() string { return "relay24:" + sc.Config.tag() }

func (sc Relay24Scorer) Score(e *Event, s Subject) (*Score, error) {
	team, err := asTeam(s, ErrUnscoreable)
	if err != nil {
		return nil, err
	}
	cfg := sc.Config
	val, err := e.Validate(team, Relay24Validator{Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnscoreable, err)
	}

	start := cfg.Start
	legStart := RelayStart{MassStart: &start, Unordered: true}
	var penalty time.Duration
	for _, lv := range val.Legs {
		if lv.Status == models.StatusOK {
			continue
		}
		var actual time.Duration
		if res, err := e.Score(lv.Run, ElapsedScorer{Start: legStart}); err == nil {
			actual = time.Duration(res.Value.(Duration))
		}
		if d := cfg.expected(lv.Run.Course) - actual; d > 0 {
			penalty += d
		}
	}
	penalty += time.Duration(val.Omitted) * cfg.OmissionPenalty
	deadline := start.Add(cfg.Duration - penalty)

	out := &Score{Start: &start, Finish: &deadline, Penalty: penalty, Omitted: val.Omitted}
	var last time.Time
	var ran time.Duration
	for _, lv := range val.Legs {
		f := lv.Run.FinishTime()
		if lv.Status != models.StatusOK || f.After(deadline) {
			continue
		}
		out.Runs++
		out.Distance += lv.Run.Course.PerformanceKm()
		if f.After(last) {
			last = *f
		}
		if res, err := e.Score(lv.Run, ElapsedScorer{Start: legStart}); err == nil {
			ran += time.Duration(res.Value.(Duration))
		}
	}

	switch cfg.Method {
	case MethodRuns:
		out.Value = RunCount{Runs: out.Runs, Last: last}
	case MethodKm:
		out.Value = KmCount{Km: out.Distance, Last: last}
	case MethodSpeed:
		if out.Distance == 0 {
			return nil, fmt.Errorf("%w: team %d has no distance for pace", ErrUnscoreable, team.ID)
		}
		out.Value = Pace(time.Duration(float64(ran) / out.Distance))
	default:
		return nil, fmt.Errorf("%w: %w: method %q", ErrUnscoreable, ErrUnknownStrategy, cfg.Method)
	}
	return out, nil
}
