package results

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/padraicbc/oresults/models"
)

// EventKind selects the default strategies for teams and runs.
type EventKind string

const (
	KindClassic EventKind = "classic"
	KindRelay   EventKind = "relay"
	KindRelay24 EventKind = "relay24"
	KindRelay12 EventKind = "relay12"
	KindRounds  EventKind = "rounds"
)

// StartKind selects the default start-time strategy for runs.
type StartKind string

const (
	StartSelf           StartKind = "self"
	StartMass           StartKind = "mass"
	StartRelay          StartKind = "relay"
	StartRelayUnordered StartKind = "relay_unordered"
	StartRelayMass      StartKind = "relay_mass"
)

// Leg is one stage of a classic relay.
type Leg struct {
	Name        string
	Courses     []string // accepted course codes
	DefaultTime *time.Duration
	MassStart   *time.Time
}

// Options configures an event.
type Options struct {
	Kind          EventKind
	MassStart     *time.Time
	StartStrategy StartKind
	MinLapGap     time.Duration
	Legs          []Leg
	Relay24       Relay24Config
	OpenControls  []int64
	// SkipUnscoreable drops members that cannot be validated or scored from
	// rankings instead of keeping them without a score.
	SkipUnscoreable bool
}

// Args is the per-call strategy configuration accepted by Validator and
// Scorer. Zero fields fall back to the event options.
type Args struct {
	Course      *models.Course
	StartTime   StartTimer
	Legs        []Leg
	MinDiff     time.Duration
	ControlList []int64
	Blocks      *Pools
	Method      string
	Speed       time.Duration
	Duration    time.Duration
	Start       *time.Time
	Leg         int
}

// Validator decides whether a subject completed its task.
type Validator interface {
	Tag() string
	Validate(e *Event, s Subject) (*Validation, error)
}

// Scorer computes a comparable score for a subject.
type Scorer interface {
	Tag() string
	Score(e *Event, s Subject) (*Score, error)
}

// Event is the entry point to validation, scoring and ranking. It owns the
// cache and the memoized strategy instances. Not safe for concurrent use.
type Event struct {
	snap       *Snapshot
	opts       Options
	cache      *Cache
	log        *zap.Logger
	rankObs    RankingObserver
	strategies map[string]any
	rankings   map[string]*Ranking
}

// EventOption customizes NewEvent.
type EventOption func(*Event)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) EventOption {
	return func(e *Event) { e.log = l }
}

// WithCacheObserver reports cache activity to obs.
func WithCacheObserver(obs CacheObserver) EventOption {
	return func(e *Event) { e.cache.obs = obs }
}

// WithRankingObserver reports ranking computations to obs.
func WithRankingObserver(obs RankingObserver) EventOption {
	return func(e *Event) { e.rankObs = obs }
}

// NewEvent builds an event over snap.
func NewEvent(snap *Snapshot, opts Options, options ...EventOption) *Event {
	if opts.Kind == "" {
		opts.Kind = KindClassic
	}
	if opts.StartStrategy == "" {
		opts.StartStrategy = StartSelf
	}
	e := &Event{
		snap:       snap,
		opts:       opts,
		cache:      NewCache(nil),
		log:        zap.NewNop(),
		strategies: make(map[string]any),
		rankings:   make(map[string]*Ranking),
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// Snapshot returns the event data.
func (e *Event) Snapshot() *Snapshot { return e.snap }

// Options returns the event configuration.
func (e *Event) Options() Options { return e.opts }

// Cache returns the event cache.
func (e *Event) Cache() *Cache { return e.cache }

// Validate validates s with v, or with the event default for s when v is nil.
func (e *Event) Validate(s Subject, v Validator) (*Validation, error) {
	if isNil(s) {
		return nil, fmt.Errorf("%w: no subject", ErrValidation)
	}
	if v == nil {
		var err error
		if v, err = e.defaultValidator(s); err != nil {
			return nil, err
		}
	}
	ref, tag := s.Ref(), "validate/"+v.Tag()
	if hit, ok := e.cache.Get(ref, tag); ok {
		return hit.(*Validation), nil
	}
	res, err := v.Validate(e, s)
	if err != nil {
		return nil, err
	}
	e.cache.Set(ref, tag, res)
	e.log.Debug("validated",
		zap.Stringer("subject", ref),
		zap.String("strategy", v.Tag()),
		zap.Stringer("status", res.Status))
	return res, nil
}

// Score scores s with sc, or with the event default for s when sc is nil.
func (e *Event) Score(s Subject, sc Scorer) (*Score, error) {
	if isNil(s) {
		return nil, fmt.Errorf("%w: no subject", ErrUnscoreable)
	}
	if sc == nil {
		var err error
		if sc, err = e.defaultScorer(s); err != nil {
			return nil, err
		}
	}
	ref, tag := s.Ref(), "score/"+sc.Tag()
	if hit, ok := e.cache.Get(ref, tag); ok {
		return hit.(*Score), nil
	}
	res, err := sc.Score(e, s)
	if err != nil {
		return nil, err
	}
	e.cache.Set(ref, tag, res)
	e.log.Debug("scored", zap.Stringer("subject", ref), zap.String("strategy", sc.Tag()))
	return res, nil
}

// ClearCache drops memoized results. With a nil subject everything goes;
// otherwise the subject and every subject whose result depends on it through
// runner or team membership.
func (e *Event) ClearCache(s Subject) {
	if isNil(s) {
		e.cache.Clear()
		e.log.Debug("cache cleared")
		return
	}
	switch v := s.(type) {
	case *models.Run:
		e.cache.Invalidate(v.Ref())
		if v.Runner != nil {
			e.invalidateRunner(v.Runner)
		}
	case *models.Runner:
		e.invalidateRunner(v)
	case *models.Team:
		e.invalidateTeam(v)
	default:
		e.cache.Invalidate(s.Ref())
	}
}

func (e *Event) invalidateRunner(r *models.Runner) {
	e.cache.Invalidate(r.Ref())
	for _, run := range r.Runs {
		e.cache.Invalidate(run.Ref())
	}
	if r.Team != nil {
		e.invalidateTeam(r.Team)
	}
}

func (e *Event) invalidateTeam(t *models.Team) {
	e.cache.Invalidate(t.Ref())
	for _, m := range t.Members {
		e.cache.Invalidate(m.Ref())
		for _, run := range m.Runs {
			e.cache.Invalidate(run.Ref())
		}
	}
}

// Validator returns the memoized validator of the given kind configured by
// args.
func (e *Event) Validator(kind string, args Args) (Validator, error) {
	var v Validator
	switch kind {
	case "sequence":
		v = SequenceValidator{Course: args.Course}
	case "rounds":
		v = e.roundsValidator(args)
	case "relay":
		v = RelayValidator{Legs: e.legs(args)}
	case "relay24":
		v = Relay24Validator{Config: e.relay24Config(args)}
	case "open":
		v = OpenControlValidator{Controls: e.openControls(args)}
	case "runner":
		v = RunnerValidator{Run: e.runValidator()}
	case "leg":
		v = LegValidator{Index: args.Leg, Relay: RelayValidator{Legs: e.legs(args)}}
	case "split":
		v = SplitValidator{Index: args.Leg, Relay: RelayValidator{Legs: e.legs(args)}}
	default:
		return nil, fmt.Errorf("%w: validator %q", ErrUnknownStrategy, kind)
	}
	return remember(e, "validator/", v), nil
}

// Scorer returns the memoized scorer of the given kind configured by args.
func (e *Event) Scorer(kind string, args Args) (Scorer, error) {
	var sc Scorer
	switch kind {
	case "elapsed":
		start := args.StartTime
		if start == nil {
			start = e.defaultStart()
		}
		sc = ElapsedScorer{Start: start}
	case "rounds":
		sc = RoundsScorer{Validator: e.roundsValidator(args)}
	case "relay":
		sc = RelayScorer{Legs: e.legs(args), MassStart: e.opts.MassStart}
	case "relay24":
		sc = Relay24Scorer{Config: e.relay24Config(args)}
	case "open":
		sc = OpenControlScorer{Controls: e.openControls(args)}
	case "runner":
		sc = RunnerScorer{Run: e.runScorer()}
	case "leg":
		sc = LegScorer{Index: args.Leg, Relay: RelayScorer{Legs: e.legs(args), MassStart: e.opts.MassStart}}
	case "split":
		sc = SplitScorer{Index: args.Leg, Relay: RelayScorer{Legs: e.legs(args), MassStart: e.opts.MassStart}}
	default:
		return nil, fmt.Errorf("%w: scorer %q", ErrUnknownStrategy, kind)
	}
	return remember(e, "scorer/", sc), nil
}

func (e *Event) defaultValidator(s Subject) (Validator, error) {
	switch s.(type) {
	case *models.Run:
		return e.runValidator(), nil
	case *models.Runner:
		return remember[Validator](e, "validator/", RunnerValidator{Run: e.runValidator()}), nil
	case *models.Team:
		switch e.opts.Kind {
		case KindRelay:
			return e.Validator("relay", Args{})
		case KindRelay24, KindRelay12:
			return e.Validator("relay24", Args{})
		}
		return nil, fmt.Errorf("%w: %s event has no team validation", ErrValidation, e.opts.Kind)
	}
	return nil, fmt.Errorf("%w: unsupported subject %s", ErrValidation, s.Ref())
}

func (e *Event) defaultScorer(s Subject) (Scorer, error) {
	switch s.(type) {
	case *models.Run:
		return e.runScorer(), nil
	case *models.Runner:
		return remember[Scorer](e, "scorer/", RunnerScorer{Run: e.runScorer()}), nil
	case *models.Team:
		switch e.opts.Kind {
		case KindRelay:
			return e.Scorer("relay", Args{})
		case KindRelay24, KindRelay12:
			return e.Scorer("relay24", Args{})
		}
		return nil, fmt.Errorf("%w: %s event has no team scoring", ErrUnscoreable, e.opts.Kind)
	}
	return nil, fmt.Errorf("%w: unsupported subject %s", ErrUnscoreable, s.Ref())
}

func (e *Event) runValidator() Validator {
	if e.opts.Kind == KindRounds {
		return remember[Validator](e, "validator/", e.roundsValidator(Args{}))
	}
	return remember[Validator](e, "validator/", SequenceValidator{})
}

func (e *Event) runScorer() Scorer {
	if e.opts.Kind == KindRounds {
		return remember[Scorer](e, "scorer/", RoundsScorer{Validator: e.roundsValidator(Args{})})
	}
	return remember[Scorer](e, "scorer/", ElapsedScorer{Start: e.defaultStart()})
}

func (e *Event) defaultStart() StartTimer {
	var st StartTimer
	switch e.opts.StartStrategy {
	case StartMass:
		if e.opts.MassStart != nil {
			st = MassStart{At: *e.opts.MassStart}
		} else {
			st = SelfStart{}
		}
	case StartRelay:
		st = RelayStart{MassStart: e.opts.MassStart}
	case StartRelayUnordered:
		st = RelayStart{MassStart: e.opts.MassStart, Unordered: true}
	case StartRelayMass:
		st = RelayMassStart{MassStart: e.opts.MassStart}
	default:
		st = SelfStart{}
	}
	return remember(e, "start/", st)
}

func (e *Event) roundsValidator(args Args) RoundsValidator {
	gap := args.MinDiff
	if gap == 0 {
		gap = e.opts.MinLapGap
	}
	return RoundsValidator{Course: args.Course, MinGap: gap}
}

func (e *Event) legs(args Args) []Leg {
	if args.Legs != nil {
		return args.Legs
	}
	return e.opts.Legs
}

func (e *Event) openControls(args Args) []int64 {
	if args.ControlList != nil {
		return args.ControlList
	}
	return e.opts.OpenControls
}

func (e *Event) relay24Config(args Args) Relay24Config {
	cfg := e.opts.Relay24
	if e.opts.Kind == KindRelay12 {
		cfg.FreeOrder = true
	}
	if args.Blocks != nil {
		cfg.Pools = *args.Blocks
	}
	if args.Method != "" {
		cfg.Method = args.Method
	}
	if args.Speed != 0 {
		cfg.Speed = args.Speed
	}
	if args.Duration != 0 {
		cfg.Duration = args.Duration
	}
	if args.Start != nil {
		cfg.Start = *args.Start
	}
	return cfg.withDefaults()
}

// remember returns the already constructed strategy with the same tag, so
// equal configurations share one instance.
func remember[T interface{ Tag() string }](e *Event, prefix string, v T) T {
	key := prefix + v.Tag()
	if got, ok := e.strategies[key].(T); ok {
		return got
	}
	e.strategies[key] = v
	e.log.Debug("strategy created", zap.String("tag", key))
	return v
}

func isNil(s Subject) bool {
	switch v := s.(type) {
	case nil:
		return true
	case *models.Run:
		return v == nil
	case *models.Runner:
		return v == nil
	case *models.Team:
		return v == nil
	}
	return false
}
