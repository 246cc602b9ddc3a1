package results

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/padraicbc/oresults/models"
)

// RankingObserver is told about every full ranking computation.
type RankingObserver interface {
	RankingComputed(key string, members int, took time.Duration)
}

// Policy decides what happens to members that cannot be validated or scored.
type Policy int

const (
	// PolicyEvent follows Options.SkipUnscoreable.
	PolicyEvent Policy = iota
	// PolicyKeep keeps them, unranked and without a score.
	PolicyKeep
	// PolicySkip leaves them out.
	PolicySkip
)

// RankingOptions selects the strategies of a ranking. Nil strategies fall
// back to the event defaults for each member.
type RankingOptions struct {
	Validator   Validator
	Scorer      Scorer
	Reverse     bool
	Unscoreable Policy
}

func (o RankingOptions) key() string {
	v, sc := "default", "default"
	if o.Validator != nil {
		v = o.Validator.Tag()
	}
	if o.Scorer != nil {
		sc = o.Scorer.Tag()
	}
	return fmt.Sprintf("%s|%s|%t|%d", v, sc, o.Reverse, o.Unscoreable)
}

// Result is one ranked member.
type Result struct {
	Subject    Subject
	Status     models.Status
	Validation *Validation
	Score      *Score
	// Rank is 1-based and shared by equal values; 0 means unranked.
	Rank   int
	Behind *Gap
	Err    error
}

// Value is the score value, nil when unscored.
func (r Result) Value() Value {
	if r.Score == nil {
		return nil
	}
	return r.Score.Value
}

// Ranking orders the members of a rankable. It is computed on first access
// and again whenever the event cache changed generation.
type Ranking struct {
	e        *Event
	rankable Rankable
	opts     RankingOptions

	computed bool
	gen      uint64
	results  []Result
	index    map[models.Ref]int
}

// Ranking returns the ranking of r under opts. Equal requests share one
// instance.
func (e *Event) Ranking(r Rankable, opts RankingOptions) *Ranking {
	key := r.Key() + "|" + opts.key()
	if got, ok := e.rankings[key]; ok {
		return got
	}
	rk := &Ranking{e: e, rankable: r, opts: opts}
	e.rankings[key] = rk
	return rk
}

// Key identifies the ranked collection.
func (r *Ranking) Key() string { return r.rankable.Key() }

// Results returns every kept member, best first. The slice must not be
// modified.
func (r *Ranking) Results() []Result {
	r.ensure()
	return r.results
}

// Rank returns the rank of s, 0 when unranked or not a member.
func (r *Ranking) Rank(s Subject) int {
	res, _ := r.Info(s)
	return res.Rank
}

// Score returns the score of s within the ranking.
func (r *Ranking) Score(s Subject) *Score {
	res, _ := r.Info(s)
	return res.Score
}

// Info returns the full result of s.
func (r *Ranking) Info(s Subject) (Result, bool) {
	if isNil(s) {
		return Result{}, false
	}
	r.ensure()
	i, ok := r.index[s.Ref()]
	if !ok {
		return Result{}, false
	}
	return r.results[i], true
}

// Invalidate forces the next access to recompute.
func (r *Ranking) Invalidate() { r.computed = false }

func (r *Ranking) ensure() {
	if r.computed && r.gen == r.e.cache.Generation() {
		return
	}
	// Member validation may itself touch the cache, so the generation is
	// read before computing.
	gen := r.e.cache.Generation()
	r.compute()
	r.gen, r.computed = gen, true
}

func (r *Ranking) skip() bool {
	switch r.opts.Unscoreable {
	case PolicyKeep:
		return false
	case PolicySkip:
		return true
	}
	return r.e.opts.SkipUnscoreable
}

func (r *Ranking) compute() {
	started := time.Now()
	members := r.rankable.Members(r.e.snap)
	skip := r.skip()

	out := make([]Result, 0, len(members))
	for _, m := range members {
		res := Result{Subject: m, Status: models.StatusNotCompleted}
		val, verr := r.e.Validate(m, r.opts.Validator)
		if val != nil {
			res.Validation, res.Status = val, val.Status
		}
		sc, serr := r.e.Score(m, r.opts.Scorer)
		res.Score = sc
		if err := errors.Join(verr, serr); err != nil {
			r.e.log.Warn("unscoreable member",
				zap.String("ranking", r.rankable.Key()),
				zap.Stringer("subject", m.Ref()),
				zap.Bool("skipped", skip),
				zap.Error(err))
			if skip {
				continue
			}
			res.Err = err
		}
		out = append(out, res)
	}

	sort.SliceStable(out, func(i, j int) bool { return r.less(out[i], out[j]) })
	r.assignRanks(out)

	r.index = make(map[models.Ref]int, len(out))
	for i, res := range out {
		r.index[res.Subject.Ref()] = i
	}
	r.results = out

	took := time.Since(started)
	if r.e.rankObs != nil {
		r.e.rankObs.RankingComputed(r.rankable.Key(), len(out), took)
	}
	r.e.log.Debug("ranking computed",
		zap.String("ranking", r.rankable.Key()),
		zap.Int("members", len(out)),
		zap.Duration("took", took))
}

func (r *Ranking) compare(a, b Value) int {
	c := a.Compare(b)
	if r.opts.Reverse {
		return -c
	}
	return c
}

func (r *Ranking) less(a, b Result) bool {
	if a.Status != b.Status {
		return a.Status < b.Status
	}
	av, bv := a.Value(), b.Value()
	switch {
	case av == nil:
		return false
	case bv == nil:
		return true
	}
	return r.compare(av, bv) < 0
}

// assignRanks ranks OK scored members with standard competition ranking
// (1, 1, 3) and records the gap to the winner.
func (r *Ranking) assignRanks(out []Result) {
	var winner Value
	prev := -1
	for i := range out {
		res := &out[i]
		v := res.Value()
		if res.Status != models.StatusOK || v == nil || res.Err != nil {
			continue
		}
		if winner == nil {
			winner = v
		}
		if prev >= 0 && r.compare(v, out[prev].Value()) == 0 {
			res.Rank = out[prev].Rank
		} else {
			res.Rank = i + 1
		}
		prev = i
		g := v.Behind(winner)
		if r.opts.Reverse {
			g = g.Neg()
		}
		res.Behind = &g
	}
}
