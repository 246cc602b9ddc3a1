package results

import "fmt"

// RelayResult is a team result with its per-leg and cumulative split
// placings.
type RelayResult struct {
	Result
	Legs   []Result
	Splits []Result
}

// RelayRanking ranks relay teams overall, by leg and by split. The leg and
// split rankings are built once per leg and reused for every team.
type RelayRanking struct {
	*Ranking
	legs   []*Ranking
	splits []*Ranking
}

// RelayRanking ranks the teams of r using the event relay legs. Nil
// strategies in opts default to the relay validator and scorer.
func (e *Event) RelayRanking(r Rankable, opts RankingOptions) (*RelayRanking, error) {
	legs := e.opts.Legs
	if len(legs) == 0 {
		return nil, fmt.Errorf("%w: event has no relay legs", ErrValidation)
	}
	rv := remember(e, "validator/", RelayValidator{Legs: legs})
	rs := remember(e, "scorer/", RelayScorer{Legs: legs, MassStart: e.opts.MassStart})
	if opts.Validator == nil {
		opts.Validator = rv
	}
	if opts.Scorer == nil {
		opts.Scorer = rs
	}

	out := &RelayRanking{
		Ranking: e.Ranking(r, opts),
		legs:    make([]*Ranking, len(legs)),
		splits:  make([]*Ranking, len(legs)),
	}
	for i := range legs {
		out.legs[i] = e.Ranking(r, RankingOptions{
			Validator:   remember[Validator](e, "validator/", LegValidator{Index: i, Relay: rv}),
			Scorer:      remember[Scorer](e, "scorer/", LegScorer{Index: i, Relay: rs}),
			Reverse:     opts.Reverse,
			Unscoreable: PolicyKeep,
		})
		out.splits[i] = e.Ranking(r, RankingOptions{
			Validator:   remember[Validator](e, "validator/", SplitValidator{Index: i, Relay: rv}),
			Scorer:      remember[Scorer](e, "scorer/", SplitScorer{Index: i, Relay: rs}),
			Reverse:     opts.Reverse,
			Unscoreable: PolicyKeep,
		})
	}
	return out, nil
}

// Leg returns the ranking of leg i.
func (rr *RelayRanking) Leg(i int) *Ranking { return rr.legs[i] }

// Split returns the cumulative ranking through leg i.
func (rr *RelayRanking) Split(i int) *Ranking { return rr.splits[i] }

// Teams returns every team result with its leg and split placings.
func (rr *RelayRanking) Teams() []RelayResult {
	base := rr.Results()
	out := make([]RelayResult, len(base))
	for i, res := range base {
		rel := RelayResult{
			Result: res,
			Legs:   make([]Result, len(rr.legs)),
			Splits: make([]Result, len(rr.splits)),
		}
		for j := range rr.legs {
			rel.Legs[j], _ = rr.legs[j].Info(res.Subject)
			rel.Splits[j], _ = rr.splits[j].Info(res.Subject)
		}
		out[i] = rel
	}
	return out
}
