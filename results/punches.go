package results

import (
	"sort"

	"github.com/padraicbc/oresults/models"
)

// SelectPunches splits a run's punches into the effective list used for
// validation and the complementary ignored list.
//
// A punch is effective when it is not marked ignore, its time lies strictly
// inside the run's (start, finish) window (a missing bound is unbounded) and
// its station belongs to a control. Both lists are ordered by punch time;
// equal times keep input order, punches without a time come last.
func SelectPunches(run *models.Run) (effective, ignored []*models.Punch) {
	start, finish := run.StartTime(), run.FinishTime()
	for _, p := range sortedPunches(run.Punches) {
		t := p.PunchTime()
		switch {
		case p.Ignore, t == nil, p.Control() == nil:
			ignored = append(ignored, p)
		case start != nil && !t.After(*start):
			ignored = append(ignored, p)
		case finish != nil && !t.Before(*finish):
			ignored = append(ignored, p)
		default:
			effective = append(effective, p)
		}
	}
	return effective, ignored
}

func sortedPunches(in []*models.Punch) []*models.Punch {
	out := make([]*models.Punch, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].PunchTime(), out[j].PunchTime()
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.Before(*b)
	})
	return out
}

// outOfOrder reports whether explicit sequence numbers decrease along the
// time-ordered list, i.e. the card data disagrees with the clock.
func outOfOrder(punches []*models.Punch) bool {
	last := -1
	for _, p := range punches {
		if p.Sequence == nil {
			continue
		}
		if *p.Sequence < last {
			return true
		}
		last = *p.Sequence
	}
	return false
}
