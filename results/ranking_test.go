package results

import (
	"errors"
	"testing"
	"time"

	"github.com/padraicbc/oresults/models"
)

type rankingCounter struct {
	calls   int
	members int
}

func (c *rankingCounter) RankingComputed(_ string, members int, _ time.Duration) {
	c.calls++
	c.members = members
}

// courseBoard builds runs on course A finishing after 30, 35, 30 minutes and
// one run missing a control.
func courseBoard() (*fixture, *models.Course, []*models.Run) {
	f := newFixture()
	c := f.course("A", 31, 32)
	runs := []*models.Run{
		f.run(nil, c, at(0), at(30), pn(31, 5), pn(32, 10)),
		f.run(nil, c, at(0), at(35), pn(31, 5), pn(32, 10)),
		f.run(nil, c, at(0), at(30), pn(31, 5), pn(32, 10)),
		f.run(nil, c, at(0), at(20), pn(31, 5)),
	}
	return f, c, runs
}

func TestRankingStandardCompetition(t *testing.T) {
	f, c, runs := courseBoard()
	e := f.event(Options{})

	res := e.Ranking(CourseRuns{CourseID: c.ID}, RankingOptions{}).Results()
	if len(res) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(res))
	}
	wantOrder := []*models.Run{runs[0], runs[2], runs[1], runs[3]}
	wantRanks := []int{1, 1, 3, 0}
	for i, r := range res {
		if r.Subject != wantOrder[i] {
			t.Errorf("Position %d: expected run %d, got %s", i, wantOrder[i].ID, r.Subject.Ref())
		}
		if r.Rank != wantRanks[i] {
			t.Errorf("Position %d: expected rank %d, got %d", i, wantRanks[i], r.Rank)
		}
	}
	if res[3].Status != models.StatusMissingControls {
		t.Errorf("Expected the mispunch last, got %s", res[3].Status)
	}
	if res[2].Behind == nil || res[2].Behind.Time != 5*time.Minute {
		t.Errorf("Expected third place +5:00, got %v", res[2].Behind)
	}
	if res[3].Behind != nil {
		t.Errorf("Expected no gap for an unranked entry")
	}
}

func TestRankingLookups(t *testing.T) {
	f, c, runs := courseBoard()
	stray := f.run(nil, nil, at(0), at(10))
	e := f.event(Options{})
	rk := e.Ranking(CourseRuns{CourseID: c.ID}, RankingOptions{})

	if got := rk.Rank(runs[1]); got != 3 {
		t.Errorf("Expected rank 3, got %d", got)
	}
	if sc := rk.Score(runs[1]); sc == nil || time.Duration(sc.Value.(Duration)) != 35*time.Minute {
		t.Errorf("Expected 35m score, got %+v", sc)
	}
	info, ok := rk.Info(runs[3])
	if !ok || info.Rank != 0 || info.Status != models.StatusMissingControls {
		t.Errorf("Unexpected info for the mispunch: %+v", info)
	}
	if _, ok := rk.Info(stray); ok {
		t.Error("Expected a run on no course not to be a member")
	}
	if rk.Rank(nil) != 0 {
		t.Error("Expected rank 0 for nil")
	}
}

func TestRankingIsComputedOnce(t *testing.T) {
	f, c, _ := courseBoard()
	obs := &rankingCounter{}
	e := f.event(Options{}, WithRankingObserver(obs))

	rk := e.Ranking(CourseRuns{CourseID: c.ID}, RankingOptions{})
	rk.Results()
	rk.Rank(e.Snapshot().Runs()[0])
	rk.Info(e.Snapshot().Runs()[1])
	if obs.calls != 1 {
		t.Errorf("Expected one computation, got %d", obs.calls)
	}
	if obs.members != 4 {
		t.Errorf("Expected 4 members, got %d", obs.members)
	}
	if again := e.Ranking(CourseRuns{CourseID: c.ID}, RankingOptions{}); again != rk {
		t.Error("Expected equal requests to share the ranking")
	}

	rk.Invalidate()
	rk.Results()
	if obs.calls != 2 {
		t.Errorf("Expected recomputation after Invalidate, got %d", obs.calls)
	}
}

func TestRankingFollowsCacheInvalidation(t *testing.T) {
	f, c, runs := courseBoard()
	obs := &rankingCounter{}
	e := f.event(Options{}, WithRankingObserver(obs))
	rk := e.Ranking(CourseRuns{CourseID: c.ID}, RankingOptions{})

	if rk.Rank(runs[1]) != 3 {
		t.Fatalf("Expected rank 3 before the correction")
	}
	runs[1].ManualFinish = at(25)
	if rk.Rank(runs[1]) != 3 {
		t.Error("Expected the stale ranking until the cache is cleared")
	}
	e.ClearCache(runs[1])
	if got := rk.Rank(runs[1]); got != 1 {
		t.Errorf("Expected rank 1 after the correction, got %d", got)
	}
	if got := rk.Rank(runs[0]); got != 2 {
		t.Errorf("Expected rank 2 for the former winner, got %d", got)
	}
	if obs.calls != 2 {
		t.Errorf("Expected 2 computations, got %d", obs.calls)
	}
}

func TestRankingReverse(t *testing.T) {
	f := newFixture()
	c := f.course("A", 31)
	a := f.run(nil, c, at(0), at(10))
	b := f.run(nil, c, at(0), at(10))
	e := f.event(Options{})
	sc := fixedScorer{values: map[models.Ref]Value{
		a.Ref(): Duration(20 * time.Minute),
		b.Ref(): Duration(30 * time.Minute),
	}}
	ok := countingValidator{calls: new(int), status: models.StatusOK}

	res := e.Ranking(CourseRuns{CourseID: c.ID}, RankingOptions{Validator: ok, Scorer: sc, Reverse: true}).Results()
	if res[0].Subject != b || res[0].Rank != 1 {
		t.Fatalf("Expected the larger value first when reversed")
	}
	if res[1].Behind == nil || res[1].Behind.Time != 10*time.Minute {
		t.Errorf("Expected a positive gap of 10m, got %v", res[1].Behind)
	}
}

func TestRankingUnscoreablePolicy(t *testing.T) {
	f := newFixture()
	c := f.course("A", 31)
	done := f.run(nil, c, at(0), at(30), pn(31, 10))
	lost := f.run(nil, c, nil, at(40), pn(31, 10))

	keep := f.event(Options{})
	res := keep.Ranking(CourseRuns{CourseID: c.ID}, RankingOptions{}).Results()
	if len(res) != 2 {
		t.Fatalf("Expected both runs kept, got %d", len(res))
	}
	if res[0].Subject != done || res[1].Subject != lost {
		t.Fatalf("Expected the unscored run last")
	}
	if res[1].Rank != 0 || res[1].Score != nil || !errors.Is(res[1].Err, ErrUnscoreable) {
		t.Errorf("Expected an unranked entry carrying the error, got %+v", res[1])
	}

	skip := f.event(Options{SkipUnscoreable: true})
	if got := skip.Ranking(CourseRuns{CourseID: c.ID}, RankingOptions{}).Results(); len(got) != 1 {
		t.Errorf("Expected the unscoreable run skipped, got %d results", len(got))
	}
	forced := skip.Ranking(CourseRuns{CourseID: c.ID}, RankingOptions{Unscoreable: PolicyKeep}).Results()
	if len(forced) != 2 {
		t.Errorf("Expected PolicyKeep to override the event, got %d results", len(forced))
	}
}

func TestRankingTiesKeepMemberOrder(t *testing.T) {
	f := newFixture()
	c := f.course("A", 31)
	var runs []*models.Run
	for range 3 {
		runs = append(runs, f.run(nil, c, at(0), at(30), pn(31, 10)))
	}
	e := f.event(Options{})

	res := e.Ranking(CourseRuns{CourseID: c.ID}, RankingOptions{}).Results()
	for i, r := range res {
		if r.Subject != runs[i] || r.Rank != 1 {
			t.Errorf("Position %d: expected run %d with rank 1, got %s rank %d", i, runs[i].ID, r.Subject.Ref(), r.Rank)
		}
	}
}

func TestCategoryRunnersAndOpenRuns(t *testing.T) {
	f := newFixture()
	c := f.course("A", 31)
	cat := f.category("M21")
	fast, slow, other := f.runner("fast", nil), f.runner("slow", nil), f.runner("other", nil)
	fast.CategoryID, slow.CategoryID = ptr(cat.ID), ptr(cat.ID)
	f.run(slow, c, at(0), at(40), pn(31, 10))
	f.run(fast, c, at(0), at(30), pn(31, 10))
	out := f.run(other, c, at(0), nil, pn(31, 10))
	out.Complete = false
	e := f.event(Options{})

	res := e.Ranking(CategoryRunners{CategoryID: cat.ID}, RankingOptions{}).Results()
	if len(res) != 2 || res[0].Subject != fast || res[1].Subject != slow {
		t.Fatalf("Unexpected category ranking %+v", res)
	}

	open := e.Ranking(OpenRuns{}, RankingOptions{Unscoreable: PolicyKeep}).Results()
	if len(open) != 1 || open[0].Subject != out {
		t.Errorf("Expected only the incomplete run on the open board, got %d", len(open))
	}
	if open[0].Status != models.StatusNotCompleted {
		t.Errorf("Expected NOT_COMPLETED, got %s", open[0].Status)
	}
}

func TestRankingKeys(t *testing.T) {
	keys := map[string]bool{}
	for _, r := range []Rankable{CourseRuns{CourseID: 1}, CategoryRunners{CategoryID: 1}, CategoryTeams{CategoryID: 1}, OpenRuns{}} {
		if keys[r.Key()] {
			t.Errorf("Duplicate key %s", r.Key())
		}
		keys[r.Key()] = true
	}
}

func TestRankingSubjectsKeyedByMembers(t *testing.T) {
	f, _, runs := courseBoard()
	e := f.event(Options{})

	first := e.Ranking(Subjects{Name: "board", List: []Subject{runs[0], runs[1]}}, RankingOptions{})
	second := e.Ranking(Subjects{Name: "board", List: []Subject{runs[1], runs[3]}}, RankingOptions{})
	if first == second {
		t.Fatal("Expected lists with different members to get separate rankings")
	}
	res := second.Results()
	if len(res) != 2 || res[0].Subject != runs[1] || res[1].Subject != runs[3] {
		t.Errorf("Expected the second list's own members, got %d results", len(res))
	}
	again := e.Ranking(Subjects{Name: "board", List: []Subject{runs[0], runs[1]}}, RankingOptions{})
	if again != first {
		t.Error("Expected an identical list to reuse the memoized ranking")
	}
}
