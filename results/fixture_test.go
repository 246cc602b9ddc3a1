package results

import (
	"fmt"
	"time"

	"github.com/padraicbc/oresults/models"
)

var base = time.Date(2024, 5, 11, 10, 0, 0, 0, time.UTC)

// at returns base plus min minutes and optional seconds.
func at(min int, sec ...int) *time.Time {
	t := base.Add(time.Duration(min) * time.Minute)
	if len(sec) > 0 {
		t = t.Add(time.Duration(sec[0]) * time.Second)
	}
	return &t
}

func ptr[T any](v T) *T { return &v }

type punch struct {
	station int64
	at      *time.Time
	ignore  bool
}

func pn(station int64, min int, sec ...int) punch {
	return punch{station: station, at: at(min, sec...)}
}

// fixture builds event tables. Station ids double as control ids.
type fixture struct {
	t        Tables
	ids      int64
	controls map[int64]bool
	numbers  map[int64]int
}

func newFixture() *fixture {
	return &fixture{ids: 1000, controls: make(map[int64]bool), numbers: make(map[int64]int)}
}

func (f *fixture) id() int64 {
	f.ids++
	return f.ids
}

func (f *fixture) control(id int64) {
	if f.controls[id] {
		return
	}
	f.controls[id] = true
	f.t.Controls = append(f.t.Controls, &models.Control{ID: id, Label: fmt.Sprint(id)})
	f.t.Stations = append(f.t.Stations, &models.Station{ID: id, ControlID: ptr(id)})
}

func (f *fixture) course(code string, controls ...int64) *models.Course {
	c := &models.Course{ID: f.id(), Code: code}
	for i, ctl := range controls {
		f.control(ctl)
		f.t.CourseControls = append(f.t.CourseControls, &models.CourseControl{
			ID: f.id(), CourseID: c.ID, Position: i + 1, ControlID: ctl,
		})
	}
	f.t.Courses = append(f.t.Courses, c)
	return c
}

func (f *fixture) category(name string) *models.Category {
	c := &models.Category{ID: f.id(), Name: name}
	f.t.Categories = append(f.t.Categories, c)
	return c
}

func (f *fixture) team(name string, cat *models.Category) *models.Team {
	t := &models.Team{ID: f.id(), Name: name, Number: len(f.t.Teams) + 1}
	if cat != nil {
		t.CategoryID = ptr(cat.ID)
	}
	f.t.Teams = append(f.t.Teams, t)
	return t
}

func (f *fixture) runner(name string, team *models.Team) *models.Runner {
	r := &models.Runner{ID: f.id(), Name: name}
	if team != nil {
		f.numbers[team.ID]++
		r.TeamID, r.Number = ptr(team.ID), f.numbers[team.ID]
	}
	f.t.Runners = append(f.t.Runners, r)
	return r
}

// run adds a complete run. start or finish may be nil.
func (f *fixture) run(runner *models.Runner, course *models.Course, start, finish *time.Time, punches ...punch) *models.Run {
	r := &models.Run{ID: f.id(), CardID: f.ids, CardStart: start, CardFinish: finish, Complete: true}
	if runner != nil {
		r.RunnerID = ptr(runner.ID)
	}
	if course != nil {
		r.CourseID = ptr(course.ID)
	}
	if finish != nil {
		r.ReadoutTime = ptr(finish.Add(time.Minute))
	}
	for _, p := range punches {
		f.t.Punches = append(f.t.Punches, &models.Punch{
			ID: f.id(), RunID: r.ID, StationID: p.station, CardTime: p.at, Ignore: p.ignore,
		})
	}
	f.t.Runs = append(f.t.Runs, r)
	return r
}

func (f *fixture) event(opts Options, options ...EventOption) *Event {
	return NewEvent(NewSnapshot(f.t), opts, options...)
}

func marks(entries []DiffEntry) []Mark {
	out := make([]Mark, len(entries))
	for i, e := range entries {
		out[i] = e.Mark
	}
	return out
}

func sameMarks(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// countingValidator counts calls to detect cache misses.
type countingValidator struct {
	calls  *int
	status models.Status
}

func (v countingValidator) Tag() string { return "counting" }

func (v countingValidator) Validate(*Event, Subject) (*Validation, error) {
	*v.calls++
	return &Validation{Status: v.status}, nil
}

// fixedScorer scores every subject from a table keyed by ref.
type fixedScorer struct {
	values map[models.Ref]Value
	calls  *int
}

func (sc fixedScorer) Tag() string { return "fixed" }

func (sc fixedScorer) Score(_ *Event, s Subject) (*Score, error) {
	if sc.calls != nil {
		*sc.calls++
	}
	v, ok := sc.values[s.Ref()]
	if !ok {
		return nil, fmt.Errorf("%w: no value for %s", ErrUnscoreable, s.Ref())
	}
	return &Score{Value: v}, nil
}
