package results

import (
	"sort"
	"strings"

	"github.com/padraicbc/oresults/models"
)

// Tables holds the flat rows of one event as fetched from the store.
type Tables struct {
	Controls       []*models.Control
	Stations       []*models.Station
	Courses        []*models.Course
	CourseControls []*models.CourseControl
	Categories     []*models.Category
	Teams          []*models.Team
	Runners        []*models.Runner
	Runs           []*models.Run
	Punches        []*models.Punch
}

// Snapshot is the linked in-memory object graph of an event. Foreign keys are
// resolved into pointers once, so strategies never query the store.
type Snapshot struct {
	controls   map[int64]*models.Control
	stations   map[int64]*models.Station
	courses    map[int64]*models.Course
	categories map[int64]*models.Category
	teams      map[int64]*models.Team
	runners    map[int64]*models.Runner
	runs       map[int64]*models.Run
	punches    map[int64]*models.Punch

	t Tables
}

// NewSnapshot links the rows of t. Punches keep their input order within a
// run, which is the tie-break for equal punch times.
func NewSnapshot(t Tables) *Snapshot {
	s := &Snapshot{
		controls:   make(map[int64]*models.Control, len(t.Controls)),
		stations:   make(map[int64]*models.Station, len(t.Stations)),
		courses:    make(map[int64]*models.Course, len(t.Courses)),
		categories: make(map[int64]*models.Category, len(t.Categories)),
		teams:      make(map[int64]*models.Team, len(t.Teams)),
		runners:    make(map[int64]*models.Runner, len(t.Runners)),
		runs:       make(map[int64]*models.Run, len(t.Runs)),
		punches:    make(map[int64]*models.Punch, len(t.Punches)),
		t:          t,
	}

	for _, c := range t.Controls {
		c.Stations = nil
		s.controls[c.ID] = c
	}
	for _, st := range t.Stations {
		s.stations[st.ID] = st
		st.Control = nil
		if st.ControlID == nil {
			continue
		}
		if c, ok := s.controls[*st.ControlID]; ok {
			st.Control = c
			c.Stations = append(c.Stations, st)
		}
	}

	for _, c := range t.Courses {
		c.Controls = nil
		s.courses[c.ID] = c
	}
	for _, cc := range t.CourseControls {
		cc.Control = s.controls[cc.ControlID]
		if c, ok := s.courses[cc.CourseID]; ok {
			c.Controls = append(c.Controls, cc)
		}
	}
	for _, c := range t.Courses {
		sort.SliceStable(c.Controls, func(i, j int) bool {
			return c.Controls[i].Position < c.Controls[j].Position
		})
	}

	for _, c := range t.Categories {
		s.categories[c.ID] = c
	}
	for _, tm := range t.Teams {
		tm.Members = nil
		tm.Category = nil
		if tm.CategoryID != nil {
			tm.Category = s.categories[*tm.CategoryID]
		}
		s.teams[tm.ID] = tm
	}
	for _, rn := range t.Runners {
		rn.Runs = nil
		rn.Team, rn.Category = nil, nil
		if rn.CategoryID != nil {
			rn.Category = s.categories[*rn.CategoryID]
		}
		if rn.TeamID != nil {
			if tm, ok := s.teams[*rn.TeamID]; ok {
				rn.Team = tm
				tm.Members = append(tm.Members, rn)
			}
		}
		s.runners[rn.ID] = rn
	}
	for _, tm := range t.Teams {
		sort.SliceStable(tm.Members, func(i, j int) bool {
			return tm.Members[i].Number < tm.Members[j].Number
		})
	}

	for _, r := range t.Runs {
		r.Punches = nil
		r.Course, r.Runner = nil, nil
		if r.CourseID != nil {
			r.Course = s.courses[*r.CourseID]
		}
		if r.RunnerID != nil {
			if rn, ok := s.runners[*r.RunnerID]; ok {
				r.Runner = rn
				rn.Runs = append(rn.Runs, r)
			}
		}
		s.runs[r.ID] = r
	}
	for _, p := range t.Punches {
		st, ok := s.stations[p.StationID]
		if !ok {
			// Unknown hardware still needs an identity for classification.
			st = &models.Station{ID: p.StationID}
			s.stations[st.ID] = st
		}
		p.Station = st
		s.punches[p.ID] = p
		if r, ok := s.runs[p.RunID]; ok {
			r.Punches = append(r.Punches, p)
		}
	}
	return s
}

func (s *Snapshot) Control(id int64) *models.Control   { return s.controls[id] }
func (s *Snapshot) Station(id int64) *models.Station   { return s.stations[id] }
func (s *Snapshot) Course(id int64) *models.Course     { return s.courses[id] }
func (s *Snapshot) Category(id int64) *models.Category { return s.categories[id] }
func (s *Snapshot) Team(id int64) *models.Team         { return s.teams[id] }
func (s *Snapshot) Runner(id int64) *models.Runner     { return s.runners[id] }
func (s *Snapshot) Run(id int64) *models.Run           { return s.runs[id] }
func (s *Snapshot) Punch(id int64) *models.Punch       { return s.punches[id] }

// Courses returns all courses in input order.
func (s *Snapshot) Courses() []*models.Course { return s.t.Courses }

// Runners returns all runners in input order.
func (s *Snapshot) Runners() []*models.Runner { return s.t.Runners }

// Categories returns all categories in input order.
func (s *Snapshot) Categories() []*models.Category { return s.t.Categories }

// Teams returns all teams in input order.
func (s *Snapshot) Teams() []*models.Team { return s.t.Teams }

// Runs returns all runs in input order.
func (s *Snapshot) Runs() []*models.Run { return s.t.Runs }

// CourseByCode finds a course by its code, case-insensitively.
func (s *Snapshot) CourseByCode(code string) *models.Course {
	for _, c := range s.t.Courses {
		if strings.EqualFold(c.Code, code) {
			return c
		}
	}
	return nil
}

// Subject resolves a reference to its object.
func (s *Snapshot) Subject(ref models.Ref) (Subject, bool) {
	switch ref.Kind {
	case models.KindRun:
		if r := s.runs[ref.ID]; r != nil {
			return r, true
		}
	case models.KindRunner:
		if r := s.runners[ref.ID]; r != nil {
			return r, true
		}
	case models.KindTeam:
		if t := s.teams[ref.ID]; t != nil {
			return t, true
		}
	}
	return nil, false
}

// AddPunch attaches a new punch to its run, keeping the station linked.
func (s *Snapshot) AddPunch(p *models.Punch) {
	st, ok := s.stations[p.StationID]
	if !ok {
		st = &models.Station{ID: p.StationID}
		s.stations[st.ID] = st
	}
	p.Station = st
	s.punches[p.ID] = p
	s.t.Punches = append(s.t.Punches, p)
	if r, ok := s.runs[p.RunID]; ok {
		r.Punches = append(r.Punches, p)
	}
}

// RemovePunch detaches a punch from its run.
func (s *Snapshot) RemovePunch(p *models.Punch) {
	delete(s.punches, p.ID)
	if r, ok := s.runs[p.RunID]; ok {
		r.Punches = removePtr(r.Punches, p)
	}
	s.t.Punches = removePtr(s.t.Punches, p)
}

func removePtr[T any](in []*T, v *T) []*T {
	out := in[:0]
	for _, x := range in {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
