package results

import (
	"fmt"
	"strings"
)

// Rankable is a collection whose members are ranked together.
type Rankable interface {
	Key() string
	Members(s *Snapshot) []Subject
}

// CourseRuns ranks every run assigned to a course.
type CourseRuns struct {
	CourseID int64
}

func (c CourseRuns) Key() string { return fmt.Sprintf("course/%d", c.CourseID) }

func (c CourseRuns) Members(s *Snapshot) []Subject {
	var out []Subject
	for _, r := range s.Runs() {
		if r.CourseID != nil && *r.CourseID == c.CourseID {
			out = append(out, r)
		}
	}
	return out
}

// CategoryRunners ranks the runners of a category.
type CategoryRunners struct {
	CategoryID int64
}

func (c CategoryRunners) Key() string { return fmt.Sprintf("category/%d/runners", c.CategoryID) }

func (c CategoryRunners) Members(s *Snapshot) []Subject {
	var out []Subject
	for _, r := range s.Runners() {
		if r.CategoryID != nil && *r.CategoryID == c.CategoryID {
			out = append(out, r)
		}
	}
	return out
}

// CategoryTeams ranks the teams of a category.
type CategoryTeams struct {
	CategoryID int64
}

func (c CategoryTeams) Key() string { return fmt.Sprintf("category/%d/teams", c.CategoryID) }

func (c CategoryTeams) Members(s *Snapshot) []Subject {
	var out []Subject
	for _, t := range s.Teams() {
		if t.CategoryID != nil && *t.CategoryID == c.CategoryID {
			out = append(out, t)
		}
	}
	return out
}

// OpenRuns is the synthetic set of runs still out on the course.
type OpenRuns struct{}

func (OpenRuns) Key() string { return "open" }

func (OpenRuns) Members(s *Snapshot) []Subject {
	var out []Subject
	for _, r := range s.Runs() {
		if !r.Complete {
			out = append(out, r)
		}
	}
	return out
}

// Subjects ranks an explicit list, mostly useful for tests and ad-hoc boards.
type Subjects struct {
	Name string
	List []Subject
}

// Key names the list by its members so equally named lists do not share a
// memoized ranking.
func (s Subjects) Key() string {
	refs := make([]string, len(s.List))
	for i, m := range s.List {
		refs[i] = m.Ref().String()
	}
	return "list/" + s.Name + ":" + strings.Join(refs, ",")
}

func (s Subjects) Members(*Snapshot) []Subject { return s.List }
