package models

import (
	"errors"
	"fmt"
	"strings"
)

// Errors raised by data-model mutations.
var (
	ErrDuplicateCard = errors.New("card already assigned")
	ErrInvalidCourse = errors.New("invalid course code")
)

// AssignCard gives runner the card id, refusing cards that another runner
// already holds.
func AssignCard(runner *Runner, card int64, runners []*Runner) error {
	for _, other := range runners {
		if other.ID == runner.ID || other.CardID == nil {
			continue
		}
		if *other.CardID == card {
			return fmt.Errorf("%w: card %d belongs to %s", ErrDuplicateCard, card, other.Name)
		}
	}
	runner.CardID = &card
	return nil
}

// AssignCourse sets the run's course from a course code. An empty code clears
// the assignment.
func AssignCourse(run *Run, code string, courses []*Course) error {
	code = strings.TrimSpace(code)
	if code == "" {
		run.Course, run.CourseID = nil, nil
		return nil
	}
	for _, c := range courses {
		if strings.EqualFold(c.Code, code) {
			id := c.ID
			run.Course, run.CourseID = c, &id
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidCourse, code)
}
