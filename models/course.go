package models

import "github.com/uptrace/bun"

// Course is an ordered list of controls with optional leg length and climb.
type Course struct {
	bun.BaseModel `bun:"table:courses,alias:c"`

	ID     int64    `bun:"id,pk,autoincrement" json:"id"`
	Code   string   `bun:"code,notnull,unique" json:"code"`
	Length *float64 `bun:"length" json:"length,omitempty"` // metres
	Climb  *float64 `bun:"climb" json:"climb,omitempty"`   // metres

	Controls []*CourseControl `bun:"rel:has-many,join:id=course_id" json:"controls,omitempty"`
}

// CourseControl is one position on a course.
type CourseControl struct {
	bun.BaseModel `bun:"table:course_controls,alias:cc"`

	ID        int64    `bun:"id,pk,autoincrement" json:"id"`
	CourseID  int64    `bun:"course_id,notnull,unique:course_position" json:"courseID"`
	Position  int      `bun:"position,notnull,unique:course_position" json:"position"`
	ControlID int64    `bun:"control_id,notnull" json:"controlID"`
	Length    *float64 `bun:"length" json:"length,omitempty"`
	Climb     *float64 `bun:"climb" json:"climb,omitempty"`

	Control *Control `bun:"rel:belongs-to,join:control_id=id" json:"-"`
}

// ValidControls returns the course controls that take part in sequence
// validation: overridden controls and controls without any station are left
// out. Order follows the course.
func (c *Course) ValidControls() []*Control {
	out := make([]*Control, 0, len(c.Controls))
	for _, cc := range c.Controls {
		ctl := cc.Control
		if ctl == nil || ctl.Override || len(ctl.Stations) == 0 {
			continue
		}
		out = append(out, ctl)
	}
	return out
}

// PerformanceKm returns the course effort in "Leistungskilometer": length in
// km plus one km per 100 m of climb. Zero when the length is unknown.
func (c *Course) PerformanceKm() float64 {
	if c.Length == nil {
		return 0
	}
	km := *c.Length / 1000
	if c.Climb != nil {
		km += *c.Climb / 100
	}
	return km
}
