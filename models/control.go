package models

import "github.com/uptrace/bun"

// Reserved station numbers used by the timing hardware for non-control roles.
const (
	StationClear  int64 = 1
	StationCheck  int64 = 2
	StationStart  int64 = 3
	StationFinish int64 = 4

	// Stations below this number never stand for a course control.
	firstControlStation int64 = 10
)

// IsSpecialStation reports whether id is one of the reserved hardware roles.
func IsSpecialStation(id int64) bool {
	return id < firstControlStation
}

// Control is a checkpoint on the map. Override excludes it from sequence
// validation, e.g. when its station broke during the event.
type Control struct {
	bun.BaseModel `bun:"table:controls,alias:ctl"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Label    string `bun:"label,notnull,unique" json:"label"`
	Override bool   `bun:"override,notnull,default:false" json:"override"`

	Stations []*Station `bun:"rel:has-many,join:id=control_id" json:"-"`
}

// Station is a piece of timing hardware. Several stations may cover the same
// control.
type Station struct {
	bun.BaseModel `bun:"table:stations,alias:st"`

	ID        int64  `bun:"id,pk" json:"id"`
	ControlID *int64 `bun:"control_id" json:"controlID,omitempty"`

	Control *Control `bun:"rel:belongs-to,join:control_id=id" json:"-"`
}

// IsSpecial reports whether the station serves a reserved role.
func (s *Station) IsSpecial() bool {
	return IsSpecialStation(s.ID)
}
