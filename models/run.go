package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Punch is one timing event on a card. ManualTime wins over CardTime.
type Punch struct {
	bun.BaseModel `bun:"table:punches,alias:p"`

	ID         int64      `bun:"id,pk,autoincrement" json:"id"`
	RunID      int64      `bun:"run_id,notnull" json:"runID"`
	StationID  int64      `bun:"station_id,notnull" json:"stationID"`
	CardTime   *time.Time `bun:"card_time" json:"cardTime,omitempty"`
	ManualTime *time.Time `bun:"manual_time" json:"manualTime,omitempty"`
	Ignore     bool       `bun:"ignore,notnull,default:false" json:"ignore"`
	Sequence   *int       `bun:"sequence" json:"sequence,omitempty"`

	Station *Station `bun:"rel:belongs-to,join:station_id=id" json:"-"`
}

// PunchTime returns the effective time of the punch.
func (p *Punch) PunchTime() *time.Time {
	return effective(p.ManualTime, p.CardTime)
}

// Control returns the control the punch's station belongs to, or nil.
func (p *Punch) Control() *Control {
	if p.Station == nil {
		return nil
	}
	return p.Station.Control
}

// Run is one card readout for one attempt of a runner.
type Run struct {
	bun.BaseModel `bun:"table:runs,alias:r"`

	ID           int64      `bun:"id,pk,autoincrement" json:"id"`
	CardID       int64      `bun:"card_id,notnull" json:"cardID"`
	RunnerID     *int64     `bun:"runner_id" json:"runnerID,omitempty"`
	CourseID     *int64     `bun:"course_id" json:"courseID,omitempty"`
	CardStart    *time.Time `bun:"card_start" json:"cardStart,omitempty"`
	ManualStart  *time.Time `bun:"manual_start" json:"manualStart,omitempty"`
	CardFinish   *time.Time `bun:"card_finish" json:"cardFinish,omitempty"`
	ManualFinish *time.Time `bun:"manual_finish" json:"manualFinish,omitempty"`
	CardCheck    *time.Time `bun:"card_check" json:"cardCheck,omitempty"`
	ManualCheck  *time.Time `bun:"manual_check" json:"manualCheck,omitempty"`
	CardClear    *time.Time `bun:"card_clear" json:"cardClear,omitempty"`
	ManualClear  *time.Time `bun:"manual_clear" json:"manualClear,omitempty"`
	ReadoutTime  *time.Time `bun:"readout_time" json:"readoutTime,omitempty"`
	Complete     bool       `bun:"complete,notnull,default:false" json:"complete"`
	Override     *Status    `bun:"override" json:"override,omitempty"`

	Runner  *Runner  `bun:"rel:belongs-to,join:runner_id=id" json:"-"`
	Course  *Course  `bun:"rel:belongs-to,join:course_id=id" json:"-"`
	Punches []*Punch `bun:"rel:has-many,join:id=run_id" json:"-"`
}

// Ref identifies the run.
func (r *Run) Ref() Ref { return Ref{Kind: KindRun, ID: r.ID} }

// StartTime returns the effective start time.
func (r *Run) StartTime() *time.Time { return effective(r.ManualStart, r.CardStart) }

// FinishTime returns the effective finish time.
func (r *Run) FinishTime() *time.Time { return effective(r.ManualFinish, r.CardFinish) }

// CheckTime returns the effective check time.
func (r *Run) CheckTime() *time.Time { return effective(r.ManualCheck, r.CardCheck) }

// ClearTime returns the effective clear time.
func (r *Run) ClearTime() *time.Time { return effective(r.ManualClear, r.CardClear) }

// Team returns the team of the run's runner, or nil.
func (r *Run) Team() *Team {
	if r.Runner == nil {
		return nil
	}
	return r.Runner.Team
}

func (r *Run) readout() time.Time {
	if r.ReadoutTime != nil {
		return *r.ReadoutTime
	}
	if t := r.FinishTime(); t != nil {
		return *t
	}
	return time.Time{}
}

func effective(manual, card *time.Time) *time.Time {
	if manual != nil {
		return manual
	}
	return card
}
