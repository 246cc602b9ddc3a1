package models

import "github.com/uptrace/bun"

// Category groups runners or teams that are ranked together.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:cat"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull,unique" json:"name"`
}

// Team is a relay team. Members are kept in roster (Number) order.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:tm"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	Name       string `bun:"name,notnull" json:"name"`
	Number     int    `bun:"number,notnull" json:"number"`
	CategoryID *int64 `bun:"category_id" json:"categoryID,omitempty"`

	Category *Category `bun:"rel:belongs-to,join:category_id=id" json:"-"`
	Members  []*Runner `bun:"rel:has-many,join:id=team_id" json:"-"`
}

// Ref identifies the team.
func (t *Team) Ref() Ref { return Ref{Kind: KindTeam, ID: t.ID} }

// Runner is a competitor. Number is the roster position inside a team.
type Runner struct {
	bun.BaseModel `bun:"table:runners,alias:rn"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	Name       string `bun:"name,notnull" json:"name"`
	Number     int    `bun:"number,notnull,default:0" json:"number"`
	CardID     *int64 `bun:"card_id,unique" json:"cardID,omitempty"`
	TeamID     *int64 `bun:"team_id" json:"teamID,omitempty"`
	CategoryID *int64 `bun:"category_id" json:"categoryID,omitempty"`

	Team     *Team     `bun:"rel:belongs-to,join:team_id=id" json:"-"`
	Category *Category `bun:"rel:belongs-to,join:category_id=id" json:"-"`
	Runs     []*Run    `bun:"rel:has-many,join:id=runner_id" json:"-"`
}

// Ref identifies the runner.
func (r *Runner) Ref() Ref { return Ref{Kind: KindRunner, ID: r.ID} }

// LatestRun returns the runner's most recently read out run, or nil.
func (r *Runner) LatestRun() *Run {
	var latest *Run
	for _, run := range r.Runs {
		if latest == nil || run.readout().After(latest.readout()) {
			latest = run
		}
	}
	return latest
}
