package results

import (
	"fmt"
	"time"

	"github.com/padraicbc/oresults/models"
)

// Subject is anything that can be validated or scored: a run, a runner or a
// team.
type Subject interface {
	Ref() models.Ref
}

// DisplayName is the label boards print for s: the runner or team name, or
// the card number of a run nobody claimed.
func DisplayName(s Subject) string {
	switch v := s.(type) {
	case *models.Run:
		if v.Runner != nil {
			return v.Runner.Name
		}
		return fmt.Sprintf("card %d", v.CardID)
	case *models.Runner:
		return v.Name
	case *models.Team:
		return v.Name
	}
	return s.Ref().String()
}

// Validation is the outcome of a validator.
type Validation struct {
	Status  models.Status `json:"status"`
	Entries []DiffEntry   `json:"entries,omitempty"`
	// OutOfOrder is set when card sequence numbers disagree with punch times.
	OutOfOrder bool            `json:"outOfOrder,omitempty"`
	Laps       int             `json:"laps,omitempty"`
	Legs       []LegValidation `json:"legs,omitempty"`
	Omitted    int             `json:"omitted,omitempty"`
}

// LegValidation is the per-leg (or per-run for 24h relays) part of a team
// validation.
type LegValidation struct {
	Index     int           `json:"index"`
	Leg       string        `json:"leg,omitempty"`
	Run       *models.Run   `json:"-"`
	Status    models.Status `json:"status"`
	Defaulted bool          `json:"defaulted,omitempty"`
}

// Score is the outcome of a scorer.
type Score struct {
	Start  *time.Time `json:"start,omitempty"`
	Finish *time.Time `json:"finish,omitempty"`
	Value  Value      `json:"-"`

	Legs     []LegScore    `json:"legs,omitempty"`
	Runs     int           `json:"runs,omitempty"`
	Distance float64       `json:"distance,omitempty"`
	Penalty  time.Duration `json:"penalty,omitempty"`
	Omitted  int           `json:"omitted,omitempty"`
}

// LegScore is one leg of a relay score. Valid is false when the leg had
// neither a valid run nor a default time.
type LegScore struct {
	Index     int         `json:"index"`
	Leg       string      `json:"leg,omitempty"`
	Run       *models.Run `json:"-"`
	Start     *time.Time  `json:"start,omitempty"`
	Finish    *time.Time  `json:"finish,omitempty"`
	Time      Duration    `json:"time"`
	Valid     bool        `json:"valid"`
	Defaulted bool        `json:"defaulted,omitempty"`
}
