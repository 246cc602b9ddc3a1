package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/oresults/models"
	"github.com/padraicbc/oresults/results"
)

type resultRow struct {
	Rank   int           `json:"rank,omitempty"`
	Ref    string        `json:"ref"`
	Name   string        `json:"name"`
	Status models.Status `json:"status"`
	Value  string        `json:"value,omitempty"`
	Behind string        `json:"behind,omitempty"`
	Start  *time.Time    `json:"start,omitempty"`
	Finish *time.Time    `json:"finish,omitempty"`
	Error  string        `json:"error,omitempty"`
	Legs   []resultRow   `json:"legs,omitempty"`
	Splits []resultRow   `json:"splits,omitempty"`
}

type rankingResponse struct {
	Key     string      `json:"key"`
	Results []resultRow `json:"results"`
}

func newRow(res results.Result) resultRow {
	row := resultRow{
		Rank:   res.Rank,
		Ref:    res.Subject.Ref().String(),
		Name:   results.DisplayName(res.Subject),
		Status: res.Status,
	}
	if res.Score != nil {
		row.Start, row.Finish = res.Score.Start, res.Score.Finish
		if res.Score.Value != nil {
			row.Value = res.Score.Value.String()
		}
	}
	if res.Behind != nil {
		row.Behind = res.Behind.String()
	}
	if res.Err != nil {
		row.Error = res.Err.Error()
	}
	return row
}

func rows(in []results.Result) []resultRow {
	out := make([]resultRow, len(in))
	for i, res := range in {
		out[i] = newRow(res)
	}
	return out
}

// strategyArgs reads the optional per-request strategy arguments.
func strategyArgs(c echo.Context) (results.Args, error) {
	var args results.Args
	if v := c.QueryParam("leg"); v != "" {
		leg, err := strconv.Atoi(v)
		if err != nil || leg < 0 {
			return args, echo.NewHTTPError(http.StatusBadRequest, "invalid leg")
		}
		args.Leg = leg
	}
	return args, nil
}

// rankingOptions builds ranking options from the query: reverse, policy
// (keep or skip), validator and scorer kinds.
func rankingOptions(c echo.Context, e *results.Event) (results.RankingOptions, error) {
	opts := results.RankingOptions{Reverse: c.QueryParam("reverse") == "true"}
	switch c.QueryParam("policy") {
	case "":
	case "keep":
		opts.Unscoreable = results.PolicyKeep
	case "skip":
		opts.Unscoreable = results.PolicySkip
	default:
		return opts, echo.NewHTTPError(http.StatusBadRequest, "policy must be keep or skip")
	}
	args, err := strategyArgs(c)
	if err != nil {
		return opts, err
	}
	if kind := c.QueryParam("validator"); kind != "" {
		if opts.Validator, err = e.Validator(kind, args); err != nil {
			return opts, httpError(err)
		}
	}
	if kind := c.QueryParam("scorer"); kind != "" {
		if opts.Scorer, err = e.Scorer(kind, args); err != nil {
			return opts, httpError(err)
		}
	}
	return opts, nil
}

// ranking writes the ranking of r. check, when set, runs under the same lock
// so the event cannot be swapped between the lookup and the ranking.
func (h *Handler) ranking(c echo.Context, r results.Rankable, check func(*results.Snapshot) error) error {
	return h.locked(func(e *results.Event) error {
		if check != nil {
			if err := check(e.Snapshot()); err != nil {
				return err
			}
		}
		opts, err := rankingOptions(c, e)
		if err != nil {
			return err
		}
		rk := e.Ranking(r, opts)
		return c.JSON(http.StatusOK, rankingResponse{Key: rk.Key(), Results: rows(rk.Results())})
	})
}

// CourseRanking ranks every run on a course.
func (h *Handler) CourseRanking(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	return h.ranking(c, results.CourseRuns{CourseID: id}, func(s *results.Snapshot) error {
		if s.Course(id) == nil {
			return notFound("course")
		}
		return nil
	})
}

// CategoryRunners ranks the individual runners of a category.
func (h *Handler) CategoryRunners(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	return h.ranking(c, results.CategoryRunners{CategoryID: id}, func(s *results.Snapshot) error {
		if s.Category(id) == nil {
			return notFound("category")
		}
		return nil
	})
}

// CategoryTeams ranks the teams of a category. Classic relays also report
// leg and split placings.
func (h *Handler) CategoryTeams(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	return h.locked(func(e *results.Event) error {
		if e.Snapshot().Category(id) == nil {
			return notFound("category")
		}
		opts, err := rankingOptions(c, e)
		if err != nil {
			return err
		}
		r := results.CategoryTeams{CategoryID: id}
		if e.Options().Kind != results.KindRelay {
			rk := e.Ranking(r, opts)
			return c.JSON(http.StatusOK, rankingResponse{Key: rk.Key(), Results: rows(rk.Results())})
		}
		rr, err := e.RelayRanking(r, opts)
		if err != nil {
			return httpError(err)
		}
		teams := rr.Teams()
		out := make([]resultRow, len(teams))
		for i, t := range teams {
			out[i] = newRow(t.Result)
			out[i].Legs = rows(t.Legs)
			out[i].Splits = rows(t.Splits)
		}
		return c.JSON(http.StatusOK, rankingResponse{Key: rr.Key(), Results: out})
	})
}

// OpenRuns ranks the runs not yet read out. Pair it with scorer=open to
// order them by their first watched control.
func (h *Handler) OpenRuns(c echo.Context) error {
	return h.ranking(c, results.OpenRuns{}, nil)
}
