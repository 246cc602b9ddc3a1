package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/oresults/models"
	"github.com/padraicbc/oresults/results"
)

type courseInfo struct {
	*models.Course
	PerformanceKm float64 `json:"performanceKm,omitempty"`
}

// Courses lists the courses with their controls.
func (h *Handler) Courses(c echo.Context) error {
	return h.locked(func(e *results.Event) error {
		courses := e.Snapshot().Courses()
		out := make([]courseInfo, len(courses))
		for i, co := range courses {
			out[i] = courseInfo{Course: co, PerformanceKm: co.PerformanceKm()}
		}
		return c.JSON(http.StatusOK, out)
	})
}

// Categories lists the categories.
func (h *Handler) Categories(c echo.Context) error {
	return h.locked(func(e *results.Event) error {
		return c.JSON(http.StatusOK, e.Snapshot().Categories())
	})
}

func subjectRef(c echo.Context) (models.Ref, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return models.Ref{}, err
	}
	kind := models.Kind(c.Param("kind"))
	switch kind {
	case models.KindRun, models.KindRunner, models.KindTeam:
		return models.Ref{Kind: kind, ID: id}, nil
	}
	return models.Ref{}, echo.NewHTTPError(http.StatusBadRequest, "kind must be run, runner or team")
}

func (h *Handler) subject(c echo.Context, fn func(e *results.Event, s results.Subject) error) error {
	ref, err := subjectRef(c)
	if err != nil {
		return err
	}
	return h.locked(func(e *results.Event) error {
		s, ok := e.Snapshot().Subject(ref)
		if !ok {
			return notFound(string(ref.Kind))
		}
		return fn(e, s)
	})
}

// Validate returns the validation of one subject, using the event default
// unless a validator kind is given.
func (h *Handler) Validate(c echo.Context) error {
	return h.subject(c, func(e *results.Event, s results.Subject) error {
		var v results.Validator
		if kind := c.QueryParam("validator"); kind != "" {
			args, err := strategyArgs(c)
			if err != nil {
				return err
			}
			if v, err = e.Validator(kind, args); err != nil {
				return httpError(err)
			}
		}
		res, err := e.Validate(s, v)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, res)
	})
}

type scoreResponse struct {
	*results.Score
	Value string `json:"value"`
}

// Score returns the score of one subject, using the event default unless a
// scorer kind is given.
func (h *Handler) Score(c echo.Context) error {
	return h.subject(c, func(e *results.Event, s results.Subject) error {
		var sc results.Scorer
		if kind := c.QueryParam("scorer"); kind != "" {
			args, err := strategyArgs(c)
			if err != nil {
				return err
			}
			if sc, err = e.Scorer(kind, args); err != nil {
				return httpError(err)
			}
		}
		res, err := e.Score(s, sc)
		if err != nil {
			return httpError(err)
		}
		out := scoreResponse{Score: res}
		if res.Value != nil {
			out.Value = res.Value.String()
		}
		return c.JSON(http.StatusOK, out)
	})
}
