package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	bundb "github.com/padraicbc/oresults/db"
	"github.com/padraicbc/oresults/models"
	"github.com/padraicbc/oresults/results"
)

// Every mutation writes the database first and only then touches the
// in-memory snapshot, so a failed write leaves the event unchanged.

type punchUpdate struct {
	ManualTime      *time.Time `json:"manualTime"`
	ClearManualTime bool       `json:"clearManualTime"`
	Ignore          *bool      `json:"ignore"`
}

// UpdatePunch sets or clears a punch's manual time and its ignore flag.
func (h *Handler) UpdatePunch(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in punchUpdate
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	return h.locked(func(e *results.Event) error {
		snap := e.Snapshot()
		p := snap.Punch(id)
		if p == nil {
			return notFound("punch")
		}
		upd := *p
		if in.ClearManualTime {
			if p.CardTime == nil {
				return echo.NewHTTPError(http.StatusBadRequest, "punch has no card time, delete it instead")
			}
			upd.ManualTime = nil
		} else if in.ManualTime != nil {
			upd.ManualTime = in.ManualTime
		}
		if in.Ignore != nil {
			upd.Ignore = *in.Ignore
		}
		if err := bundb.Update(ctx, h.db, &upd, "manual_time", "ignore"); err != nil {
			return httpError(err)
		}
		p.ManualTime, p.Ignore = upd.ManualTime, upd.Ignore
		if run := snap.Run(p.RunID); run != nil {
			e.ClearCache(run)
		}
		return c.JSON(http.StatusOK, p)
	})
}

type newPunch struct {
	StationID  int64      `json:"stationID"`
	ManualTime *time.Time `json:"manualTime"`
}

// AddPunch records a punch entered by hand, e.g. from a backup punch card.
func (h *Handler) AddPunch(c echo.Context) error {
	runID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in newPunch
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.StationID <= 0 || in.ManualTime == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "stationID and manualTime are required")
	}
	ctx := c.Request().Context()
	return h.locked(func(e *results.Event) error {
		snap := e.Snapshot()
		run := snap.Run(runID)
		if run == nil {
			return notFound("run")
		}
		p := &models.Punch{RunID: run.ID, StationID: in.StationID, ManualTime: in.ManualTime}
		if err := bundb.Insert(ctx, h.db, p); err != nil {
			return httpError(err)
		}
		snap.AddPunch(p)
		e.ClearCache(run)
		return c.JSON(http.StatusCreated, p)
	})
}

// DeletePunch removes a punch.
func (h *Handler) DeletePunch(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	return h.locked(func(e *results.Event) error {
		snap := e.Snapshot()
		p := snap.Punch(id)
		if p == nil {
			return notFound("punch")
		}
		if err := bundb.Delete(ctx, h.db, &models.Punch{ID: p.ID}); err != nil {
			return httpError(err)
		}
		snap.RemovePunch(p)
		if run := snap.Run(p.RunID); run != nil {
			e.ClearCache(run)
		}
		return c.NoContent(http.StatusNoContent)
	})
}

type runUpdate struct {
	Course       *string        `json:"course"`
	Override     *models.Status `json:"override"`
	ClearStatus  bool           `json:"clearOverride"`
	ManualStart  *time.Time     `json:"manualStart"`
	ManualFinish *time.Time     `json:"manualFinish"`
	ClearTimes   bool           `json:"clearManualTimes"`
	Complete     *bool          `json:"complete"`
}

// UpdateRun edits the course assignment, status override, manual times and
// completion flag of a run. Only the fields present are changed.
func (h *Handler) UpdateRun(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in runUpdate
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	return h.locked(func(e *results.Event) error {
		snap := e.Snapshot()
		run := snap.Run(id)
		if run == nil {
			return notFound("run")
		}
		upd := *run
		if in.Course != nil {
			if err := models.AssignCourse(&upd, *in.Course, snap.Courses()); err != nil {
				return httpError(err)
			}
		}
		switch {
		case in.ClearStatus:
			upd.Override = nil
		case in.Override != nil:
			st := *in.Override
			upd.Override = &st
		}
		if in.ClearTimes {
			upd.ManualStart, upd.ManualFinish = nil, nil
		}
		if in.ManualStart != nil {
			upd.ManualStart = in.ManualStart
		}
		if in.ManualFinish != nil {
			upd.ManualFinish = in.ManualFinish
		}
		if in.Complete != nil {
			upd.Complete = *in.Complete
		}
		err := bundb.Update(ctx, h.db, &upd,
			"course_id", "override", "manual_start", "manual_finish", "complete")
		if err != nil {
			return httpError(err)
		}
		run.Course, run.CourseID = upd.Course, upd.CourseID
		run.Override = upd.Override
		run.ManualStart, run.ManualFinish = upd.ManualStart, upd.ManualFinish
		run.Complete = upd.Complete
		e.ClearCache(run)
		return c.JSON(http.StatusOK, run)
	})
}

type cardUpdate struct {
	Card int64 `json:"card"`
}

// AssignCard gives a runner a new card number.
func (h *Handler) AssignCard(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in cardUpdate
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.Card <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "card is required")
	}
	ctx := c.Request().Context()
	return h.locked(func(e *results.Event) error {
		snap := e.Snapshot()
		runner := snap.Runner(id)
		if runner == nil {
			return notFound("runner")
		}
		upd := *runner
		if err := models.AssignCard(&upd, in.Card, snap.Runners()); err != nil {
			return httpError(err)
		}
		if err := bundb.Update(ctx, h.db, &upd, "card_id"); err != nil {
			return httpError(err)
		}
		runner.CardID = upd.CardID
		e.ClearCache(runner)
		return c.JSON(http.StatusOK, runner)
	})
}

type controlUpdate struct {
	Override bool `json:"override"`
}

// OverrideControl takes a control out of sequence validation, or puts it
// back. Every course may use the control, so the whole cache is dropped.
func (h *Handler) OverrideControl(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in controlUpdate
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	return h.locked(func(e *results.Event) error {
		ctl := e.Snapshot().Control(id)
		if ctl == nil {
			return notFound("control")
		}
		if err := bundb.Update(ctx, h.db, &models.Control{ID: ctl.ID, Override: in.Override}, "override"); err != nil {
			return httpError(err)
		}
		ctl.Override = in.Override
		e.ClearCache(nil)
		return c.JSON(http.StatusOK, ctl)
	})
}
