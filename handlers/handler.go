package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	bundb "github.com/padraicbc/oresults/db"
	"github.com/padraicbc/oresults/models"
	"github.com/padraicbc/oresults/results"
)

// EventFactory builds the event over a freshly loaded snapshot.
type EventFactory func(*results.Snapshot) *results.Event

// Handler holds shared dependencies used by all route handlers. The event
// is not safe for concurrent use, so every access holds mu.
type Handler struct {
	db     *bun.DB
	JWTKey []byte
	log    *zap.Logger
	build  EventFactory

	mu    sync.Mutex
	event *results.Event
}

// New creates a Handler with the given database connection and JWT signing key.
// Call Reload before serving.
func New(db *bun.DB, jwtKey []byte, log *zap.Logger, build EventFactory) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{db: db, JWTKey: jwtKey, log: log, build: build}
}

// Reload replaces the in-memory event with the current database content.
func (h *Handler) Reload(ctx context.Context) error {
	snap, err := bundb.LoadSnapshot(ctx, h.db)
	if err != nil {
		return err
	}
	ev := h.build(snap)
	h.mu.Lock()
	h.event = ev
	h.mu.Unlock()
	h.log.Info("event loaded",
		zap.Int("courses", len(snap.Courses())),
		zap.Int("runners", len(snap.Runners())),
		zap.Int("teams", len(snap.Teams())),
		zap.Int("runs", len(snap.Runs())))
	return nil
}

// ReloadEvent is the HTTP form of Reload.
func (h *Handler) ReloadEvent(c echo.Context) error {
	if err := h.Reload(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) locked(fn func(e *results.Event) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.event == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "event not loaded")
	}
	return fn(h.event)
}

// httpError maps engine and model errors onto status codes.
func httpError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, results.ErrUnknownStrategy):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, results.ErrUnscoreable), errors.Is(err, results.ErrValidation):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrDuplicateCard):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidCourse):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func notFound(what string) error {
	return echo.NewHTTPError(http.StatusNotFound, what+" not found")
}
