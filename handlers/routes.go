package handlers

import (
	"github.com/labstack/echo/v4"

	mw "github.com/padraicbc/oresults/middleware"
)

// Register mounts the API under /api. Reads need a valid token, writes an
// editor token.
func (h *Handler) Register(e *echo.Echo) {
	// Public
	e.POST("/api/signin", h.Signin)

	// Protected: require valid JWT in Authorization header
	api := e.Group("/api", mw.JWT(h.JWTKey))
	api.GET("/courses", h.Courses)
	api.GET("/categories", h.Categories)
	api.GET("/rankings/course/:id", h.CourseRanking)
	api.GET("/rankings/category/:id/runners", h.CategoryRunners)
	api.GET("/rankings/category/:id/teams", h.CategoryTeams)
	api.GET("/rankings/open", h.OpenRuns)
	api.GET("/subjects/:kind/:id/validation", h.Validate)
	api.GET("/subjects/:kind/:id/score", h.Score)

	edit := api.Group("", mw.RequireEditor)
	edit.PUT("/punches/:id", h.UpdatePunch)
	edit.DELETE("/punches/:id", h.DeletePunch)
	edit.POST("/runs/:id/punches", h.AddPunch)
	edit.PUT("/runs/:id", h.UpdateRun)
	edit.PUT("/runners/:id/card", h.AssignCard)
	edit.PUT("/controls/:id/override", h.OverrideControl)
	edit.POST("/reload", h.ReloadEvent)
}
