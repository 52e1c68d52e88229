package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"txproxy/internal/app"
)

// ScenarioHandler exposes the scenario runner.
type ScenarioHandler struct {
	*BaseHandler
	runner *app.Runner
}

// NewScenarioHandler creates a new scenario handler.
func NewScenarioHandler(base *BaseHandler, runner *app.Runner) *ScenarioHandler {
	return &ScenarioHandler{BaseHandler: base, runner: runner}
}

// List returns the known scenario names.
// GET /api/v1/scenarios
func (h *ScenarioHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"scenarios": app.Scenarios(),
	})
}

// Run executes one scenario and returns its report.
// POST /api/v1/scenarios/:name/run
func (h *ScenarioHandler) Run(c *gin.Context) {
	report, err := h.runner.Run(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
