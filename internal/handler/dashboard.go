package handler

import (
	"log/slog"
	"net/http"

	"github.com/mwhitlock/fairshare/internal/equity"
)

type DashboardHandler struct {
	equity *equity.Service
	logger *slog.Logger
}

func NewDashboardHandler(es *equity.Service, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{equity: es, logger: logger}
}

// Get returns the four-window rollup (daily, weekly, monthly, all-time).
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	householdID := r.PathValue("householdId")

	summary, err := h.equity.DashboardSummary(householdID)
	if err != nil {
		h.logger.Error("dashboard summary", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	writeData(w, http.StatusOK, summary)
}

// Equity returns a single analysis over an optional date window.
func (h *DashboardHandler) Equity(w http.ResponseWriter, r *http.Request) {
	householdID := r.PathValue("householdId")

	start, err := parseDateQuery(r, "start_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date")
		return
	}
	end, err := parseDateQuery(r, "end_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date")
		return
	}

	analysis, err := h.equity.Analyze(householdID, start, end)
	if err != nil {
		h.logger.Error("equity analysis", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to analyze equity")
		return
	}

	writeData(w, http.StatusOK, analysis)
}
