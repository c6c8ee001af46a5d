package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mwhitlock/fairshare/internal/model"
	"github.com/mwhitlock/fairshare/internal/store"
	"github.com/mwhitlock/fairshare/internal/valuation"
	"github.com/mwhitlock/fairshare/internal/websocket"
)

const maxTimeSpent = 24

type ChoreHandler struct {
	chores     *store.ChoreStore
	users      *store.UserStore
	households *store.HouseholdStore
	valuation  *valuation.Service
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, us *store.UserStore, hs *store.HouseholdStore, vs *valuation.Service, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{chores: cs, users: us, households: hs, valuation: vs, hub: hub, logger: logger}
}

func (h *ChoreHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name"`
		SkillLevel  string  `json:"skillLevel"`
		AssignedTo  *string `json:"assignedTo"`
		HouseholdID string  `json:"householdId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Chore name is required")
		return
	}
	if len(req.Name) > 100 {
		writeError(w, http.StatusBadRequest, "Chore name too long")
		return
	}
	if req.HouseholdID == "" {
		writeError(w, http.StatusBadRequest, "Household ID is required")
		return
	}

	skill := model.SkillLevel(req.SkillLevel)
	if req.SkillLevel == "" {
		skill = model.SkillBasic
	} else if !model.ValidSkillLevel(skill) {
		writeError(w, http.StatusBadRequest, "skill level must be BASIC, INTERMEDIATE, or ADVANCED")
		return
	}

	household, err := h.households.GetByID(req.HouseholdID)
	if err != nil {
		h.logger.Error("get household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create chore")
		return
	}
	if household == nil {
		writeError(w, http.StatusNotFound, "Household not found")
		return
	}

	if req.AssignedTo != nil {
		member, err := h.users.GetMember(*req.AssignedTo, req.HouseholdID)
		if err != nil {
			h.logger.Error("check assignee", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create chore")
			return
		}
		if member == nil {
			writeError(w, http.StatusBadRequest, "Assigned user not found in household")
			return
		}
	}

	chore, err := h.chores.Create(req.Name, skill, req.AssignedTo, req.HouseholdID)
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", "created", chore.ID, nil))

	writeData(w, http.StatusCreated, map[string]any{"chore": chore})
}

// choreResponse is a chore with its most recent completion joined in.
type choreResponse struct {
	model.Chore
	LastCompletion *model.CompletedChore `json:"lastCompletion,omitempty"`
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := r.URL.Query().Get("household_id")
	if householdID == "" {
		writeError(w, http.StatusBadRequest, "Household ID is required")
		return
	}

	chores, err := h.chores.ListByHousehold(householdID)
	if err != nil {
		h.logger.Error("list chores", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chores")
		return
	}

	resp := []choreResponse{}
	for _, c := range chores {
		last, err := h.chores.LastCompletionForChore(c.ID)
		if err != nil {
			h.logger.Error("last completion", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list chores")
			return
		}
		resp = append(resp, choreResponse{Chore: c, LastCompletion: last})
	}

	writeData(w, http.StatusOK, map[string]any{"chores": resp})
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.chores.GetByID(id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete chore")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Chore not found")
		return
	}

	// Completion records are append-only facts; a chore with history stays.
	count, err := h.chores.CountCompletions(id)
	if err != nil {
		h.logger.Error("count completions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete chore")
		return
	}
	if count > 0 {
		writeError(w, http.StatusConflict, "Chore has completion history and cannot be deleted")
		return
	}

	if err := h.chores.Delete(id); err != nil {
		h.logger.Error("delete chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", "deleted", id, nil))

	w.WriteHeader(http.StatusNoContent)
}

// Complete logs a completion: it validates the request, asks the valuation
// engine to price it, and persists the resulting record.
func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		TimeSpent   float64 `json:"timeSpent"`
		CompletedBy string  `json:"completedBy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.CompletedBy == "" {
		writeError(w, http.StatusBadRequest, "Completed by user ID is required")
		return
	}
	if req.TimeSpent <= 0 {
		writeError(w, http.StatusBadRequest, "Time spent must be positive")
		return
	}
	if req.TimeSpent > maxTimeSpent {
		writeError(w, http.StatusBadRequest, "Time cannot exceed 24 hours")
		return
	}

	chore, err := h.chores.GetByID(id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete chore")
		return
	}
	if chore == nil {
		writeError(w, http.StatusNotFound, "Chore not found")
		return
	}

	member, err := h.users.GetMember(req.CompletedBy, chore.HouseholdID)
	if err != nil {
		h.logger.Error("check member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete chore")
		return
	}
	if member == nil {
		writeError(w, http.StatusBadRequest, "User not found in household")
		return
	}

	value, err := h.valuation.Calculate(id, req.CompletedBy, req.TimeSpent)
	if err != nil {
		if errors.Is(err, valuation.ErrChoreNotFound) {
			writeError(w, http.StatusNotFound, "Chore not found")
			return
		}
		h.logger.Error("calculate chore value", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete chore")
		return
	}

	completion, err := h.chores.CreateCompletion(id, req.CompletedBy, req.TimeSpent, value, chore.HouseholdID)
	if err != nil {
		h.logger.Error("create completion", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", "completed", id, map[string]any{
		"value": completion.Value,
	}))

	writeData(w, http.StatusCreated, map[string]any{"completedChore": completion})
}

func (h *ChoreHandler) ListCompleted(w http.ResponseWriter, r *http.Request) {
	householdID := r.URL.Query().Get("household_id")
	if householdID == "" {
		writeError(w, http.StatusBadRequest, "Household ID is required")
		return
	}

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

	completions, err := h.chores.ListCompletions(householdID, start, end)
	if err != nil {
		h.logger.Error("list completions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list completed chores")
		return
	}
	if completions == nil {
		completions = []model.CompletedChore{}
	}

	writeData(w, http.StatusOK, map[string]any{"completedChores": completions})
}
