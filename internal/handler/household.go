package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mwhitlock/fairshare/internal/model"
	"github.com/mwhitlock/fairshare/internal/store"
	"github.com/mwhitlock/fairshare/internal/websocket"
)

// maxMembers caps household size. The equity math assumes exactly two
// contributing members, so joins beyond two are rejected.
const maxMembers = 2

type HouseholdHandler struct {
	households *store.HouseholdStore
	users      *store.UserStore
	chores     *store.ChoreStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewHouseholdHandler(hs *store.HouseholdStore, us *store.UserStore, cs *store.ChoreStore, hub *websocket.Hub, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{households: hs, users: us, chores: cs, hub: hub, logger: logger}
}

func (h *HouseholdHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// householdResponse is a household with its members (and optionally chores)
// joined in.
type householdResponse struct {
	model.Household
	Members []model.User  `json:"members"`
	Chores  []model.Chore `json:"chores,omitempty"`
}

func (h *HouseholdHandler) respond(w http.ResponseWriter, status int, household *model.Household, withChores bool) {
	members, err := h.users.ListByHousehold(household.ID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load household")
		return
	}
	if members == nil {
		members = []model.User{}
	}

	resp := householdResponse{Household: *household, Members: members}
	if withChores {
		chores, err := h.chores.ListByHousehold(household.ID)
		if err != nil {
			h.logger.Error("list chores", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load household")
			return
		}
		resp.Chores = chores
	}

	writeData(w, status, map[string]any{"household": resp})
}

func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	user, err := h.users.GetByID(req.UserID)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create household")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if user.HouseholdID != nil {
		writeError(w, http.StatusBadRequest, "User already belongs to a household")
		return
	}

	household, err := h.households.Create(fmt.Sprintf("%s's Household", user.FirstName))
	if err != nil {
		h.logger.Error("create household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create household")
		return
	}

	if _, err := h.users.SetHousehold(user.ID, household.ID); err != nil {
		h.logger.Error("add creator to household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create household")
		return
	}

	h.broadcast(websocket.NewMessage("household", "created", household.ID, nil))

	h.respond(w, http.StatusCreated, household, false)
}

func (h *HouseholdHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode string `json:"inviteCode"`
		UserID     string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.InviteCode) == "" {
		writeError(w, http.StatusBadRequest, "Invite code is required")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	user, err := h.users.GetByID(req.UserID)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join household")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if user.HouseholdID != nil {
		writeError(w, http.StatusBadRequest, "User already belongs to a household")
		return
	}

	household, err := h.households.GetByInviteCode(strings.TrimSpace(req.InviteCode))
	if err != nil {
		h.logger.Error("get household by invite code", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join household")
		return
	}
	if household == nil {
		writeError(w, http.StatusNotFound, "Invalid invite code")
		return
	}

	members, err := h.users.ListByHousehold(household.ID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join household")
		return
	}
	if len(members) >= maxMembers {
		writeError(w, http.StatusBadRequest, "Household is full")
		return
	}

	if _, err := h.users.SetHousehold(user.ID, household.ID); err != nil {
		h.logger.Error("add member to household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join household")
		return
	}

	// Once both members are in, the household takes their names.
	members, err = h.users.ListByHousehold(household.ID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join household")
		return
	}
	if len(members) == maxMembers {
		name := fmt.Sprintf("%s-%s", members[0].FirstName, members[1].FirstName)
		household, err = h.households.UpdateName(household.ID, name)
		if err != nil {
			h.logger.Error("rename household", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to join household")
			return
		}
	}

	h.broadcast(websocket.NewMessage("household", "member_joined", household.ID, nil))

	h.respond(w, http.StatusOK, household, false)
}

func (h *HouseholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	household, err := h.households.GetByID(id)
	if err != nil {
		h.logger.Error("get household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get household")
		return
	}
	if household == nil {
		writeError(w, http.StatusNotFound, "Household not found")
		return
	}

	h.respond(w, http.StatusOK, household, true)
}

func (h *HouseholdHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.households.GetByID(id)
	if err != nil {
		h.logger.Error("get household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Household not found")
		return
	}

	var req struct {
		BaseRate float64 `json:"baseRate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.BaseRate <= 0 {
		writeError(w, http.StatusBadRequest, "Base rate must be positive")
		return
	}

	household, err := h.households.UpdateBaseRate(id, req.BaseRate)
	if err != nil {
		h.logger.Error("update base rate", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	h.broadcast(websocket.NewMessage("household", "settings_updated", household.ID, nil))

	h.respond(w, http.StatusOK, household, false)
}
