package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/mwhitlock/fairshare/internal/model"
	"github.com/mwhitlock/fairshare/internal/store"
	"github.com/mwhitlock/fairshare/internal/websocket"
)

type SettlementHandler struct {
	settlements *store.SettlementStore
	households  *store.HouseholdStore
	users       *store.UserStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewSettlementHandler(ss *store.SettlementStore, hs *store.HouseholdStore, us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{settlements: ss, households: hs, users: us, hub: hub, logger: logger}
}

func (h *SettlementHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// Create records a real-world payment between household members. Only the
// receiver may confirm it, and when the receiver has a confirmation PIN set
// the request must carry it.
func (h *SettlementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount      float64 `json:"amount"`
		FromUser    string  `json:"fromUser"`
		ToUser      string  `json:"toUser"`
		Note        *string `json:"note"`
		HouseholdID string  `json:"householdId"`
		SettledBy   string  `json:"settledBy"`
		PIN         string  `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.HouseholdID == "" || req.SettledBy == "" {
		writeError(w, http.StatusBadRequest, "Household ID and settled by user ID are required")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}
	if req.FromUser == "" || req.ToUser == "" {
		writeError(w, http.StatusBadRequest, "From user and to user are required")
		return
	}

	household, err := h.households.GetByID(req.HouseholdID)
	if err != nil {
		h.logger.Error("get household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record settlement")
		return
	}
	if household == nil {
		writeError(w, http.StatusNotFound, "Household not found")
		return
	}

	members, err := h.users.ListByHousehold(req.HouseholdID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record settlement")
		return
	}
	memberIDs := make(map[string]struct{}, len(members))
	for _, m := range members {
		memberIDs[m.ID] = struct{}{}
	}
	for _, id := range []string{req.FromUser, req.ToUser, req.SettledBy} {
		if _, ok := memberIDs[id]; !ok {
			writeError(w, http.StatusBadRequest, "All users must be members of the household")
			return
		}
	}

	if req.SettledBy != req.ToUser {
		writeError(w, http.StatusForbidden, "Only the user receiving payment can confirm settlement")
		return
	}

	pinHash, err := h.users.PINHash(req.ToUser)
	if err != nil {
		h.logger.Error("get pin hash", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record settlement")
		return
	}
	if pinHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(pinHash), []byte(req.PIN)); err != nil {
			writeError(w, http.StatusForbidden, "incorrect PIN")
			return
		}
	}

	settlement, err := h.settlements.Create(req.HouseholdID, req.Amount, req.FromUser, req.ToUser, req.SettledBy, req.Note)
	if err != nil {
		h.logger.Error("create settlement", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record settlement")
		return
	}

	h.broadcast(websocket.NewMessage("settlement", "created", settlement.ID, map[string]any{
		"amount": settlement.Amount,
	}))

	writeData(w, http.StatusCreated, map[string]any{"settlement": settlement})
}

func (h *SettlementHandler) List(w http.ResponseWriter, r *http.Request) {
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

	settlements, err := h.settlements.List(householdID, start, end)
	if err != nil {
		h.logger.Error("list settlements", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list settlements")
		return
	}
	if settlements == nil {
		settlements = []model.Settlement{}
	}

	writeData(w, http.StatusOK, map[string]any{"settlements": settlements})
}
