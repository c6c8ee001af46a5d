package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mwhitlock/fairshare/internal/model"
	"github.com/mwhitlock/fairshare/internal/store"
)

type UserHandler struct {
	users      *store.UserStore
	households *store.HouseholdStore
	logger     *slog.Logger
}

func NewUserHandler(us *store.UserStore, hs *store.HouseholdStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: us, households: hs, logger: logger}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"firstName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	if req.FirstName == "" {
		writeError(w, http.StatusBadRequest, "first name is required")
		return
	}
	if len(req.FirstName) > 50 {
		writeError(w, http.StatusBadRequest, "first name too long")
		return
	}

	user, err := h.users.Create(req.FirstName)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeData(w, http.StatusCreated, map[string]any{"user": user})
}

// userResponse is a user with their household joined in, mirroring what the
// SPA expects from GET /api/users/{id}.
type userResponse struct {
	model.User
	Household *model.Household `json:"household,omitempty"`
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	user, err := h.users.GetByID(id)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	resp := userResponse{User: *user}
	if user.HouseholdID != nil {
		household, err := h.households.GetByID(*user.HouseholdID)
		if err != nil {
			h.logger.Error("get user household", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get user")
			return
		}
		resp.Household = household
	}

	writeData(w, http.StatusOK, map[string]any{"user": resp})
}

// SetPIN stores a 4-6 digit confirmation PIN for the user. The PIN, when
// set, is required to confirm settlements the user receives.
func (h *UserHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	user, err := h.users.GetByID(id)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if len(req.PIN) < 4 || len(req.PIN) > 6 || !isDigits(req.PIN) {
		writeError(w, http.StatusBadRequest, "PIN must be 4-6 digits")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash pin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}

	if err := h.users.SetPINHash(id, string(hash)); err != nil {
		h.logger.Error("set pin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}

	writeData(w, http.StatusOK, map[string]string{"status": "pin set"})
}

// --- shared helpers ---

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeData wraps v in the {"success": true, "data": ...} envelope the SPA
// consumes.
func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{"success": true, "data": v})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseDateQuery reads an optional date query parameter, accepting RFC 3339
// or a bare YYYY-MM-DD date. Returns nil when the parameter is absent.
func parseDateQuery(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}
