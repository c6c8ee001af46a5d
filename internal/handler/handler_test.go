package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mwhitlock/fairshare/internal/database"
	"github.com/mwhitlock/fairshare/internal/equity"
	"github.com/mwhitlock/fairshare/internal/model"
	"github.com/mwhitlock/fairshare/internal/store"
	"github.com/mwhitlock/fairshare/internal/valuation"
)

type testEnv struct {
	db          *sql.DB
	users       *store.UserStore
	households  *store.HouseholdStore
	chores      *store.ChoreStore
	settlements *store.SettlementStore
	mux         *http.ServeMux
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := store.NewUserStore(db)
	households := store.NewHouseholdStore(db)
	chores := store.NewChoreStore(db)
	settlements := store.NewSettlementStore(db)

	valuationSvc := valuation.NewService(chores, users, households)
	equitySvc := equity.NewService(chores, settlements)

	userH := NewUserHandler(users, households, logger)
	householdH := NewHouseholdHandler(households, users, chores, nil, logger)
	choreH := NewChoreHandler(chores, users, households, valuationSvc, nil, logger)
	settlementH := NewSettlementHandler(settlements, households, users, nil, logger)
	dashboardH := NewDashboardHandler(equitySvc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users", userH.Create)
	mux.HandleFunc("GET /api/users/{id}", userH.Get)
	mux.HandleFunc("PUT /api/users/{id}/pin", userH.SetPIN)
	mux.HandleFunc("POST /api/households", householdH.Create)
	mux.HandleFunc("POST /api/households/join", householdH.Join)
	mux.HandleFunc("GET /api/households/{id}", householdH.Get)
	mux.HandleFunc("PUT /api/households/{id}/settings", householdH.UpdateSettings)
	mux.HandleFunc("POST /api/chores", choreH.Create)
	mux.HandleFunc("GET /api/chores", choreH.List)
	mux.HandleFunc("GET /api/chores/completed", choreH.ListCompleted)
	mux.HandleFunc("DELETE /api/chores/{id}", choreH.Delete)
	mux.HandleFunc("POST /api/chores/{id}/complete", choreH.Complete)
	mux.HandleFunc("POST /api/settlements", settlementH.Create)
	mux.HandleFunc("GET /api/settlements", settlementH.List)
	mux.HandleFunc("GET /api/dashboard/{householdId}", dashboardH.Get)
	mux.HandleFunc("GET /api/dashboard/{householdId}/equity", dashboardH.Equity)

	return &testEnv{
		db:          db,
		users:       users,
		households:  households,
		chores:      chores,
		settlements: settlements,
		mux:         mux,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

// decodeData unwraps the success envelope into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, got %s", rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	return body.Error
}

// seedHousehold creates a household with n members via the stores.
func (e *testEnv) seedHousehold(t *testing.T, n int) (*model.Household, []string) {
	t.Helper()
	h, err := e.households.Create("Test Household")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	names := []string{"Alex", "Sam"}
	var ids []string
	for i := 0; i < n; i++ {
		u, err := e.users.Create(names[i])
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		if _, err := e.users.SetHousehold(u.ID, h.ID); err != nil {
			t.Fatalf("set household: %v", err)
		}
		ids = append(ids, u.ID)
	}
	return h, ids
}

func TestCompleteChore(t *testing.T) {
	e := setupTestEnv(t)
	h, ids := e.seedHousehold(t, 2)
	chore, err := e.chores.Create("Dishes", model.SkillBasic, nil, h.ID)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	rec := e.do(t, "POST", "/api/chores/"+chore.ID+"/complete", map[string]any{
		"completedBy": ids[0],
		"timeSpent":   2.0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}

	var data struct {
		CompletedChore model.CompletedChore `json:"completedChore"`
	}
	decodeData(t, rec, &data)
	// Default base rate 25.0, BASIC skill, 2 hours.
	if data.CompletedChore.Value != 50.0 {
		t.Errorf("value = %v, want 50.0", data.CompletedChore.Value)
	}
	if data.CompletedChore.CompletedBy != ids[0] {
		t.Errorf("completedBy = %s, want %s", data.CompletedChore.CompletedBy, ids[0])
	}
}

func TestCompleteChoreTimeSpentBounds(t *testing.T) {
	e := setupTestEnv(t)
	h, ids := e.seedHousehold(t, 1)
	chore, _ := e.chores.Create("Dishes", model.SkillBasic, nil, h.ID)

	for _, timeSpent := range []float64{0, -1, 24.5} {
		rec := e.do(t, "POST", "/api/chores/"+chore.ID+"/complete", map[string]any{
			"completedBy": ids[0],
			"timeSpent":   timeSpent,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("timeSpent %v: status = %d, want 400", timeSpent, rec.Code)
		}
	}

	// 24 hours exactly is the inclusive upper bound.
	rec := e.do(t, "POST", "/api/chores/"+chore.ID+"/complete", map[string]any{
		"completedBy": ids[0],
		"timeSpent":   24.0,
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("timeSpent 24: status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
}

func TestCompleteChoreRejectsNonMember(t *testing.T) {
	e := setupTestEnv(t)
	h, _ := e.seedHousehold(t, 1)
	chore, _ := e.chores.Create("Dishes", model.SkillBasic, nil, h.ID)

	outsider, err := e.users.Create("Kim")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	rec := e.do(t, "POST", "/api/chores/"+chore.ID+"/complete", map[string]any{
		"completedBy": outsider.ID,
		"timeSpent":   1.0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCompleteChoreNotFound(t *testing.T) {
	e := setupTestEnv(t)
	_, ids := e.seedHousehold(t, 1)

	rec := e.do(t, "POST", "/api/chores/missing/complete", map[string]any{
		"completedBy": ids[0],
		"timeSpent":   1.0,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteChoreWithHistoryConflict(t *testing.T) {
	e := setupTestEnv(t)
	h, ids := e.seedHousehold(t, 1)

	done, _ := e.chores.Create("Dishes", model.SkillBasic, nil, h.ID)
	if _, err := e.chores.CreateCompletion(done.ID, ids[0], 1.0, 25.0, h.ID); err != nil {
		t.Fatalf("create completion: %v", err)
	}
	fresh, _ := e.chores.Create("Laundry", model.SkillBasic, nil, h.ID)

	rec := e.do(t, "DELETE", "/api/chores/"+done.ID, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("chore with history: status = %d, want 409", rec.Code)
	}

	rec = e.do(t, "DELETE", "/api/chores/"+fresh.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("chore without history: status = %d, want 204", rec.Code)
	}
}

func TestJoinHouseholdFullRejected(t *testing.T) {
	e := setupTestEnv(t)
	h, _ := e.seedHousehold(t, 2)

	third, err := e.users.Create("Kim")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	rec := e.do(t, "POST", "/api/households/join", map[string]any{
		"inviteCode": h.InviteCode,
		"userId":     third.ID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Household is full" {
		t.Errorf("error = %q, want %q", msg, "Household is full")
	}
}

func TestJoinRenamesHousehold(t *testing.T) {
	e := setupTestEnv(t)

	alex, _ := e.users.Create("Alex")
	sam, _ := e.users.Create("Sam")

	rec := e.do(t, "POST", "/api/households", map[string]any{"userId": alex.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create household: status = %d (%s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Household struct {
			Name       string `json:"name"`
			InviteCode string `json:"inviteCode"`
		} `json:"household"`
	}
	decodeData(t, rec, &created)
	if created.Household.Name != "Alex's Household" {
		t.Errorf("name = %q, want %q", created.Household.Name, "Alex's Household")
	}

	rec = e.do(t, "POST", "/api/households/join", map[string]any{
		"inviteCode": created.Household.InviteCode,
		"userId":     sam.ID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("join: status = %d (%s)", rec.Code, rec.Body.String())
	}
	var joined struct {
		Household struct {
			Name    string       `json:"name"`
			Members []model.User `json:"members"`
		} `json:"household"`
	}
	decodeData(t, rec, &joined)
	if joined.Household.Name != "Alex-Sam" {
		t.Errorf("name after join = %q, want Alex-Sam", joined.Household.Name)
	}
	if len(joined.Household.Members) != 2 {
		t.Errorf("members = %d, want 2", len(joined.Household.Members))
	}
}

func TestCreateSettlementOnlyReceiverConfirms(t *testing.T) {
	e := setupTestEnv(t)
	h, ids := e.seedHousehold(t, 2)

	rec := e.do(t, "POST", "/api/settlements", map[string]any{
		"householdId": h.ID,
		"amount":      10.0,
		"fromUser":    ids[0],
		"toUser":      ids[1],
		"settledBy":   ids[0],
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("payer confirming: status = %d, want 403", rec.Code)
	}

	rec = e.do(t, "POST", "/api/settlements", map[string]any{
		"householdId": h.ID,
		"amount":      10.0,
		"fromUser":    ids[0],
		"toUser":      ids[1],
		"settledBy":   ids[1],
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("receiver confirming: status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
}

func TestCreateSettlementPINVerification(t *testing.T) {
	e := setupTestEnv(t)
	h, ids := e.seedHousehold(t, 2)

	rec := e.do(t, "PUT", fmt.Sprintf("/api/users/%s/pin", ids[1]), map[string]any{"pin": "1234"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set pin: status = %d (%s)", rec.Code, rec.Body.String())
	}

	body := map[string]any{
		"householdId": h.ID,
		"amount":      5.0,
		"fromUser":    ids[0],
		"toUser":      ids[1],
		"settledBy":   ids[1],
		"pin":         "9999",
	}
	rec = e.do(t, "POST", "/api/settlements", body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong pin: status = %d, want 403", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "incorrect PIN" {
		t.Errorf("error = %q, want %q", msg, "incorrect PIN")
	}

	body["pin"] = "1234"
	rec = e.do(t, "POST", "/api/settlements", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("correct pin: status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
}

func TestCreateSettlementRejectsOutsiders(t *testing.T) {
	e := setupTestEnv(t)
	h, ids := e.seedHousehold(t, 1)
	outsider, _ := e.users.Create("Kim")

	rec := e.do(t, "POST", "/api/settlements", map[string]any{
		"householdId": h.ID,
		"amount":      5.0,
		"fromUser":    outsider.ID,
		"toUser":      ids[0],
		"settledBy":   ids[0],
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDashboardHasFourWindows(t *testing.T) {
	e := setupTestEnv(t)
	h, ids := e.seedHousehold(t, 2)
	chore, _ := e.chores.Create("Dishes", model.SkillBasic, nil, h.ID)
	if _, err := e.chores.CreateCompletion(chore.ID, ids[0], 1.0, 25.0, h.ID); err != nil {
		t.Fatalf("create completion: %v", err)
	}

	rec := e.do(t, "GET", "/api/dashboard/"+h.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}

	var summary map[string]json.RawMessage
	decodeData(t, rec, &summary)
	for _, window := range []string{"daily", "weekly", "monthly", "allTime"} {
		if _, ok := summary[window]; !ok {
			t.Errorf("dashboard missing %q window", window)
		}
	}
	if len(summary) != 4 {
		t.Errorf("dashboard has %d windows, want 4", len(summary))
	}
}
