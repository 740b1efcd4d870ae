package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evenlyhq/evenly/internal/auth"
	"github.com/evenlyhq/evenly/internal/engine"
	"github.com/evenlyhq/evenly/internal/storage/sqlite"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "evenly-server-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	identity := auth.NewPasswordIdentity(store, store)
	srv := New(engine.New(store), store, identity, jwtManager)
	return srv.Router(gin.TestMode)
}

// do issues a JSON request and decodes the JSON response body.
func do(t *testing.T, router *gin.Engine, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), "body: %s", w.Body.String())
	}
	return w.Code, decoded
}

func registerUser(t *testing.T, router *gin.Engine, email, name string) (token, personID string) {
	t.Helper()
	status, body := do(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": email, "display_name": name, "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, status, "register response: %v", body)
	return body["token"].(string), body["person_id"].(string)
}

func createPerson(t *testing.T, router *gin.Engine, token, name string) string {
	t.Helper()
	status, body := do(t, router, http.MethodPost, "/api/v1/persons", token, gin.H{"display_name": name})
	require.Equal(t, http.StatusCreated, status, "create person response: %v", body)
	return body["id"].(string)
}

func TestAuthFlow(t *testing.T) {
	router := newTestRouter(t)

	token, personID := registerUser(t, router, "alice@example.com", "Alice")

	t.Run("me returns the registered person", func(t *testing.T) {
		status, body := do(t, router, http.MethodGet, "/api/v1/me", token, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, personID, body["id"])
		assert.Equal(t, "Alice", body["display_name"])
	})

	t.Run("login returns a working token", func(t *testing.T) {
		status, body := do(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
			"email": "alice@example.com", "password": "correct-horse",
		})
		require.Equal(t, http.StatusOK, status)

		status, _ = do(t, router, http.MethodGet, "/api/v1/me", body["token"].(string), nil)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("bad password rejected", func(t *testing.T) {
		status, _ := do(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
			"email": "alice@example.com", "password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		status, _ := do(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"email": "alice@example.com", "display_name": "Alice 2", "password": "correct-horse",
		})
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("missing token rejected", func(t *testing.T) {
		status, _ := do(t, router, http.MethodGet, "/api/v1/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestExpenseAndBalanceFlow(t *testing.T) {
	router := newTestRouter(t)

	token, alice := registerUser(t, router, "alice@example.com", "Alice")
	bob := createPerson(t, router, token, "Bob")
	carol := createPerson(t, router, token, "Carol")

	status, body := do(t, router, http.MethodPost, "/api/v1/expenses", token, gin.H{
		"title":  "Dinner",
		"amount": "90.00",
		"method": gin.H{"kind": "equal", "participant_ids": []string{alice, bob, carol}},
		"payers": []gin.H{{"person_id": alice, "amount": "90.00"}},
	})
	require.Equal(t, http.StatusCreated, status, "create expense response: %v", body)
	expenseID := body["id"].(string)
	assert.Equal(t, "90.00", body["amount"])
	assert.Equal(t, "equal", body["method"])

	t.Run("pairwise balance", func(t *testing.T) {
		status, body := do(t, router, http.MethodGet, "/api/v1/balances/persons/"+bob, token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "30.00", body["balance"])
	})

	t.Run("overall balance", func(t *testing.T) {
		status, body := do(t, router, http.MethodGet, "/api/v1/balances/me", token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "60.00", body["balance"])
	})

	t.Run("invalid split rejected", func(t *testing.T) {
		status, _ := do(t, router, http.MethodPost, "/api/v1/expenses", token, gin.H{
			"title":  "Broken",
			"amount": "10.00",
			"method": gin.H{"kind": "percentage", "weights": []gin.H{
				{"person_id": alice, "percent": "60"},
				{"person_id": bob, "percent": "30"},
			}},
			"payers": []gin.H{{"person_id": alice, "amount": "10.00"}},
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("unknown group rejected", func(t *testing.T) {
		status, _ := do(t, router, http.MethodPost, "/api/v1/expenses", token, gin.H{
			"title":    "Lost",
			"amount":   "10.00",
			"method":   gin.H{"kind": "equal", "participant_ids": []string{alice, bob}},
			"group_id": "no-such-group",
			"payers":   []gin.H{{"person_id": alice, "amount": "10.00"}},
		})
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("person feed shows the expense", func(t *testing.T) {
		status, body := do(t, router, http.MethodGet, "/api/v1/feeds/persons/"+bob, token, nil)
		require.Equal(t, http.StatusOK, status)
		days := body["days"].([]any)
		require.Len(t, days, 1)
	})

	t.Run("delete recomputes balances", func(t *testing.T) {
		status, _ := do(t, router, http.MethodDelete, "/api/v1/expenses/"+expenseID, token, nil)
		require.Equal(t, http.StatusOK, status)

		status, body := do(t, router, http.MethodGet, "/api/v1/balances/persons/"+bob, token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "0.00", body["balance"])
	})
}

func TestSettlementFlow(t *testing.T) {
	router := newTestRouter(t)

	aliceToken, alice := registerUser(t, router, "alice@example.com", "Alice")
	bobToken, bob := registerUser(t, router, "bob@example.com", "Bob")

	status, body := do(t, router, http.MethodPost, "/api/v1/expenses", aliceToken, gin.H{
		"title":  "Groceries",
		"amount": "30.00",
		"method": gin.H{"kind": "equal", "participant_ids": []string{alice, bob}},
		"payers": []gin.H{{"person_id": alice, "amount": "30.00"}},
	})
	require.Equal(t, http.StatusCreated, status, "create expense response: %v", body)

	t.Run("settling with no debt rejected", func(t *testing.T) {
		status, _ := do(t, router, http.MethodPost, "/api/v1/settlements", aliceToken, gin.H{
			"to_person_id": bob, "amount": "5.00",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
	})

	status, body = do(t, router, http.MethodPost, "/api/v1/settlements", bobToken, gin.H{
		"to_person_id": alice, "full": true,
	})
	require.Equal(t, http.StatusCreated, status, "settle response: %v", body)
	settlementID := body["id"].(string)
	assert.Equal(t, "15.00", body["amount"])
	assert.Equal(t, true, body["is_full_settlement"])

	t.Run("pair settled up", func(t *testing.T) {
		status, body := do(t, router, http.MethodGet, "/api/v1/balances/persons/"+bob, aliceToken, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "0.00", body["balance"])
	})

	t.Run("second full settlement rejected", func(t *testing.T) {
		status, _ := do(t, router, http.MethodPost, "/api/v1/settlements", bobToken, gin.H{
			"to_person_id": alice, "full": true,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
	})

	t.Run("undo restores the balance", func(t *testing.T) {
		status, _ := do(t, router, http.MethodPost, fmt.Sprintf("/api/v1/settlements/%s/undo", settlementID), bobToken, nil)
		require.Equal(t, http.StatusCreated, status)

		status, body := do(t, router, http.MethodGet, "/api/v1/balances/persons/"+bob, aliceToken, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "15.00", body["balance"])
	})

	t.Run("second undo rejected", func(t *testing.T) {
		status, _ := do(t, router, http.MethodPost, fmt.Sprintf("/api/v1/settlements/%s/undo", settlementID), bobToken, nil)
		assert.Equal(t, http.StatusConflict, status)
	})
}

func TestGroupFlow(t *testing.T) {
	router := newTestRouter(t)

	token, alice := registerUser(t, router, "alice@example.com", "Alice")
	bob := createPerson(t, router, token, "Bob")

	status, body := do(t, router, http.MethodPost, "/api/v1/groups", token, gin.H{
		"name": "Trip", "member_ids": []string{alice, bob},
	})
	require.Equal(t, http.StatusCreated, status, "create group response: %v", body)
	groupID := body["id"].(string)

	status, body = do(t, router, http.MethodPost, "/api/v1/expenses", token, gin.H{
		"title":    "Hotel",
		"amount":   "100.00",
		"group_id": groupID,
		"method":   gin.H{"kind": "equal", "participant_ids": []string{alice, bob}},
		"payers":   []gin.H{{"person_id": alice, "amount": "100.00"}},
	})
	require.Equal(t, http.StatusCreated, status, "create expense response: %v", body)

	t.Run("group balance", func(t *testing.T) {
		status, body := do(t, router, http.MethodGet, "/api/v1/balances/groups/"+groupID, token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "50.00", body["balance"])
	})

	t.Run("member balances", func(t *testing.T) {
		status, body := do(t, router, http.MethodGet, fmt.Sprintf("/api/v1/balances/groups/%s/members", groupID), token, nil)
		require.Equal(t, http.StatusOK, status)
		members := body["members"].([]any)
		require.Len(t, members, 1)
		member := members[0].(map[string]any)
		assert.Equal(t, bob, member["person_id"])
		assert.Equal(t, "50.00", member["balance"])
	})

	t.Run("unknown group is 404", func(t *testing.T) {
		status, _ := do(t, router, http.MethodGet, "/api/v1/balances/groups/nope", token, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)
	status, body := do(t, router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}
