package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-expense-ledger/auth"
	"github.com/goliatone/go-expense-ledger/cache"
	"github.com/goliatone/go-expense-ledger/domain"
	"github.com/goliatone/go-expense-ledger/export"
	"github.com/goliatone/go-expense-ledger/querycache"
	"github.com/goliatone/go-expense-ledger/repository"
	"github.com/goliatone/go-expense-ledger/settings"
	"github.com/goliatone/go-expense-ledger/store/memstore"
)

const ownerEmail = "owner@example.com"

var fixedNow = time.Date(2024, time.June, 15, 14, 30, 0, 0, time.UTC)

type fakeProvider map[string]auth.Identity

func (f fakeProvider) Authenticate(_ context.Context, credential string) (auth.Identity, error) {
	id, ok := f[credential]
	if !ok {
		return auth.Identity{}, auth.ErrInvalidCredential
	}
	return id, nil
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memstore.New()
	clock := repository.WithClock(func() time.Time { return fixedNow })
	users := repository.NewUsers(st, clock)
	allowed := repository.NewAllowedUsers(st, clock)
	fields := repository.NewFields(st, clock)
	txs := repository.NewTransactions(st, users, clock)

	provider := fakeProvider{
		"owner-token": {UID: "owner", Email: ownerEmail, DisplayName: "Owner"},
		"ada-token":   {UID: "ada", Email: "ada@example.com", DisplayName: "Ada"},
	}
	svc := auth.NewService(provider, users, allowed,
		auth.WithOwnerEmail(ownerEmail),
		auth.WithClock(func() time.Time { return fixedNow }),
	)

	client := querycache.New(querycache.Config{StaleTime: time.Hour})
	t.Cleanup(client.Wait)

	router := NewRouter(Deps{
		Auth:         svc,
		Client:       client,
		Queries:      querycache.NewQueries(cache.NewDefaultKeySerializer(), txs, fields, users, allowed),
		Transactions: txs,
		Fields:       fields,
		Users:        users,
		AllowedUsers: allowed,
		Settings:     settings.NewFileStore(filepath.Join(t.TempDir(), "settings.json")),
		Now:          func() time.Time { return fixedNow },
		Version:      "test",
	})
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) signIn(token string) domain.Principal {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/session", "", gin.H{"idToken": token})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Principal domain.Principal `json:"principal"`
	}
	decode(s.t, w, &resp)
	return resp.Principal
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func transactionBody(typ domain.TransactionType, price float64, description string, date time.Time, fieldID string) gin.H {
	return gin.H{
		"type":        typ,
		"price":       price,
		"description": description,
		"date":        date,
		"fieldId":     fieldID,
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/transactions", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// a valid token without a profile is rejected until the first sign-in
	w = s.do(http.MethodGet, "/api/transactions", "owner-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignIn(t *testing.T) {
	s := newTestServer(t)

	p := s.signIn("owner-token")
	assert.True(t, p.IsOwner)

	w := s.do(http.MethodPost, "/api/session", "", gin.H{"idToken": "ada-token"})
	assert.Equal(t, http.StatusForbidden, w.Code, "ada is not on the allow list yet")

	w = s.do(http.MethodPost, "/api/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/me", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Principal domain.Principal `json:"principal"`
		User      domain.User      `json:"user"`
	}
	decode(t, w, &me)
	assert.Equal(t, "owner", me.User.UID)
	assert.True(t, me.User.LastLoggedIn.Equal(fixedNow))
}

func TestAllowedUsers(t *testing.T) {
	s := newTestServer(t)
	s.signIn("owner-token")

	w := s.do(http.MethodPost, "/api/allowed-users", "owner-token", gin.H{"email": "ADA@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var added domain.AllowedUser
	decode(t, w, &added)
	assert.Equal(t, "ada@example.com", added.Email)

	w = s.do(http.MethodPost, "/api/allowed-users", "owner-token", gin.H{"email": "ada@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/allowed-users", "owner-token", gin.H{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var verr ErrorResponse
	decode(t, w, &verr)
	assert.Contains(t, verr.Fields, "email")

	p := s.signIn("ada-token")
	assert.False(t, p.IsOwner)

	w = s.do(http.MethodPost, "/api/allowed-users", "ada-token", gin.H{"email": "eve@example.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodGet, "/api/allowed-users", "ada-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, "/api/allowed-users/"+added.AllowedUserID, "ada-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/allowed-users", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		AllowedUsers []domain.AllowedUser `json:"allowedUsers"`
	}
	decode(t, w, &list)
	require.Len(t, list.AllowedUsers, 1)

	w = s.do(http.MethodDelete, "/api/allowed-users/"+added.AllowedUserID, "owner-token", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/allowed-users", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Empty(t, list.AllowedUsers, "the cached list is refreshed after the delete")
}

func TestTransactions_WriteThenRead(t *testing.T) {
	s := newTestServer(t)
	s.signIn("owner-token")

	w := s.do(http.MethodGet, "/api/transactions", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	decode(t, w, &list)
	assert.Empty(t, list.Transactions)

	w = s.do(http.MethodPost, "/api/transactions", "owner-token",
		transactionBody(domain.Income, 250, "Salary", time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC), ""))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created domain.Transaction
	decode(t, w, &created)
	assert.Equal(t, domain.Income, created.Type)
	assert.Equal(t, "owner", created.AuthorID)

	w = s.do(http.MethodGet, "/api/transactions", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list.Transactions, 1, "the write is visible to the next read")
	require.NotNil(t, list.Transactions[0].Author)
	assert.Equal(t, "Owner", list.Transactions[0].Author.DisplayName)

	w = s.do(http.MethodPut, "/api/transactions/"+created.TransactionID, "owner-token",
		gin.H{"price": 300, "description": "Salary", "date": created.Date})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated domain.Transaction
	decode(t, w, &updated)
	assert.Equal(t, domain.Income, updated.Type)
	assert.Equal(t, 300.0, updated.Price)
	assert.Equal(t, "owner", updated.AuthorID)

	w = s.do(http.MethodPut, "/api/transactions/"+created.TransactionID, "owner-token",
		transactionBody(domain.Expense, 300, "Salary", created.Date, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code, "the type is fixed")

	w = s.do(http.MethodGet, "/api/transactions/"+created.TransactionID, "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Transaction
	decode(t, w, &got)
	assert.Equal(t, 300.0, got.Price)

	w = s.do(http.MethodDelete, "/api/transactions/"+created.TransactionID, "owner-token", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/transactions/"+created.TransactionID, "owner-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransactions_Validation(t *testing.T) {
	s := newTestServer(t)
	s.signIn("owner-token")

	w := s.do(http.MethodPost, "/api/transactions", "owner-token",
		transactionBody(domain.Expense, -1, "", fixedNow, ""))
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	decode(t, w, &resp)
	assert.Contains(t, resp.Fields, "price")
	assert.Contains(t, resp.Fields, "description")

	w = s.do(http.MethodPost, "/api/transactions", "owner-token",
		transactionBody("refund", 1, "x", fixedNow, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/transactions?type=refund", "owner-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/transactions/summary?period=forever", "owner-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransactions_OwnershipAndVisibility(t *testing.T) {
	s := newTestServer(t)
	s.signIn("owner-token")
	w := s.do(http.MethodPost, "/api/allowed-users", "owner-token", gin.H{"email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	s.signIn("ada-token")

	w = s.do(http.MethodPost, "/api/transactions", "owner-token",
		transactionBody(domain.Expense, 10, "Lunch", fixedNow, ""))
	require.Equal(t, http.StatusCreated, w.Code)
	var ownerTx domain.Transaction
	decode(t, w, &ownerTx)

	w = s.do(http.MethodPut, "/api/transactions/"+ownerTx.TransactionID, "ada-token",
		gin.H{"price": 1, "description": "mine now", "date": fixedNow})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, "/api/transactions/"+ownerTx.TransactionID, "ada-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodGet, "/api/transactions/"+ownerTx.TransactionID, "ada-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var list struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	w = s.do(http.MethodGet, "/api/transactions", "ada-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Empty(t, list.Transactions, "non-admins only see their own")

	w = s.do(http.MethodGet, "/api/users", "ada-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodPut, "/api/users/ada/admin", "ada-token", gin.H{"isAdmin": true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, "/api/users/ada/admin", "owner-token", gin.H{"isAdmin": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/transactions", "ada-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list.Transactions, 1, "admins see every transaction")

	w = s.do(http.MethodGet, "/api/users", "ada-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users struct {
		Users []domain.User `json:"users"`
	}
	decode(t, w, &users)
	assert.Len(t, users.Users, 2)
}

func TestTransactions_UpdateUnknownIDCreatesForCaller(t *testing.T) {
	s := newTestServer(t)
	s.signIn("owner-token")
	w := s.do(http.MethodPost, "/api/allowed-users", "owner-token", gin.H{"email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	s.signIn("ada-token")

	w = s.do(http.MethodPut, "/api/transactions/offline-1", "ada-token",
		gin.H{"price": 7, "description": "Bus", "date": fixedNow})
	require.Equal(t, http.StatusBadRequest, w.Code, "a new transaction needs a type")
	var resp ErrorResponse
	decode(t, w, &resp)
	assert.Contains(t, resp.Fields, "type")

	w = s.do(http.MethodPut, "/api/transactions/offline-1", "ada-token",
		transactionBody(domain.Expense, 7, "Bus", fixedNow, ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tx domain.Transaction
	decode(t, w, &tx)
	assert.Equal(t, "offline-1", tx.TransactionID)
	assert.Equal(t, "ada", tx.AuthorID)
	assert.Equal(t, domain.Expense, tx.Type)
	assert.False(t, tx.Created.IsZero())

	var list struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	w = s.do(http.MethodGet, "/api/transactions", "ada-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list.Transactions, 1, "the caller sees the transaction it created")
	assert.Equal(t, "offline-1", list.Transactions[0].TransactionID)
}

func TestFields(t *testing.T) {
	s := newTestServer(t)
	s.signIn("owner-token")

	w := s.do(http.MethodPost, "/api/fields", "owner-token", gin.H{"name": " Food "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var field domain.Field
	decode(t, w, &field)
	assert.Equal(t, "Food", field.Name)

	w = s.do(http.MethodPost, "/api/fields", "owner-token", gin.H{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/fields/"+field.FieldID, "owner-token", gin.H{"name": "Groceries"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var list struct {
		Fields []domain.Field `json:"fields"`
	}
	w = s.do(http.MethodGet, "/api/fields", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list.Fields, 1)
	assert.Equal(t, "Groceries", list.Fields[0].Name)

	w = s.do(http.MethodDelete, "/api/fields/"+field.FieldID, "owner-token", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/fields", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Empty(t, list.Fields)
}

func seedLedger(t *testing.T, s *testServer) {
	t.Helper()
	seed := []gin.H{
		transactionBody(domain.Income, 250, "Salary", time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC), "f-salary"),
		transactionBody(domain.Expense, 100, "Groceries", time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC), "f-food"),
		transactionBody(domain.Expense, 40, "Snacks", time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC), "f-food"),
		transactionBody(domain.Income, 1000, "Bonus", time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC), ""),
	}
	for _, body := range seed {
		w := s.do(http.MethodPost, "/api/transactions", "owner-token", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
}

func TestSummary(t *testing.T) {
	s := newTestServer(t)
	s.signIn("owner-token")
	seedLedger(t, s)

	w := s.do(http.MethodGet, "/api/transactions/summary", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp SummaryResponse
	decode(t, w, &resp)
	assert.Equal(t, "1 month", string(resp.Period))
	assert.Equal(t, "2024-06-01", resp.From)
	assert.Equal(t, 250.0, resp.Summary.IncomeTotal)
	assert.Equal(t, 100.0, resp.Summary.ExpenseTotal)
	assert.Equal(t, 150.0, resp.Summary.Net)
	require.Len(t, resp.Summary.Transactions, 2)
	assert.Equal(t, "Groceries", resp.Summary.Transactions[0].Description, "newest first")

	w = s.do(http.MethodGet, "/api/transactions/summary?period=all&fieldId=food", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, 140.0, resp.Summary.ExpenseTotal)
	assert.Zero(t, resp.Summary.IncomeTotal)
	require.Len(t, resp.ByField, 1)
	assert.Equal(t, "f-food", resp.ByField[0].FieldID)
	assert.Equal(t, 2, resp.ByField[0].Count)

	w = s.do(http.MethodGet, "/api/transactions?type=expense&period=3months", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Transactions, 2)
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	s.signIn("owner-token")
	seedLedger(t, s)

	w := s.do(http.MethodGet, "/api/transactions/export?period=all", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), export.FileName)

	records, err := csv.NewReader(bytes.NewReader(w.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, export.Header, records[0])
	assert.Equal(t, "10/06/2024", records[1][0])
	assert.Equal(t, "₦ 1,000.00", records[4][3])
}

func TestSettings(t *testing.T) {
	s := newTestServer(t)
	s.signIn("owner-token")

	w := s.do(http.MethodGet, "/api/settings", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var prefs settings.Preferences
	decode(t, w, &prefs)
	assert.Equal(t, settings.Defaults(), prefs)

	w = s.do(http.MethodPut, "/api/settings", "owner-token", gin.H{"mode": "DARK", "color": "#00ff00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &prefs)
	assert.Equal(t, settings.ModeDark, prefs.Mode)

	w = s.do(http.MethodPut, "/api/settings", "owner-token", gin.H{"mode": "sepia"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/settings", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &prefs)
	assert.Equal(t, "#00ff00", prefs.Color)
}
