package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ledgerapp "github.com/terraloan/backend/internal/application/ledger"
	"github.com/terraloan/backend/internal/domain/ledger"
	"github.com/terraloan/backend/internal/domain/shared"
	"github.com/terraloan/backend/internal/domain/shared/valueobject"
	"github.com/terraloan/backend/internal/interfaces/http/dto"
)

// The ledger endpoint tests run the real application service over
// map-backed repositories, so they cover binding, the error-to-status
// mapping, and the service wiring in one pass.

type memAccountRepo struct {
	accounts map[uuid.UUID]*ledger.Account
	failWith error
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[uuid.UUID]*ledger.Account)}
}

func (m *memAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.accounts[id], nil
}

func (m *memAccountRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	return m.FindByID(ctx, id)
}

func (m *memAccountRepo) FindByName(ctx context.Context, name string) (*ledger.Account, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, a := range m.accounts {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memAccountRepo) FindAll(ctx context.Context, filter ledger.AccountFilter) ([]ledger.Account, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var result []ledger.Account
	for _, a := range m.accounts {
		result = append(result, *a)
	}
	return result, nil
}

func (m *memAccountRepo) Count(ctx context.Context, filter ledger.AccountFilter) (int64, error) {
	return int64(len(m.accounts)), nil
}

func (m *memAccountRepo) Save(ctx context.Context, account *ledger.Account) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *memAccountRepo) SaveWithLock(ctx context.Context, account *ledger.Account) error {
	return m.Save(ctx, account)
}

func (m *memAccountRepo) TotalActiveBalance(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, a := range m.accounts {
		if a.IsActive() {
			total = total.Add(a.Balance)
		}
	}
	return total, nil
}

type memEntryRepo struct {
	entries []*ledger.LedgerEntry
}

func (m *memEntryRepo) Create(ctx context.Context, entry *ledger.LedgerEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memEntryRepo) FindByAccount(ctx context.Context, accountID uuid.UUID, filter ledger.EntryFilter) ([]ledger.LedgerEntry, error) {
	var result []ledger.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *memEntryRepo) CountByAccount(ctx context.Context, accountID uuid.UUID, filter ledger.EntryFilter) (int64, error) {
	entries, _ := m.FindByAccount(ctx, accountID, filter)
	return int64(len(entries)), nil
}

func (m *memEntryRepo) SumByAccount(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range m.entries {
		if e.AccountID == accountID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

// byAccount returns the stored entries for one account, oldest first.
func (m *memEntryRepo) byAccount(accountID uuid.UUID) []*ledger.LedgerEntry {
	var result []*ledger.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			result = append(result, e)
		}
	}
	return result
}

type passthroughTxManager struct{}

func (passthroughTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newLedgerTestRouter() (*gin.Engine, *memAccountRepo, *memEntryRepo) {
	accounts := newMemAccountRepo()
	entries := &memEntryRepo{}
	svc := ledgerapp.NewService(accounts, entries, passthroughTxManager{})

	engine := gin.New()
	NewLedgerHandler(svc).RegisterRoutes(engine.Group("/api/v1"))
	return engine, accounts, entries
}

func seedAccount(t *testing.T, repo *memAccountRepo, name, balance string) *ledger.Account {
	t.Helper()
	amount, err := decimal.NewFromString(balance)
	require.NoError(t, err)
	account, err := ledger.NewAccount(name, "", valueobject.NewMoneyPHP(amount))
	require.NoError(t, err)
	repo.accounts[account.ID] = account
	return account
}

var testActor = shared.Actor{ID: uuid.New(), Name: "Ana Cruz"}

func doJSONRequest(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", testActor.ID.String())
	req.Header.Set("X-Actor-Name", testActor.Name)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "response data is not an object")
	return data
}

func TestCreateAccountEndpoint(t *testing.T) {
	t.Run("creates account with opening balance entry", func(t *testing.T) {
		engine, accounts, entries := newLedgerTestRouter()

		w := doJSONRequest(t, engine, http.MethodPost, "/api/v1/ledger/accounts", gin.H{
			"name":            "Operating Fund",
			"description":     "Main cash pool",
			"opening_balance": 1000,
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)

		stored, err := accounts.FindByName(context.Background(), "Operating Fund")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.True(t, stored.Balance.Equal(decimal.NewFromInt(1000)))

		recorded := entries.byAccount(stored.ID)
		require.Len(t, recorded, 1)
		assert.Equal(t, ledger.EntryOpeningBalance, recorded[0].Category)
		assert.Equal(t, testActor.Name, recorded[0].ActorName)
	})

	t.Run("zero opening balance writes no entry", func(t *testing.T) {
		engine, accounts, entries := newLedgerTestRouter()

		w := doJSONRequest(t, engine, http.MethodPost, "/api/v1/ledger/accounts", gin.H{
			"name": "Escrow",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		stored, err := accounts.FindByName(context.Background(), "Escrow")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Empty(t, entries.byAccount(stored.ID))
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		engine, accounts, _ := newLedgerTestRouter()
		seedAccount(t, accounts, "Operating Fund", "0")

		w := doJSONRequest(t, engine, http.MethodPost, "/api/v1/ledger/accounts", gin.H{
			"name": "Operating Fund",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeAlreadyExists, resp.Error.Code)
	})

	t.Run("missing name fails validation", func(t *testing.T) {
		engine, _, _ := newLedgerTestRouter()

		w := doJSONRequest(t, engine, http.MethodPost, "/api/v1/ledger/accounts", gin.H{
			"opening_balance": 100,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing actor header is rejected", func(t *testing.T) {
		engine, _, _ := newLedgerTestRouter()

		body, _ := json.Marshal(gin.H{"name": "Operating Fund"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ledger/accounts", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDepositEndpoint(t *testing.T) {
	t.Run("credits the account and records an entry", func(t *testing.T) {
		engine, accounts, entries := newLedgerTestRouter()
		account := seedAccount(t, accounts, "Operating Fund", "100")

		w := doJSONRequest(t, engine, http.MethodPost,
			"/api/v1/ledger/accounts/"+account.ID.String()+"/deposit",
			gin.H{"amount": 50, "note": "cash in"})

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		data := dataMap(t, resp)
		assert.Equal(t, "100", data["balance_before"])
		assert.Equal(t, "150", data["balance_after"])

		assert.True(t, account.Balance.Equal(decimal.NewFromInt(150)))
		recorded := entries.byAccount(account.ID)
		require.Len(t, recorded, 1)
		assert.Equal(t, ledger.EntryDeposit, recorded[0].Category)
		assert.Equal(t, "cash in", recorded[0].Note)
	})

	t.Run("unknown account is 404", func(t *testing.T) {
		engine, _, _ := newLedgerTestRouter()

		w := doJSONRequest(t, engine, http.MethodPost,
			"/api/v1/ledger/accounts/"+uuid.NewString()+"/deposit",
			gin.H{"amount": 50})

		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("closed account is 404", func(t *testing.T) {
		engine, accounts, _ := newLedgerTestRouter()
		account := seedAccount(t, accounts, "Old Fund", "0")
		require.NoError(t, account.Close())

		w := doJSONRequest(t, engine, http.MethodPost,
			"/api/v1/ledger/accounts/"+account.ID.String()+"/deposit",
			gin.H{"amount": 50})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-positive amount fails validation", func(t *testing.T) {
		engine, accounts, _ := newLedgerTestRouter()
		account := seedAccount(t, accounts, "Operating Fund", "100")

		w := doJSONRequest(t, engine, http.MethodPost,
			"/api/v1/ledger/accounts/"+account.ID.String()+"/deposit",
			gin.H{"amount": 0})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed account id is 400", func(t *testing.T) {
		engine, _, _ := newLedgerTestRouter()

		w := doJSONRequest(t, engine, http.MethodPost,
			"/api/v1/ledger/accounts/not-a-uuid/deposit",
			gin.H{"amount": 50})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWithdrawEndpoint(t *testing.T) {
	t.Run("debits the account", func(t *testing.T) {
		engine, accounts, entries := newLedgerTestRouter()
		account := seedAccount(t, accounts, "Operating Fund", "200")

		w := doJSONRequest(t, engine, http.MethodPost,
			"/api/v1/ledger/accounts/"+account.ID.String()+"/withdraw",
			gin.H{"amount": 75, "note": "cash out"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(125)))
		recorded := entries.byAccount(account.ID)
		require.Len(t, recorded, 1)
		assert.Equal(t, ledger.EntryWithdrawal, recorded[0].Category)
		assert.True(t, recorded[0].Amount.Equal(decimal.NewFromInt(-75)))
	})

	t.Run("insufficient balance is 422 and leaves the balance alone", func(t *testing.T) {
		engine, accounts, entries := newLedgerTestRouter()
		account := seedAccount(t, accounts, "Operating Fund", "100")

		w := doJSONRequest(t, engine, http.MethodPost,
			"/api/v1/ledger/accounts/"+account.ID.String()+"/withdraw",
			gin.H{"amount": 500})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInsufficientBalance, resp.Error.Code)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(100)))
		assert.Empty(t, entries.byAccount(account.ID))
	})
}

func TestTransferEndpoint(t *testing.T) {
	t.Run("moves money and writes two entries", func(t *testing.T) {
		engine, accounts, entries := newLedgerTestRouter()
		from := seedAccount(t, accounts, "Operating Fund", "500")
		to := seedAccount(t, accounts, "Escrow", "100")

		w := doJSONRequest(t, engine, http.MethodPost, "/api/v1/ledger/transfers", gin.H{
			"from_account_id": from.ID.String(),
			"to_account_id":   to.ID.String(),
			"amount":          200,
			"note":            "fund escrow",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, from.Balance.Equal(decimal.NewFromInt(300)))
		assert.True(t, to.Balance.Equal(decimal.NewFromInt(300)))

		outEntries := entries.byAccount(from.ID)
		require.Len(t, outEntries, 1)
		assert.Equal(t, ledger.EntryTransferOut, outEntries[0].Category)
		assert.True(t, outEntries[0].Amount.Equal(decimal.NewFromInt(-200)))

		inEntries := entries.byAccount(to.ID)
		require.Len(t, inEntries, 1)
		assert.Equal(t, ledger.EntryTransferIn, inEntries[0].Category)
		assert.True(t, inEntries[0].Amount.Equal(decimal.NewFromInt(200)))
	})

	t.Run("same account is 422", func(t *testing.T) {
		engine, accounts, _ := newLedgerTestRouter()
		account := seedAccount(t, accounts, "Operating Fund", "500")

		w := doJSONRequest(t, engine, http.MethodPost, "/api/v1/ledger/transfers", gin.H{
			"from_account_id": account.ID.String(),
			"to_account_id":   account.ID.String(),
			"amount":          200,
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeSameAccount, resp.Error.Code)
	})

	t.Run("insufficient source rolls back both sides", func(t *testing.T) {
		engine, accounts, entries := newLedgerTestRouter()
		from := seedAccount(t, accounts, "Operating Fund", "100")
		to := seedAccount(t, accounts, "Escrow", "100")

		w := doJSONRequest(t, engine, http.MethodPost, "/api/v1/ledger/transfers", gin.H{
			"from_account_id": from.ID.String(),
			"to_account_id":   to.ID.String(),
			"amount":          999,
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.True(t, to.Balance.Equal(decimal.NewFromInt(100)))
		assert.Empty(t, entries.entries)
	})
}

func TestAdjustBalanceEndpoint(t *testing.T) {
	engine, accounts, entries := newLedgerTestRouter()
	account := seedAccount(t, accounts, "Operating Fund", "100")

	w := doJSONRequest(t, engine, http.MethodPost,
		"/api/v1/ledger/accounts/"+account.ID.String()+"/adjust",
		gin.H{"new_balance": 80, "note": "cash count correction"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(80)))

	recorded := entries.byAccount(account.ID)
	require.Len(t, recorded, 1)
	assert.Equal(t, ledger.EntryAdjustment, recorded[0].Category)
	assert.True(t, recorded[0].Amount.Equal(decimal.NewFromInt(-20)))
}

func TestCloseAccountEndpoint(t *testing.T) {
	t.Run("closes a zero-balance account", func(t *testing.T) {
		engine, accounts, entries := newLedgerTestRouter()
		account := seedAccount(t, accounts, "Old Fund", "0")

		w := doJSONRequest(t, engine, http.MethodPost,
			"/api/v1/ledger/accounts/"+account.ID.String()+"/close", nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.True(t, account.IsClosed())

		recorded := entries.byAccount(account.ID)
		require.Len(t, recorded, 1)
		assert.Equal(t, ledger.EntryAccountClosed, recorded[0].Category)
		assert.True(t, recorded[0].Amount.IsZero())
	})

	t.Run("non-zero balance is 422", func(t *testing.T) {
		engine, accounts, _ := newLedgerTestRouter()
		account := seedAccount(t, accounts, "Operating Fund", "50")

		w := doJSONRequest(t, engine, http.MethodPost,
			"/api/v1/ledger/accounts/"+account.ID.String()+"/close", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeNonZeroBalance, resp.Error.Code)
		assert.True(t, account.IsActive())
	})
}

func TestListEntriesEndpoint(t *testing.T) {
	engine, accounts, _ := newLedgerTestRouter()
	account := seedAccount(t, accounts, "Operating Fund", "100")

	for _, amount := range []int{10, 20} {
		w := doJSONRequest(t, engine, http.MethodPost,
			"/api/v1/ledger/accounts/"+account.ID.String()+"/deposit",
			gin.H{"amount": amount})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSONRequest(t, engine, http.MethodGet,
		"/api/v1/ledger/accounts/"+account.ID.String()+"/entries", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)

	items, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestTotalBalanceEndpoint(t *testing.T) {
	engine, accounts, _ := newLedgerTestRouter()
	seedAccount(t, accounts, "Operating Fund", "100")
	seedAccount(t, accounts, "Escrow", "250")
	closed := seedAccount(t, accounts, "Old Fund", "0")
	require.NoError(t, closed.Close())

	w := doJSONRequest(t, engine, http.MethodGet, "/api/v1/ledger/balance", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data := dataMap(t, resp)
	assert.InDelta(t, 350.0, data["balance"], 0.001)
}
