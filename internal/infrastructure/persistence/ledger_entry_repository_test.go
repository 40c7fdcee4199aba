package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/terraloan/backend/internal/domain/ledger"
)

// setupLedgerEntryTestDB creates an in-memory SQLite database with the
// ledger_entries table
func setupLedgerEntryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE ledger_entries (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			category TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			resulting_balance NUMERIC NOT NULL,
			note TEXT,
			reference TEXT,
			actor_id TEXT,
			actor_name TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error
	require.NoError(t, err)

	return db
}

func testEntry(accountID uuid.UUID, category ledger.EntryCategory, amount string, createdAt time.Time) *ledger.LedgerEntry {
	return &ledger.LedgerEntry{
		ID:               uuid.New(),
		AccountID:        accountID,
		Category:         category,
		Amount:           decimal.RequireFromString(amount),
		ResultingBalance: decimal.Zero,
		ActorName:        "Maria Reyes",
		CreatedAt:        createdAt,
	}
}

func TestGormLedgerEntryRepository_Create(t *testing.T) {
	db := setupLedgerEntryTestDB(t)
	repo := NewGormLedgerEntryRepository(db)
	ctx := context.Background()

	accountID := uuid.New()
	entry := testEntry(accountID, ledger.EntryDeposit, "500.00", time.Now())
	entry.Note = "initial deposit"
	entry.ResultingBalance = decimal.RequireFromString("500.00")

	err := repo.Create(ctx, entry)
	require.NoError(t, err)

	entries, err := repo.FindByAccount(ctx, accountID, ledger.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.Equal(t, ledger.EntryDeposit, entries[0].Category)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("500")))
	assert.Equal(t, "initial deposit", entries[0].Note)
}

func TestGormLedgerEntryRepository_FindByAccount(t *testing.T) {
	db := setupLedgerEntryTestDB(t)
	repo := NewGormLedgerEntryRepository(db)
	ctx := context.Background()

	accountID := uuid.New()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	oldest := testEntry(accountID, ledger.EntryOpeningBalance, "1000.00", base)
	middle := testEntry(accountID, ledger.EntryWithdrawal, "-200.00", base.Add(time.Hour))
	middle.Reference = "LN-20240315-093000AB12"
	newest := testEntry(accountID, ledger.EntryDeposit, "300.00", base.Add(2*time.Hour))

	for _, e := range []*ledger.LedgerEntry{oldest, middle, newest} {
		require.NoError(t, repo.Create(ctx, e))
	}
	// Entry on another account must never leak into the results
	require.NoError(t, repo.Create(ctx, testEntry(uuid.New(), ledger.EntryDeposit, "999.00", base)))

	t.Run("returns entries newest first", func(t *testing.T) {
		entries, err := repo.FindByAccount(ctx, accountID, ledger.EntryFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, newest.ID, entries[0].ID)
		assert.Equal(t, middle.ID, entries[1].ID)
		assert.Equal(t, oldest.ID, entries[2].ID)
	})

	t.Run("filters by category", func(t *testing.T) {
		category := ledger.EntryWithdrawal
		entries, err := repo.FindByAccount(ctx, accountID, ledger.EntryFilter{Category: &category})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, middle.ID, entries[0].ID)
	})

	t.Run("filters by reference", func(t *testing.T) {
		entries, err := repo.FindByAccount(ctx, accountID, ledger.EntryFilter{Reference: "LN-20240315-093000AB12"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, middle.ID, entries[0].ID)
	})

	t.Run("filters by time window", func(t *testing.T) {
		from := base.Add(30 * time.Minute)
		to := base.Add(90 * time.Minute)
		entries, err := repo.FindByAccount(ctx, accountID, ledger.EntryFilter{From: &from, To: &to})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, middle.ID, entries[0].ID)
	})

	t.Run("paginates results", func(t *testing.T) {
		entries, err := repo.FindByAccount(ctx, accountID, ledger.EntryFilter{Page: 2, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, oldest.ID, entries[0].ID)
	})
}

func TestGormLedgerEntryRepository_CountByAccount(t *testing.T) {
	db := setupLedgerEntryTestDB(t)
	repo := NewGormLedgerEntryRepository(db)
	ctx := context.Background()

	accountID := uuid.New()
	now := time.Now()
	require.NoError(t, repo.Create(ctx, testEntry(accountID, ledger.EntryDeposit, "100.00", now)))
	require.NoError(t, repo.Create(ctx, testEntry(accountID, ledger.EntryDeposit, "50.00", now)))
	require.NoError(t, repo.Create(ctx, testEntry(accountID, ledger.EntryWithdrawal, "-25.00", now)))

	count, err := repo.CountByAccount(ctx, accountID, ledger.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	category := ledger.EntryDeposit
	count, err = repo.CountByAccount(ctx, accountID, ledger.EntryFilter{Category: &category})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestGormLedgerEntryRepository_SumByAccount(t *testing.T) {
	db := setupLedgerEntryTestDB(t)
	repo := NewGormLedgerEntryRepository(db)
	ctx := context.Background()

	accountID := uuid.New()
	now := time.Now()
	require.NoError(t, repo.Create(ctx, testEntry(accountID, ledger.EntryOpeningBalance, "1000.00", now)))
	require.NoError(t, repo.Create(ctx, testEntry(accountID, ledger.EntryWithdrawal, "-350.50", now)))
	require.NoError(t, repo.Create(ctx, testEntry(accountID, ledger.EntryDeposit, "100.25", now)))

	sum, err := repo.SumByAccount(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("749.75")), "got %s", sum)

	t.Run("empty account sums to zero", func(t *testing.T) {
		sum, err := repo.SumByAccount(ctx, uuid.New())
		require.NoError(t, err)
		assert.True(t, sum.IsZero())
	})
}
