package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"bondswap/core/host"
	"bondswap/core/types"
	"bondswap/crypto"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	dsn, err := FileDSN(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	j, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	j.now = func() time.Time { return time.Unix(1700000000, 0) }
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	pool := crypto.ContractAddress(2, 1)
	alice := crypto.AddressFromLabel("alice")

	ok := host.JournalEntry{
		ID:       uuid.New(),
		Kind:     "execute",
		Contract: pool,
		Code:     "bondswap-pool",
		Action:   "swap",
		Sender:   alice,
		Height:   3,
		Time:     99,
		Events:   []*types.Event{{Type: "pool.swap", Attributes: map[string]string{"native_sold": "1000"}}},
	}
	failed := ok
	failed.ID = uuid.New()
	failed.Action = "add_liquidity"
	failed.Err = errors.New("pool: insufficient fee")
	failed.Events = nil

	require.NoError(t, j.Record(ctx, ok))
	require.NoError(t, j.Record(ctx, failed))

	entries, err := j.Recent(ctx, 10, false)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, failed.ID.String(), entries[0].RequestID)
	require.Equal(t, "pool: insufficient fee", entries[0].Error)
	require.Equal(t, "swap", entries[1].Action)
	require.Equal(t, uint64(3), entries[1].Height)
	require.Equal(t, pool.String(), entries[1].Contract)
	require.Contains(t, string(entries[1].Events), "native_sold")

	failures, err := j.Recent(ctx, 10, true)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	require.Equal(t, "add_liquidity", failures[0].Action)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(" ")
	require.ErrorIs(t, err, ErrPathRequired)
	_, err = FileDSN("")
	require.ErrorIs(t, err, ErrPathRequired)
}
