package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgermodels "wrkledger/internal/ledger/models"
	ledgerservice "wrkledger/internal/ledger/service"
	ledgermem "wrkledger/internal/ledger/store/memory"
	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
	journalmem "wrkledger/pkg/platform/journal/store/memory"
	"wrkledger/pkg/platform/journal/publisher"
)

var (
	distributionPool = mustAddr("0x1a5b8a59c528458a640d7018c1e806dfb96cbada")
	purchasePool     = mustAddr("0x583031d1113ad414f02576bd6afabfb302140225")
	feeSink          = mustAddr("0xdd870fa1b7c4700f2bd7f44238821c26f7392148")
	delegate         = mustAddr("0x4b0897b0513fdc7c541b6d9d7e929c4e5364d2db")
	worker           = mustAddr("0x14723a09acff6d2a60dcdf7aa4aff308fddc160c")
)

func mustAddr(s string) domain.Address {
	a, err := domain.ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

type allowOnly struct{ allowed domain.Address }

func (a allowOnly) IsAuthorized(_ context.Context, addr domain.Address) (bool, error) {
	return addr == a.allowed, nil
}

type fixture struct {
	svc     *Service
	store   *ledgermem.Store
	entries *journalmem.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := ledgermem.New()
	entries := journalmem.New()
	ledger, err := ledgerservice.New(store,
		ledgermodels.TaxPolicy{FeeRate: 0, FeeScale: 100},
		ledgerservice.WithJournal(publisher.New(entries)),
	)
	require.NoError(t, err)

	pools := Pools{Distribution: distributionPool, InAppPurchase: purchasePool, FeeSink: feeSink}
	svc, err := New(pools, allowOnly{allowed: delegate}, ledger)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Mint(ctx, distributionPool, 10000))
	require.NoError(t, store.Mint(ctx, purchasePool, 10000))
	return &fixture{svc: svc, store: store, entries: entries}
}

func (f *fixture) balance(t *testing.T, addr domain.Address) uint64 {
	t.Helper()
	b, err := f.store.BalanceOf(context.Background(), addr)
	require.NoError(t, err)
	return b
}

func TestDistributePaysFullAmountUntaxed(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Distribute(context.Background(), delegate, worker, 250))

	assert.Equal(t, uint64(9750), f.balance(t, distributionPool))
	assert.Equal(t, uint64(250), f.balance(t, worker))
	assert.Equal(t, uint64(0), f.balance(t, feeSink))
}

func TestDistributeRequiresDelegate(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Distribute(context.Background(), worker, worker, 250)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, uint64(10000), f.balance(t, distributionPool))
}

func TestDistributeRejectsZeroRecipient(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Distribute(context.Background(), delegate, domain.ZeroAddress, 250)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeZeroRecipient))
}

func TestDistributeRejectsOverdraw(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Distribute(context.Background(), delegate, worker, 10001)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
}

func TestPurchaseSplitsFeeToSink(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Purchase(context.Background(), delegate, worker, 100, 2))

	assert.Equal(t, uint64(9900), f.balance(t, purchasePool))
	assert.Equal(t, uint64(98), f.balance(t, worker))
	assert.Equal(t, uint64(2), f.balance(t, feeSink))
}

func TestPurchaseEmitsRecipientLegThenFeeLeg(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Purchase(context.Background(), delegate, worker, 100, 2))

	entries := f.entries.All()
	require.Len(t, entries, 2)
	assert.Equal(t, worker, entries[0].To)
	assert.Equal(t, uint64(98), entries[0].Amount)
	assert.Equal(t, feeSink, entries[1].To)
	assert.Equal(t, uint64(2), entries[1].Amount)
}

func TestPurchaseRejectsFeeAboveAmount(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Purchase(context.Background(), delegate, worker, 2, 3)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestPurchaseRequiresDelegate(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Purchase(context.Background(), worker, worker, 100, 2)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
