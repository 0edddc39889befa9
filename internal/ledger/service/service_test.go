package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wrkledger/internal/ledger/models"
	"wrkledger/internal/ledger/store/memory"
	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
	"wrkledger/pkg/platform/journal"
	journalmem "wrkledger/pkg/platform/journal/store/memory"
	"wrkledger/pkg/platform/journal/publisher"
)

var (
	alice = mustAddr("0x1a5b8a59c528458a640d7018c1e806dfb96cbada")
	bob   = mustAddr("0x14723a09acff6d2a60dcdf7aa4aff308fddc160c")
	carol = mustAddr("0x4b0897b0513fdc7c541b6d9d7e929c4e5364d2db")
	taxly = mustAddr("0x583031d1113ad414f02576bd6afabfb302140225")
)

func mustAddr(s string) domain.Address {
	a, err := domain.ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

type fixture struct {
	svc     *Service
	store   *memory.Store
	entries *journalmem.Store
}

// one percent tax, remainder to the recipient side
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	entries := journalmem.New()
	svc, err := New(store,
		models.TaxPolicy{FeeAccount: taxly, FeeRate: 1, FeeScale: 100},
		WithJournal(publisher.New(entries)),
	)
	require.NoError(t, err)
	return &fixture{svc: svc, store: store, entries: entries}
}

func (f *fixture) fund(t *testing.T, addr domain.Address, amount domain.Amount) {
	t.Helper()
	require.NoError(t, f.store.Mint(context.Background(), addr, amount))
}

func (f *fixture) balance(t *testing.T, addr domain.Address) domain.Amount {
	t.Helper()
	b, err := f.svc.BalanceOf(context.Background(), addr)
	require.NoError(t, err)
	return b
}

func TestTransferSplitsTax(t *testing.T) {
	f := newFixture(t)
	f.fund(t, alice, 1000)
	ctx := context.Background()

	require.NoError(t, f.svc.Transfer(ctx, alice, bob, 100))

	assert.Equal(t, uint64(900), f.balance(t, alice))
	assert.Equal(t, uint64(99), f.balance(t, bob))
	assert.Equal(t, uint64(1), f.balance(t, taxly))
}

func TestTransferEmitsRecipientLegThenFeeLeg(t *testing.T) {
	f := newFixture(t)
	f.fund(t, alice, 1000)

	require.NoError(t, f.svc.Transfer(context.Background(), alice, bob, 100))

	entries := f.entries.All()
	require.Len(t, entries, 2)
	assert.Equal(t, journal.KindTransfer, entries[0].Kind)
	assert.Equal(t, bob, entries[0].To)
	assert.Equal(t, uint64(99), entries[0].Amount)
	assert.Equal(t, taxly, entries[1].To)
	assert.Equal(t, uint64(1), entries[1].Amount)
}

func TestTransferRoundsFeeDownRemainderToRecipient(t *testing.T) {
	f := newFixture(t)
	f.fund(t, alice, 1000)

	// fee = floor(150 * 1 / 100) = 1, recipient gets the other 149
	require.NoError(t, f.svc.Transfer(context.Background(), alice, bob, 150))

	assert.Equal(t, uint64(149), f.balance(t, bob))
	assert.Equal(t, uint64(1), f.balance(t, taxly))
}

func TestTransferRejectsZeroRecipient(t *testing.T) {
	f := newFixture(t)
	f.fund(t, alice, 1000)

	err := f.svc.Transfer(context.Background(), alice, domain.ZeroAddress, 100)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeZeroRecipient))
	assert.Equal(t, uint64(1000), f.balance(t, alice))
}

func TestTransferRejectsInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.fund(t, alice, 50)

	err := f.svc.Transfer(context.Background(), alice, bob, 100)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
	assert.Equal(t, uint64(50), f.balance(t, alice))
	assert.Equal(t, uint64(0), f.balance(t, bob))
}

func TestTransferConservesTotalSupply(t *testing.T) {
	f := newFixture(t)
	f.fund(t, alice, 1000)
	ctx := context.Background()

	require.NoError(t, f.svc.Transfer(ctx, alice, bob, 100))
	require.NoError(t, f.svc.Transfer(ctx, bob, carol, 33))

	sum := f.balance(t, alice) + f.balance(t, bob) + f.balance(t, carol) + f.balance(t, taxly)
	supply, err := f.svc.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, supply, sum)
}

func TestApproveOverwritesAllowance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Approve(ctx, alice, bob, 500))
	require.NoError(t, f.svc.Approve(ctx, alice, bob, 200))

	remaining, err := f.svc.Allowance(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), remaining)
}

func TestTransferFromConsumesAllowanceAndTaxes(t *testing.T) {
	f := newFixture(t)
	f.fund(t, alice, 1000)
	ctx := context.Background()

	require.NoError(t, f.svc.Approve(ctx, alice, bob, 300))
	require.NoError(t, f.svc.TransferFrom(ctx, bob, alice, carol, 100))

	assert.Equal(t, uint64(900), f.balance(t, alice))
	assert.Equal(t, uint64(99), f.balance(t, carol))
	assert.Equal(t, uint64(1), f.balance(t, taxly))

	remaining, err := f.svc.Allowance(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), remaining)
}

func TestTransferFromRejectsInsufficientAllowance(t *testing.T) {
	f := newFixture(t)
	f.fund(t, alice, 1000)
	ctx := context.Background()

	require.NoError(t, f.svc.Approve(ctx, alice, bob, 50))
	err := f.svc.TransferFrom(ctx, bob, alice, carol, 100)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientAllowance))

	assert.Equal(t, uint64(1000), f.balance(t, alice))
	remaining, err := f.svc.Allowance(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), remaining)
}

func TestMoveIsUntaxed(t *testing.T) {
	f := newFixture(t)
	f.fund(t, alice, 1000)

	require.NoError(t, f.svc.Move(context.Background(), alice, []models.Credit{
		{To: bob, Amount: 100},
		{To: carol, Amount: 2},
	}))

	assert.Equal(t, uint64(898), f.balance(t, alice))
	assert.Equal(t, uint64(100), f.balance(t, bob))
	assert.Equal(t, uint64(2), f.balance(t, carol))
	assert.Equal(t, uint64(0), f.balance(t, taxly))
}

func TestMoveValidatesFullDebitBeforeAnyCredit(t *testing.T) {
	f := newFixture(t)
	f.fund(t, alice, 101)

	err := f.svc.Move(context.Background(), alice, []models.Credit{
		{To: bob, Amount: 100},
		{To: carol, Amount: 2},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
	assert.Equal(t, uint64(101), f.balance(t, alice))
	assert.Equal(t, uint64(0), f.balance(t, bob))
}

func TestMintGrowsSupply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Mint(ctx, alice, 4000))

	supply, err := f.svc.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4000), supply)
	assert.Equal(t, uint64(4000), f.balance(t, alice))
}

func TestZeroFeeRateSkipsFeeLeg(t *testing.T) {
	store := memory.New()
	entries := journalmem.New()
	svc, err := New(store,
		models.TaxPolicy{FeeRate: 0, FeeScale: 100},
		WithJournal(publisher.New(entries)),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Mint(ctx, alice, 100))
	require.NoError(t, svc.Transfer(ctx, alice, bob, 100))

	b, err := svc.BalanceOf(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), b)
	assert.Len(t, entries.All(), 1)
}

func TestNewRejectsInvalidTaxPolicy(t *testing.T) {
	_, err := New(memory.New(), models.TaxPolicy{FeeRate: 2, FeeScale: 1})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = New(memory.New(), models.TaxPolicy{FeeRate: 1, FeeScale: 0})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
