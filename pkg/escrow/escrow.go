// Package escrow models the value boundary of the pool: payouts to withdrawal
// recipients are prepared inside the pool's transaction and only finalized once
// that transaction has committed.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

var (
	// ErrPaymentRejected is returned when the recipient cannot accept funds.
	ErrPaymentRejected = errors.New("recipient rejected payment")

	// ErrPayoutFinalized is returned when Commit is called on a payout that was
	// already committed or aborted.
	ErrPayoutFinalized = errors.New("payout already finalized")
)

// Payer transfers value out of the pool.
type Payer interface {
	// PreparePayout reserves a transfer of amount to to. An error means the
	// transfer cannot happen and nothing was reserved.
	PreparePayout(ctx context.Context, to common.Address, amount *uint256.Int) (Payout, error)
}

// Payout is a reserved transfer awaiting the outcome of the caller's transaction.
type Payout interface {
	// ID identifies the payout.
	ID() string

	// Commit makes the transfer final.
	Commit() error

	// Abort releases the reservation. Aborting a finalized payout is a no-op.
	Abort()
}

// Record is a finalized payout.
type Record struct {
	ID     string         `json:"id"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
	PaidAt time.Time      `json:"paidAt"`
}

// Ledger is an in-memory Payer that credits recipient balances.
type Ledger struct {
	mu        sync.Mutex
	balances  map[common.Address]*uint256.Int
	rejecting map[common.Address]bool
	pending   map[string]*ledgerPayout
	records   []Record
	logger    *zap.Logger
}

// NewLedger creates an empty ledger.
func NewLedger(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		balances:  make(map[common.Address]*uint256.Int),
		rejecting: make(map[common.Address]bool),
		pending:   make(map[string]*ledgerPayout),
		logger:    logger,
	}
}

// RejectPayments makes every future payout to addr fail, modelling a recipient
// that cannot receive funds.
func (l *Ledger) RejectPayments(addr common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rejecting[addr] = true
}

// AcceptPayments undoes RejectPayments.
func (l *Ledger) AcceptPayments(addr common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rejecting, addr)
}

// PreparePayout implements Payer.
func (l *Ledger) PreparePayout(ctx context.Context, to common.Address, amount *uint256.Int) (Payout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, fmt.Errorf("payout amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rejecting[to] {
		return nil, fmt.Errorf("%w: %s", ErrPaymentRejected, to.Hex())
	}

	p := &ledgerPayout{
		ledger: l,
		id:     uuid.NewString(),
		to:     to,
		amount: new(uint256.Int).Set(amount),
	}
	l.pending[p.id] = p

	l.logger.Sugar().Debugw("Prepared payout", "payout_id", p.id, "to", to.Hex(), "amount", amount.Dec())
	return p, nil
}

// BalanceOf returns the total paid out to addr.
func (l *Ledger) BalanceOf(addr common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.balances[addr]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

// Payouts returns every finalized payout in commit order.
func (l *Ledger) Payouts() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Pending returns the number of prepared payouts not yet committed or aborted.
func (l *Ledger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

type ledgerPayout struct {
	ledger *Ledger
	id     string
	to     common.Address
	amount *uint256.Int
}

func (p *ledgerPayout) ID() string { return p.id }

func (p *ledgerPayout) Commit() error {
	l := p.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.pending[p.id]; !ok {
		return fmt.Errorf("%w: %s", ErrPayoutFinalized, p.id)
	}
	delete(l.pending, p.id)

	balance, ok := l.balances[p.to]
	if !ok {
		balance = new(uint256.Int)
		l.balances[p.to] = balance
	}
	balance.Add(balance, p.amount)

	l.records = append(l.records, Record{
		ID:     p.id,
		To:     p.to,
		Amount: new(uint256.Int).Set(p.amount),
		PaidAt: time.Now(),
	})

	l.logger.Sugar().Infow("Payout committed", "payout_id", p.id, "to", p.to.Hex(), "amount", p.amount.Dec())
	return nil
}

func (p *ledgerPayout) Abort() {
	l := p.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.pending[p.id]; ok {
		delete(l.pending, p.id)
		l.logger.Sugar().Debugw("Payout aborted", "payout_id", p.id)
	}
}
