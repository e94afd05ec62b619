package service

import (
	"sort"
	"sync"

	"github.com/dcanales/billetera-backend/internal/domain"
)

// SessionPhase is the lifecycle state of a user session.
type SessionPhase string

const (
	SessionSignedOut SessionPhase = "signed_out"
	SessionLoading   SessionPhase = "loading"
	SessionSignedIn  SessionPhase = "signed_in"
)

// Remote layout: one document per user plus one transaction record collection.
func userDocPath(uid string) string {
	return "users/" + uid
}

func transactionsPath(uid string) string {
	return "users/" + uid + "/transactions"
}

// Field names of the per-user document. The legacy field held the inline
// transaction array before the record collection existed.
const (
	fieldUserData     = "userData"
	fieldCategories   = "categories"
	fieldCards        = "cards"
	fieldWishlist     = "wishlist"
	fieldAcquisitions = "acquisitions"
	fieldPaidMonths   = "paidMonths"
	legacyField       = "transactions"
)

type deletePhase int

const (
	deleteIdle deletePhase = iota
	deletePending
	deleteExecuting
)

// pendingDelete is the state of the two-phase delete flow. Transactions are
// targeted by their store-assigned string id, acquisitions by their local
// numeric id; the two schemes are never unified.
type pendingDelete struct {
	phase         deletePhase
	txID          string
	acqID         int
	isAcquisition bool
}

// Session owns one signed-in user's ledger. All mutations go through the
// session controller or the mutation gateway; both serialize on mu, which
// stands in for the event-loop scheduling the source environment provided.
type Session struct {
	mu      sync.Mutex
	uid     string
	auth    domain.AuthState
	phase   SessionPhase
	ledger  domain.Ledger
	pending pendingDelete
}

// UID returns the session's user identifier.
func (s *Session) UID() string {
	return s.uid
}

// Phase returns the session's lifecycle state.
func (s *Session) Phase() SessionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot returns a copy of the ledger safe to hand to callers.
func (s *Session) Snapshot() domain.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyLedger(s.ledger)
}

// Summary recomputes the aggregate totals from the current transaction list.
func (s *Session) Summary() domain.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Summarize(s.ledger.Transactions)
}

// Transactions returns a copy of the current transaction list.
func (s *Session) Transactions() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Transaction, len(s.ledger.Transactions))
	copy(out, s.ledger.Transactions)
	return out
}

func copyLedger(l domain.Ledger) domain.Ledger {
	out := l
	out.Transactions = append([]domain.Transaction(nil), l.Transactions...)
	out.Cards = append([]domain.Card(nil), l.Cards...)
	out.Wishlist = append([]domain.WishlistItem(nil), l.Wishlist...)
	out.Acquisitions = append([]domain.Acquisition(nil), l.Acquisitions...)
	paid := make(domain.PaidMonths, len(l.PaidMonths))
	for k, v := range l.PaidMonths {
		paid[k] = v
	}
	out.PaidMonths = paid
	return out
}

// sortTransactionsDesc orders most recent first. Dates are ISO calendar
// strings, so lexicographic order is chronological; ties keep arrival order.
func sortTransactionsDesc(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date > txs[j].Date
	})
}
