package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dcanales/billetera-backend/internal/domain"
	"github.com/dcanales/billetera-backend/internal/websocket"
)

// LedgerService is the mutation gateway: every transaction mutation and the
// full reset go through it. The remote store is always written before the
// local mirror is touched, so a failed remote call never leaves the mirror
// ahead of the store.
type LedgerService struct {
	store     domain.DocumentStore
	sessions  *SessionService
	publisher websocket.EventPublisher
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(store domain.DocumentStore, sessions *SessionService, publisher websocket.EventPublisher) *LedgerService {
	if publisher == nil {
		publisher = &websocket.NoOpPublisher{}
	}
	return &LedgerService{
		store:     store,
		sessions:  sessions,
		publisher: publisher,
	}
}

// AddTransaction persists a draft as a new record, then prepends the full
// transaction (draft plus store-assigned id) to the local list. There is no
// optimistic insert: a failed create leaves local state untouched.
func (g *LedgerService) AddTransaction(ctx context.Context, uid string, draft domain.TransactionDraft) (domain.Transaction, error) {
	sess, err := g.sessions.Get(uid)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := draft.Validate(); err != nil {
		return domain.Transaction{}, err
	}

	data, err := json.Marshal(draft)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("encoding transaction: %w", err)
	}
	id, err := g.store.CreateRecord(ctx, transactionsPath(uid), data)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("creating transaction record: %w", err)
	}

	tx := draft.WithID(id)
	sess.mu.Lock()
	sess.ledger.Transactions = append([]domain.Transaction{tx}, sess.ledger.Transactions...)
	summary := domain.Summarize(sess.ledger.Transactions)
	sess.mu.Unlock()

	g.publisher.Publish(uid, websocket.TransactionCreated(tx))
	g.publisher.Publish(uid, websocket.BalanceUpdated(summary))
	return tx, nil
}

// PromptDeleteTransaction selects a transaction for deletion, moving the
// delete flow from idle to pending-confirmation.
func (g *LedgerService) PromptDeleteTransaction(uid, id string) error {
	return g.prompt(uid, pendingDelete{phase: deletePending, txID: id})
}

// PromptDeleteAcquisition selects an acquisition for deletion by its local
// numeric id.
func (g *LedgerService) PromptDeleteAcquisition(uid string, id int) error {
	return g.prompt(uid, pendingDelete{phase: deletePending, acqID: id, isAcquisition: true})
}

func (g *LedgerService) prompt(uid string, pending pendingDelete) error {
	sess, err := g.sessions.Get(uid)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.pending.phase == deleteExecuting {
		return domain.ErrDeleteInProgress
	}
	sess.pending = pending
	return nil
}

// CancelDelete clears the pending selection without deleting anything.
func (g *LedgerService) CancelDelete(uid string) error {
	sess, err := g.sessions.Get(uid)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.pending.phase == deleteExecuting {
		return domain.ErrDeleteInProgress
	}
	sess.pending = pendingDelete{}
	return nil
}

// ConfirmDelete executes the pending deletion. Acquisitions are filtered out
// of the in-memory list by numeric id with no remote call; transactions are
// deleted remotely first and filtered only if that succeeds. The pending
// selection is cleared in every outcome so the confirmation flow can never
// get stuck, but a failed remote delete leaves the local list untouched.
func (g *LedgerService) ConfirmDelete(ctx context.Context, uid string) error {
	sess, err := g.sessions.Get(uid)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.pending.phase != deletePending {
		phase := sess.pending.phase
		sess.mu.Unlock()
		if phase == deleteExecuting {
			return domain.ErrDeleteInProgress
		}
		return domain.ErrNoPendingDelete
	}
	pending := sess.pending
	sess.pending.phase = deleteExecuting
	sess.mu.Unlock()

	defer func() {
		sess.mu.Lock()
		sess.pending = pendingDelete{}
		sess.mu.Unlock()
	}()

	if pending.isAcquisition {
		sess.mu.Lock()
		filtered := sess.ledger.Acquisitions[:0:0]
		for _, a := range sess.ledger.Acquisitions {
			if a.ID != pending.acqID {
				filtered = append(filtered, a)
			}
		}
		sess.ledger.Acquisitions = filtered
		sess.mu.Unlock()
		// Acquisitions live in the user document, not the record collection:
		// the deletion reaches the store as a whole-list merge-write.
		g.sessions.reflector.Enqueue(uid, fieldAcquisitions, filtered)
		return nil
	}

	if err := g.store.DeleteRecord(ctx, transactionsPath(uid), pending.txID); err != nil {
		return fmt.Errorf("deleting transaction record: %w", err)
	}

	sess.mu.Lock()
	filtered := sess.ledger.Transactions[:0:0]
	for _, t := range sess.ledger.Transactions {
		if t.ID != pending.txID {
			filtered = append(filtered, t)
		}
	}
	sess.ledger.Transactions = filtered
	summary := domain.Summarize(sess.ledger.Transactions)
	sess.mu.Unlock()

	g.publisher.Publish(uid, websocket.TransactionDeleted(pending.txID))
	g.publisher.Publish(uid, websocket.BalanceUpdated(summary))
	return nil
}

// SaveEdit updates a transaction's mutable fields (description, amount,
// date) on the remote record, then replaces the local entry with the merged
// result. All other fields are left untouched.
func (g *LedgerService) SaveEdit(ctx context.Context, uid, id string, patch domain.TransactionPatch) (domain.Transaction, error) {
	sess, err := g.sessions.Get(uid)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := patch.Validate(); err != nil {
		return domain.Transaction{}, err
	}

	sess.mu.Lock()
	idx := -1
	for i, t := range sess.ledger.Transactions {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		sess.mu.Unlock()
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}
	current := sess.ledger.Transactions[idx]
	sess.mu.Unlock()

	partial, err := json.Marshal(patch)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("encoding patch: %w", err)
	}
	if err := g.store.UpdateRecord(ctx, transactionsPath(uid), id, partial); err != nil {
		return domain.Transaction{}, fmt.Errorf("updating transaction record: %w", err)
	}

	merged := patch.Apply(current)
	sess.mu.Lock()
	for i, t := range sess.ledger.Transactions {
		if t.ID == id {
			sess.ledger.Transactions[i] = merged
			break
		}
	}
	summary := domain.Summarize(sess.ledger.Transactions)
	sess.mu.Unlock()

	g.publisher.Publish(uid, websocket.TransactionUpdated(merged))
	g.publisher.Publish(uid, websocket.BalanceUpdated(summary))
	return merged, nil
}

// ResetAll overwrites the user's document with an empty one and reloads the
// session as if it were a fresh sign-in, reseeding defaults. The transaction
// record collection is deliberately not touched: records created before the
// reset survive it.
func (g *LedgerService) ResetAll(ctx context.Context, uid string) (*Session, error) {
	if _, err := g.sessions.Get(uid); err != nil {
		return nil, err
	}
	// A settings write queued before the reset would merge back into the
	// wiped document on the next flush, so pending writes are dropped first.
	g.sessions.reflector.Discard(uid)
	if err := g.store.WriteDocument(ctx, userDocPath(uid), domain.Document{}, false); err != nil {
		return nil, fmt.Errorf("resetting user document: %w", err)
	}
	sess, err := g.sessions.Reload(ctx, uid)
	if err != nil {
		return nil, err
	}
	g.publisher.Publish(uid, websocket.LedgerReloaded(sess.Snapshot()))
	return sess, nil
}
