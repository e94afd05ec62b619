package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dcanales/billetera-backend/internal/domain"
	"github.com/dcanales/billetera-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

func newTestLedgerService(t *testing.T, store *testutil.MockDocumentStore) (*LedgerService, *SessionService, *Session) {
	t.Helper()
	sessions, reflector := newTestSessionService(store)
	t.Cleanup(reflector.Stop)
	sess := signIn(t, sessions, "user-1", "ana@example.com")
	return NewLedgerService(store, sessions, nil), sessions, sess
}

func gastoDraft(amount int64, date string) domain.TransactionDraft {
	return domain.TransactionDraft{
		Type:     domain.TransactionTypeGasto,
		Amount:   decimal.NewFromInt(amount),
		Category: "Ocio",
		Date:     date,
	}
}

func TestAddTransactionRemoteFirst(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	g, _, sess := newTestLedgerService(t, store)
	ctx := context.Background()

	first, err := g.AddTransaction(ctx, "user-1", gastoDraft(100, "2025-01-10"))
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected a store-assigned id")
	}
	if len(store.Records["users/user-1/transactions"]) != 1 {
		t.Fatal("expected the record persisted")
	}

	second, err := g.AddTransaction(ctx, "user-1", gastoDraft(50, "2025-01-11"))
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	// New transactions are prepended
	txs := sess.Transactions()
	if len(txs) != 2 || txs[0].ID != second.ID || txs[1].ID != first.ID {
		t.Errorf("expected newest first, got %+v", txs)
	}
}

func TestAddTransactionFailureLeavesLocalUntouched(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	g, _, sess := newTestLedgerService(t, store)
	store.CreateRecordFn = func(collection string, data json.RawMessage) (string, error) {
		return "", errors.New("store unavailable")
	}

	_, err := g.AddTransaction(context.Background(), "user-1", gastoDraft(100, "2025-01-10"))
	if err == nil {
		t.Fatal("expected error from failed create")
	}
	if got := len(sess.Transactions()); got != 0 {
		t.Errorf("failed create must not touch the local list, got %d entries", got)
	}
}

func TestAddTransactionValidates(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	g, _, _ := newTestLedgerService(t, store)

	bad := gastoDraft(100, "2025-01-10")
	bad.Type = "otro"
	if _, err := g.AddTransaction(context.Background(), "user-1", bad); !errors.Is(err, domain.ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
	if store.CreateCount != 0 {
		t.Error("invalid draft must not reach the store")
	}
}

func TestAddedTransactionSurvivesReload(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	g, sessions, _ := newTestLedgerService(t, store)
	ctx := context.Background()

	tx, err := g.AddTransaction(ctx, "user-1", gastoDraft(100, "2025-01-10"))
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	reloaded, err := sessions.Reload(ctx, "user-1")
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	txs := reloaded.Transactions()
	if len(txs) != 1 || txs[0].ID != tx.ID {
		t.Errorf("expected the same record id after reload, got %+v", txs)
	}
}

func TestTwoPhaseDelete(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	g, _, sess := newTestLedgerService(t, store)
	ctx := context.Background()

	tx, err := g.AddTransaction(ctx, "user-1", gastoDraft(100, "2025-01-10"))
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	// Confirm without a pending selection
	if err := g.ConfirmDelete(ctx, "user-1"); !errors.Is(err, domain.ErrNoPendingDelete) {
		t.Errorf("expected ErrNoPendingDelete, got %v", err)
	}

	// Prompt then cancel: nothing deleted
	if err := g.PromptDeleteTransaction("user-1", tx.ID); err != nil {
		t.Fatalf("PromptDeleteTransaction failed: %v", err)
	}
	if err := g.CancelDelete("user-1"); err != nil {
		t.Fatalf("CancelDelete failed: %v", err)
	}
	if err := g.ConfirmDelete(ctx, "user-1"); !errors.Is(err, domain.ErrNoPendingDelete) {
		t.Errorf("cancel must clear the selection, got %v", err)
	}
	if len(sess.Transactions()) != 1 {
		t.Fatal("cancelled delete must not remove the transaction")
	}

	// Prompt then confirm: removed remotely and locally
	if err := g.PromptDeleteTransaction("user-1", tx.ID); err != nil {
		t.Fatalf("PromptDeleteTransaction failed: %v", err)
	}
	if err := g.ConfirmDelete(ctx, "user-1"); err != nil {
		t.Fatalf("ConfirmDelete failed: %v", err)
	}
	if len(sess.Transactions()) != 0 {
		t.Error("expected transaction removed locally")
	}
	if len(store.Records["users/user-1/transactions"]) != 0 {
		t.Error("expected record removed remotely")
	}
	if len(store.DeletedIDs) != 1 || store.DeletedIDs[0] != tx.ID {
		t.Errorf("expected remote delete of %s, got %v", tx.ID, store.DeletedIDs)
	}
}

func TestConfirmDeleteFailureKeepsLocal(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	g, _, sess := newTestLedgerService(t, store)
	ctx := context.Background()

	tx, err := g.AddTransaction(ctx, "user-1", gastoDraft(100, "2025-01-10"))
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	store.DeleteRecordFn = func(collection, id string) error {
		return errors.New("store unavailable")
	}
	if err := g.PromptDeleteTransaction("user-1", tx.ID); err != nil {
		t.Fatalf("PromptDeleteTransaction failed: %v", err)
	}
	if err := g.ConfirmDelete(ctx, "user-1"); err == nil {
		t.Fatal("expected error from failed remote delete")
	}

	// Local list untouched, pending selection cleared anyway
	if len(sess.Transactions()) != 1 {
		t.Error("failed delete must leave the local list untouched")
	}
	if err := g.ConfirmDelete(ctx, "user-1"); !errors.Is(err, domain.ErrNoPendingDelete) {
		t.Errorf("pending selection must be cleared after failure, got %v", err)
	}
}

func TestConfirmDeleteAcquisitionIsLocalOnly(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	g, sessions, sess := newTestLedgerService(t, store)
	ctx := context.Background()

	acqs := []domain.Acquisition{
		{ID: 1, Name: "Bicicleta", Price: decimal.NewFromInt(350)},
		{ID: 2, Name: "Guitarra", Price: decimal.NewFromInt(200)},
	}
	if err := sessions.UpdateAcquisitions("user-1", acqs); err != nil {
		t.Fatalf("UpdateAcquisitions failed: %v", err)
	}

	if err := g.PromptDeleteAcquisition("user-1", 1); err != nil {
		t.Fatalf("PromptDeleteAcquisition failed: %v", err)
	}
	if err := g.ConfirmDelete(ctx, "user-1"); err != nil {
		t.Fatalf("ConfirmDelete failed: %v", err)
	}

	got := sess.Snapshot().Acquisitions
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("expected acquisition 1 filtered out, got %+v", got)
	}
	if len(store.DeletedIDs) != 0 {
		t.Error("acquisition delete must not issue a remote record delete")
	}

	// The shrunken list reaches the store as a deferred merge-write.
	before := len(store.Writes)
	sessions.reflector.Flush(ctx)
	if len(store.Writes) != before+1 {
		t.Fatalf("expected one flushed write, got %d", len(store.Writes)-before)
	}
	flushed := store.Writes[len(store.Writes)-1]
	if !flushed.Merge {
		t.Error("flushed write must be a merge")
	}
	if _, ok := flushed.Data["acquisitions"]; !ok {
		t.Error("expected the acquisitions field in the flushed write")
	}
}

func TestSaveEditUpdatesOnlyMutableFields(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	g, _, sess := newTestLedgerService(t, store)
	ctx := context.Background()

	tx, err := g.AddTransaction(ctx, "user-1", gastoDraft(100, "2025-01-10"))
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	patch := domain.TransactionPatch{
		Description: "entradas",
		Amount:      decimal.NewFromInt(150),
		Date:        "2025-01-12",
	}
	edited, err := g.SaveEdit(ctx, "user-1", tx.ID, patch)
	if err != nil {
		t.Fatalf("SaveEdit failed: %v", err)
	}
	if !edited.Amount.Equal(decimal.NewFromInt(150)) || edited.Description != "entradas" {
		t.Errorf("patch not applied: %+v", edited)
	}
	if edited.Category != "Ocio" || edited.Type != domain.TransactionTypeGasto {
		t.Errorf("immutable fields changed: %+v", edited)
	}

	// The remote partial update must carry exactly the three mutable fields
	partial, ok := store.UpdateCalls[tx.ID]
	if !ok {
		t.Fatal("expected a remote partial update")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(partial, &fields); err != nil {
		t.Fatalf("decoding partial: %v", err)
	}
	if len(fields) != 3 {
		t.Errorf("expected 3 fields in partial, got %d: %v", len(fields), fields)
	}
	for _, f := range []string{"description", "amount", "date"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("partial missing field %s", f)
		}
	}

	if got := sess.Transactions()[0]; !got.Amount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("local mirror not updated: %+v", got)
	}
}

func TestSaveEditUnknownTransaction(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	g, _, _ := newTestLedgerService(t, store)

	patch := domain.TransactionPatch{Amount: decimal.NewFromInt(10), Date: "2025-01-12"}
	_, err := g.SaveEdit(context.Background(), "user-1", "missing", patch)
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestResetAllKeepsTransactionRecords(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	g, sessions, _ := newTestLedgerService(t, store)
	ctx := context.Background()

	tx, err := g.AddTransaction(ctx, "user-1", gastoDraft(100, "2025-01-10"))
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if err := sessions.UpdateWishlist("user-1", []domain.WishlistItem{{ID: 1, Name: "Bicicleta", Price: decimal.NewFromInt(350)}}); err != nil {
		t.Fatalf("UpdateWishlist failed: %v", err)
	}

	reloaded, err := g.ResetAll(ctx, "user-1")
	if err != nil {
		t.Fatalf("ResetAll failed: %v", err)
	}

	snap := reloaded.Snapshot()
	// Settings are back to defaults
	if len(snap.Wishlist) != 0 {
		t.Errorf("expected empty wishlist after reset, got %+v", snap.Wishlist)
	}
	if len(snap.Cards) != 2 || snap.Cards[0].Name != "Visa Principal" {
		t.Errorf("expected default cards after reset, got %+v", snap.Cards)
	}
	// The record collection is untouched: the transaction reappears
	txs := reloaded.Transactions()
	if len(txs) != 1 || txs[0].ID != tx.ID {
		t.Errorf("transaction records must survive a reset, got %+v", txs)
	}
}

func TestResetAllDiscardsPendingSettingsWrites(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	g, sessions, _ := newTestLedgerService(t, store)
	ctx := context.Background()

	old := []domain.Card{{ID: 9, Name: "Vieja", Limit: decimal.NewFromInt(1)}}
	if err := sessions.UpdateCards("user-1", old); err != nil {
		t.Fatalf("UpdateCards failed: %v", err)
	}

	reloaded, err := g.ResetAll(ctx, "user-1")
	if err != nil {
		t.Fatalf("ResetAll failed: %v", err)
	}
	sessions.reflector.Flush(ctx)

	// The queued cards write must not merge back into the wiped document
	doc, err := store.ReadDocument(ctx, "users/user-1")
	if err != nil {
		t.Fatalf("ReadDocument failed: %v", err)
	}
	if raw, ok := doc["cards"]; ok {
		t.Fatalf("pre-reset cards written into the reset document: %s", raw)
	}
	if got := reloaded.Snapshot().Cards; len(got) != 2 {
		t.Errorf("expected default cards after reset, got %+v", got)
	}
}
