package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dcanales/billetera-backend/internal/domain"
	"github.com/dcanales/billetera-backend/internal/util"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// SessionService is the session controller: it reacts to authentication
// transitions, loads the ledger from the remote store (running the legacy
// migration when needed) and tears sessions down on sign-out. It also hosts
// the settings mutators, which feed the persistence reflector.
type SessionService struct {
	store     domain.DocumentStore
	reflector *Reflector

	mu       sync.RWMutex
	sessions map[string]*Session
	loadErrs map[string]error
}

// NewSessionService creates a new SessionService.
func NewSessionService(store domain.DocumentStore, reflector *Reflector) *SessionService {
	return &SessionService{
		store:     store,
		reflector: reflector,
		sessions:  make(map[string]*Session),
		loadErrs:  make(map[string]error),
	}
}

// Subscribe attaches the controller to an auth provider's state stream.
func (s *SessionService) Subscribe(auth domain.AuthProvider) {
	auth.OnAuthStateChange(s.HandleAuthState)
}

// HandleAuthState processes one authentication transition.
func (s *SessionService) HandleAuthState(ctx context.Context, state domain.AuthState) {
	if !state.SignedIn {
		s.teardown(state.UID)
		return
	}
	if _, err := s.Load(ctx, state); err != nil {
		// Load failures are not papered over with defaults: the session is
		// withheld and the error reported on access until the next sign-in.
		log.Error().Err(err).Str("uid", state.UID).Msg("Session load failed")
		s.mu.Lock()
		s.loadErrs[state.UID] = err
		s.mu.Unlock()
	}
}

// Get returns the active session for a user. A failed load is reported as
// its own error, distinct from there being no session at all.
func (s *SessionService) Get(uid string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[uid]; ok {
		return sess, nil
	}
	if err, ok := s.loadErrs[uid]; ok {
		return nil, err
	}
	return nil, domain.ErrNoSession
}

// Load performs the sign-in sequence for a user: read the profile document,
// fall back to defaults for absent fields, migrate any legacy inline
// transaction list, then load and sort the transaction record collection.
// The session only becomes visible once the load has fully succeeded.
func (s *SessionService) Load(ctx context.Context, state domain.AuthState) (*Session, error) {
	uid := state.UID
	ledger := domain.DefaultLedger(state.Name, state.Email)

	doc, err := s.store.ReadDocument(ctx, userDocPath(uid))
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		// First-ever sign-in: seed the document with defaults. The legacy
		// field is deliberately omitted.
		seed, err := ledgerDocument(ledger)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding defaults: %v", domain.ErrLoadFailed, err)
		}
		if err := s.store.WriteDocument(ctx, userDocPath(uid), seed, false); err != nil {
			return nil, fmt.Errorf("%w: seeding user document: %v", domain.ErrLoadFailed, err)
		}
	case err != nil:
		return nil, fmt.Errorf("%w: reading user document: %v", domain.ErrLoadFailed, err)
	default:
		if err := populateLedger(&ledger, doc); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrLoadFailed, err)
		}
		if err := s.migrateLegacy(ctx, uid, doc); err != nil {
			return nil, err
		}
	}

	txs, err := s.loadTransactions(ctx, uid)
	if err != nil {
		return nil, err
	}
	ledger.Transactions = txs

	sess := &Session{
		uid:    uid,
		auth:   state,
		phase:  SessionSignedIn,
		ledger: ledger,
	}

	s.mu.Lock()
	s.sessions[uid] = sess
	delete(s.loadErrs, uid)
	s.mu.Unlock()

	log.Info().Str("uid", uid).Int("transactions", len(txs)).Msg("Session loaded")
	return sess, nil
}

// Reload repeats the load sequence for an already signed-in user, reusing
// the auth state captured at sign-in. Used by resetAll.
func (s *SessionService) Reload(ctx context.Context, uid string) (*Session, error) {
	sess, err := s.Get(uid)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, sess.auth)
}

func (s *SessionService) teardown(uid string) {
	s.mu.Lock()
	sess, ok := s.sessions[uid]
	delete(s.sessions, uid)
	delete(s.loadErrs, uid)
	s.mu.Unlock()

	if ok {
		sess.mu.Lock()
		sess.phase = SessionSignedOut
		sess.ledger = domain.DefaultLedger("", "")
		sess.pending = pendingDelete{}
		sess.mu.Unlock()
	}
	// Pending reflector writes are dropped; remote data is never touched.
	s.reflector.Discard(uid)
	log.Info().Str("uid", uid).Msg("Session torn down")
}

// migrateLegacy moves a non-empty inline transaction array into the record
// collection and clears the legacy field, in one all-or-nothing batch. A
// failed batch leaves the legacy field intact and creates no records, so the
// next sign-in retries.
func (s *SessionService) migrateLegacy(ctx context.Context, uid string, doc domain.Document) error {
	raw, ok := doc[legacyField]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var legacy []domain.TransactionDraft
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return fmt.Errorf("%w: decoding legacy transactions: %v", domain.ErrMigrationFailed, err)
	}
	if len(legacy) == 0 {
		return nil
	}

	ops := make([]domain.BatchOp, 0, len(legacy)+1)
	for _, draft := range legacy {
		data, err := json.Marshal(draft)
		if err != nil {
			return fmt.Errorf("%w: encoding legacy transaction: %v", domain.ErrMigrationFailed, err)
		}
		ops = append(ops, domain.BatchOp{
			Kind:       domain.BatchOpCreateRecord,
			Collection: transactionsPath(uid),
			RecordID:   s.store.NewRecordID(),
			Data:       data,
		})
	}
	ops = append(ops, domain.BatchOp{
		Kind:  domain.BatchOpDeleteField,
		Path:  userDocPath(uid),
		Field: legacyField,
	})

	if err := s.store.ApplyBatch(ctx, ops); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMigrationFailed, err)
	}
	log.Info().Str("uid", uid).Int("migrated", len(legacy)).Msg("Migrated legacy transactions")
	return nil
}

func (s *SessionService) loadTransactions(ctx context.Context, uid string) ([]domain.Transaction, error) {
	recs, err := s.store.ListRecords(ctx, transactionsPath(uid))
	if err != nil {
		return nil, fmt.Errorf("%w: listing transactions: %v", domain.ErrLoadFailed, err)
	}
	txs := make([]domain.Transaction, 0, len(recs))
	for _, rec := range recs {
		var draft domain.TransactionDraft
		if err := json.Unmarshal(rec.Data, &draft); err != nil {
			return nil, fmt.Errorf("%w: decoding transaction %s: %v", domain.ErrLoadFailed, rec.ID, err)
		}
		txs = append(txs, draft.WithID(rec.ID))
	}
	sortTransactionsDesc(txs)
	return txs, nil
}

// populateLedger overlays stored fields onto the default ledger. Absent or
// null fields keep their defaults; a malformed field aborts the load.
func populateLedger(ledger *domain.Ledger, doc domain.Document) error {
	fields := []struct {
		name string
		dst  interface{}
	}{
		{fieldUserData, &ledger.UserData},
		{fieldCategories, &ledger.Categories},
		{fieldCards, &ledger.Cards},
		{fieldWishlist, &ledger.Wishlist},
		{fieldAcquisitions, &ledger.Acquisitions},
		{fieldPaidMonths, &ledger.PaidMonths},
	}
	for _, f := range fields {
		raw, ok := doc[f.name]
		if !ok || len(raw) == 0 || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return fmt.Errorf("decoding field %s: %v", f.name, err)
		}
	}
	if ledger.PaidMonths == nil {
		ledger.PaidMonths = domain.PaidMonths{}
	}
	return nil
}

// ledgerDocument encodes the document-backed entity groups. Transactions are
// excluded: they live in the record collection, never in the document.
func ledgerDocument(l domain.Ledger) (domain.Document, error) {
	doc := domain.Document{}
	groups := map[string]interface{}{
		fieldUserData:     l.UserData,
		fieldCategories:   l.Categories,
		fieldCards:        l.Cards,
		fieldWishlist:     l.Wishlist,
		fieldAcquisitions: l.Acquisitions,
		fieldPaidMonths:   l.PaidMonths,
	}
	for name, v := range groups {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		doc[name] = raw
	}
	return doc, nil
}

// --- settings mutators -------------------------------------------------
//
// Each mutator replaces one entity group and hands the new value to the
// reflector, which merge-writes just that field. Groups are independent;
// there is no cross-group atomicity.

// UpdateProfile replaces the user's profile.
func (s *SessionService) UpdateProfile(uid string, p domain.Profile) error {
	return s.updateGroup(uid, fieldUserData, p, func(sess *Session) {
		sess.ledger.UserData = p
	})
}

// UpdateCategories replaces both category lists.
func (s *SessionService) UpdateCategories(uid string, c domain.Categories) error {
	return s.updateGroup(uid, fieldCategories, c, func(sess *Session) {
		sess.ledger.Categories = c
	})
}

// UpdateCards replaces the card list.
func (s *SessionService) UpdateCards(uid string, cards []domain.Card) error {
	return s.updateGroup(uid, fieldCards, cards, func(sess *Session) {
		sess.ledger.Cards = cards
	})
}

// UpdateWishlist replaces the wishlist.
func (s *SessionService) UpdateWishlist(uid string, items []domain.WishlistItem) error {
	return s.updateGroup(uid, fieldWishlist, items, func(sess *Session) {
		sess.ledger.Wishlist = items
	})
}

// UpdateAcquisitions replaces the acquisition list.
func (s *SessionService) UpdateAcquisitions(uid string, items []domain.Acquisition) error {
	return s.updateGroup(uid, fieldAcquisitions, items, func(sess *Session) {
		sess.ledger.Acquisitions = items
	})
}

// SetPaidMonth flips one card payment period's paid flag.
func (s *SessionService) SetPaidMonth(uid string, cardID, year, month int, paid bool) error {
	sess, err := s.Get(uid)
	if err != nil {
		return err
	}
	key := util.PeriodKey(cardID, year, month)
	sess.mu.Lock()
	if paid {
		sess.ledger.PaidMonths[key] = true
	} else {
		delete(sess.ledger.PaidMonths, key)
	}
	snapshot := make(domain.PaidMonths, len(sess.ledger.PaidMonths))
	for k, v := range sess.ledger.PaidMonths {
		snapshot[k] = v
	}
	sess.mu.Unlock()
	s.reflector.Enqueue(uid, fieldPaidMonths, snapshot)
	return nil
}

func (s *SessionService) updateGroup(uid, field string, value interface{}, apply func(*Session)) error {
	sess, err := s.Get(uid)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	apply(sess)
	sess.mu.Unlock()
	s.reflector.Enqueue(uid, field, value)
	return nil
}

// CardUsages reports per-card consumption for the session's current
// transaction list. Orphaned card references on transactions are ignored.
func (s *SessionService) CardUsages(uid string) ([]domain.CardUsage, error) {
	sess, err := s.Get(uid)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	usages := make([]domain.CardUsage, 0, len(sess.ledger.Cards))
	for _, card := range sess.ledger.Cards {
		usages = append(usages, domain.UsageForCard(sess.ledger.Transactions, card))
	}
	return usages, nil
}

// PaidPeriod is one card payment period marked as paid.
type PaidPeriod struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// PaymentStatus reports a card's payment state for the running and previous
// periods, plus every period marked paid. Malformed period keys are skipped.
type PaymentStatus struct {
	CardID       int          `json:"cardId"`
	CurrentPaid  bool         `json:"currentPaid"`
	PreviousPaid bool         `json:"previousPaid"`
	Periods      []PaidPeriod `json:"periods"`
}

// CardPaymentStatus reports whether the card's current and previous payment
// periods are marked paid.
func (s *SessionService) CardPaymentStatus(uid string, cardID int) (PaymentStatus, error) {
	sess, err := s.Get(uid)
	if err != nil {
		return PaymentStatus{}, err
	}

	year, month := util.CurrentPeriod()
	prevYear, prevMonth := util.PreviousPeriod(year, month)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	status := PaymentStatus{
		CardID:       cardID,
		CurrentPaid:  sess.ledger.PaidMonths[util.PeriodKey(cardID, year, month)],
		PreviousPaid: sess.ledger.PaidMonths[util.PeriodKey(cardID, prevYear, prevMonth)],
		Periods:      []PaidPeriod{},
	}
	for key, paid := range sess.ledger.PaidMonths {
		if !paid {
			continue
		}
		id, y, m, err := util.ParsePeriodKey(key)
		if err != nil || id != cardID {
			continue
		}
		status.Periods = append(status.Periods, PaidPeriod{Year: y, Month: m})
	}
	sort.Slice(status.Periods, func(i, j int) bool {
		if status.Periods[i].Year != status.Periods[j].Year {
			return status.Periods[i].Year < status.Periods[j].Year
		}
		return status.Periods[i].Month < status.Periods[j].Month
	})
	return status, nil
}

// CategoryReport sums amounts per category for the given transaction type.
func (s *SessionService) CategoryReport(uid string, txType domain.TransactionType) (map[string]decimal.Decimal, error) {
	sess, err := s.Get(uid)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return domain.CategoryTotals(sess.ledger.Transactions, txType), nil
}
