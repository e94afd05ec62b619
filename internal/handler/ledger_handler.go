package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dcanales/billetera-backend/internal/domain"
	"github.com/dcanales/billetera-backend/internal/middleware"
	"github.com/dcanales/billetera-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LedgerHandler handles ledger reads and transaction mutations
type LedgerHandler struct {
	ledger   *service.LedgerService
	sessions *service.SessionService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledger *service.LedgerService, sessions *service.SessionService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, sessions: sessions}
}

// LedgerResponse is the full ledger snapshot in API responses
type LedgerResponse struct {
	UserData     domain.Profile       `json:"userData"`
	Categories   domain.Categories    `json:"categories"`
	Cards        []domain.Card        `json:"cards"`
	Wishlist     []domain.WishlistItem `json:"wishlist"`
	Acquisitions []domain.Acquisition `json:"acquisitions"`
	PaidMonths   domain.PaidMonths    `json:"paidMonths"`
	Transactions []domain.Transaction `json:"transactions"`
	Summary      SummaryResponse      `json:"summary"`
}

// SummaryResponse represents the aggregate totals in API responses
type SummaryResponse struct {
	Ingresos     string `json:"ingresos"`
	Egresos      string `json:"egresos"`
	Ahorros      string `json:"ahorros"`
	TotalBalance string `json:"totalBalance"`
}

func summaryResponse(s domain.Summary) SummaryResponse {
	return SummaryResponse{
		Ingresos:     s.Ingresos.String(),
		Egresos:      s.Egresos.String(),
		Ahorros:      s.Ahorros.String(),
		TotalBalance: s.TotalBalance().String(),
	}
}

// CreateTransactionRequest represents the create transaction request body
type CreateTransactionRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	CardID      *int   `json:"cardId,omitempty"`
	Description string `json:"description,omitempty"`
}

// UpdateTransactionRequest represents the edit request body. Only these
// three fields of a transaction can change after creation.
type UpdateTransactionRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
}

// session resolves the caller's session, loading it on demand when the
// server has restarted since sign-in.
func (h *LedgerHandler) session(c echo.Context) (*service.Session, error) {
	uid := middleware.GetUID(c)
	if uid == "" {
		return nil, NewUnauthorizedError(c, "Authentication required")
	}
	sess, err := h.sessions.Get(uid)
	if errors.Is(err, domain.ErrNoSession) {
		sess, err = h.sessions.Load(c.Request().Context(), domain.AuthState{
			UID:      uid,
			Email:    middleware.GetEmail(c),
			SignedIn: true,
		})
	}
	if err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("Session unavailable")
		return nil, NewInternalError(c, "Session unavailable")
	}
	return sess, nil
}

// GetLedger returns the full ledger snapshot
func (h *LedgerHandler) GetLedger(c echo.Context) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	snap := sess.Snapshot()
	return c.JSON(http.StatusOK, LedgerResponse{
		UserData:     snap.UserData,
		Categories:   snap.Categories,
		Cards:        snap.Cards,
		Wishlist:     snap.Wishlist,
		Acquisitions: snap.Acquisitions,
		PaidMonths:   snap.PaidMonths,
		Transactions: snap.Transactions,
		Summary:      summaryResponse(sess.Summary()),
	})
}

// GetSummary returns the aggregate totals
func (h *LedgerHandler) GetSummary(c echo.Context) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	return c.JSON(http.StatusOK, summaryResponse(sess.Summary()))
}

// GetTransactions returns the transaction list, most recent first
func (h *LedgerHandler) GetTransactions(c echo.Context) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.Transactions())
}

// CreateTransaction adds a transaction
func (h *LedgerHandler) CreateTransaction(c echo.Context) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}

	var req CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	draft := domain.TransactionDraft{
		Type:        domain.TransactionType(req.Type),
		Amount:      amount,
		Category:    req.Category,
		Date:        req.Date,
		CardID:      req.CardID,
		Description: req.Description,
	}
	tx, err := h.ledger.AddTransaction(c.Request().Context(), sess.UID(), draft)
	if err != nil {
		return h.mutationError(c, err, "Creating transaction failed")
	}
	return c.JSON(http.StatusCreated, tx)
}

// UpdateTransaction edits a transaction's description, amount and date
func (h *LedgerHandler) UpdateTransaction(c echo.Context) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}

	var req UpdateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	patch := domain.TransactionPatch{
		Description: req.Description,
		Amount:      amount,
		Date:        req.Date,
	}
	tx, err := h.ledger.SaveEdit(c.Request().Context(), sess.UID(), c.Param("id"), patch)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		return h.mutationError(c, err, "Updating transaction failed")
	}
	return c.JSON(http.StatusOK, tx)
}

// RequestDeleteTransaction selects a transaction for deletion
func (h *LedgerHandler) RequestDeleteTransaction(c echo.Context) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	if err := h.ledger.PromptDeleteTransaction(sess.UID(), c.Param("id")); err != nil {
		return h.mutationError(c, err, "Requesting deletion failed")
	}
	return c.NoContent(http.StatusAccepted)
}

// RequestDeleteAcquisition selects an acquisition for deletion
func (h *LedgerHandler) RequestDeleteAcquisition(c echo.Context) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid acquisition id", nil)
	}
	if err := h.ledger.PromptDeleteAcquisition(sess.UID(), id); err != nil {
		return h.mutationError(c, err, "Requesting deletion failed")
	}
	return c.NoContent(http.StatusAccepted)
}

// ConfirmDelete executes the pending deletion
func (h *LedgerHandler) ConfirmDelete(c echo.Context) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	if err := h.ledger.ConfirmDelete(c.Request().Context(), sess.UID()); err != nil {
		if errors.Is(err, domain.ErrNoPendingDelete) {
			return NewConflictError(c, "No deletion is pending")
		}
		return h.mutationError(c, err, "Deletion failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// CancelDelete clears the pending deletion
func (h *LedgerHandler) CancelDelete(c echo.Context) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	if err := h.ledger.CancelDelete(sess.UID()); err != nil {
		return h.mutationError(c, err, "Cancelling deletion failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// Reset wipes the user's settings back to defaults. Transaction records are
// kept and reappear in the reloaded ledger.
func (h *LedgerHandler) Reset(c echo.Context) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	reloaded, err := h.ledger.ResetAll(c.Request().Context(), sess.UID())
	if err != nil {
		return h.mutationError(c, err, "Reset failed")
	}
	snap := reloaded.Snapshot()
	return c.JSON(http.StatusOK, LedgerResponse{
		UserData:     snap.UserData,
		Categories:   snap.Categories,
		Cards:        snap.Cards,
		Wishlist:     snap.Wishlist,
		Acquisitions: snap.Acquisitions,
		PaidMonths:   snap.PaidMonths,
		Transactions: snap.Transactions,
		Summary:      summaryResponse(reloaded.Summary()),
	})
}

// GetCategoryReport sums amounts per category for one transaction type
func (h *LedgerHandler) GetCategoryReport(c echo.Context) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	txType := domain.TransactionType(c.Param("type"))
	switch txType {
	case domain.TransactionTypeIngreso, domain.TransactionTypeGasto, domain.TransactionTypeAhorro:
	default:
		return NewValidationError(c, "Invalid transaction type", nil)
	}
	totals, err := h.sessions.CategoryReport(sess.UID(), txType)
	if err != nil {
		return h.mutationError(c, err, "Building report failed")
	}
	out := make(map[string]string, len(totals))
	for category, total := range totals {
		out[category] = total.String()
	}
	return c.JSON(http.StatusOK, out)
}

// GetCardPaymentStatus reports a card's paid periods
func (h *LedgerHandler) GetCardPaymentStatus(c echo.Context) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	cardID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid card id", nil)
	}
	status, err := h.sessions.CardPaymentStatus(sess.UID(), cardID)
	if err != nil {
		return h.mutationError(c, err, "Building payment status failed")
	}
	return c.JSON(http.StatusOK, status)
}

// GetCardUsage reports per-card consumption against limits
func (h *LedgerHandler) GetCardUsage(c echo.Context) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	usages, err := h.sessions.CardUsages(sess.UID())
	if err != nil {
		return h.mutationError(c, err, "Building card usage failed")
	}
	return c.JSON(http.StatusOK, usages)
}

func (h *LedgerHandler) mutationError(c echo.Context, err error, detail string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidType),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidInput):
		return NewValidationError(c, err.Error(), nil)
	case errors.Is(err, domain.ErrDeleteInProgress):
		return NewConflictError(c, "A deletion is already executing")
	case errors.Is(err, domain.ErrNoSession):
		return NewUnauthorizedError(c, "No active session")
	default:
		log.Error().Err(err).Msg(detail)
		return NewInternalError(c, detail)
	}
}
