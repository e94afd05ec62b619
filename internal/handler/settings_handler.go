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
)

// SettingsHandler handles updates of the document-backed entity groups:
// profile, categories, cards, wishlist, acquisitions and paid months.
type SettingsHandler struct {
	sessions *service.SessionService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(sessions *service.SessionService) *SettingsHandler {
	return &SettingsHandler{sessions: sessions}
}

// SetPaidMonthRequest represents the paid-month toggle request body
type SetPaidMonthRequest struct {
	Paid bool `json:"paid"`
}

// UpdateProfile replaces the user's profile
func (h *SettingsHandler) UpdateProfile(c echo.Context) error {
	var req domain.Profile
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	return h.apply(c, func(uid string) error {
		return h.sessions.UpdateProfile(uid, req)
	})
}

// UpdateCategories replaces both category lists
func (h *SettingsHandler) UpdateCategories(c echo.Context) error {
	var req domain.Categories
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	return h.apply(c, func(uid string) error {
		return h.sessions.UpdateCategories(uid, req)
	})
}

// UpdateCards replaces the card list
func (h *SettingsHandler) UpdateCards(c echo.Context) error {
	var req []domain.Card
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	return h.apply(c, func(uid string) error {
		return h.sessions.UpdateCards(uid, req)
	})
}

// UpdateWishlist replaces the wishlist
func (h *SettingsHandler) UpdateWishlist(c echo.Context) error {
	var req []domain.WishlistItem
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	return h.apply(c, func(uid string) error {
		return h.sessions.UpdateWishlist(uid, req)
	})
}

// UpdateAcquisitions replaces the acquisition list
func (h *SettingsHandler) UpdateAcquisitions(c echo.Context) error {
	var req []domain.Acquisition
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	return h.apply(c, func(uid string) error {
		return h.sessions.UpdateAcquisitions(uid, req)
	})
}

// SetPaidMonth flips one card payment period's paid flag
func (h *SettingsHandler) SetPaidMonth(c echo.Context) error {
	cardID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid card id", nil)
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return NewValidationError(c, "Invalid year", nil)
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		return NewValidationError(c, "Invalid month", nil)
	}

	var req SetPaidMonthRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	return h.apply(c, func(uid string) error {
		return h.sessions.SetPaidMonth(uid, cardID, year, month, req.Paid)
	})
}

func (h *SettingsHandler) apply(c echo.Context, fn func(uid string) error) error {
	uid := middleware.GetUID(c)
	if uid == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}
	if err := fn(uid); err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return NewUnauthorizedError(c, "No active session")
		}
		log.Error().Err(err).Str("uid", uid).Msg("Settings update failed")
		return NewInternalError(c, "Settings update failed")
	}
	return c.NoContent(http.StatusNoContent)
}
