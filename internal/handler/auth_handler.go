package handler

import (
	"errors"
	"net/http"

	"github.com/dcanales/billetera-backend/internal/domain"
	"github.com/dcanales/billetera-backend/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles registration, login and logout
type AuthHandler struct {
	auth domain.AuthProvider
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth domain.AuthProvider) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// CredentialsRequest represents the register/login request body
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries the issued session token
type TokenResponse struct {
	Token string `json:"token"`
}

// Register creates an account and signs the user in
func (h *AuthHandler) Register(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.Email == "" || req.Password == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "email", Message: "Email and password are required"},
		})
	}

	token, err := h.auth.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return NewConflictError(c, err.Error())
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, "Validation failed", nil)
		}
		log.Error().Err(err).Msg("Registration failed")
		return NewInternalError(c, "Registration failed")
	}
	return c.JSON(http.StatusCreated, TokenResponse{Token: token})
}

// Login verifies credentials and returns a session token
func (h *AuthHandler) Login(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	token, err := h.auth.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return NewUnauthorizedError(c, err.Error())
		}
		log.Error().Err(err).Msg("Login failed")
		return NewInternalError(c, "Login failed")
	}
	return c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// Logout signs the authenticated user out and tears down the session
func (h *AuthHandler) Logout(c echo.Context) error {
	uid := middleware.GetUID(c)
	if uid == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}
	if err := h.auth.SignOut(c.Request().Context(), uid); err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("Logout failed")
		return NewInternalError(c, "Logout failed")
	}
	return c.NoContent(http.StatusNoContent)
}
