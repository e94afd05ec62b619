package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dcanales/billetera-backend/internal/domain"
	"github.com/dcanales/billetera-backend/internal/testutil"
	"github.com/labstack/echo/v4"
)

func TestRegister_Success(t *testing.T) {
	e := echo.New()
	provider := testutil.NewMockAuthProvider()
	h := NewAuthHandler(provider)

	body := `{"email":"ana@example.com","password":"secreta123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rec.Code)
	}

	var response TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Token == "" {
		t.Error("Expected a token in the response")
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	e := echo.New()
	provider := testutil.NewMockAuthProvider()
	provider.Users["ana@example.com"] = "otra"
	provider.UIDs["ana@example.com"] = "user-1"
	h := NewAuthHandler(provider)

	body := `{"email":"ana@example.com","password":"secreta123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	e := echo.New()
	h := NewAuthHandler(testutil.NewMockAuthProvider())

	body := `{"email":"","password":""}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestLogin_Success(t *testing.T) {
	e := echo.New()
	provider := testutil.NewMockAuthProvider()
	provider.Users["ana@example.com"] = "secreta123"
	provider.UIDs["ana@example.com"] = "user-1"
	h := NewAuthHandler(provider)

	body := `{"email":"ana@example.com","password":"secreta123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	e := echo.New()
	provider := testutil.NewMockAuthProvider()
	provider.Users["ana@example.com"] = "secreta123"
	provider.UIDs["ana@example.com"] = "user-1"
	h := NewAuthHandler(provider)

	body := `{"email":"ana@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestLogout_Success(t *testing.T) {
	e := echo.New()
	provider := testutil.NewMockAuthProvider()
	h := NewAuthHandler(provider)

	var signedOut string
	provider.OnAuthStateChange(func(_ context.Context, state domain.AuthState) {
		if !state.SignedIn {
			signedOut = state.UID
		}
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "user-1", "ana@example.com")

	if err := h.Logout(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}
	if signedOut != "user-1" {
		t.Errorf("Expected sign-out transition for user-1, got %q", signedOut)
	}
}
