package handler

import (
	"context"
	"testing"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dcanales/billetera-backend/internal/domain"
	"github.com/dcanales/billetera-backend/internal/middleware"
	"github.com/dcanales/billetera-backend/internal/service"
	"github.com/dcanales/billetera-backend/internal/testutil"
	"github.com/labstack/echo/v4"
)

// setupAuthContext injects validated claims into the request context, as the
// auth middleware would after token validation
func setupAuthContext(c echo.Context, uid, email string) {
	claims := &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: uid},
		CustomClaims:     &middleware.CustomClaims{Email: email},
	}
	ctx := context.WithValue(c.Request().Context(), middleware.ClaimsKey, claims)
	ctx = context.WithValue(ctx, middleware.UIDKey, uid)
	c.SetRequest(c.Request().WithContext(ctx))
}

type testEnv struct {
	store    *testutil.MockDocumentStore
	sessions *service.SessionService
	ledger   *service.LedgerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := testutil.NewMockDocumentStore()
	reflector := service.NewReflector(store, time.Hour)
	t.Cleanup(reflector.Stop)
	sessions := service.NewSessionService(store, reflector)
	return &testEnv{
		store:    store,
		sessions: sessions,
		ledger:   service.NewLedgerService(store, sessions, nil),
	}
}

func (env *testEnv) signIn(t *testing.T, uid, email string) {
	t.Helper()
	if _, err := env.sessions.Load(context.Background(), domain.AuthState{UID: uid, Email: email, SignedIn: true}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}
