package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dcanales/billetera-backend/internal/domain"
	"github.com/dcanales/billetera-backend/internal/testutil"
)

func newTestProvider(store domain.DocumentStore) *Provider {
	return NewProvider(store, []byte("test-secret-test-secret-test-sec"), "https://billetera.test/", "billetera-api", time.Hour)
}

func TestRegisterIssuesTokenAndEmitsSignIn(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	p := newTestProvider(store)

	var got domain.AuthState
	p.OnAuthStateChange(func(_ context.Context, state domain.AuthState) {
		got = state
	})

	token, err := p.Register(context.Background(), "Ana@Example.com", "secreta123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}
	if len(strings.Split(token, ".")) != 3 {
		t.Errorf("expected a compact JWT, got %q", token)
	}

	if !got.SignedIn {
		t.Error("expected a signed-in transition")
	}
	if got.Email != "ana@example.com" {
		t.Errorf("expected normalized email, got %q", got.Email)
	}
	if got.UID == "" {
		t.Error("expected a uid in the auth state")
	}

	if _, ok := store.Documents["auth/ana@example.com"]; !ok {
		t.Error("expected credentials stored under the normalized email")
	}
}

func TestRegisterRejectsTakenEmail(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	p := newTestProvider(store)

	if _, err := p.Register(context.Background(), "ana@example.com", "secreta123"); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	_, err := p.Register(context.Background(), "ana@example.com", "otra456")
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignInVerifiesPassword(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	p := newTestProvider(store)
	ctx := context.Background()

	if _, err := p.Register(ctx, "ana@example.com", "secreta123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := p.SignIn(ctx, "ana@example.com", "secreta123"); err != nil {
		t.Errorf("SignIn with correct password failed: %v", err)
	}

	_, err := p.SignIn(ctx, "ana@example.com", "wrong")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}

	// Unknown email must be indistinguishable from a wrong password
	_, err = p.SignIn(ctx, "nadie@example.com", "secreta123")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignOutEmitsSignedOutState(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	p := newTestProvider(store)

	var states []domain.AuthState
	p.OnAuthStateChange(func(_ context.Context, state domain.AuthState) {
		states = append(states, state)
	})

	if err := p.SignOut(context.Background(), "user-1"); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(states))
	}
	if states[0].SignedIn || states[0].UID != "user-1" {
		t.Errorf("unexpected state: %+v", states[0])
	}
}

func TestHandlersInvokedInRegistrationOrder(t *testing.T) {
	store := testutil.NewMockDocumentStore()
	p := newTestProvider(store)

	var order []int
	p.OnAuthStateChange(func(_ context.Context, _ domain.AuthState) { order = append(order, 1) })
	p.OnAuthStateChange(func(_ context.Context, _ domain.AuthState) { order = append(order, 2) })

	if _, err := p.Register(context.Background(), "ana@example.com", "secreta123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected handlers in order [1 2], got %v", order)
	}
}
