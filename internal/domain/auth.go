package domain

import "context"

// AuthState is one authentication transition: a user signing in or out.
type AuthState struct {
	UID      string
	Email    string
	Name     string
	SignedIn bool
}

// AuthStateHandler receives authentication transitions.
type AuthStateHandler func(ctx context.Context, state AuthState)

// AuthProvider is the authentication capability consumed by the session
// controller. SignIn and Register resolve to a session token or fail with a
// user-displayable error.
type AuthProvider interface {
	Register(ctx context.Context, email, password string) (token string, err error)
	SignIn(ctx context.Context, email, password string) (token string, err error)
	SignOut(ctx context.Context, uid string) error
	// OnAuthStateChange registers a handler invoked on every sign-in and
	// sign-out, in registration order.
	OnAuthStateChange(handler AuthStateHandler)
}
