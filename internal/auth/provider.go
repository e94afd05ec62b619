package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dcanales/billetera-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	jose "gopkg.in/go-jose/go-jose.v2"
	"gopkg.in/go-jose/go-jose.v2/jwt"
)

// TokenClaims are the custom claims embedded in issued session tokens.
type TokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Provider implements email/password authentication backed by the document
// store. Credentials live under auth/{email}; issued tokens are HS256 JWTs
// compatible with the API's validator.
type Provider struct {
	store    domain.DocumentStore
	secret   []byte
	issuer   string
	audience string
	tokenTTL time.Duration

	mu       sync.RWMutex
	handlers []domain.AuthStateHandler
}

// NewProvider creates a Provider. The secret is shared with the HTTP
// middleware validating tokens.
func NewProvider(store domain.DocumentStore, secret []byte, issuer, audience string, tokenTTL time.Duration) *Provider {
	return &Provider{
		store:    store,
		secret:   secret,
		issuer:   issuer,
		audience: audience,
		tokenTTL: tokenTTL,
	}
}

// credentials is the stored shape of one account.
type credentials struct {
	UID  string `json:"uid"`
	Hash string `json:"hash"`
}

func credsPath(email string) string {
	return "auth/" + strings.ToLower(strings.TrimSpace(email))
}

// OnAuthStateChange registers a handler for sign-in and sign-out events.
func (p *Provider) OnAuthStateChange(handler domain.AuthStateHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler)
}

func (p *Provider) emit(ctx context.Context, state domain.AuthState) {
	p.mu.RLock()
	handlers := make([]domain.AuthStateHandler, len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, state)
	}
}

// Register creates an account, signs the user in and returns a session token.
func (p *Provider) Register(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", domain.ErrInvalidInput
	}

	if _, err := p.store.ReadDocument(ctx, credsPath(email)); err == nil {
		return "", domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrDocumentNotFound) {
		return "", fmt.Errorf("checking existing account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	creds := credentials{UID: uuid.New().String(), Hash: string(hash)}
	doc, err := credsDocument(creds)
	if err != nil {
		return "", err
	}
	if err := p.store.WriteDocument(ctx, credsPath(email), doc, false); err != nil {
		return "", fmt.Errorf("storing credentials: %w", err)
	}

	log.Info().Str("uid", creds.UID).Msg("Account registered")
	return p.issueAndEmit(ctx, creds.UID, email)
}

// SignIn verifies credentials and returns a session token. Unknown emails and
// wrong passwords produce the same error.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	doc, err := p.store.ReadDocument(ctx, credsPath(email))
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("reading credentials: %w", err)
	}

	creds, err := decodeCredentials(doc)
	if err != nil {
		return "", fmt.Errorf("decoding credentials: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(creds.Hash), []byte(password)) != nil {
		return "", domain.ErrInvalidCredentials
	}

	return p.issueAndEmit(ctx, creds.UID, email)
}

// SignOut emits a signed-out transition for the user. Tokens are not
// revoked; they simply expire.
func (p *Provider) SignOut(ctx context.Context, uid string) error {
	p.emit(ctx, domain.AuthState{UID: uid, SignedIn: false})
	return nil
}

func (p *Provider) issueAndEmit(ctx context.Context, uid, email string) (string, error) {
	token, err := p.mintToken(uid, email)
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}
	p.emit(ctx, domain.AuthState{UID: uid, Email: email, SignedIn: true})
	return token, nil
}

func (p *Provider) mintToken(uid, email string) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: p.secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.Claims{
		Subject:  uid,
		Issuer:   p.issuer,
		Audience: jwt.Audience{p.audience},
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(p.tokenTTL)),
	}
	return jwt.Signed(signer).
		Claims(claims).
		Claims(TokenClaims{Email: email}).
		CompactSerialize()
}

func credsDocument(c credentials) (domain.Document, error) {
	doc := domain.Document{}
	for name, v := range map[string]interface{}{"uid": c.UID, "hash": c.Hash} {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		doc[name] = raw
	}
	return doc, nil
}

func decodeCredentials(doc domain.Document) (credentials, error) {
	var c credentials
	if raw, ok := doc["uid"]; ok {
		if err := json.Unmarshal(raw, &c.UID); err != nil {
			return c, err
		}
	}
	if raw, ok := doc["hash"]; ok {
		if err := json.Unmarshal(raw, &c.Hash); err != nil {
			return c, err
		}
	}
	if c.UID == "" || c.Hash == "" {
		return c, errors.New("credentials document incomplete")
	}
	return c, nil
}
