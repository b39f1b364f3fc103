package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/nocode/core"
	"github.com/layer-3/nocode/internal/eth"
	"github.com/layer-3/nocode/internal/logging"
	"github.com/layer-3/nocode/ports"
)

// nonceBytes is the entropy of every issued nonce
const nonceBytes = 16

// AuthConfig holds the sign-in settings
type AuthConfig struct {
	Domain     string        // Expected domain of every SIWE message, compared verbatim
	NonceTTL   time.Duration // Zero keeps nonces until redeemed
	SessionTTL time.Duration
}

// VerifyResult is the outcome of a successful sign-in
type VerifyResult struct {
	UserID    string
	Address   string
	Token     string
	ExpiresAt time.Time
}

// AuthService handles authentication business logic
type AuthService struct {
	cfg       AuthConfig
	nonces    ports.NonceStore
	users     ports.UserDirectory
	tokenizer ports.SessionTokenizer
	denylist  ports.Denylist
	eventPub  ports.EventPublisher
	metrics   ports.AuthMetrics
	now       func() time.Time
}

// AuthOption configures optional collaborators of AuthService
type AuthOption func(*AuthService)

// WithDenylist revokes session token ids at logout
func WithDenylist(denylist ports.Denylist) AuthOption {
	return func(s *AuthService) { s.denylist = denylist }
}

// WithEventPublisher announces logins and logouts
func WithEventPublisher(pub ports.EventPublisher) AuthOption {
	return func(s *AuthService) { s.eventPub = pub }
}

// WithMetrics records sign-in outcomes
func WithMetrics(m ports.AuthMetrics) AuthOption {
	return func(s *AuthService) { s.metrics = m }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new authentication service
func NewAuthService(
	cfg AuthConfig,
	nonces ports.NonceStore,
	users ports.UserDirectory,
	tokenizer ports.SessionTokenizer,
	opts ...AuthOption,
) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}

	s := &AuthService{
		cfg:       cfg,
		nonces:    nonces,
		users:     users,
		tokenizer: tokenizer,
		metrics:   ports.NopAuthMetrics{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionTTL is the lifetime of issued session credentials
func (s *AuthService) SessionTTL() time.Duration {
	return s.cfg.SessionTTL
}

// IssueNonce generates a fresh nonce and registers it as unconsumed
func (s *AuthService) IssueNonce(ctx context.Context) (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := base64.RawURLEncoding.EncodeToString(buf)

	if err := s.nonces.Add(ctx, nonce, s.cfg.NonceTTL); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}

	s.metrics.RecordNonceIssued()
	return nonce, nil
}

// Verify checks a signed SIWE message and opens a session for its signer.
// The nonce is consumed before the signature is checked, so a bad signature
// still burns it.
func (s *AuthService) Verify(ctx context.Context, message, signature string) (res *VerifyResult, err error) {
	log := logging.FromContext(ctx)

	defer func() {
		outcome := verifyOutcome(err)
		s.metrics.RecordVerify(outcome)
		if err != nil {
			if outcome == "error" {
				log.ErrorContext(ctx, "siwe verify failed", "error", err)
			} else {
				log.InfoContext(ctx, "siwe verify rejected", "reason", outcome, "error", err)
			}
		} else {
			log.InfoContext(ctx, "siwe verify succeeded", "user_id", res.UserID, "address", res.Address)
		}
	}()

	msg, err := core.ParseMessage(message)
	if err != nil {
		return nil, err
	}

	if msg.Domain != s.cfg.Domain {
		return nil, fmt.Errorf("%w: got %q", core.ErrDomainMismatch, msg.Domain)
	}

	if msg.Nonce == "" {
		return nil, core.ErrInvalidOrUsedNonce
	}
	consumed, err := s.nonces.Consume(ctx, msg.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to consume nonce: %w", err)
	}
	if !consumed {
		return nil, core.ErrInvalidOrUsedNonce
	}

	sig, err := eth.DecodeSignature(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrBadSignature, err)
	}
	signer, err := eth.RecoverPersonal([]byte(message), sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrBadSignature, err)
	}

	address := strings.ToLower(signer.Hex())
	if !eth.SameAddress(address, msg.Address) {
		return nil, core.ErrSignatureMismatch
	}

	now := s.now()
	user, err := s.resolveUser(ctx, address, now)
	if err != nil {
		return nil, err
	}

	session := &core.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Address:   address,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogin(ctx, user.ID, address); err != nil {
			// The session is already issued, which is the critical part
			log.WarnContext(ctx, "failed to publish login event", "error", err)
		}
	}

	return &VerifyResult{
		UserID:    user.ID,
		Address:   address,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// resolveUser updates last_login of a known address or creates its user
func (s *AuthService) resolveUser(ctx context.Context, address string, now time.Time) (*core.User, error) {
	user, err := s.users.FindByAddress(ctx, address)
	switch {
	case err == nil:
		if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
			return nil, fmt.Errorf("failed to update last login: %w", err)
		}
		user.LastLogin = &now
		return user, nil
	case !errors.Is(err, core.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user = &core.User{
		ID:          uuid.NewString(),
		SiweAddress: address,
		Plan:        core.DefaultPlan,
		CreatedAt:   now,
	}
	err = s.users.Create(ctx, user)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, core.ErrUserExists) {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// A concurrent sign-in created the row first
	user, err = s.users.FindByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// Authenticate validates a session credential
func (s *AuthService) Authenticate(ctx context.Context, token string) (*core.Session, error) {
	if token == "" {
		s.metrics.RecordSessionRejected("missing")
		return nil, core.ErrNoSession
	}

	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		s.metrics.RecordSessionRejected("invalid")
		return nil, err
	}

	if s.denylist != nil && session.ID != "" {
		revoked, err := s.denylist.IsTokenInvalidated(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if revoked {
			s.metrics.RecordSessionRejected("revoked")
			return nil, fmt.Errorf("%w: revoked", core.ErrInvalidSession)
		}
	}

	return session, nil
}

// Me returns the user owning session
func (s *AuthService) Me(ctx context.Context, session *core.Session) (*core.User, error) {
	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// Logout revokes the session token when a denylist is configured. Missing or
// unreadable tokens are not an error: the caller clears the cookie regardless.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil
	}

	if s.denylist != nil && session.ID != "" {
		remaining := session.ExpiresAt.Sub(s.now())
		if remaining > 0 {
			if err := s.denylist.InvalidateToken(ctx, session.ID, remaining); err != nil {
				return fmt.Errorf("failed to invalidate token: %w", err)
			}
		}
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogout(ctx, session.Address, session.ID); err != nil {
			// Log the error but don't fail the logout operation
			logging.FromContext(ctx).WarnContext(ctx, "failed to publish logout event", "error", err)
		}
	}

	return nil
}

func verifyOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrMalformedMessage):
		return "malformed"
	case errors.Is(err, core.ErrDomainMismatch):
		return "domain"
	case errors.Is(err, core.ErrInvalidOrUsedNonce):
		return "nonce"
	case errors.Is(err, core.ErrBadSignature):
		return "signature"
	case errors.Is(err, core.ErrSignatureMismatch):
		return "mismatch"
	default:
		return "error"
	}
}
