package session

import (
	"context"
	"time"

	"chaintask-client/pkg/backend"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// Service owns the auth lifecycle: credential exchange with the backend,
// persisting the resulting session, restoring it at startup, and tearing
// everything down on logout.
type Service struct {
	backend *backend.Client
	store   *Store
}

func NewService(client *backend.Client, store *Store) *Service {
	return &Service{backend: client, store: store}
}

// Login exchanges credentials for a session and persists it.
func (s *Service) Login(ctx context.Context, email string, password string) (*Session, error) {
	result, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		Token:         result.Token,
		Identity:      result.Identity,
		WalletAddress: result.WalletAddress,
	}
	if err := s.store.Save(sess); err != nil {
		log.Error().Err(err).Msg("Failed to persist session state")
	}
	return sess, nil
}

// Register creates an account. The caller logs in afterwards.
func (s *Service) Register(ctx context.Context, identity string, email string, password string) error {
	return s.backend.Register(ctx, identity, email, password)
}

// Restore loads the persisted session, if any. A token that carries a JWT
// expiry already in the past is discarded; tokens the client cannot parse
// stay opaque and are accepted as-is, the backend has the final say.
func (s *Service) Restore() *Session {
	sess, err := s.store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load persisted session")
		return nil
	}
	if sess == nil {
		return nil
	}

	if expired(sess.Token) {
		log.Info().Msg("Persisted session token expired, discarding")
		if err := s.store.Clear(); err != nil {
			log.Warn().Err(err).Msg("Failed to clear expired session")
		}
		return nil
	}

	s.backend.SetToken(sess.Token)
	return sess
}

// SetWalletAddress records the last-known wallet address alongside the
// session so reconnects can pre-select it.
func (s *Service) SetWalletAddress(sess *Session, address string) {
	sess.WalletAddress = address
	if err := s.store.Save(sess); err != nil {
		log.Warn().Err(err).Msg("Failed to persist wallet address")
	}
}

// Logout clears persisted and in-memory session state unconditionally.
func (s *Service) Logout() error {
	s.backend.ClearToken()
	return s.store.Clear()
}

func expired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now())
}
