package service

import (
	"context"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/yakoovad/teambuilder/internal/auth"
	"github.com/yakoovad/teambuilder/internal/directory"
	"github.com/yakoovad/teambuilder/pkg/logger"
	"go.uber.org/zap"
)

// SessionService exchanges a directory session for a signed service token.
type SessionService struct {
	directory Directory
	ttl       time.Duration
	admins    []string
}

func NewSessionService(d Directory, ttl time.Duration) *SessionService {
	return &SessionService{directory: d, ttl: ttl}
}

type Session struct {
	Token     string         `json:"token"`
	Type      auth.TokenType `json:"type"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// StartSession validates (email, token) with the directory. The directory is the
// only authority here, so its outage fails the call.
func (s *SessionService) StartSession(ctx context.Context, email, token string) (*Session, *Error) {
	l := logger.FromContext(ctx)

	err := s.directory.Validate(ctx, email, token)
	switch {
	case errors.Is(err, directory.ErrAuth):
		l.Warn("directory rejected session", zap.String("email", email))
		return nil, NewError(ErrorCodeInvalidAuth, "invalid request")
	case err != nil:
		l.Error("directory validate failed", zap.String("email", email), zap.Error(err))
		return nil, NewError(ErrorCodeUpstream, "directory unavailable")
	}

	tokenType := auth.TokenTypeUser
	if slices.Contains(s.admins, email) {
		tokenType = auth.TokenTypeAdmin
	}

	signed, err := auth.GenerateToken(tokenType, email, s.ttl)
	if err != nil {
		l.Error("failed to sign token", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to issue session")
	}

	return &Session{
		Token:     signed,
		Type:      tokenType,
		ExpiresAt: time.Now().Add(s.ttl),
	}, nil
}

func (s *SessionService) WithAdmins(emails []string) *SessionService {
	s.admins = emails
	return s
}
