package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"vendhub/backend/internal/security"
	sessiondomain "vendhub/backend/internal/session/domain"
	userdomain "vendhub/backend/internal/user/domain"
)

// Sentinel errors for the auth service; the handler maps them to HTTP codes.
// Credential and session failures are deliberately coarse: callers never
// learn whether the username, password, or token was the wrong part.
var (
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrInvalidOrExpiredSession = errors.New("invalid or expired session")
)

// AuthResult holds the outcome of Login or Refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	UserID       string
	ExpiresAt    time.Time
}

// UserRepo is the minimal user lookup needed by the auth service.
type UserRepo interface {
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	FindActiveByHint(ctx context.Context, hint string, now time.Time) ([]*sessiondomain.Session, error)
	FindActiveLegacy(ctx context.Context, now time.Time) ([]*sessiondomain.Session, error)
	FindRotatedByHint(ctx context.Context, hint string) ([]*sessiondomain.Session, error)
	Deactivate(ctx context.Context, id string) (bool, error)
	DeactivateAllForUser(ctx context.Context, userID string) error
	Touch(ctx context.Context, id string, at time.Time) error
}

// AuthService implements login, refresh-token rotation, and logout.
//
// Rotation is mandatory and single-use: every successful refresh
// deactivates the presented session (compare-and-set) and inserts a
// successor row, so concurrent refreshes of the same token yield exactly
// one winner. The hint-then-verify lookup is an optimization only; the
// bcrypt verification is the security check.
type AuthService struct {
	userRepo    UserRepo
	sessionRepo SessionRepo
	hasher      *security.Hasher
	tokens      *security.TokenProvider
	refreshTTL  time.Duration
	// revokeOnReuse turns detected reuse of a rotated-away token into a
	// full revocation of the owner's sessions (compromise response).
	revokeOnReuse bool
	// hashSem bounds concurrent bcrypt work; credential stuffing must not
	// be able to saturate the process with slow hashes.
	hashSem *semaphore.Weighted
	now     func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
// hashConcurrency bounds simultaneous bcrypt computations; values below 1
// are clamped to 1. now may be nil, in which case time.Now is used.
func NewAuthService(
	userRepo UserRepo,
	sessionRepo SessionRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	refreshTTL time.Duration,
	hashConcurrency int,
	revokeOnReuse bool,
	now func() time.Time,
) *AuthService {
	if hashConcurrency < 1 {
		hashConcurrency = 1
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		hasher:        hasher,
		tokens:        tokens,
		refreshTTL:    refreshTTL,
		revokeOnReuse: revokeOnReuse,
		hashSem:       semaphore.NewWeighted(int64(hashConcurrency)),
		now:           now,
	}
}

// Login authenticates with username/password, creates a session with a
// freshly generated opaque refresh token, and returns both tokens.
func (s *AuthService) Login(ctx context.Context, username, password, deviceLabel string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	ok, err := s.slowVerify(ctx, []byte(password), user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, user.ID, strings.TrimSpace(deviceLabel))
}

// Refresh redeems a refresh token: locates the session via its hint,
// verifies the full token with the slow hash, rotates the session, and
// returns a new token pair. A token is redeemable exactly once; reuse is
// indistinguishable from an invalid token.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*AuthResult, error) {
	if presented == "" {
		return nil, ErrInvalidOrExpiredSession
	}
	match, err := s.findVerifiedSession(ctx, presented)
	if err != nil {
		return nil, err
	}
	if match == nil {
		if s.revokeOnReuse {
			if err := s.revokeLineageOnReuse(ctx, presented); err != nil {
				return nil, err
			}
		}
		return nil, ErrInvalidOrExpiredSession
	}
	now := s.now().UTC()
	rotated, err := s.sessionRepo.Deactivate(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	if !rotated {
		// A concurrent refresh of the same token won the compare-and-set.
		return nil, ErrInvalidOrExpiredSession
	}
	_ = s.sessionRepo.Touch(ctx, match.ID, now)
	return s.startSession(ctx, match.UserID, match.DeviceLabel)
}

// Logout deactivates one session, located by id or by refresh token.
// Idempotent: an unknown id or token is a no-op, never an error, so the
// response does not reveal whether anything matched.
func (s *AuthService) Logout(ctx context.Context, sessionID, refreshToken string) error {
	if sessionID != "" {
		_, err := s.sessionRepo.Deactivate(ctx, sessionID)
		return err
	}
	if refreshToken == "" {
		return nil
	}
	match, err := s.findVerifiedSession(ctx, refreshToken)
	if err != nil || match == nil {
		return err
	}
	_, err = s.sessionRepo.Deactivate(ctx, match.ID)
	return err
}

// LogoutAll deactivates all sessions for a user ("log out everywhere").
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return s.sessionRepo.DeactivateAllForUser(ctx, userID)
}

// findVerifiedSession runs the hint-then-verify lookup: hinted candidates
// first, legacy null-hint candidates only when no hinted row verifies.
// Every candidate is fully verified with the slow hash before being
// accepted; the hint never short-circuits verification. Returns nil when
// nothing verifies.
func (s *AuthService) findVerifiedSession(ctx context.Context, presented string) (*sessiondomain.Session, error) {
	now := s.now().UTC()
	hint := security.TokenHint(presented)
	candidates, err := s.sessionRepo.FindActiveByHint(ctx, hint, now)
	if err != nil {
		return nil, err
	}
	match, err := s.verifyCandidates(ctx, presented, candidates, now)
	if err != nil || match != nil {
		return match, err
	}
	legacy, err := s.sessionRepo.FindActiveLegacy(ctx, now)
	if err != nil {
		return nil, err
	}
	return s.verifyCandidates(ctx, presented, legacy, now)
}

func (s *AuthService) verifyCandidates(ctx context.Context, presented string, candidates []*sessiondomain.Session, now time.Time) (*sessiondomain.Session, error) {
	for _, c := range candidates {
		if !c.IsActive || c.Expired(now) {
			continue
		}
		ok, err := s.slowVerify(ctx, []byte(presented), c.TokenHash)
		if err != nil {
			return nil, err
		}
		if ok {
			return c, nil
		}
	}
	return nil, nil
}

// revokeLineageOnReuse checks whether the presented token belonged to a
// rotated-away session; if so, the token was redeemed before and is now
// being replayed, so every session of that user is revoked.
func (s *AuthService) revokeLineageOnReuse(ctx context.Context, presented string) error {
	rotated, err := s.sessionRepo.FindRotatedByHint(ctx, security.TokenHint(presented))
	if err != nil {
		return err
	}
	for _, c := range rotated {
		ok, err := s.slowVerify(ctx, []byte(presented), c.TokenHash)
		if err != nil {
			return err
		}
		if ok {
			return s.sessionRepo.DeactivateAllForUser(ctx, c.UserID)
		}
	}
	return nil
}

// startSession generates an opaque refresh token, persists the session row
// with its digest and hint, and issues the access token.
func (s *AuthService) startSession(ctx context.Context, userID, deviceLabel string) (*AuthResult, error) {
	refreshToken, err := security.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	tokenHash, err := s.slowHash(ctx, []byte(refreshToken))
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &sessiondomain.Session{
		ID:          uuid.New().String(),
		UserID:      userID,
		TokenHash:   tokenHash,
		TokenHint:   security.TokenHint(refreshToken),
		IsActive:    true,
		DeviceLabel: deviceLabel,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.refreshTTL),
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, err
	}
	accessToken, accessExp, err := s.tokens.IssueAccess(sess.ID, userID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sess.ID,
		UserID:       userID,
		ExpiresAt:    accessExp,
	}, nil
}

func (s *AuthService) slowVerify(ctx context.Context, secret []byte, digest string) (bool, error) {
	if err := s.hashSem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer s.hashSem.Release(1)
	return s.hasher.Verify(secret, digest), nil
}

func (s *AuthService) slowHash(ctx context.Context, secret []byte) (string, error) {
	if err := s.hashSem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.hashSem.Release(1)
	return s.hasher.Hash(secret)
}
