package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vendhub/backend/internal/security"
	sessiondomain "vendhub/backend/internal/session/domain"
	userdomain "vendhub/backend/internal/user/domain"
)

type memUserRepo struct {
	mu         sync.Mutex
	byUsername map[string]*userdomain.User
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byUsername[username], nil
}

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.Session
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.ID] = &s2
	return nil
}

func (r *memSessionRepo) FindActiveByHint(ctx context.Context, hint string, now time.Time) ([]*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sessiondomain.Session
	for _, s := range r.m {
		if s.TokenHint == hint && s.IsActive && s.ExpiresAt.After(now) {
			s2 := *s
			out = append(out, &s2)
		}
	}
	return out, nil
}

func (r *memSessionRepo) FindActiveLegacy(ctx context.Context, now time.Time) ([]*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sessiondomain.Session
	for _, s := range r.m {
		if s.TokenHint == "" && s.IsActive && s.ExpiresAt.After(now) {
			s2 := *s
			out = append(out, &s2)
		}
	}
	return out, nil
}

func (r *memSessionRepo) FindRotatedByHint(ctx context.Context, hint string) ([]*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sessiondomain.Session
	for _, s := range r.m {
		if s.TokenHint == hint && !s.IsActive {
			s2 := *s
			out = append(out, &s2)
		}
	}
	return out, nil
}

func (r *memSessionRepo) Deactivate(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	return true, nil
}

func (r *memSessionRepo) DeactivateAllForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.UserID == userID {
			s.IsActive = false
		}
	}
	return nil
}

func (r *memSessionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		t := at
		s.LastUsedAt = &t
	}
	return nil
}

func (r *memSessionRepo) activeCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.m {
		if s.UserID == userID && s.IsActive {
			n++
		}
	}
	return n
}

type fixture struct {
	svc      *AuthService
	users    *memUserRepo
	sessions *memSessionRepo
	hasher   *security.Hasher
	nowMu    sync.Mutex
	current  time.Time
}

func (f *fixture) advance(d time.Duration) {
	f.nowMu.Lock()
	f.current = f.current.Add(d)
	f.nowMu.Unlock()
}

func newFixture(t *testing.T, opts ...func(*AuthService)) *fixture {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	hasher := security.NewHasher(4) // MinCost keeps tests fast
	f := &fixture{
		users:    &memUserRepo{byUsername: map[string]*userdomain.User{}},
		sessions: &memSessionRepo{m: map[string]*sessiondomain.Session{}},
		hasher:   hasher,
		current:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	now := func() time.Time {
		f.nowMu.Lock()
		defer f.nowMu.Unlock()
		return f.current
	}
	f.svc = NewAuthService(f.users, f.sessions, hasher, tokens, 30*24*time.Hour, 4, false, now)
	for _, o := range opts {
		o(f.svc)
	}
	return f
}

func (f *fixture) addUser(t *testing.T, username, password string) *userdomain.User {
	t.Helper()
	digest, err := f.hasher.Hash([]byte(password))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	u := &userdomain.User{
		ID:           "user-" + username,
		Username:     username,
		PasswordHash: digest,
		IsActive:     true,
	}
	f.users.byUsername[username] = u
	return u
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct horse")

	res, err := f.svc.Login(context.Background(), "alice", "correct horse", "machine-42")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("Login should return both tokens")
	}
	sess := f.sessions.m[res.SessionID]
	if sess == nil {
		t.Fatal("session row was not created")
	}
	if !sess.IsActive {
		t.Error("new session should be active")
	}
	if sess.TokenHash == res.RefreshToken {
		t.Error("raw refresh token must never be stored")
	}
	if sess.TokenHint != security.TokenHint(res.RefreshToken) {
		t.Error("stored hint should match the token's hint")
	}
	if sess.DeviceLabel != "machine-42" {
		t.Errorf("device label = %q, want machine-42", sess.DeviceLabel)
	}
}

func TestLogin_BadCredentialsIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct horse")

	cases := []struct {
		name               string
		username, password string
	}{
		{"wrong password", "alice", "battery staple"},
		{"unknown user", "nobody", "correct horse"},
		{"empty password", "alice", ""},
		{"empty username", "", "correct horse"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), tc.username, tc.password, "")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "alice", "correct horse")
	u.IsActive = false

	_, err := f.svc.Login(context.Background(), "alice", "correct horse", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefresh_RotatesExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct horse")
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "alice", "correct horse", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	t1 := login.RefreshToken

	res2, err := f.svc.Refresh(ctx, t1)
	if err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	if res2.RefreshToken == t1 {
		t.Error("rotation should issue a different token")
	}
	if res2.SessionID == login.SessionID {
		t.Error("rotation should create a new session row")
	}
	if old := f.sessions.m[login.SessionID]; old.IsActive {
		t.Error("rotated-away session should be inactive")
	}
	if old := f.sessions.m[login.SessionID]; old.LastUsedAt == nil {
		t.Error("redeeming a token should record last_used_at")
	}

	// Reuse of the now-rotated token must fail like any invalid token.
	if _, err := f.svc.Refresh(ctx, t1); !errors.Is(err, ErrInvalidOrExpiredSession) {
		t.Errorf("second Refresh error = %v, want ErrInvalidOrExpiredSession", err)
	}

	// The new token works.
	if _, err := f.svc.Refresh(ctx, res2.RefreshToken); err != nil {
		t.Fatalf("Refresh with rotated token: %v", err)
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	f := newFixture(t)
	for _, token := range []string{"", "completely-unknown-token"} {
		if _, err := f.svc.Refresh(context.Background(), token); !errors.Is(err, ErrInvalidOrExpiredSession) {
			t.Errorf("Refresh(%q) error = %v, want ErrInvalidOrExpiredSession", token, err)
		}
	}
}

func TestRefresh_LazyExpiry(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct horse")
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "alice", "correct horse", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	f.advance(31 * 24 * time.Hour)

	// The row still says is_active=true; expiry alone must reject it.
	if sess := f.sessions.m[login.SessionID]; !sess.IsActive {
		t.Fatal("precondition: session flag should still be active")
	}
	if _, err := f.svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidOrExpiredSession) {
		t.Errorf("Refresh of expired session error = %v, want ErrInvalidOrExpiredSession", err)
	}
}

func TestRefresh_LegacyNullHintFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A session created before the hint mechanism existed: digest stored,
	// hint empty.
	legacyToken, _ := security.NewRefreshToken()
	digest, _ := f.hasher.Hash([]byte(legacyToken))
	now := f.svc.now().UTC()
	legacy := &sessiondomain.Session{
		ID:        "legacy-1",
		UserID:    "user-alice",
		TokenHash: digest,
		IsActive:  true,
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(time.Hour),
	}
	if err := f.sessions.Create(ctx, legacy); err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := f.svc.Refresh(ctx, legacyToken)
	if err != nil {
		t.Fatalf("Refresh of legacy session: %v", err)
	}
	if f.sessions.m["legacy-1"].IsActive {
		t.Error("legacy session should be rotated away")
	}
	// The successor always carries a hint.
	if f.sessions.m[res.SessionID].TokenHint == "" {
		t.Error("successor session should have a hint")
	}
}

func TestRefresh_ConcurrentSameToken(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct horse")
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "alice", "correct horse", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Refresh(ctx, login.RefreshToken)
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrInvalidOrExpiredSession):
		default:
			t.Errorf("attempt %d: unexpected error %v", i, err)
		}
	}
	if wins != 1 {
		t.Errorf("concurrent refresh wins = %d, want exactly 1", wins)
	}
}

func TestLogout_ByIDAndByToken(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct horse")
	ctx := context.Background()

	bySession, _ := f.svc.Login(ctx, "alice", "correct horse", "")
	byToken, _ := f.svc.Login(ctx, "alice", "correct horse", "")

	if err := f.svc.Logout(ctx, bySession.SessionID, ""); err != nil {
		t.Fatalf("Logout by id: %v", err)
	}
	if f.sessions.m[bySession.SessionID].IsActive {
		t.Error("session should be inactive after logout by id")
	}

	if err := f.svc.Logout(ctx, "", byToken.RefreshToken); err != nil {
		t.Fatalf("Logout by token: %v", err)
	}
	if f.sessions.m[byToken.SessionID].IsActive {
		t.Error("session should be inactive after logout by token")
	}

	// Idempotent: repeating and using unknown identifiers never errors.
	if err := f.svc.Logout(ctx, bySession.SessionID, ""); err != nil {
		t.Errorf("repeated logout: %v", err)
	}
	if err := f.svc.Logout(ctx, "no-such-session", ""); err != nil {
		t.Errorf("logout of unknown id: %v", err)
	}
	if err := f.svc.Logout(ctx, "", "no-such-token"); err != nil {
		t.Errorf("logout of unknown token: %v", err)
	}
}

func TestLogoutAll_OnlyThatUser(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct horse")
	f.addUser(t, "bob", "other secret")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Login(ctx, "alice", "correct horse", ""); err != nil {
			t.Fatalf("Login alice: %v", err)
		}
	}
	bob, err := f.svc.Login(ctx, "bob", "other secret", "")
	if err != nil {
		t.Fatalf("Login bob: %v", err)
	}

	if err := f.svc.LogoutAll(ctx, "user-alice"); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if n := f.sessions.activeCount("user-alice"); n != 0 {
		t.Errorf("alice active sessions = %d, want 0", n)
	}
	if n := f.sessions.activeCount("user-bob"); n != 1 {
		t.Errorf("bob active sessions = %d, want 1", n)
	}
	if _, err := f.svc.Refresh(ctx, bob.RefreshToken); err != nil {
		t.Errorf("bob's session should survive alice's LogoutAll: %v", err)
	}
}

func TestRefresh_ReuseRevokesLineageWhenEnabled(t *testing.T) {
	f := newFixture(t)
	f.svc.revokeOnReuse = true
	f.addUser(t, "alice", "correct horse")
	ctx := context.Background()

	login, _ := f.svc.Login(ctx, "alice", "correct horse", "")
	rotated, err := f.svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// Replaying the rotated-away token fails and, with hardening on,
	// revokes every session of the user.
	if _, err := f.svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidOrExpiredSession) {
		t.Fatalf("replay error = %v, want ErrInvalidOrExpiredSession", err)
	}
	if n := f.sessions.activeCount("user-alice"); n != 0 {
		t.Errorf("active sessions after detected reuse = %d, want 0", n)
	}
	if _, err := f.svc.Refresh(ctx, rotated.RefreshToken); !errors.Is(err, ErrInvalidOrExpiredSession) {
		t.Errorf("successor token should be dead after lineage revocation, got %v", err)
	}
}

func TestRefresh_CancelledContext(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct horse")
	login, _ := f.svc.Login(context.Background(), "alice", "correct horse", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.svc.Refresh(ctx, login.RefreshToken); err == nil {
		t.Error("Refresh with cancelled context should fail")
	}
	// The abandoned call must not have consumed the token.
	if _, err := f.svc.Refresh(context.Background(), login.RefreshToken); err != nil {
		t.Errorf("token should still be redeemable after abandoned call: %v", err)
	}
}
