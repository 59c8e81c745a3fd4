package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/delordemm1/matrimony-api/internal/config"
	"github.com/delordemm1/matrimony-api/internal/notification/templates"
	"github.com/delordemm1/matrimony-api/internal/session/sessiontest"
	"github.com/delordemm1/matrimony-api/internal/token"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory Repository with the same conditional semantics as
// the Postgres one. Transactions are serialized and roll back accounts and
// tokens when fn fails.
type memRepo struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	accounts map[string]*Account
	tokens   map[string]*ActionToken
	states   map[string]*OAuthState
	sessions *sessiontest.Store

	// beforeLink runs inside LinkProvider before the row is checked.
	beforeLink func()
	failFind   error
	// failUpdatePassword and failRevoke fail the next call only.
	failUpdatePassword error
	failRevoke         error
}

func newMemRepo() *memRepo {
	return &memRepo{
		accounts: make(map[string]*Account),
		tokens:   make(map[string]*ActionToken),
		states:   make(map[string]*OAuthState),
	}
}

func (m *memRepo) WithinTx(_ context.Context, fn func(tx Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	accounts := make(map[string]*Account, len(m.accounts))
	for id, a := range m.accounts {
		accounts[id] = clone(a)
	}
	tokens := make(map[string]*ActionToken, len(m.tokens))
	for id, t := range m.tokens {
		cp := *t
		tokens[id] = &cp
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.accounts, m.tokens = accounts, tokens
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memRepo) RevokeAllSessions(ctx context.Context, accountID string, at time.Time) (int64, error) {
	m.mu.Lock()
	err := m.failRevoke
	m.failRevoke = nil
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if m.sessions == nil {
		return 0, nil
	}
	return m.sessions.RevokeAllForAccount(ctx, accountID, at)
}

func clone(a *Account) *Account {
	cp := *a
	return &cp
}

func (m *memRepo) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return ErrConflict.WithCause(errors.New("duplicate email"))
		}
		if a.ProviderID != nil && existing.LinkedTo(a.AuthProvider, *a.ProviderID) {
			return ErrConflict.WithCause(errors.New("duplicate provider identity"))
		}
	}
	a.UpdatedAt = a.CreatedAt
	m.accounts[a.ID] = clone(a)
	return nil
}

func (m *memRepo) FindByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind != nil {
		return nil, m.failFind
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(a), nil
}

func (m *memRepo) FindByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind != nil {
		return nil, m.failFind
	}
	for _, a := range m.accounts {
		if a.Email == normalizeEmail(email) {
			return clone(a), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) FindByProvider(_ context.Context, provider AuthProvider, providerID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind != nil {
		return nil, m.failFind
	}
	for _, a := range m.accounts {
		if a.LinkedTo(provider, providerID) {
			return clone(a), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) LinkProvider(_ context.Context, id string, provider AuthProvider, providerID string, emailVerified bool) error {
	if m.beforeLink != nil {
		m.beforeLink()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.ProviderID != nil {
		return errStale
	}
	pid := providerID
	a.AuthProvider = provider
	a.ProviderID = &pid
	a.EmailVerified = a.EmailVerified || emailVerified
	return nil
}

func (m *memRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpdatePassword; err != nil {
		m.failUpdatePassword = nil
		return err
	}
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	h := passwordHash
	a.PasswordHash = &h
	return nil
}

func (m *memRepo) MarkEmailVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.EmailVerified = true
	return nil
}

func (m *memRepo) CreateActionToken(_ context.Context, t *ActionToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cp := *t
	m.tokens[t.ID] = &cp
	return nil
}

func (m *memRepo) FindActionTokenByHash(_ context.Context, tokenHash string, purpose TokenPurpose) (*ActionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.TokenHash == tokenHash && t.Purpose == purpose {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) ConsumeActionToken(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok || t.ConsumedAt != nil || !now.Before(t.ExpiresAt) {
		return errStale
	}
	at := now
	t.ConsumedAt = &at
	return nil
}

func (m *memRepo) DeletePendingActionTokens(_ context.Context, accountID string, purpose TokenPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tokens {
		if t.AccountID == accountID && t.Purpose == purpose && t.ConsumedAt == nil {
			delete(m.tokens, id)
		}
	}
	return nil
}

func (m *memRepo) DeleteExpiredActionTokens(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

func (m *memRepo) InsertOAuthState(_ context.Context, s *OAuthState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.states[s.State] = &cp
	return nil
}

func (m *memRepo) TakeOAuthState(_ context.Context, state string) (*OAuthState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[state]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.states, state)
	return s, nil
}

func (m *memRepo) DeleteExpiredOAuthStates(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.states {
		if s.ExpiresAt.Before(cutoff) {
			delete(m.states, k)
			n++
		}
	}
	return n, nil
}

func (m *memRepo) accountCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

func (m *memRepo) tokenCount(purpose TokenPurpose) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tokens {
		if t.Purpose == purpose {
			n++
		}
	}
	return n
}

// fakeNotifier records the links it was asked to send.
type fakeNotifier struct {
	mu      sync.Mutex
	resets  []templates.PasswordResetData
	verifys []templates.VerifyEmailData
	err     error
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, _ string, data templates.PasswordResetData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, data)
	return f.err
}

func (f *fakeNotifier) SendEmailVerification(_ context.Context, _ string, data templates.VerifyEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifys = append(f.verifys, data)
	return f.err
}

func (f *fakeNotifier) lastResetToken(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.resets)
	return tokenFromLink(t, f.resets[len(f.resets)-1].ResetURL)
}

func (f *fakeNotifier) lastVerifyToken(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.verifys)
	return tokenFromLink(t, f.verifys[len(f.verifys)-1].VerifyURL)
}

// fakeProfiles records stub creations.
type fakeProfiles struct {
	mu    sync.Mutex
	stubs map[string]string
	err   error
}

func (f *fakeProfiles) CreateStub(_ context.Context, accountID, displayName, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.stubs == nil {
		f.stubs = make(map[string]string)
	}
	f.stubs[accountID] = displayName
	return nil
}

// fakeProvider returns a fixed identity for any code.
type fakeProvider struct {
	identity *OAuthIdentity
	err      error
}

func (f *fakeProvider) AuthCodeURL(state, verifier string) string {
	return "https://idp.example/auth?state=" + state
}

func (f *fakeProvider) Exchange(_ context.Context, _, verifier string) (*OAuthIdentity, error) {
	if verifier == "" {
		return nil, errors.New("missing verifier")
	}
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.identity
	return &cp, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc      Service
	repo     *memRepo
	sessions *sessiontest.Store
	tokens   *token.Service
	notifier *fakeNotifier
	profiles *fakeProfiles
	google   *fakeProvider
	clock    *clock
	cfg      *config.Config
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.AccessSecret = "access-secret"
	cfg.Auth.RefreshSecret = "refresh-secret"
	cfg.Auth.AccessTTL = 15 * time.Minute
	cfg.Auth.RefreshTTL = 30 * 24 * time.Hour
	cfg.Auth.Issuer = "matrimony-api"
	cfg.Tokens.PasswordResetTTL = time.Hour
	cfg.Tokens.EmailVerifyTTL = 24 * time.Hour
	cfg.OAuth.AllowEmailLinking = true
	cfg.App.FrontendURL = "https://app.example"
	return cfg
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	sessions := sessiontest.NewStore()
	tokens, err := token.NewService(token.Config{
		AccessSecret:  []byte(cfg.Auth.AccessSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		Issuer:        cfg.Auth.Issuer,
		Now:           clk.Now,
	}, sessions, discardLogger())
	require.NoError(t, err)

	repo := newMemRepo()
	repo.sessions = sessions
	f := &fixture{
		repo:     repo,
		sessions: sessions,
		tokens:   tokens,
		notifier: &fakeNotifier{},
		profiles: &fakeProfiles{},
		google: &fakeProvider{identity: &OAuthIdentity{
			Provider:      AuthProviderGoogle,
			ProviderID:    "g-123",
			Email:         "Asha@Example.com",
			EmailVerified: true,
			Profile:       ProfileHints{DisplayName: "Asha"},
		}},
		clock: clk,
		cfg:   cfg,
	}
	f.svc, err = NewService(&Config{
		Repo:      f.repo,
		Tokens:    tokens,
		Notifier:  f.notifier,
		Profiles:  f.profiles,
		Logger:    discardLogger(),
		Config:    cfg,
		Now:       clk.Now,
		Providers: map[AuthProvider]OAuthProvider{AuthProviderGoogle: f.google},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) register(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Email: email, Password: password, DisplayName: "Test"}, ClientMeta{UserAgent: "test"})
	require.NoError(t, err)
	return res
}

// registerVerified registers an account and confirms its email through the
// verification link sent at registration.
func (f *fixture) registerVerified(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	res := f.register(t, email, password)
	require.NoError(t, f.svc.ConsumeEmailVerification(context.Background(), f.notifier.lastVerifyToken(t)))
	res.Account.EmailVerified = true
	return res
}
