// package session owns the authenticated identity of the CLI user
//
// It restores the session from the key/value store at startup, mediates login,
// registration and logout, and refreshes the access credential when the server rejects it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/services"
	"github.com/desertthunder/persona/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle state of a [Manager].
type State int

const (
	StateUnknown State = iota // not yet rehydrated
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// AuthAPI is the subset of the backend the manager talks to.
//
// [services.AuthService] implements it.
type AuthAPI interface {
	Login(ctx context.Context, identifier, password string) (*services.AuthResult, error)
	Register(ctx context.Context, name, email, password string) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.RefreshResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Manager holds the current session and implements [services.Authorizer].
type Manager struct {
	store  Store
	auth   AuthAPI
	logger *log.Logger
	group  singleflight.Group

	mu         sync.RWMutex
	state      State
	token      *oauth2.Token
	identity   *models.Identity
	refreshing bool
	// epoch changes whenever the session is replaced or destroyed.
	// A refresh started under one epoch may only commit under the same epoch.
	epoch uint64
}

// NewManager creates a manager in [StateUnknown]. Call [Manager.Rehydrate] before use.
func NewManager(store Store, auth AuthAPI, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{store: store, auth: auth, logger: logger}
}

// Rehydrate restores the session persisted by a previous process.
//
// Missing slots mean "no session". An unreadable identity, or an identity without
// an access credential, clears the store. Only the first call has any effect.
func (m *Manager) Rehydrate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateUnknown {
		return nil
	}
	m.state = StateAnonymous

	access, hasAccess, err := m.store.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	refresh, _, err := m.store.Get(ctx, KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	raw, hasUser, err := m.store.Get(ctx, KeyUser)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	switch {
	case !hasAccess && !hasUser:
		return nil
	case !hasAccess || access == "" || !hasUser:
		m.logger.Warn("incomplete session in store, clearing it")
		return m.clearStore(ctx)
	}

	var identity models.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		m.logger.Warn("stored identity is unreadable, clearing session", "error", err)
		return m.clearStore(ctx)
	}

	m.token = newToken(access, refresh)
	m.identity = &identity
	m.state = StateAuthenticated
	m.logger.Debug("session restored", "user", identity.ID)
	return nil
}

// Login authenticates with an email or username and persists the new session.
//
// On failure the current state is left unchanged.
func (m *Manager) Login(ctx context.Context, identifier, password string) (models.Identity, error) {
	if strings.TrimSpace(identifier) == "" {
		return models.Identity{}, fmt.Errorf("%w: email or username", shared.ErrMissingArgument)
	}
	if password == "" {
		return models.Identity{}, fmt.Errorf("%w: password", shared.ErrMissingArgument)
	}

	res, err := m.auth.Login(ctx, strings.TrimSpace(identifier), password)
	if err != nil {
		return models.Identity{}, err
	}
	return m.establish(ctx, res)
}

// Register creates an account and persists its session.
func (m *Manager) Register(ctx context.Context, name, email, password string) (models.Identity, error) {
	switch {
	case strings.TrimSpace(name) == "":
		return models.Identity{}, fmt.Errorf("%w: name", shared.ErrMissingArgument)
	case !strings.Contains(email, "@"):
		return models.Identity{}, fmt.Errorf("%w: email %q", shared.ErrInvalidInput, email)
	case password == "":
		return models.Identity{}, fmt.Errorf("%w: password", shared.ErrMissingArgument)
	}

	res, err := m.auth.Register(ctx, strings.TrimSpace(name), email, password)
	if err != nil {
		return models.Identity{}, err
	}
	return m.establish(ctx, res)
}

func (m *Manager) establish(ctx context.Context, res *services.AuthResult) (models.Identity, error) {
	user, err := json.Marshal(res.User)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to encode identity: %w", err)
	}

	set := map[string]string{KeyToken: res.Access(), KeyUser: string(user)}
	var remove []string
	if res.RefreshToken != "" {
		set[KeyRefreshToken] = res.RefreshToken
	} else {
		remove = append(remove, KeyRefreshToken)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// The store is written first; memory only changes once the new session is durable.
	if err := m.store.Replace(ctx, set, remove...); err != nil {
		return models.Identity{}, fmt.Errorf("failed to persist session: %w", err)
	}

	identity := res.User
	m.epoch++
	m.token = newToken(res.Access(), res.RefreshToken)
	m.identity = &identity
	m.refreshing = false
	m.state = StateAuthenticated
	m.logger.Info("logged in", "user", identity.ID)
	return identity, nil
}

// Logout destroys the local session and revokes the refresh credential on a best-effort basis.
//
// A refresh still in flight when Logout runs is discarded when it completes.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	refresh := ""
	if m.token != nil {
		refresh = m.token.RefreshToken
	}
	m.reset()
	err := m.clearStore(ctx)
	m.mu.Unlock()

	if refresh != "" {
		if rerr := m.auth.Logout(ctx, refresh); rerr != nil {
			m.logger.Warn("server-side logout failed", "error", rerr)
		}
	}
	return err
}

// AttachCredential implements [services.Authorizer].
func (m *Manager) AttachCredential(req *http.Request) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != StateAuthenticated || m.token == nil || m.token.AccessToken == "" {
		return ""
	}
	m.token.SetAuthHeader(req)
	return m.token.AccessToken
}

// HandleUnauthorized implements [services.Authorizer].
//
// Only the first rejection of a request (attempt 0) may trigger a refresh.
// Concurrent callers share a single refresh call. If the credential was already
// replaced since used was attached, the caller simply retries with the new one.
func (m *Manager) HandleUnauthorized(ctx context.Context, used string, attempt int) error {
	if attempt >= 1 {
		return fmt.Errorf("%w: credential rejected after refresh", shared.ErrUnauthorized)
	}

	m.mu.RLock()
	state, epoch := m.state, m.epoch
	var current, refresh string
	if m.token != nil {
		current, refresh = m.token.AccessToken, m.token.RefreshToken
	}
	m.mu.RUnlock()

	if state != StateAuthenticated {
		return fmt.Errorf("%w: no session", shared.ErrNotAuthenticated)
	}
	if current != used {
		return nil
	}
	if refresh == "" {
		m.expire(ctx, epoch)
		return fmt.Errorf("%w: %w", shared.ErrSessionExpired, shared.ErrNoRefreshToken)
	}

	ch := m.group.DoChan(fmt.Sprintf("refresh-%d-%s", epoch, used), func() (any, error) {
		return nil, m.refresh(context.WithoutCancel(ctx), epoch, used)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refresh performs the refresh call and commits its result if epoch is still current.
//
// A rejected credential that was already replaced needs no refresh; the caller just retries.
func (m *Manager) refresh(ctx context.Context, epoch uint64, used string) error {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return fmt.Errorf("%w: session replaced", shared.ErrSessionExpired)
	}
	if m.token == nil || m.token.AccessToken != used {
		m.mu.Unlock()
		return nil
	}
	refreshToken := m.token.RefreshToken
	m.refreshing = true
	m.mu.Unlock()

	m.logger.Debug("refreshing access credential")
	res, err := m.auth.Refresh(ctx, refreshToken)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		m.logger.Debug("discarding refresh result for a closed session")
		return fmt.Errorf("%w: logged out during refresh", shared.ErrSessionExpired)
	}
	m.refreshing = false

	if err != nil {
		m.logger.Warn("refresh failed, ending session", "error", err)
		m.reset()
		if cerr := m.clearStore(ctx); cerr != nil {
			m.logger.Error("failed to clear session", "error", cerr)
		}
		return fmt.Errorf("%w: %w", shared.ErrSessionExpired, errors.Join(shared.ErrRefreshFailed, err))
	}

	next := refreshToken
	if res.RefreshToken != "" {
		next = res.RefreshToken
	}
	if err := m.store.Replace(ctx, map[string]string{KeyToken: res.Access(), KeyRefreshToken: next}); err != nil {
		m.logger.Warn("failed to persist refreshed credential", "error", err)
	}
	m.token = newToken(res.Access(), next)
	m.logger.Debug("access credential refreshed", "expires", m.token.Expiry)
	return nil
}

// expire ends the session created under epoch.
func (m *Manager) expire(ctx context.Context, epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return
	}
	m.reset()
	if err := m.clearStore(ctx); err != nil {
		m.logger.Error("failed to clear session", "error", err)
	}
}

// UpdateIdentity replaces the cached identity; credentials are unchanged.
func (m *Manager) UpdateIdentity(ctx context.Context, identity models.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAuthenticated {
		return shared.ErrNotAuthenticated
	}
	if err := m.store.Set(ctx, KeyUser, string(data)); err != nil {
		return fmt.Errorf("failed to persist identity: %w", err)
	}
	m.identity = &identity
	return nil
}

// reset drops in-memory session state. Callers hold m.mu.
func (m *Manager) reset() {
	m.epoch++
	m.token = nil
	m.identity = nil
	m.refreshing = false
	m.state = StateAnonymous
}

// clearStore removes every session slot. Callers hold m.mu.
func (m *Manager) clearStore(ctx context.Context) error {
	if err := m.store.Delete(ctx, sessionKeys...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Authenticated reports whether a session exists.
func (m *Manager) Authenticated() bool {
	return m.State() == StateAuthenticated
}

// RefreshInFlight reports whether a refresh call is outstanding.
func (m *Manager) RefreshInFlight() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshing
}

// Identity returns the cached identity of the current session.
func (m *Manager) Identity() (models.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return models.Identity{}, false
	}
	return *m.identity, true
}

// ExpiresAt returns the expiry claimed by the access credential, or the zero time
// when there is no session or the credential is not a JWT with an exp claim.
func (m *Manager) ExpiresAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return time.Time{}
	}
	return m.token.Expiry
}

// HasRefreshCredential reports whether the session can be refreshed.
func (m *Manager) HasRefreshCredential() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != nil && m.token.RefreshToken != ""
}

func newToken(access, refresh string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       expiryOf(access),
	}
}

// expiryOf reads the exp claim of a JWT without verifying its signature.
//
// The server verifies the credential; the client only uses the claim for display.
func expiryOf(access string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
