// Package auth implements the AuthClient (spec.md §4.2): JWT refresh, PKCE
// login, and 401/403 recovery, modeled as an explicit state machine
// (AUTHED/REFRESHING/LOGIN/TERMINAL) on top of the generic internal/fsm
// runner — the same one the Job lifecycle (internal/domain.Job) uses.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/berrizdl/core/internal/cookies"
	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/fsm"
	"github.com/berrizdl/core/internal/log"
	"github.com/berrizdl/core/internal/retry"
)

// SessionState is the AuthClient state machine's state type (spec.md §4.2).
type SessionState string

const (
	StateAuthed     SessionState = "authed"
	StateRefreshing SessionState = "refreshing"
	StateLogin      SessionState = "login"
	StateTerminal   SessionState = "terminal"
)

// SessionEvent is the AuthClient state machine's event type.
type SessionEvent string

const (
	EventNeedRefresh    SessionEvent = "need_refresh"
	EventRefreshOK      SessionEvent = "refresh_ok"
	EventRefreshInvalid SessionEvent = "refresh_invalid"
	EventLoginOK        SessionEvent = "login_ok"
	EventLoginFail      SessionEvent = "login_fail"
)

// refreshLeadTime is spec.md §4.2's "within 60s of now" ensureSession check.
const refreshLeadTime = 60 * time.Second

// nextRefreshIn is spec.md §4.2's "schedules the next refresh 50 minutes out".
const nextRefreshIn = 50 * time.Minute

// Endpoints carries the platform URLs AuthClient needs (external config,
// spec.md §6 is silent on exact hosts — these are injected by the caller).
type Endpoints struct {
	RefreshURL       string
	AuthorizeInitURL string
	AuthenticateURL  string
	AuthorizeURL     string
	TokenIssueURL    string
	AccountExistsURL string
}

// Credentials are the configured login credentials (spec.md §6 berriz.{account,password}).
type Credentials struct {
	Email    string
	Password string
}

// UnbanFlow is the external unban collaborator invoked on FS_AU4030
// (spec.md §4.2 step 2); out of scope for this core (spec.md §1).
type UnbanFlow func(ctx context.Context, email string) error

// Client is the AuthClient.
type Client struct {
	http      *http.Client
	store     *cookies.Store
	endpoints Endpoints
	creds     Credentials
	clientID  string
	unban     UnbanFlow

	machine *fsm.Machine[SessionState, SessionEvent]

	mu sync.Mutex
}

// New builds an AuthClient bound to a CookieStore.
func New(store *cookies.Store, endpoints Endpoints, creds Credentials, clientID string, unban UnbanFlow) (*Client, error) {
	m, err := fsm.New(StateAuthed, []fsm.Transition[SessionState, SessionEvent]{
		{From: StateAuthed, Event: EventNeedRefresh, To: StateRefreshing},
		{From: StateRefreshing, Event: EventRefreshOK, To: StateAuthed},
		{From: StateRefreshing, Event: EventRefreshInvalid, To: StateLogin},
		{From: StateLogin, Event: EventLoginOK, To: StateAuthed},
		{From: StateLogin, Event: EventLoginFail, To: StateTerminal},
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		store:     store,
		endpoints: endpoints,
		creds:     creds,
		clientID:  clientID,
		unban:     unban,
		machine:   m,
	}, nil
}

// State returns the current session state.
func (c *Client) State() SessionState { return c.machine.State() }

// Cookies implements httpclient.SessionProvider: returns the current
// cookie jar as net/http cookies, ensuring the session is fresh first.
func (c *Client) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	if err := c.EnsureSession(ctx); err != nil {
		return nil, err
	}
	jar, err := c.store.LoadCookies()
	if err != nil {
		return nil, err
	}
	out := make([]*http.Cookie, 0, len(jar))
	for _, ck := range jar {
		out = append(out, &http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return out, nil
}

// Refresh implements httpclient.SessionProvider: forces a token refresh
// (spec.md §4.2 refresh()) regardless of the side-car's refresh_time.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.machine.Fire(ctx, EventNeedRefresh)
	if err != nil {
		return err
	}
	return c.runRefresh(ctx)
}

// EnsureSession implements spec.md §4.2 ensureSession(): on first call, and
// whenever the side-car's refresh_time is within refreshLeadTime of now,
// refreshes the access token.
func (c *Client) EnsureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tc, err := c.store.LoadTokenCache()
	if err != nil {
		return err
	}
	if tc.CacheCookie.BzA != "" && time.Until(tc.CacheCookie.RefreshTime) > refreshLeadTime {
		return nil
	}
	return c.Refresh(ctx)
}

// runRefresh executes the REFRESHING state's work: POST clientId to the
// refresh endpoint with current cookies; on FS_AU4021, fall back to a full
// PKCE login (spec.md §4.2).
func (c *Client) runRefresh(ctx context.Context) error {
	logger := log.FromContext(ctx)
	policy := retry.AuthPolicy(func(error) bool { return true })

	err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		code, newAccess, newRefresh, err := c.postRefresh(ctx)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("auth refresh transport error")
			return err
		}
		if code == "FS_AU4021" {
			return domain.ErrRefreshTokenInvalid
		}
		if code != "" && code != "0000" {
			return fmt.Errorf("auth: refresh domain error %s", code)
		}
		return c.persistRefresh(newAccess, newRefresh)
	})

	if err == nil {
		_, fireErr := c.machine.Fire(ctx, EventRefreshOK)
		return fireErr
	}

	if err == domain.ErrRefreshTokenInvalid {
		if _, fireErr := c.machine.Fire(ctx, EventRefreshInvalid); fireErr != nil {
			return fireErr
		}
		return c.runLogin(ctx)
	}
	return fmt.Errorf("auth: refresh failed: %w", err)
}

// persistRefresh updates both the Netscape file and the JSON side-car and
// schedules the next refresh (spec.md §4.2 refresh()).
func (c *Client) persistRefresh(accessToken, refreshToken string) error {
	next := time.Now().Add(nextRefreshIn)

	if err := c.store.UpsertCookie(cookies.Cookie{Domain: ".berriz.in", Path: "/", Name: "bz_a", Value: accessToken}); err != nil {
		return err
	}
	if refreshToken != "" {
		if err := c.store.UpsertCookie(cookies.Cookie{Domain: ".berriz.in", Path: "/", Name: "bz_r", Value: refreshToken}); err != nil {
			return err
		}
	}
	return c.store.UpdateTokenCache(func(tc *cookies.TokenCache) {
		tc.CacheCookie.BzA = accessToken
		if refreshToken != "" {
			tc.CacheCookie.BzR = refreshToken
		}
		tc.CacheCookie.RefreshTime = next
	})
}

// runLogin executes the LOGIN state's full PKCE flow (spec.md §4.2 loginWithPassword).
func (c *Client) runLogin(ctx context.Context) error {
	access, refresh, err := c.loginWithPassword(ctx, c.creds.Email, c.creds.Password)
	if err != nil {
		if _, fireErr := c.machine.Fire(ctx, EventLoginFail); fireErr != nil {
			return fireErr
		}
		return fmt.Errorf("%w: %v", domain.ErrAuthFatal, err)
	}
	if err := c.persistRefresh(access, refresh); err != nil {
		if _, fireErr := c.machine.Fire(ctx, EventLoginFail); fireErr != nil {
			return fireErr
		}
		return fmt.Errorf("%w: %v", domain.ErrAuthFatal, err)
	}
	_, fireErr := c.machine.Fire(ctx, EventLoginOK)
	return fireErr
}

// loginWithPassword implements spec.md §4.2's 6-step PKCE flow.
func (c *Client) loginWithPassword(ctx context.Context, email, password string) (accessToken, refreshToken string, err error) {
	verifier, err := generateVerifier()
	if err != nil {
		return "", "", err
	}
	state, err := generateState()
	if err != nil {
		return "", "", err
	}
	challenge := challengeFromVerifier(verifier)

	suspended, err := c.accountSuspended(ctx, email)
	if err != nil {
		return "", "", err
	}
	if suspended {
		if c.unban == nil {
			return "", "", domain.ErrAccountSuspended
		}
		if err := c.unban(ctx, email); err != nil {
			return "", "", fmt.Errorf("auth: unban flow failed: %w", err)
		}
	}

	authorizeKey, err := c.authorizeInit(ctx)
	if err != nil {
		return "", "", err
	}
	authenticateKey, err := c.authenticate(ctx, email, password, authorizeKey, challenge, state)
	if err != nil {
		return "", "", err
	}
	code, err := c.authorizeFollowRedirect(ctx, authenticateKey)
	if err != nil {
		return "", "", err
	}
	return c.tokenIssue(ctx, code, verifier)
}

// authorizeFollowRedirect performs the "GET authorize, follow-redirect
// headers" step and extracts the 30-char code from the Location URL,
// without following the redirect (spec.md §4.2 step 5).
func (c *Client) authorizeFollowRedirect(ctx context.Context, authenticateKey string) (string, error) {
	httpc := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.AuthorizeURL+"?authenticateKey="+authenticateKey, nil)
	if err != nil {
		return "", err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: authorize request: %w", err)
	}
	defer resp.Body.Close()

	loc := resp.Header.Get("Location")
	u, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("auth: parse redirect location: %w", err)
	}
	code := u.Query().Get("code")
	if code == "" || !strings.Contains(loc, "/auth/token?code=") {
		return "", fmt.Errorf("auth: redirect location missing code: %s", loc)
	}
	return code, nil
}
