package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/dealAuth/jwt"
	"github.com/MrEthical07/dealAuth/session"
	"github.com/hashicorp/go-retryablehttp"
)

const maxErrorBody = 64 << 10

const (
	opSignIn         = "signin"
	opSignUp         = "signup"
	opSignOut        = "signout"
	opSession        = "session"
	opPasswordReset  = "password_reset"
	opInsertProfile  = "insert_profile"
	opProfileByID    = "profile_by_id"
	opProfileByEmail = "profile_by_email"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.example.com".
	BaseURL string
	// APIKey is sent on every request in the apikey header.
	APIKey string

	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Store keeps the bearer token. Defaults to a MemoryStore.
	Store session.Store
	// HTTPClient overrides the underlying transport (tests use the
	// httptest server's client).
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// DefaultConfig returns the client defaults for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      10 * time.Second,
		RetryMax:     2,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: time.Second,
	}
}

// Client implements Service over HTTP.
type Client struct {
	baseURL *url.URL
	apiKey  string
	reads   *retryablehttp.Client
	writes  *retryablehttp.Client
	store   session.Store
	logger  *slog.Logger
	now     func() time.Time
}

var _ Service = (*Client)(nil)

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout < 0 || cfg.RetryMax < 0 {
		return nil, errors.New("timeout and retry max must not be negative")
	}
	if cfg.RetryWaitMax < cfg.RetryWaitMin {
		return nil, errors.New("retry wait max must be >= retry wait min")
	}

	store := cfg.Store
	if store == nil {
		store = session.NewMemoryStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		reads:   newRetryClient(cfg, cfg.RetryMax, logger),
		writes:  newRetryClient(cfg, 0, logger),
		store:   store,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func newRetryClient(cfg Config, retryMax int, logger *slog.Logger) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	if cfg.HTTPClient != nil {
		// copy so the timeout below stays off the caller's client
		hc := *cfg.HTTPClient
		rc.HTTPClient = &hc
	}
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	rc.RetryMax = retryMax
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	rc.Logger = logger
	// hand the last response back so status codes can be classified
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc
}

// Store returns the token store the client persists sessions into.
func (c *Client) Store() session.Store {
	return c.store
}

func (c *Client) SignIn(ctx context.Context, email, password string) (Credential, error) {
	var out CredentialResponse
	err := c.do(ctx, call{
		op:           opSignIn,
		method:       http.MethodPost,
		path:         "/auth/signin",
		body:         CredentialsRequest{Email: email, Password: password},
		unauthorized: ErrInvalidCredentials,
	}, &out)
	if err != nil {
		return Credential{}, err
	}

	cred := out.Credential()
	if err := c.persist(ctx, opSignIn, cred); err != nil {
		return Credential{}, err
	}
	return cred, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (Credential, error) {
	var out CredentialResponse
	err := c.do(ctx, call{
		op:     opSignUp,
		method: http.MethodPost,
		path:   "/auth/signup",
		body:   CredentialsRequest{Email: email, Password: password},
	}, &out)
	if err != nil {
		return Credential{}, err
	}

	cred := out.Credential()
	if err := c.persist(ctx, opSignUp, cred); err != nil {
		return Credential{}, err
	}
	return cred, nil
}

// SignOut revokes the stored session. The local token is cleared even when
// the backend cannot be reached.
func (c *Client) SignOut(ctx context.Context) error {
	token, err := c.token(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		return err
	}
	defer func() {
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Warn("session token clear failed", "error", err)
		}
	}()

	err = c.do(ctx, call{
		op:           opSignOut,
		method:       http.MethodPost,
		path:         "/auth/signout",
		bearer:       token,
		unauthorized: ErrNoSession,
	}, nil)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	return err
}

// CurrentSession returns the stored session after checking it with the
// backend. Missing or expired tokens fail with ErrNoSession without a
// network call. Tokens are opaque; a token with no known expiry is left for
// the backend to judge.
func (c *Client) CurrentSession(ctx context.Context) (Credential, error) {
	stored, err := c.load(ctx)
	if err != nil {
		return Credential{}, err
	}
	token := stored.AccessToken

	exp := expiryOf(stored)
	if !exp.IsZero() && !c.now().Before(exp) {
		c.drop(ctx)
		return Credential{}, fmt.Errorf("%s: %w", opSession, ErrNoSession)
	}

	var out CredentialResponse
	err = c.do(ctx, call{
		op:           opSession,
		method:       http.MethodGet,
		path:         "/auth/session",
		bearer:       token,
		idempotent:   true,
		unauthorized: ErrNoSession,
	}, &out)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			c.drop(ctx)
		}
		return Credential{}, err
	}

	cred := out.Credential()
	if cred.SessionToken == "" {
		cred.SessionToken = token
	}
	if cred.ExpiresAt.IsZero() {
		cred.ExpiresAt = exp
	}
	return cred, nil
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, call{
		op:     opPasswordReset,
		method: http.MethodPost,
		path:   "/auth/reset",
		body:   ResetRequest{Email: email},
	}, nil)
}

func (c *Client) InsertProfile(ctx context.Context, p Profile) error {
	return c.do(ctx, call{
		op:     opInsertProfile,
		method: http.MethodPost,
		path:   "/profiles",
		body:   p,
		bearer: c.ownerToken(ctx, p.ID),
	}, nil)
}

func (c *Client) ProfileByID(ctx context.Context, id string) (Profile, bool, error) {
	return c.queryProfile(ctx, opProfileByID, url.Values{"id": {id}})
}

func (c *Client) ProfileByEmail(ctx context.Context, email string) (Profile, bool, error) {
	return c.queryProfile(ctx, opProfileByEmail, url.Values{"email": {email}})
}

func (c *Client) queryProfile(ctx context.Context, op string, query url.Values) (Profile, bool, error) {
	var rows []Profile
	err := c.do(ctx, call{
		op:         op,
		method:     http.MethodGet,
		path:       "/profiles",
		query:      query,
		bearer:     c.optionalToken(ctx),
		idempotent: true,
	}, &rows)
	if err != nil {
		return Profile{}, false, err
	}
	if len(rows) == 0 {
		return Profile{}, false, nil
	}
	return rows[0], true, nil
}

type call struct {
	op         string
	method     string
	path       string
	query      url.Values
	body       any
	bearer     string
	idempotent bool
	// unauthorized is the sentinel a 401 maps to; nil leaves it a StatusError.
	unauthorized error
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	target := *c.baseURL
	target.Path = c.baseURL.Path + cl.path
	if cl.query != nil {
		target.RawQuery = cl.query.Encode()
	}

	var body []byte
	if cl.body != nil {
		var err error
		if body, err = json.Marshal(cl.body); err != nil {
			return fmt.Errorf("%s: encode request: %w", cl.op, err)
		}
	}

	var raw any
	if body != nil {
		raw = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, cl.method, target.String(), raw)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if cl.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+cl.bearer)
	}

	hc := c.writes
	if cl.idempotent {
		hc = c.reads
	}

	resp, err := hc.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return &TransportError{Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Op: cl.op, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	return classify(cl, resp.StatusCode, readErrorMessage(resp.Body))
}

func classify(cl call, code int, message string) error {
	switch {
	case code == http.StatusUnauthorized && cl.unauthorized != nil:
		return fmt.Errorf("%s: %w", cl.op, cl.unauthorized)
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w", cl.op, ErrNotFound)
	case code == http.StatusConflict:
		return fmt.Errorf("%s: %w", cl.op, ErrConflict)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", cl.op, ErrRateLimited)
	case code >= 500:
		return &TransportError{Op: cl.op, Err: fmt.Errorf("status %d: %s", code, message)}
	default:
		return &StatusError{Op: cl.op, Code: code, Message: message}
	}
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body ErrorResponse
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	return string(bytes.TrimSpace(data))
}

func (c *Client) persist(ctx context.Context, op string, cred Credential) error {
	if !cred.HasSession() {
		return nil
	}
	t := &session.Token{
		UserID:      cred.UserID,
		AccessToken: cred.SessionToken,
		CreatedAt:   c.now().Unix(),
	}
	if !cred.ExpiresAt.IsZero() {
		t.ExpiresAt = cred.ExpiresAt.Unix()
	}
	if err := c.store.Save(ctx, t); err != nil {
		return fmt.Errorf("%s: persist session: %w", op, err)
	}
	return nil
}

func (c *Client) load(ctx context.Context) (*session.Token, error) {
	t, err := c.store.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return t, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	t, err := c.load(ctx)
	if err != nil {
		return "", err
	}
	return t.AccessToken, nil
}

// expiryOf prefers the expiry recorded at sign-in and falls back to the exp
// claim when the token happens to be a JWT. Zero means unknown.
func expiryOf(t *session.Token) time.Time {
	if t.ExpiresAt > 0 {
		return time.Unix(t.ExpiresAt, 0)
	}
	if exp, err := jwt.PeekExpiry(t.AccessToken); err == nil {
		return exp
	}
	return time.Time{}
}

func (c *Client) optionalToken(ctx context.Context) string {
	token, err := c.token(ctx)
	if err != nil {
		return ""
	}
	return token
}

// ownerToken returns the stored token only when it belongs to userID, so a
// leftover session never vouches for someone else's row.
func (c *Client) ownerToken(ctx context.Context, userID string) string {
	t, err := c.load(ctx)
	if err != nil || t.UserID != userID {
		return ""
	}
	return t.AccessToken
}

func (c *Client) drop(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("session token clear failed", "error", err)
	}
}
