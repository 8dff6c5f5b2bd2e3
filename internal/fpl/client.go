package fpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fplscraper/fplscraper/pkg/log"
)

const defaultHost = "https://www.fpl.com"

// requestTimeout bounds every API call; a miss surfaces as a fetch failure.
const requestTimeout = 30 * time.Second

const (
	urlLogin          = "/cs/customer/v1/registration/loginAndUseMigration?migrationToggle=Y&view=LoginMini"
	urlLogout         = "/api/resources/logout"
	urlHeader         = "/api/resources/header"
	urlAccount        = "/api/resources/account/%s"
	urlProjectedBill  = "/api/resources/account/%s/projectedBill?premiseNumber=%s&lastBilledDate=%s"
	urlBudgetDetails  = "/api/resources/account/%s/budgetBillingGraph/premiseDetails"
	urlBudgetGraph    = "/api/resources/account/%s/budgetBillingGraph"
	urlEnergyService  = "/cs/customer/v1/energydashboard/resources/energy-usage/account/%s/mobile-energy-service"
	urlEnergyDaily    = "/dashboard-api/resources/account/%s/energyService/%s"
	urlApplianceUsage = "/dashboard-api/resources/account/%s/applianceUsage/%s"
	urlMultiAccount   = "/cs/customer/v1/multiaccount/resources/userId/current/accounts?contactFlag=N&count=5&view=profileAccountsList&page=%d"
)

// LoginResult is the discriminated outcome of a login attempt.
type LoginResult string

const (
	LoginOK              LoginResult = "OK"
	LoginInvalidUser     LoginResult = "INVALIDUSER"
	LoginInvalidPassword LoginResult = "INVALIDPASSWORD"
	LoginFailure         LoginResult = "FAILURE"
)

// AuthError represents an authentication failure on an API call
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

// Client is an authenticated FPL API client. The session token is acquired
// once per refresh cycle and read-only afterwards.
type Client struct {
	client   *http.Client
	host     string
	username string
	password string
	token    string

	// now is swapped in tests to pin day-count derivations.
	now func() time.Time
}

// NewClient creates a client for the given credentials
func NewClient(username, password string) *Client {
	return &Client{
		client:   &http.Client{Timeout: requestTimeout},
		host:     defaultHost,
		username: username,
		password: password,
		now:      time.Now,
	}
}

// SetToken installs a session token captured out of band (browser capture),
// skipping the credential login.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the currently held session token, if any
func (c *Client) Token() string {
	return c.token
}

// Login authenticates against FPL with basic auth. On success the jwttoken
// response header is retained for subsequent calls. A 401 is mapped to an
// invalid-user or invalid-password result via the body's messageCode; any
// other non-200 yields LoginFailure.
func (c *Client) Login(ctx context.Context) (LoginResult, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.host+urlLogin, nil)
	if err != nil {
		return LoginFailure, fmt.Errorf("creating login request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.client.Do(req)
	if err != nil {
		return LoginFailure, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		if token := resp.Header.Get("jwttoken"); token != "" {
			c.token = token
		}
		log.Ctx(ctx).DebugContext(ctx, "fpl login success", slog.String("username", c.username))
		return LoginOK, nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		var body struct {
			MessageCode string `json:"messageCode"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			switch body.MessageCode {
			case string(LoginInvalidUser):
				return LoginInvalidUser, nil
			case string(LoginInvalidPassword):
				return LoginInvalidPassword, nil
			}
		}
	}

	log.Ctx(ctx).WarnContext(ctx, "fpl login failed", slog.Int("status", resp.StatusCode))
	return LoginFailure, nil
}

// Logout terminates the session best-effort; failures are logged, never
// returned. The token is cleared either way.
func (c *Client) Logout(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.host+urlLogout, nil)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "creating logout request", slog.Any("error", err))
		return
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "fpl logout failed", slog.Any("error", err))
	} else {
		resp.Body.Close()
	}
	c.token = ""
}

// setAuth attaches the session token only if one is currently held
func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("jwttoken", c.token)
	}
}

func (c *Client) doGet(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.host+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.doRequest(req, dest)
}

func (c *Client) doPostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doRequest(req, dest)
}

func (c *Client) doRequest(req *http.Request, dest interface{}) error {
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return &AuthError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("authentication failed (status %d): %s", resp.StatusCode, string(body)),
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
