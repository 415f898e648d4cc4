// Package bluesky posts service alerts to a Bluesky account over the AT
// Protocol XRPC endpoints.
package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/alertbot/internal/alert"
)

const defaultPDS = "https://bsky.social"

// maxPostLen is the hard cap Bluesky enforces on post text. Alert text
// beyond it is truncated, not rejected.
const maxPostLen = 300

// ErrNotLoggedIn is returned when PostAlert is called without a live
// session. Callers must establish one via EnsureSession first; skipping
// the login step is a contract violation, not a condition to retry.
var ErrNotLoggedIn = errors.New("bluesky: not logged in")

// session is the identity produced by createSession. It is owned by the
// client and replaced wholesale on re-login.
type session struct {
	accessJwt string
	did       string
}

// Client is a Bluesky posting client with idempotent login. A warm
// process reuses the session across invocations; an auth fault observed
// during posting invalidates it so the next cycle logs in again.
type Client struct {
	pds        string
	identifier string
	password   string
	httpClient *http.Client
	logger     log.Logger

	mu   sync.Mutex
	sess *session
}

// New creates a Bluesky client. If pds is empty it defaults to
// https://bsky.social. Use an App Password, not the account password.
func New(pds, identifier, password string, logger log.Logger) *Client {
	if pds == "" {
		pds = defaultPDS
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		pds:        pds,
		identifier: identifier,
		password:   password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// EnsureSession logs in if no session is held. It is safe to call once
// per cycle; with a live session it is a no-op.
func (c *Client) EnsureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil {
		return nil
	}

	body := map[string]string{
		"identifier": c.identifier,
		"password":   c.password,
	}

	var resp struct {
		AccessJwt string `json:"accessJwt"`
		DID       string `json:"did"`
		Handle    string `json:"handle"`
	}
	if err := c.post(ctx, "/xrpc/com.atproto.server.createSession", "", body, &resp); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	c.sess = &session{accessJwt: resp.AccessJwt, did: resp.DID}
	c.logger.Info(ctx, "bluesky session established", "did", resp.DID, "handle", resp.Handle)
	return nil
}

// postRecord is the app.bsky.feed.post record body.
type postRecord struct {
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

type createRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

// PostAlert publishes the alert text as a feed post under the session
// identity, truncated to the platform cap. It returns ErrNotLoggedIn if
// no session is held. On an auth fault the session is dropped so the
// next EnsureSession re-establishes it.
func (c *Client) PostAlert(ctx context.Context, a alert.Alert) error {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	if sess == nil {
		return ErrNotLoggedIn
	}

	text := truncate(a.Text, maxPostLen)
	body := createRecordRequest{
		Repo:       sess.did,
		Collection: "app.bsky.feed.post",
		Record: postRecord{
			Text:      text,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := c.post(ctx, "/xrpc/com.atproto.repo.createRecord", sess.accessJwt, body, nil); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.authFault() {
			c.invalidate(sess)
			c.logger.Warn(ctx, "bluesky session invalidated after auth fault", "status", apiErr.status)
		}
		return fmt.Errorf("create record: %w", err)
	}

	c.logger.Info(ctx, "alert posted", "alert_id", a.ID, "text", text)
	return nil
}

// invalidate drops the session, but only if it is still the one the
// failing call used. A concurrent re-login must not be discarded.
func (c *Client) invalidate(old *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == old {
		c.sess = nil
	}
}

// apiError is a non-2xx XRPC response.
type apiError struct {
	status int
	code   string
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("bluesky API error (status %d, %s): %s", e.status, e.code, e.body)
}

func (e *apiError) authFault() bool {
	return e.status == http.StatusUnauthorized || e.code == "ExpiredToken" || e.code == "InvalidToken"
}

func (c *Client) post(ctx context.Context, path, token string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pds+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: pds is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var xrpcErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &xrpcErr)
		return &apiError{status: resp.StatusCode, code: xrpcErr.Error, body: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// truncate caps s at limit bytes without tearing a multi-byte rune at
// the cut point, so the result is always valid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
