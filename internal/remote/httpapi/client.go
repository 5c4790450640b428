// Package httpapi implements the remote contract over stashd's HTTP API.
//
// One Client serves both capabilities: it is the remote.AuthService that
// obtains and refreshes tokens, and the remote.DataService that spends them.
// The token pair lives in memory on the Client, guarded by a mutex, so the
// data calls always send whatever session the auth calls last established.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sakif/stash/internal/remote"
)

var (
	_ remote.DataService = (*Client)(nil)
	_ remote.AuthService = (*Client)(nil)
)

// Client talks to a stashd server.
type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	session remote.Session // zero value until a sign-in or refresh succeeds
}

// New creates a Client for the stashd instance at baseURL
// (e.g. "http://localhost:8080"). A trailing slash is tolerated.
func New(baseURL string) *Client {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// --- remote.AuthService ---

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

func (c *Client) SignUp(ctx context.Context, email, password, name string) (*remote.Session, error) {
	return c.sessionCall(ctx, "/auth/signup", credentialsBody{Email: email, Password: password, Name: name})
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*remote.Session, error) {
	return c.sessionCall(ctx, "/auth/signin", credentialsBody{Email: email, Password: password})
}

// SignOut tells the server and drops the token pair. The local session is
// cleared even if the request fails; an unreachable server must not keep a
// client signed in.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/signout", nil, nil, nil)

	c.mu.Lock()
	c.session = remote.Session{}
	c.mu.Unlock()

	return err
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*remote.Session, error) {
	body := struct {
		RefreshToken string `json:"refresh_token"`
	}{RefreshToken: refreshToken}
	return c.sessionCall(ctx, "/auth/refresh", body)
}

// Session asks the server who the current token belongs to. The tokens
// themselves never leave the client, so the response is merged with the
// stored pair.
func (c *Client) Session(ctx context.Context) (*remote.Session, error) {
	var info struct {
		UserID   string `json:"user_id"`
		UserName string `json:"user_name"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, nil, &info); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.UserID = info.UserID
	c.session.UserName = info.UserName
	sess := c.session
	return &sess, nil
}

// sessionCall posts body to path, stores the returned session and hands a
// copy back.
func (c *Client) sessionCall(ctx context.Context, path string, body any) (*remote.Session, error) {
	var sess remote.Session
	if err := c.do(ctx, http.MethodPost, path, nil, body, &sess); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	return &sess, nil
}

// --- remote.DataService ---
//
// The userID parameters of the contract are not sent: the server derives
// identity from the bearer token and scopes every query itself.

func (c *Client) ListItems(ctx context.Context, _ string, page remote.Page) ([]remote.ItemRow, error) {
	var items []remote.ItemRow
	if err := c.do(ctx, http.MethodGet, "/api/items", pageQuery(page), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) ListSharedWith(ctx context.Context, _ string, page remote.Page) ([]remote.ShareRow, error) {
	var shares []remote.ShareRow
	if err := c.do(ctx, http.MethodGet, "/api/shared", pageQuery(page), nil, &shares); err != nil {
		return nil, err
	}
	return shares, nil
}

func (c *Client) InsertItem(ctx context.Context, row remote.ItemRow) (remote.ItemRow, error) {
	var stored remote.ItemRow
	if err := c.do(ctx, http.MethodPost, "/api/items", nil, row, &stored); err != nil {
		return remote.ItemRow{}, err
	}
	return stored, nil
}

func (c *Client) UpdateItem(ctx context.Context, id, _ string, upd remote.ItemUpdate) error {
	return c.do(ctx, http.MethodPatch, "/api/items/"+url.PathEscape(id), nil, upd, nil)
}

func (c *Client) DeleteItem(ctx context.Context, id, _ string) error {
	return c.do(ctx, http.MethodDelete, "/api/items/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) InsertShare(ctx context.Context, itemID, _, recipientID string) error {
	body := struct {
		SharedWith string `json:"shared_with"`
	}{SharedWith: recipientID}
	return c.do(ctx, http.MethodPost, "/api/items/"+url.PathEscape(itemID)+"/share", nil, body, nil)
}

func (c *Client) DeleteShares(ctx context.Context, itemID, _ string) error {
	return c.do(ctx, http.MethodDelete, "/api/items/"+url.PathEscape(itemID)+"/shares", nil, nil, nil)
}

func pageQuery(page remote.Page) url.Values {
	q := url.Values{}
	if page.Limit > 0 {
		q.Set("limit", strconv.Itoa(page.Limit))
	}
	if page.Offset > 0 {
		q.Set("offset", strconv.Itoa(page.Offset))
	}
	return q
}

// do performs one request. body (if non-nil) is sent as JSON; out (if
// non-nil) receives the decoded response. Non-2xx responses decode into a
// *remote.Error carrying the server's code and message.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpapi: encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("httpapi: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.Lock()
	token := c.session.AccessToken
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("httpapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("httpapi: decoding response for %s %s: %w", method, path, err)
		}
	}
	return nil
}

// decodeError turns an error response into a *remote.Error. A body that
// isn't the expected shape still produces a usable error from the status.
func decodeError(resp *http.Response) error {
	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Error == "" {
		return &remote.Error{
			Code:    strconv.Itoa(resp.StatusCode),
			Message: http.StatusText(resp.StatusCode),
		}
	}
	return &remote.Error{Code: apiErr.Error, Message: apiErr.Message}
}
