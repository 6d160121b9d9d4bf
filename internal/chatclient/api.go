// Package chatclient talks to a pairchat server: REST calls and the push
// channel.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vovakirdan/pairchat/internal/proto"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Client calls the REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a REST client for the server at baseURL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the bearer token.
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Register creates an account and keeps its token.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/register", nil, credentials{username, password}, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// Login authenticates and keeps the token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", nil, credentials{username, password}, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// SearchUsers finds users by name.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]proto.UserRef, error) {
	var users []proto.UserRef
	err := c.do(ctx, http.MethodGet, "/api/users/search", url.Values{"q": {query}}, nil, &users)
	return users, err
}

// ListChats returns the caller's chats, newest first.
func (c *Client) ListChats(ctx context.Context) ([]proto.ChatSummary, error) {
	var chats []proto.ChatSummary
	err := c.do(ctx, http.MethodGet, "/api/chats", nil, nil, &chats)
	return chats, err
}

// GetChat returns one chat.
func (c *Client) GetChat(ctx context.Context, chatID string) (proto.ChatSummary, error) {
	var chat proto.ChatSummary
	err := c.do(ctx, http.MethodGet, "/api/chats/"+url.PathEscape(chatID), nil, nil, &chat)
	return chat, err
}

// CreateChat opens a chat with recipientID.
func (c *Client) CreateChat(ctx context.Context, recipientID string) (proto.ChatSummary, error) {
	var chat proto.ChatSummary
	err := c.do(ctx, http.MethodPost, "/api/chats", nil, proto.CreateChatRequest{RecipientID: recipientID}, &chat)
	return chat, err
}

// SendMessage posts a message. recipientID lets the server repair a stale
// chat reference.
func (c *Client) SendMessage(ctx context.Context, chatID string, req proto.SendMessageRequest) (proto.Message, error) {
	var msg proto.Message
	err := c.do(ctx, http.MethodPost, "/api/chats/"+url.PathEscape(chatID)+"/messages", nil, req, &msg)
	return msg, err
}

// ListMessages returns a page of history, oldest first.
func (c *Client) ListMessages(ctx context.Context, chatID string, limit int, before string) ([]proto.Message, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if before != "" {
		query.Set("before", before)
	}
	var msgs []proto.Message
	err := c.do(ctx, http.MethodGet, "/api/chats/"+url.PathEscape(chatID)+"/messages", query, nil, &msgs)
	return msgs, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var body proto.ErrorResponse
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			apiErr.Code = body.Code
			apiErr.Message = body.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
