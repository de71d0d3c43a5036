// Package api is the client for the debate CRUD backend. All calls are
// context-bound; non-2xx responses map onto the shared error taxonomy so
// callers can branch with errors.Is instead of status codes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/verbo-app/roomsync/internal/debate"
	"github.com/verbo-app/roomsync/internal/shared"
	"golang.org/x/oauth2"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	BaseURL string
	Token   oauth2.TokenSource
	Timeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	token   oauth2.TokenSource
	log     *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		token:   cfg.Token,
		log:     log.With("component", "api"),
	}
}

// StaticToken builds a token source from a fixed bearer token. Session
// issuance happens elsewhere; the engine only consumes the credential.
func StaticToken(token string) oauth2.TokenSource {
	if token == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
}

func (c *Client) Debate(ctx context.Context, id string) (*debate.Debate, error) {
	var d debate.Debate
	if err := c.do(ctx, http.MethodGet, "/debates/"+url.PathEscape(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) Participants(ctx context.Context, debateID string) ([]debate.Participant, error) {
	var raw json.RawMessage
	path := "/debates/" + url.PathEscape(debateID) + "/participants"
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeParticipants(raw)
}

type joinRequest struct {
	UserID string      `json:"userId"`
	Side   debate.Side `json:"side"`
}

// Join registers (or re-registers) the user on a side. The backend treats a
// join for an existing participant as a side update, which is how the
// one-shot side switch travels over the wire.
func (c *Client) Join(ctx context.Context, debateID, userID string, side debate.Side) error {
	path := "/debates/" + url.PathEscape(debateID) + "/join"
	return c.do(ctx, http.MethodPost, path, joinRequest{UserID: userID, Side: side}, nil)
}

type leaveRequest struct {
	UserID string `json:"userId"`
}

func (c *Client) Leave(ctx context.Context, debateID, userID string) error {
	path := "/debates/" + url.PathEscape(debateID) + "/leave"
	return c.do(ctx, http.MethodPost, path, leaveRequest{UserID: userID}, nil)
}

type updateDebateRequest struct {
	Status debate.Status `json:"status"`
}

func (c *Client) UpdateStatus(ctx context.Context, debateID string, status debate.Status) error {
	return c.do(ctx, http.MethodPut, "/debates/"+url.PathEscape(debateID), updateDebateRequest{Status: status}, nil)
}

func (c *Client) RecordStats(ctx context.Context, rec debate.StatsRecord) error {
	return c.do(ctx, http.MethodPost, "/debate-stats", rec, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", shared.NewID("req_"))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		tok, err := c.token.Token()
		if err != nil {
			return fmt.Errorf("token source: %w", err)
		}
		tok.SetAuthHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(unwrapEnvelope(data), out)
}

// unwrapEnvelope tolerates the backend's optional {success, data} wrapper.
func unwrapEnvelope(body []byte) []byte {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
		return env.Data
	}
	return body
}

// decodeParticipants accepts both a bare array and the keyed
// {"participants": [...]} shape different endpoints return.
func decodeParticipants(raw json.RawMessage) ([]debate.Participant, error) {
	var list []debate.Participant
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var keyed struct {
		Participants []debate.Participant `json:"participants"`
	}
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	return keyed.Participants, nil
}

func decodeError(status int, body []byte) error {
	apiErr := &shared.APIError{Status: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		var wrapped struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &wrapped)
		if wrapped.Message != "" {
			apiErr.Message = wrapped.Message
		} else if wrapped.Error != "" {
			apiErr.Message = wrapped.Error
		} else {
			apiErr.Message = http.StatusText(status)
		}
	}
	return apiErr
}
