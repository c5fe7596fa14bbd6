package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// UserHeader carries the authenticated caller. The auth proxy in front of the
// server sets it; the server trusts it.
const UserHeader = "X-User-ID"

// Client talks to the board server over HTTP and implements Adapter.
type Client struct {
	baseURL string
	userID  string
	http    *http.Client
}

var _ Adapter = (*Client)(nil)

// NewClient returns a client for the server at baseURL acting as userID.
func NewClient(baseURL, userID string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		userID:  userID,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("%s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set(UserHeader, c.userID)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb ErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return resp.StatusCode, errorFromBody(resp.StatusCode, eb)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

// Join makes the client's user a member of workspaceID.
func (c *Client) Join(ctx context.Context, workspaceID string) (*Member, error) {
	var m Member
	if _, err := c.do(ctx, http.MethodPost, "/workspaces/"+url.PathEscape(workspaceID)+"/members", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ResolveRoom returns the workspace's room, creating it if needed.
func (c *Client) ResolveRoom(ctx context.Context, workspaceID, conversationID string) (*Room, error) {
	var room Room
	in := map[string]string{"conversationId": conversationID}
	if _, err := c.do(ctx, http.MethodPost, "/workspaces/"+url.PathEscape(workspaceID)+"/room", in, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) ListShapes(ctx context.Context, room RoomContext) ([]Record, error) {
	var records []Record
	path := "/rooms/" + url.PathEscape(room.RoomID) + "/shapes"
	if room.RoomID == "" {
		path = "/workspaces/" + url.PathEscape(room.WorkspaceID) + "/shapes"
	}
	status, err := c.do(ctx, http.MethodGet, path, nil, &records)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, ErrNotLoaded
	}
	return records, nil
}

type createRequest struct {
	WorkspaceID    string `json:"workspaceId"`
	MemberID       string `json:"memberId"`
	ConversationID string `json:"conversationId,omitempty"`
	Body           string `json:"body"`
}

type createResponse struct {
	ID string `json:"id"`
}

func (c *Client) CreateShape(ctx context.Context, room RoomContext, body string) (string, error) {
	var out createResponse
	in := createRequest{
		WorkspaceID:    room.WorkspaceID,
		MemberID:       room.MemberID,
		ConversationID: room.ConversationID,
		Body:           body,
	}
	if _, err := c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(room.RoomID)+"/shapes", in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) UpdateShape(ctx context.Context, id, body string) error {
	_, err := c.do(ctx, http.MethodPut, "/shapes/"+url.PathEscape(id), map[string]string{"body": body}, nil)
	return err
}

func (c *Client) DeleteShape(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/shapes/"+url.PathEscape(id), nil, nil)
	return err
}

// Watch subscribes to the room's change feed and calls fn for every event
// until ctx is done or the connection drops.
func (c *Client) Watch(ctx context.Context, roomID string, fn func(Event)) error {
	wsURL, err := url.Parse(c.baseURL + "/rooms/" + url.PathEscape(roomID) + "/events")
	if err != nil {
		return fmt.Errorf("watch room %s: %w", roomID, err)
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	header := http.Header{}
	if c.userID != "" {
		header.Set(UserHeader, c.userID)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		return fmt.Errorf("watch room %s: %w", roomID, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	log.Printf("[STORE] Watching room %s", roomID)
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("watch room %s: %w", roomID, err)
		}
		fn(ev)
	}
}

// IsNotLoaded reports whether err means the snapshot is not available yet.
func IsNotLoaded(err error) bool { return errors.Is(err, ErrNotLoaded) }
