// Package store holds the shape persistence boundary: the records the drawing
// engine reads and writes, the Adapter it calls, and the backends and access
// rules behind it.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("store: not found")
	ErrRoomNotFound    = errors.New("store: room does not exist")
	ErrUnauthenticated = errors.New("store: unauthenticated")
	ErrEmptyBody       = errors.New("store: shape is required")
	// ErrNotLoaded means there is no snapshot to show yet: the caller is not
	// signed in or the room cannot be resolved.
	ErrNotLoaded = errors.New("store: shapes not loaded")
)

// RoomContext identifies where an engine's shapes live and who is drawing.
type RoomContext struct {
	RoomID         string `json:"roomId"`
	WorkspaceID    string `json:"workspaceId"`
	MemberID       string `json:"memberId"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Record is one persisted shape. Body is the encoded shape and is opaque here.
type Record struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"roomId"`
	WorkspaceID    string    `json:"workspaceId"`
	MemberID       string    `json:"memberId"`
	ConversationID string    `json:"conversationId,omitempty"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Room struct {
	ID             string `json:"id"`
	WorkspaceID    string `json:"workspaceId"`
	MemberID       string `json:"memberId"`
	ConversationID string `json:"conversationId,omitempty"`
}

type Member struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`
	UserID      string `json:"userId"`
}

// Adapter is the drawing engine's only path to durable storage.
type Adapter interface {
	// ListShapes returns every record in the room, or ErrNotLoaded.
	ListShapes(ctx context.Context, room RoomContext) ([]Record, error)
	// CreateShape persists a new body and returns its identity.
	CreateShape(ctx context.Context, room RoomContext, body string) (string, error)
	UpdateShape(ctx context.Context, id, body string) error
	DeleteShape(ctx context.Context, id string) error
}

// Backend is raw storage with no access rules.
type Backend interface {
	RoomByWorkspace(ctx context.Context, workspaceID string) (*Room, error)
	Room(ctx context.Context, roomID string) (*Room, error)
	// CreateRoom stores room unless the workspace already has one, in which
	// case the existing room is returned.
	CreateRoom(ctx context.Context, room Room) (*Room, error)

	Member(ctx context.Context, workspaceID, userID string) (*Member, error)
	AddMember(ctx context.Context, workspaceID, userID string) (*Member, error)

	ListShapes(ctx context.Context, roomID string) ([]Record, error)
	Shape(ctx context.Context, id string) (*Record, error)
	InsertShape(ctx context.Context, rec Record) (string, error)
	PatchShape(ctx context.Context, id, body string) error
	DeleteShape(ctx context.Context, id string) error
}
