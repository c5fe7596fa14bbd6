package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Service applies the membership gate and room resolution on top of a Backend.
// userID is the authenticated caller; an empty userID is unauthenticated.
type Service struct {
	backend Backend
}

func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

// ShapeQuery selects a room directly or through its workspace.
type ShapeQuery struct {
	RoomID      string
	WorkspaceID string
}

func (s *Service) member(ctx context.Context, userID, workspaceID string) (*Member, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	m, err := s.backend.Member(ctx, workspaceID, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Join makes userID a member of workspaceID. Joining twice returns the same member.
func (s *Service) Join(ctx context.Context, userID, workspaceID string) (*Member, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.backend.AddMember(ctx, workspaceID, userID)
}

// Member returns the caller's membership in workspaceID.
func (s *Service) Member(ctx context.Context, userID, workspaceID string) (*Member, error) {
	return s.member(ctx, userID, workspaceID)
}

// ResolveRoom returns the workspace's room, creating it on first access.
func (s *Service) ResolveRoom(ctx context.Context, userID, workspaceID, conversationID string) (*Room, error) {
	m, err := s.member(ctx, userID, workspaceID)
	if err != nil {
		return nil, err
	}
	room, err := s.backend.CreateRoom(ctx, Room{
		WorkspaceID:    workspaceID,
		MemberID:       m.ID,
		ConversationID: conversationID,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve room for workspace %s: %w", workspaceID, err)
	}
	return room, nil
}

// GetRoom returns the workspace's room without creating one.
func (s *Service) GetRoom(ctx context.Context, userID, workspaceID string) (*Room, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.backend.RoomByWorkspace(ctx, workspaceID)
}

// Room returns roomID if the caller belongs to its workspace.
func (s *Service) Room(ctx context.Context, userID, roomID string) (*Room, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	room, err := s.backend.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.member(ctx, userID, room.WorkspaceID); err != nil {
		return nil, err
	}
	return room, nil
}

// ListShapes returns the room's records. A caller that is not signed in, or a
// room that cannot be found, yields ErrNotLoaded rather than a failure.
func (s *Service) ListShapes(ctx context.Context, userID string, q ShapeQuery) ([]Record, error) {
	if userID == "" || (q.RoomID == "" && q.WorkspaceID == "") {
		return nil, ErrNotLoaded
	}
	var (
		room *Room
		err  error
	)
	if q.RoomID != "" {
		room, err = s.backend.Room(ctx, q.RoomID)
	} else {
		room, err = s.backend.RoomByWorkspace(ctx, q.WorkspaceID)
	}
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotLoaded
	}
	if err != nil {
		return nil, err
	}
	return s.backend.ListShapes(ctx, room.ID)
}

// CreateShape stores a new shape. rec.MemberID must be the caller's own
// membership in rec.WorkspaceID, and the room must belong to that workspace.
func (s *Service) CreateShape(ctx context.Context, userID string, rec Record) (string, error) {
	if userID == "" {
		return "", ErrUnauthenticated
	}
	if strings.TrimSpace(rec.Body) == "" {
		return "", ErrEmptyBody
	}
	m, err := s.member(ctx, userID, rec.WorkspaceID)
	if err != nil {
		return "", err
	}
	if m.ID != rec.MemberID {
		return "", ErrUnauthenticated
	}
	room, err := s.backend.Room(ctx, rec.RoomID)
	if errors.Is(err, ErrNotFound) {
		return "", ErrRoomNotFound
	}
	if err != nil {
		return "", err
	}
	if room.WorkspaceID != rec.WorkspaceID {
		return "", ErrUnauthenticated
	}
	rec.RoomID = room.ID
	rec.MemberID = m.ID
	id, err := s.backend.InsertShape(ctx, rec)
	if err != nil {
		return "", err
	}
	log.Printf("[STORE] Shape %s created in room %s by %s", id, room.ID, m.ID)
	return id, nil
}

// authorize checks that the caller belongs to the workspace owning shape id.
func (s *Service) authorize(ctx context.Context, userID, id string) (*Record, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	rec, err := s.backend.Shape(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.member(ctx, userID, rec.WorkspaceID); err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateShape replaces the body of shape id. Last write wins.
func (s *Service) UpdateShape(ctx context.Context, userID, id, body string) (*Record, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}
	rec, err := s.authorize(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.backend.PatchShape(ctx, id, body); err != nil {
		return nil, err
	}
	rec.Body = body
	return rec, nil
}

// DeleteShape removes shape id and returns the record it removed.
func (s *Service) DeleteShape(ctx context.Context, userID, id string) (*Record, error) {
	rec, err := s.authorize(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.backend.DeleteShape(ctx, id); err != nil {
		return nil, err
	}
	log.Printf("[STORE] Shape %s deleted from room %s", id, rec.RoomID)
	return rec, nil
}

// Local binds a Service to one signed-in user so it can serve as an engine's Adapter.
type Local struct {
	svc    *Service
	userID string
}

var _ Adapter = (*Local)(nil)

func NewLocal(svc *Service, userID string) *Local {
	return &Local{svc: svc, userID: userID}
}

func (l *Local) ListShapes(ctx context.Context, room RoomContext) ([]Record, error) {
	return l.svc.ListShapes(ctx, l.userID, ShapeQuery{RoomID: room.RoomID, WorkspaceID: room.WorkspaceID})
}

func (l *Local) CreateShape(ctx context.Context, room RoomContext, body string) (string, error) {
	return l.svc.CreateShape(ctx, l.userID, Record{
		RoomID:         room.RoomID,
		WorkspaceID:    room.WorkspaceID,
		MemberID:       room.MemberID,
		ConversationID: room.ConversationID,
		Body:           body,
	})
}

func (l *Local) UpdateShape(ctx context.Context, id, body string) error {
	_, err := l.svc.UpdateShape(ctx, l.userID, id, body)
	return err
}

func (l *Local) DeleteShape(ctx context.Context, id string) error {
	_, err := l.svc.DeleteShape(ctx, l.userID, id)
	return err
}
