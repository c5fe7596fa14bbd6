package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// MemoryBackend keeps everything in process. Shapes keep insertion order per room.
type MemoryBackend struct {
	rooms      map[string]*Room
	workspaces map[string]string // workspaceID -> roomID
	members    map[string]*Member
	shapes     map[string]*Record
	roomShapes map[string][]string
	mu         sync.RWMutex
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		rooms:      make(map[string]*Room),
		workspaces: make(map[string]string),
		members:    make(map[string]*Member),
		shapes:     make(map[string]*Record),
		roomShapes: make(map[string][]string),
	}
}

var _ Backend = (*MemoryBackend)(nil)

func memberKey(workspaceID, userID string) string { return workspaceID + "/" + userID }

func (m *MemoryBackend) RoomByWorkspace(_ context.Context, workspaceID string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.workspaces[workspaceID]
	if !ok {
		return nil, ErrNotFound
	}
	room := *m.rooms[id]
	return &room, nil
}

func (m *MemoryBackend) Room(_ context.Context, roomID string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	room := *r
	return &room, nil
}

func (m *MemoryBackend) CreateRoom(_ context.Context, room Room) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.workspaces[room.WorkspaceID]; ok {
		existing := *m.rooms[id]
		return &existing, nil
	}
	if room.ID == "" {
		room.ID = ksuid.New().String()
	}
	m.rooms[room.ID] = &room
	m.workspaces[room.WorkspaceID] = room.ID
	created := room
	return &created, nil
}

func (m *MemoryBackend) Member(_ context.Context, workspaceID, userID string) (*Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.members[memberKey(workspaceID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	out := *mem
	return &out, nil
}

func (m *MemoryBackend) AddMember(_ context.Context, workspaceID, userID string) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memberKey(workspaceID, userID)
	if mem, ok := m.members[key]; ok {
		out := *mem
		return &out, nil
	}
	mem := &Member{ID: uuid.NewString(), WorkspaceID: workspaceID, UserID: userID}
	m.members[key] = mem
	out := *mem
	return &out, nil
}

func (m *MemoryBackend) ListShapes(_ context.Context, roomID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.roomShapes[roomID]
	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, *m.shapes[id])
	}
	return records, nil
}

func (m *MemoryBackend) Shape(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.shapes[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (m *MemoryBackend) InsertShape(_ context.Context, rec Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = ksuid.New().String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.shapes[rec.ID] = &rec
	m.roomShapes[rec.RoomID] = append(m.roomShapes[rec.RoomID], rec.ID)
	return rec.ID, nil
}

func (m *MemoryBackend) PatchShape(_ context.Context, id, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.shapes[id]
	if !ok {
		return ErrNotFound
	}
	rec.Body = body
	return nil
}

func (m *MemoryBackend) DeleteShape(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.shapes[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.shapes, id)
	ids := m.roomShapes[rec.RoomID]
	for i, sid := range ids {
		if sid == id {
			m.roomShapes[rec.RoomID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
