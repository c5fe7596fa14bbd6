package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

const keyPrefix = "roomboard:"

func roomKey(roomID string) string       { return keyPrefix + "room:" + roomID }
func roomShapesKey(roomID string) string { return keyPrefix + "room:" + roomID + ":shapes" }

func workspaceRoomKey(workspaceID string) string {
	return keyPrefix + "workspace:" + workspaceID + ":room"
}

func memberRedisKey(workspaceID, userID string) string {
	return keyPrefix + "workspace:" + workspaceID + ":member:" + userID
}
func shapeKey(id string) string { return keyPrefix + "shape:" + id }

// RedisBackend stores rooms and members as hashes and keeps each room's shape
// order in a list.
type RedisBackend struct {
	rdb *redis.Client
}

var _ Backend = (*RedisBackend)(nil)

func NewRedisBackend(rdb *redis.Client) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

// DialRedis connects and pings before handing back a backend.
func DialRedis(ctx context.Context, addr string, db int) (*RedisBackend, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	log.Printf("[STORE] Connected to redis at %s (db %d)", addr, db)
	return NewRedisBackend(rdb), nil
}

func (r *RedisBackend) Close() error { return r.rdb.Close() }

// Redis exposes the underlying client so other components can share the connection.
func (r *RedisBackend) Redis() *redis.Client { return r.rdb }

func (r *RedisBackend) RoomByWorkspace(ctx context.Context, workspaceID string) (*Room, error) {
	id, err := r.rdb.Get(ctx, workspaceRoomKey(workspaceID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup room for workspace %s: %w", workspaceID, err)
	}
	return r.Room(ctx, id)
}

func (r *RedisBackend) Room(ctx context.Context, roomID string) (*Room, error) {
	fields, err := r.rdb.HGetAll(ctx, roomKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return &Room{
		ID:             roomID,
		WorkspaceID:    fields["workspaceId"],
		MemberID:       fields["memberId"],
		ConversationID: fields["conversationId"],
	}, nil
}

func (r *RedisBackend) CreateRoom(ctx context.Context, room Room) (*Room, error) {
	if room.ID == "" {
		room.ID = ksuid.New().String()
	}
	claimed, err := r.rdb.SetNX(ctx, workspaceRoomKey(room.WorkspaceID), room.ID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("claim room for workspace %s: %w", room.WorkspaceID, err)
	}
	if !claimed {
		return r.RoomByWorkspace(ctx, room.WorkspaceID)
	}
	err = r.rdb.HSet(ctx, roomKey(room.ID), map[string]interface{}{
		"workspaceId":    room.WorkspaceID,
		"memberId":       room.MemberID,
		"conversationId": room.ConversationID,
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("store room %s: %w", room.ID, err)
	}
	return &room, nil
}

func (r *RedisBackend) Member(ctx context.Context, workspaceID, userID string) (*Member, error) {
	id, err := r.rdb.Get(ctx, memberRedisKey(workspaceID, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup member %s in %s: %w", userID, workspaceID, err)
	}
	return &Member{ID: id, WorkspaceID: workspaceID, UserID: userID}, nil
}

func (r *RedisBackend) AddMember(ctx context.Context, workspaceID, userID string) (*Member, error) {
	if _, err := r.rdb.SetNX(ctx, memberRedisKey(workspaceID, userID), uuid.NewString(), 0).Result(); err != nil {
		return nil, fmt.Errorf("add member %s to %s: %w", userID, workspaceID, err)
	}
	return r.Member(ctx, workspaceID, userID)
}

func (r *RedisBackend) ListShapes(ctx context.Context, roomID string) ([]Record, error) {
	ids, err := r.rdb.LRange(ctx, roomShapesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list shapes of room %s: %w", roomID, err)
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}
	cmds := make([]*redis.StringStringMapCmd, len(ids))
	_, err = r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, shapeKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load shapes of room %s: %w", roomID, err)
	}
	records := make([]Record, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		records = append(records, recordFromHash(ids[i], fields))
	}
	return records, nil
}

func (r *RedisBackend) Shape(ctx context.Context, id string) (*Record, error) {
	fields, err := r.rdb.HGetAll(ctx, shapeKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load shape %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	rec := recordFromHash(id, fields)
	return &rec, nil
}

func (r *RedisBackend) InsertShape(ctx context.Context, rec Record) (string, error) {
	rec.ID = ksuid.New().String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, shapeKey(rec.ID), map[string]interface{}{
			"roomId":         rec.RoomID,
			"workspaceId":    rec.WorkspaceID,
			"memberId":       rec.MemberID,
			"conversationId": rec.ConversationID,
			"body":           rec.Body,
			"createdAt":      rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		pipe.RPush(ctx, roomShapesKey(rec.RoomID), rec.ID)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("insert shape: %w", err)
	}
	return rec.ID, nil
}

func (r *RedisBackend) PatchShape(ctx context.Context, id, body string) error {
	n, err := r.rdb.Exists(ctx, shapeKey(id)).Result()
	if err != nil {
		return fmt.Errorf("patch shape %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := r.rdb.HSet(ctx, shapeKey(id), "body", body).Err(); err != nil {
		return fmt.Errorf("patch shape %s: %w", id, err)
	}
	return nil
}

func (r *RedisBackend) DeleteShape(ctx context.Context, id string) error {
	roomID, err := r.rdb.HGet(ctx, shapeKey(id), "roomId").Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete shape %s: %w", id, err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, shapeKey(id))
		pipe.LRem(ctx, roomShapesKey(roomID), 0, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete shape %s: %w", id, err)
	}
	return nil
}

func recordFromHash(id string, fields map[string]string) Record {
	created, _ := time.Parse(time.RFC3339Nano, fields["createdAt"])
	return Record{
		ID:             id,
		RoomID:         fields["roomId"],
		WorkspaceID:    fields["workspaceId"],
		MemberID:       fields["memberId"],
		ConversationID: fields["conversationId"],
		Body:           fields["body"],
		CreatedAt:      created,
	}
}
