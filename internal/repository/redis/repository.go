// Package redis provides a Redis/Valkey implementation of the repository interface
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/navikt/zmeet/internal/config"
	"github.com/navikt/zmeet/internal/models"
	"github.com/redis/go-redis/v9"
)

// Common errors
var (
	ErrNotFound = models.ErrNotFound
)

// Repository implements the repository interface with Redis storage
type Repository struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRepository creates a new Redis repository
func NewRepository(cfg config.RedisConfig) (*Repository, error) {
	var client *redis.Client

	// Use URI if provided, otherwise build connection from individual parameters
	if cfg.URI != "" {
		opt, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URI: %w", err)
		}

		// Use DB from config if not specified in the URI
		if opt.DB == 0 {
			opt.DB = cfg.DB
		}

		// Use password from config if not in URI or if empty in URI
		if opt.Password == "" && cfg.Password != "" {
			opt.Password = cfg.Password
		}

		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Repository{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.MeetingTTL,
	}, nil
}

// Ping checks the Redis connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *Repository) Close() error {
	return r.client.Close()
}

// meetingKey returns the Redis key for a meeting
func (r *Repository) meetingKey(id string) string {
	return fmt.Sprintf("%smeetings:%s", r.keyPrefix, id)
}

// sessionKey returns the Redis key mapping a session id to its meeting
func (r *Repository) sessionKey(sessionID string) string {
	return fmt.Sprintf("%ssessions:%s", r.keyPrefix, sessionID)
}

// notesKey returns the Redis key for meeting notes
func (r *Repository) notesKey(id string) string {
	return fmt.Sprintf("%snotes:%s", r.keyPrefix, id)
}

// meetingNotesKey returns the Redis key of the set of notes ids belonging to a meeting
func (r *Repository) meetingNotesKey(meetingID string) string {
	return fmt.Sprintf("%smeeting_notes:%s", r.keyPrefix, meetingID)
}

// SaveMeeting stores the meeting snapshot and keeps the session index in step
func (r *Repository) SaveMeeting(ctx context.Context, meeting *models.Meeting) error {
	data, err := json.Marshal(meeting)
	if err != nil {
		return fmt.Errorf("failed to marshal meeting: %w", err)
	}

	previous, err := r.GetMeeting(ctx, meeting.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.meetingKey(meeting.ID), data, r.ttl)
		if previous != nil && previous.SessionID != "" && previous.SessionID != meeting.SessionID {
			pipe.Del(ctx, r.sessionKey(previous.SessionID))
		}
		if meeting.SessionID != "" {
			pipe.Set(ctx, r.sessionKey(meeting.SessionID), meeting.ID, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save meeting: %w", err)
	}

	return nil
}

// GetMeeting retrieves a meeting by ID
func (r *Repository) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	data, err := r.client.Get(ctx, r.meetingKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	var meeting models.Meeting
	if err := json.Unmarshal(data, &meeting); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meeting: %w", err)
	}

	return &meeting, nil
}

// GetMeetingBySession retrieves the meeting currently holding a session id
func (r *Repository) GetMeetingBySession(ctx context.Context, sessionID string) (*models.Meeting, error) {
	id, err := r.client.Get(ctx, r.sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	meeting, err := r.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}

	// The index can outlive a session that was closed by another writer
	if meeting.SessionID != sessionID {
		return nil, ErrNotFound
	}
	return meeting, nil
}

// ListMeetings returns all meetings with a live session
func (r *Repository) ListMeetings(ctx context.Context) ([]*models.Meeting, error) {
	all, err := r.ListAllMeetings(ctx)
	if err != nil {
		return nil, err
	}

	meetings := make([]*models.Meeting, 0, len(all))
	for _, meeting := range all {
		if meeting.Status.IsLive() {
			meetings = append(meetings, meeting)
		}
	}
	return meetings, nil
}

// ListAllMeetings returns all meetings, including ended ones
func (r *Repository) ListAllMeetings(ctx context.Context) ([]*models.Meeting, error) {
	keys, err := r.client.Keys(ctx, r.meetingKey("*")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}

	if len(keys) == 0 {
		return []*models.Meeting{}, nil
	}

	// Use MGET to retrieve all meeting data in a single roundtrip
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting data: %w", err)
	}

	meetings := make([]*models.Meeting, 0, len(values))
	for _, v := range values {
		strData, ok := v.(string)
		if !ok {
			continue
		}

		var meeting models.Meeting
		if err := json.Unmarshal([]byte(strData), &meeting); err != nil {
			continue
		}
		meetings = append(meetings, &meeting)
	}

	sort.Slice(meetings, func(i, j int) bool {
		if meetings[i].StartTime.Equal(meetings[j].StartTime) {
			return meetings[i].ID < meetings[j].ID
		}
		return meetings[i].StartTime.Before(meetings[j].StartTime)
	})

	return meetings, nil
}

// DeleteMeeting removes a meeting, its session index and its notes by ID
func (r *Repository) DeleteMeeting(ctx context.Context, id string) error {
	meeting, err := r.GetMeeting(ctx, id)
	if err != nil {
		return err
	}

	notesIDs, err := r.client.SMembers(ctx, r.meetingNotesKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to list meeting notes: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.meetingKey(id))
	if meeting.SessionID != "" {
		pipe.Del(ctx, r.sessionKey(meeting.SessionID))
	}
	for _, notesID := range notesIDs {
		pipe.Del(ctx, r.notesKey(notesID))
	}
	pipe.Del(ctx, r.meetingNotesKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}

	return nil
}

// SaveNotes stores meeting notes with the meeting TTL and indexes them under their meeting
func (r *Repository) SaveNotes(ctx context.Context, notes *models.MeetingNotes) error {
	data, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("failed to marshal notes: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.notesKey(notes.ID), data, r.ttl)
		pipe.SAdd(ctx, r.meetingNotesKey(notes.MeetingID), notes.ID)
		if r.ttl > 0 {
			pipe.Expire(ctx, r.meetingNotesKey(notes.MeetingID), r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save notes: %w", err)
	}
	return nil
}

// GetNotes retrieves meeting notes by ID
func (r *Repository) GetNotes(ctx context.Context, id string) (*models.MeetingNotes, error) {
	data, err := r.client.Get(ctx, r.notesKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notes: %w", err)
	}

	var notes models.MeetingNotes
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notes: %w", err)
	}
	return &notes, nil
}
