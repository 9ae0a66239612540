package tracking

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"
)

// ValkeyCache stores progress records in Valkey. Records live under
// per-record keys, with a per-user and per-book set indexing them so
// listings don't need a keyspace scan.
type ValkeyCache struct {
	client valkey.Client
}

// NewValkeyCache connects to Valkey and verifies the connection.
func NewValkeyCache(ctx context.Context, addr, password string) (*ValkeyCache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		Password:    password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	pingCmd := client.B().Ping().Build()
	if err := client.Do(ctx, pingCmd).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey: %w", err)
	}

	return &ValkeyCache{client: client}, nil
}

func (c *ValkeyCache) Close() {
	c.client.Close()
}

func progressKey(userID string, key ProgressKey) string {
	return fmt.Sprintf("progress:%s:%s", userID, key.String())
}

func userIndexKey(userID string) string {
	return fmt.Sprintf("progress_index:%s", userID)
}

func bookIndexKey(userID, bookID string) string {
	return fmt.Sprintf("progress_index:%s:%s", userID, bookID)
}

func bookProgressKey(userID, bookID string) string {
	return fmt.Sprintf("book_progress:%s:%s", userID, bookID)
}

func (c *ValkeyCache) GetProgress(ctx context.Context, userID string, key ProgressKey) (*AudioProgress, error) {
	getCmd := c.client.B().Get().Key(progressKey(userID, key)).Build()

	result := c.client.Do(ctx, getCmd)
	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read progress data: %w", err)
	}

	rec := new(AudioProgress)
	if err := json.Unmarshal([]byte(data), rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}

	return rec, nil
}

func (c *ValkeyCache) PutProgress(ctx context.Context, userID string, rec *AudioProgress) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	setCmd := c.client.B().Set().
		Key(progressKey(userID, rec.ProgressKey)).
		Value(string(data)).
		Build()

	if err := c.client.Do(ctx, setCmd).Error(); err != nil {
		return fmt.Errorf("failed to store progress: %w", err)
	}

	member := rec.ProgressKey.String()

	saddUser := c.client.B().Sadd().Key(userIndexKey(userID)).Member(member).Build()
	if err := c.client.Do(ctx, saddUser).Error(); err != nil {
		return fmt.Errorf("failed to index progress: %w", err)
	}

	saddBook := c.client.B().Sadd().Key(bookIndexKey(userID, rec.BookID)).Member(member).Build()
	if err := c.client.Do(ctx, saddBook).Error(); err != nil {
		return fmt.Errorf("failed to index book progress: %w", err)
	}

	return nil
}

func (c *ValkeyCache) ListBookProgress(ctx context.Context, userID, bookID string) ([]*AudioProgress, error) {
	return c.listByIndex(ctx, userID, bookIndexKey(userID, bookID))
}

func (c *ValkeyCache) ListProgress(ctx context.Context, userID string) ([]*AudioProgress, error) {
	return c.listByIndex(ctx, userID, userIndexKey(userID))
}

func (c *ValkeyCache) listByIndex(ctx context.Context, userID, indexKey string) ([]*AudioProgress, error) {
	smembersCmd := c.client.B().Smembers().Key(indexKey).Build()

	members, err := c.client.Do(ctx, smembersCmd).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to read progress index: %w", err)
	}

	records := []*AudioProgress{}
	for _, member := range members {
		getCmd := c.client.B().Get().Key(fmt.Sprintf("progress:%s:%s", userID, member)).Build()

		result := c.client.Do(ctx, getCmd)
		if err := result.Error(); err != nil {
			if valkey.IsValkeyNil(err) {
				// Index entry outlived its record; skip it.
				continue
			}
			return nil, fmt.Errorf("failed to get progress: %w", err)
		}

		data, err := result.ToString()
		if err != nil {
			return nil, fmt.Errorf("failed to read progress data: %w", err)
		}

		rec := new(AudioProgress)
		if err := json.Unmarshal([]byte(data), rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func (c *ValkeyCache) GetBookProgress(ctx context.Context, userID, bookID string) (*BookProgress, error) {
	getCmd := c.client.B().Get().Key(bookProgressKey(userID, bookID)).Build()

	result := c.client.Do(ctx, getCmd)
	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get book progress: %w", err)
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read book progress data: %w", err)
	}

	bp := new(BookProgress)
	if err := json.Unmarshal([]byte(data), bp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal book progress: %w", err)
	}

	return bp, nil
}

func (c *ValkeyCache) PutBookProgress(ctx context.Context, userID string, bp *BookProgress) error {
	data, err := json.Marshal(bp)
	if err != nil {
		return fmt.Errorf("failed to marshal book progress: %w", err)
	}

	setCmd := c.client.B().Set().
		Key(bookProgressKey(userID, bp.BookID)).
		Value(string(data)).
		Build()

	if err := c.client.Do(ctx, setCmd).Error(); err != nil {
		return fmt.Errorf("failed to store book progress: %w", err)
	}

	return nil
}
