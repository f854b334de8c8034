// Package cache keeps the recent votes sidebar in Redis between requests.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"postforum/metrics"
	"postforum/models"
)

const recentVotesKey = "postforum:recent_votes"

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, address, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RecentVotes stores one JSON entry per limit in a single hash so that a vote
// change drops every cached size at once.
type RecentVotes struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRecentVotes(client redis.Cmdable, ttl time.Duration) *RecentVotes {
	return &RecentVotes{client: client, ttl: ttl}
}

func (c *RecentVotes) Get(ctx context.Context, limit int) ([]models.RecentVote, bool, error) {
	raw, err := c.client.HGet(ctx, recentVotesKey, strconv.Itoa(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecentVotesCache.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.RecentVotesCache.WithLabelValues("error").Inc()
		return nil, false, err
	}

	var votes []models.RecentVote
	if err := json.Unmarshal(raw, &votes); err != nil {
		metrics.RecentVotesCache.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("decode recent votes: %w", err)
	}
	metrics.RecentVotesCache.WithLabelValues("hit").Inc()
	return votes, true, nil
}

func (c *RecentVotes) Set(ctx context.Context, limit int, votes []models.RecentVote) error {
	raw, err := json.Marshal(votes)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, recentVotesKey, strconv.Itoa(limit), raw)
	if c.ttl > 0 {
		pipe.Expire(ctx, recentVotesKey, c.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RecentVotes) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, recentVotesKey).Err()
}
