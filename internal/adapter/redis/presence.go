package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "presence:device:"

// DevicePresence tracks device liveness with TTL keys. A heartbeat refreshes
// the key; a key that expired means the device missed its report-in window.
type DevicePresence struct {
	client *Client
	ttl    time.Duration
}

func NewDevicePresence(client *Client, ttl time.Duration) *DevicePresence {
	return &DevicePresence{
		client: client,
		ttl:    ttl,
	}
}

func presenceKey(deviceID uuid.UUID) string {
	return presenceKeyPrefix + deviceID.String()
}

// MarkOnline refreshes the device's presence key.
func (p *DevicePresence) MarkOnline(ctx context.Context, deviceID uuid.UUID) error {
	if err := p.client.rdb.Set(ctx, presenceKey(deviceID), "1", p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set presence key: %w", err)
	}
	return nil
}

// Online reports whether the device's presence key is still alive.
func (p *DevicePresence) Online(ctx context.Context, deviceID uuid.UUID) (bool, error) {
	err := p.client.rdb.Get(ctx, presenceKey(deviceID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get presence key: %w", err)
	}
	return true, nil
}

// OnlineCount returns the number of devices with a live presence key. SCAN
// keeps this safe on large keyspaces.
func (p *DevicePresence) OnlineCount(ctx context.Context) (int, error) {
	var count int
	iter := p.client.rdb.Scan(ctx, 0, presenceKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan presence keys: %w", err)
	}
	return count, nil
}
