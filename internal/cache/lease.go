// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// lease.go provides cross-process job leases so that two replicas never run
// the same job at once. A lease is a key set with NX and a TTL; only the
// holder's token can renew or release it.
package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	leaseKeyPrefix = "lease:job:"

	// DefaultLeaseTTL bounds how long a crashed holder blocks other replicas.
	DefaultLeaseTTL = 2 * time.Minute
)

// ErrLeaseHeld is returned when another process holds the lease.
var ErrLeaseHeld = errors.New("lease held by another instance")

// ErrLeaseLost is returned when renewing a lease that has expired or was
// taken over.
var ErrLeaseLost = errors.New("lease lost")

var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// Leaser hands out named leases from Valkey.
type Leaser struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLeaser creates a leaser. A zero ttl uses DefaultLeaseTTL.
func NewLeaser(client *redis.Client, ttl time.Duration) *Leaser {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &Leaser{client: client, ttl: ttl}
}

// TTL returns the lease duration.
func (l *Leaser) TTL() time.Duration { return l.ttl }

// Lease is a held lease.
type Lease struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// Acquire takes the lease for name, or returns ErrLeaseHeld.
func (l *Leaser) Acquire(ctx context.Context, name string) (*Lease, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	key := leaseKeyPrefix + name
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}
	return &Lease{client: l.client, key: key, token: token, ttl: l.ttl}, nil
}

// Renew extends the lease by its TTL.
func (ls *Lease) Renew(ctx context.Context) error {
	n, err := renewScript.Run(ctx, ls.client, []string{ls.key}, ls.token, ls.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("renew lease %s: %w", ls.key, err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Release deletes the lease if it is still ours.
func (ls *Lease) Release(ctx context.Context) error {
	if _, err := releaseScript.Run(ctx, ls.client, []string{ls.key}, ls.token).Int(); err != nil {
		return fmt.Errorf("release lease %s: %w", ls.key, err)
	}
	return nil
}

// KeepAlive renews the lease every third of its TTL until ctx is done.
// It returns when renewal fails or ctx is cancelled.
func (ls *Lease) KeepAlive(ctx context.Context) error {
	ticker := time.NewTicker(ls.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := ls.Renew(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lease token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
