// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package scheduler

import (
	"context"

	"socialpilot/internal/cache"
)

// Lease is a held cross-process job lease.
type Lease interface {
	KeepAlive(ctx context.Context) error
	Release(ctx context.Context) error
}

// LeaseProvider hands out job leases. Acquire returns cache.ErrLeaseHeld
// when another process holds the lease.
type LeaseProvider interface {
	Acquire(ctx context.Context, name string) (Lease, error)
}

// ValkeyLeases adapts a Valkey leaser to a LeaseProvider.
func ValkeyLeases(l *cache.Leaser) LeaseProvider {
	return valkeyLeases{l}
}

type valkeyLeases struct{ l *cache.Leaser }

func (v valkeyLeases) Acquire(ctx context.Context, name string) (Lease, error) {
	lease, err := v.l.Acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	return lease, nil
}
