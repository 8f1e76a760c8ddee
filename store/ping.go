package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PingResult holds the latency of one probe round trip.
type PingResult struct {
	Read    time.Duration `json:"read"`
	Write   time.Duration `json:"write"`
	Average time.Duration `json:"average"`
}

// Ping writes, reads and deletes a probe key and reports the latencies.
// The probe is unique per call so concurrent pings do not collide.
func Ping(ctx context.Context, s Store) (PingResult, error) {
	probe := "arkdb_ping_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	start := time.Now()
	if _, err := s.Set(ctx, probe, probe); err != nil {
		return PingResult{}, fmt.Errorf("ping write: %w", err)
	}
	write := time.Since(start)

	start = time.Now()
	got, err := s.Get(ctx, probe)
	read := time.Since(start)

	_, delErr := s.Delete(ctx, probe)
	if err != nil {
		return PingResult{}, errors.Join(fmt.Errorf("ping read: %w", err), delErr)
	}
	if delErr != nil {
		return PingResult{}, fmt.Errorf("ping cleanup: %w", delErr)
	}
	if got != probe {
		return PingResult{}, fmt.Errorf("ping read: got %v, want %q", got, probe)
	}
	return PingResult{
		Read:    read,
		Write:   write,
		Average: (read + write) / 2,
	}, nil
}
