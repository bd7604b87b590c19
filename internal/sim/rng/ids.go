package rng

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDFunc returns a fresh identifier for a list entry.
type IDFunc func() string

// UUIDs returns an IDFunc producing prefix-uuid ids whose bytes come from
// src. Keep src separate from the simulation draws so scripted sequences are
// not consumed by id generation.
func UUIDs(prefix string, src Source) IDFunc {
	r := Reader(src)
	return func() string {
		id, err := uuid.NewRandomFromReader(r)
		if err != nil {
			// Reader never fails; fall back to the global generator anyway.
			id = uuid.New()
		}
		return prefix + "-" + id.String()
	}
}

// Counter returns an IDFunc producing prefix-1, prefix-2, ...
func Counter(prefix string) IDFunc {
	var n atomic.Uint64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}
