// Package cache provides the TTL key/value store that sits in front of
// context aggregation. A cache is purely a performance optimization: no
// implementation ever returns an error to its caller.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultTTL is how long an aggregated context stays servable.
const DefaultTTL = 300 * time.Second

// Cache is a string-keyed store with per-entry expiry.
// A backing-store fault reads as a miss and a failed write is dropped.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// FaultHook is called when the backing store fails an operation.
type FaultHook func(op, key string, err error)

var keyEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`)

// ContextKey returns the cache key for the context of one message.
// Separators inside the identifiers are escaped so distinct pairs never collide.
func ContextKey(channelID, messageID string) string {
	return fmt.Sprintf("context:%s:%s", keyEscaper.Replace(channelID), keyEscaper.Replace(messageID))
}
