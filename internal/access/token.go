package access

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	mrand "math/rand"
	"time"

	"github.com/google/uuid"
)

// NewToken returns a fresh access token: a random UUIDv4 from the system
// random source. If that source fails, it falls back to a pseudo-random
// UUID-shaped string. The fallback has weaker uniqueness guarantees and is
// kept as a separate path on purpose so the degradation stays visible.
func NewToken() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}
	slog.Warn("system random source unavailable, using pseudo-random token",
		slog.String("error", err.Error()))
	return pseudoToken()
}

func pseudoToken() string {
	r := mrand.New(mrand.NewSource(time.Now().UnixNano()))

	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], r.Uint64())
	binary.BigEndian.PutUint64(b[8:16], r.Uint64())

	// UUIDv4 shape: version and variant bits
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80

	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
