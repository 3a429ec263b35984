package processor

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	fundingIDPrefix = "req_"
	orderIDPrefix   = "ord_"
)

// idGenerator issues lexically sortable, unique identifiers. ULIDs generated
// within the same millisecond stay ordered thanks to monotonic entropy.
type idGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

func newIDGenerator() *idGenerator {
	return &idGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *idGenerator) next(prefix string, now time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), g.entropy)
	if err != nil {
		return "", err
	}
	return prefix + id.String(), nil
}
