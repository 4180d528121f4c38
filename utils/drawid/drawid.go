package drawid

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyOnce sync.Once
	entropy     *ulid.MonotonicEntropy
)

func newEntropy() *ulid.MonotonicEntropy {
	entropyOnce.Do(func() {
		source := rand.NewSource(time.Now().UnixNano())
		entropy = ulid.Monotonic(rand.New(source), 0)
	})
	return entropy
}

// NewDrawing returns a dwg_* ULID string for drawing files.
func NewDrawing() string {
	return "dwg_" + newULID()
}

// NewJob returns a job_* ULID string for analysis jobs.
func NewJob() string {
	return "job_" + newULID()
}

// NewResult returns a res_* ULID string for analysis results.
func NewResult() string {
	return "res_" + newULID()
}

func newULID() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), newEntropy())
	return strings.ToLower(id.String())
}

// IsValid reports whether value is a prefixed ULID of the given kind.
func IsValid(value, prefix string) bool {
	if !strings.HasPrefix(value, prefix+"_") {
		return false
	}
	_, err := ulid.Parse(strings.TrimPrefix(value, prefix+"_"))
	return err == nil
}
