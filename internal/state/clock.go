package state

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

const draftPrefix = "draft-"

var (
	siteID   = uuid.NewString()
	draftSeq uint64
)

// NewDraftKey returns a key for a shape the store has not persisted yet.
// Keys are unique per process and ordered by creation.
func NewDraftKey() string {
	return fmt.Sprintf("%s%s-%d", draftPrefix, siteID, atomic.AddUint64(&draftSeq, 1))
}

// IsDraftKey reports whether key came from NewDraftKey.
func IsDraftKey(key string) bool { return strings.HasPrefix(key, draftPrefix) }
