package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// sessionPrefix marks identifiers generated by this client.
const sessionPrefix = "smartdog_"

// NewSessionID returns an opaque correlation token made of the current time
// in milliseconds and a short random suffix. Uniqueness is not guaranteed.
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%d_%s", sessionPrefix, now.UnixMilli(), suffix)
}
