package offline

import (
	"encoding/json"
	"strings"
	"time"
)

// Mutation is a write request that could not reach the server.
type Mutation struct {
	ID        string          `json:"id"`
	Path      string          `json:"path"`
	Method    string          `json:"method"`
	Body      json.RawMessage `json:"body,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsMutating reports whether method changes server state. Only mutating
// requests are ever queued.
func IsMutating(method string) bool {
	switch strings.ToUpper(method) {
	case "", "GET", "HEAD", "OPTIONS":
		return false
	default:
		return true
	}
}
