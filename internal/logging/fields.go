package logging

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// WithRequest builds a log entry enriched with common API call fields.
// Extras take precedence on key conflicts.
func WithRequest(method, path string, extras log.Fields) *log.Entry {
	fields := log.Fields{
		"method": method,
		"path":   path,
	}
	for k, v := range extras {
		fields[k] = v
	}
	return log.WithFields(fields)
}

// DurationMS converts a duration to integer milliseconds for logging.
func DurationMS(d time.Duration) int64 { return d.Milliseconds() }
