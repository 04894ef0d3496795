package apiclient

import (
	"context"

	"fuelcoach-go/internal/constants"
	"fuelcoach-go/internal/offline"
)

// Flush replays queued mutations through the full auth pipeline, oldest first,
// stopping at the first failure. A replay that fails is not queued again.
func (c *Client) Flush(ctx context.Context) (int, error) {
	if c.queue == nil {
		return 0, nil
	}
	return c.queue.Flush(ctx, c.replay)
}

func (c *Client) replay(ctx context.Context, m offline.Mutation) error {
	env := envelope{
		method:      m.Method,
		path:        m.Path,
		contentType: constants.ContentTypeJSON,
	}
	if len(m.Body) > 0 {
		env.body = m.Body
	}
	_, err := c.run(ctx, env)
	return err
}
