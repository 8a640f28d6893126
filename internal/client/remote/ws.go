package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/offlinehq/tidesync/internal/common"
)

// Subscribe opens the schema-wide change feed. Events are delivered on the
// returned channel until the context is cancelled or the connection drops;
// the channel is closed in either case, and it is up to the caller to
// resubscribe.
func (c *HTTPClient) Subscribe(ctx context.Context) (<-chan ChangeEvent, error) {
	wsURL := toWebsocketURL(c.baseURL) + "/api/v1/changes"

	header := http.Header{}
	header.Set(common.AccessTokenHeaderName, "Bearer "+c.session.AccessToken())

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	events := make(chan ChangeEvent)

	go func() {
		defer close(events)
		defer conn.Close(websocket.StatusNormalClosure, "done")

		for {
			var ev ChangeEvent
			if err := wsjson.Read(ctx, conn, &ev); err != nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func toWebsocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
