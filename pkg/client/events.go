package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Subscribe opens the gateway event stream and returns a channel of decoded
// events plus a terminal error channel. Both channels close when the stream
// ends or ctx is cancelled. The stream uses a dedicated client with no
// timeout so long-lived connections are not cut.
func (c *Client) Subscribe(ctx context.Context) (<-chan *Event, <-chan error, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/event", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("x-user-id", c.userID)

	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(raw))
	}

	eventCh := make(chan *Event, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)
		defer resp.Body.Close()

		reader := bufio.NewReader(resp.Body)
		var eventType string
		var dataLines []string

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line, err := reader.ReadString('\n')
			if err != nil {
				select {
				case <-ctx.Done():
				default:
					if err != io.EOF {
						errCh <- err
					}
				}
				return
			}
			line = strings.TrimSpace(line)

			if line == "" {
				// blank line terminates one frame
				if eventType != "" || len(dataLines) > 0 {
					data := strings.Join(dataLines, "\n")
					if data != "" {
						var event Event
						if err := json.Unmarshal([]byte(data), &event); err != nil {
							event = Event{Type: eventType, Properties: json.RawMessage(data)}
						}
						if event.Type == "" {
							event.Type = eventType
						}
						select {
						case <-ctx.Done():
							return
						case eventCh <- &event:
						}
					}
					eventType = ""
					dataLines = nil
				}
				continue
			}

			if strings.HasPrefix(line, "event:") {
				eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			} else if strings.HasPrefix(line, "data:") {
				dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			}
		}
	}()

	return eventCh, errCh, nil
}
