package client

// ws_client.go follows a peer's display feed.

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"darwinawards/internal/microservices/websocket"

	"github.com/fatih/color"
	gorilla "github.com/gorilla/websocket"
)

// FeedURL turns a peer API URL into its websocket feed URL.
func FeedURL(peerURL string) (string, error) {
	u, err := url.Parse(peerURL)
	if err != nil {
		return "", fmt.Errorf("invalid peer URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/feed"
	return u.String(), nil
}

// WatchFeed calls fn with every feed message until ctx is done or the
// connection drops.
func WatchFeed(ctx context.Context, peerURL string, fn func(*websocket.Message)) error {
	feedURL, err := FeedURL(peerURL)
	if err != nil {
		return err
	}

	conn, _, err := gorilla.DefaultDialer.DialContext(ctx, feedURL, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("feed closed: %w", err)
		}
		msg, err := websocket.MessageFromJSON(data)
		if err != nil {
			continue
		}
		fn(msg)
	}
}

// PrintFeed renders the visible deaths, newest last.
func PrintFeed(msg *websocket.Message) {
	fmt.Println()
	if len(msg.Deaths) == 0 {
		color.HiBlack("(no recent deaths)")
		return
	}
	for _, d := range msg.Deaths {
		color.New(color.FgHiBlack).Printf("%s ", d.ReceivedAt.Local().Format("15:04:05"))
		color.New(color.FgRed).Printf("[%s] ", d.Category)
		color.White("%s", d.Text)
	}
}
