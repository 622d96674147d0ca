// Package events subscribes to the server's live-update channel.
package events

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// Handler receives every decoded event.
type Handler func(ctx context.Context, ev models.Event)

// Subscriber keeps a websocket connection to the server open and
// re-establishes it after failures.
type Subscriber struct {
	URL     string
	Token   string
	Topics  []string
	Project string
	Logger  *logrus.Logger
	Dialer  *websocket.Dialer
	Backoff *backoff.Backoff
}

// NewSubscriber creates a subscriber for the server at baseURL. The http(s)
// scheme is switched to ws(s) and the path set to /ws.
func NewSubscriber(baseURL, token, project string, logger *logrus.Logger) (*Subscriber, error) {
	wsURL, err := socketURL(baseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Subscriber{
		URL:     wsURL,
		Token:   token,
		Topics:  []string{models.TopicEntityUpdate},
		Project: project,
		Logger:  logger,
		Dialer:  websocket.DefaultDialer,
		Backoff: &backoff.Backoff{
			Min:    500 * time.Millisecond,
			Max:    30 * time.Second,
			Factor: 2,
			Jitter: true,
		},
	}, nil
}

func socketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

type subscribeMessage struct {
	Topic   string   `json:"topic"`
	Token   string   `json:"token,omitempty"`
	Project string   `json:"project,omitempty"`
	Topics  []string `json:"subscribe"`
}

// Run delivers events to handle until ctx is done. Connection failures are
// logged and retried with exponential backoff; Run only returns ctx.Err().
func (s *Subscriber) Run(ctx context.Context, handle Handler) error {
	for {
		err := s.listen(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay := s.Backoff.Duration()
		s.Logger.WithFields(logrus.Fields{
			"url":   s.URL,
			"retry": delay.String(),
		}).WithError(err).Warn("Live updates disconnected")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// listen runs one connection until it fails.
func (s *Subscriber) listen(ctx context.Context, handle Handler) error {
	header := http.Header{}
	if s.Token != "" {
		header.Set("Authorization", "Bearer "+s.Token)
	}
	conn, _, err := s.Dialer.DialContext(ctx, s.URL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.URL, err)
	}
	defer conn.Close()

	// Unblock ReadJSON when the context ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteJSON(subscribeMessage{
		Topic:   "auth",
		Token:   s.Token,
		Project: s.Project,
		Topics:  s.Topics,
	}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	s.Backoff.Reset()
	s.Logger.WithField("url", s.URL).Debug("Live updates connected")

	for {
		var ev models.Event
		if err := conn.ReadJSON(&ev); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return errors.New("server closed connection")
			}
			return fmt.Errorf("read event: %w", err)
		}
		if ev.Topic == "" || ev.Topic == "heartbeat" {
			continue
		}
		handle(ctx, ev)
	}
}
