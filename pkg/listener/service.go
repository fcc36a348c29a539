// Package listener subscribes to the interpreter API websocket and hands every
// received reading to a callback, reconnecting with exponential backoff.
package listener

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var ErrMaxRetries = errors.New("max connection retries reached")

type Options struct {
	Host       string
	TLSEnabled bool

	MaxRetries     int
	BaseRetryDelay time.Duration
	MaxRetryDelay  time.Duration

	// A connection without any message for this long is considered dead
	ReadDeadline time.Duration
	PingInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 10
	}
	if o.BaseRetryDelay <= 0 {
		o.BaseRetryDelay = 2 * time.Second
	}
	if o.MaxRetryDelay <= 0 {
		o.MaxRetryDelay = 60 * time.Second
	}
	if o.ReadDeadline <= 0 {
		o.ReadDeadline = 60 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	return o
}

func (o Options) URL() url.URL {
	scheme := "ws"
	if o.TLSEnabled {
		scheme = "wss"
	}
	return url.URL{Scheme: scheme, Host: o.Host, Path: "/ws"}
}

// Listen blocks until ctx is cancelled or the retries are exhausted.
// handle is called from the read goroutine, one reading at a time.
func Listen(ctx context.Context, opts Options, handle func(reading *types.Reading), logger logrus.FieldLogger) error {
	opts = opts.withDefaults()
	u := opts.URL()
	log := logger.WithField("url", u.String())

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	retryCount := 0
	for {
		if retryCount > 0 {
			// Exponential backoff, capped
			retryDelay := opts.MaxRetryDelay
			if retryCount < 16 {
				retryDelay = min(time.Duration(1<<(retryCount-1))*opts.BaseRetryDelay, opts.MaxRetryDelay)
			}
			log.Infof("Retrying connection in %v... (attempt %d/%d)", retryDelay, retryCount+1, opts.MaxRetries)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil
			}
		}

		log.Info("Connecting")
		c, _, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.WithError(err).Warn("Connection failed")
			retryCount++
			if retryCount >= opts.MaxRetries {
				return ErrMaxRetries
			}
			continue
		}

		log.Info("Connected! Accepting meter readings.")
		retryCount = 0

		broken := handleConnection(ctx, c, opts, handle, log)
		c.Close()
		if !broken {
			return nil
		}
		log.Warn("Connection lost, will retry...")
		retryCount++
	}
}

// Returns true when the connection broke, false on shutdown.
func handleConnection(
	ctx context.Context,
	c *websocket.Conn,
	opts Options,
	handle func(reading *types.Reading),
	log logrus.FieldLogger,
) bool {
	done := make(chan struct{})

	c.SetReadDeadline(time.Now().Add(opts.ReadDeadline))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(opts.ReadDeadline))
	})

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Warn("WebSocket error")
				} else {
					log.WithError(err).Debug("Connection closed")
				}
				return
			}
			c.SetReadDeadline(time.Now().Add(opts.ReadDeadline))

			if messageType != websocket.TextMessage {
				log.Debugf("Received unexpected message type: %d", messageType)
				continue
			}
			reading := types.ReadingFromJsonBytes(message)
			if reading == nil {
				log.Warnf("Failed to parse reading: %s", string(message))
				continue
			}
			handle(reading)
		}
	}()

	ticker := time.NewTicker(opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return true
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := c.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.WithError(err).Debug("Failed to send ping")
			}
		case <-ctx.Done():
			log.Info("Shutting down, closing connection...")
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
				log.WithError(err).Debug("Error sending close message")
			}

			// Wait for close confirmation or timeout
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return false
		}
	}
}
