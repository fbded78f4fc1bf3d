package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

const (
	maxReconnectAttempts = 5
	reconnectBaseDelay   = 1 * time.Second
)

// Listener keeps a realtime subscription alive for one account room and
// invokes onChange whenever the server signals a task set change.
//
// Reconnects use bounded exponential backoff. The attempt counter resets
// after every successful connect, so only consecutive failures count; once
// the budget is spent the listener gives up for good and the client falls
// back to explicit refreshes.
type Listener struct {
	url      string
	room     string
	onChange func()
}

func NewListener(url string, room string, onChange func()) *Listener {
	return &Listener{url: url, room: room, onChange: onChange}
}

// Run blocks until ctx is cancelled or the reconnect budget is exhausted.
// It is meant to be run in its own goroutine.
func (l *Listener) Run(ctx context.Context) error {
	attempts := 0
	for {
		err := l.connectAndListen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, errConnected) {
			// The connection was established and later dropped, so the
			// failure streak starts over.
			attempts = 0
			err = nil
		}

		attempts++
		if attempts > maxReconnectAttempts {
			log.Warn().Str("room", l.room).Msg("Realtime reconnect budget exhausted, degrading to manual refresh")
			return err
		}

		delay := reconnectBaseDelay << (attempts - 1)
		log.Info().Str("room", l.room).Int("attempt", attempts).Dur("delay", delay).Msg("Realtime reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// errConnected marks a listen loop that got past the handshake before
// failing, as opposed to one that never connected.
var errConnected = errors.New("connection established")

func (l *Listener) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	join, err := MarshalFrame(Frame{Event: EventJoinRoom, Room: l.room})
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, join); err != nil {
		return err
	}

	log.Info().Str("room", l.room).Msg("Realtime channel joined")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return errors.Join(errConnected, err)
		}

		frame, err := UnmarshalFrame(data)
		if err != nil {
			log.Warn().Err(err).Msg("Dropping malformed realtime frame")
			continue
		}

		switch frame.Event {
		case EventTasksUpdated:
			l.onChange()
		default:
			log.Debug().Str("event", frame.Event).Msg("Ignoring unknown realtime event")
		}
	}
}
