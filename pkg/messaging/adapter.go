package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// HandlerFunc handles the payload of one message type.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Dispatcher routes messages from one broker channel to handlers by type.
type Dispatcher struct {
	broker   Broker
	logger   *zerolog.Logger
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewDispatcher(broker Broker, logger *zerolog.Logger) *Dispatcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{
		broker:   broker,
		logger:   logger,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers fn for messages of the given type.
func (d *Dispatcher) Handle(msgType string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[msgType] = fn
}

// Run consumes the channel until ctx ends or the broker closes it.
// Handler errors are logged and do not stop the loop.
func (d *Dispatcher) Run(ctx context.Context, channel string) error {
	msgChan, err := d.subscribe(ctx, channel)
	if err != nil {
		return err
	}
	d.consume(ctx, channel, msgChan)
	return nil
}

// Start subscribes before returning and consumes on its own goroutine, so
// nothing published after Start returns is missed. done is closed when the
// loop exits.
func (d *Dispatcher) Start(ctx context.Context, channel string) (done <-chan struct{}, err error) {
	msgChan, err := d.subscribe(ctx, channel)
	if err != nil {
		return nil, err
	}
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		d.consume(ctx, channel, msgChan)
	}()
	return finished, nil
}

func (d *Dispatcher) subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	msgChan, err := d.broker.Subscribe(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	return msgChan, nil
}

func (d *Dispatcher) consume(ctx context.Context, channel string, msgChan <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-msgChan:
			if !ok {
				return
			}
			if err := d.dispatch(ctx, raw); err != nil {
				d.logger.Error().Err(err).Str("channel", channel).Msg("failed to handle message")
			}
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, raw []byte) error {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	d.mu.RLock()
	fn, ok := d.handlers[msg.Type]
	d.mu.RUnlock()
	if !ok {
		d.logger.Debug().Str("type", msg.Type).Msg("no handler for message type")
		return nil
	}
	return fn(ctx, msg.Payload)
}
