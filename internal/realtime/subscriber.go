package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ConnState is the local connection state of a channel subscriber.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// subscriber runs a reconnecting consume loop against one broker channel.
// The hosted transports this layer originally sat on reconnect internally;
// here the loop is explicit, with bounded exponential backoff.
type subscriber struct {
	broker  Broker
	channel string
	logger  *zap.Logger
	handle  func(Message)

	mu     sync.RWMutex
	state  ConnState
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSubscriber(broker Broker, channel string, logger *zap.Logger, handle func(Message)) *subscriber {
	return &subscriber{
		broker:  broker,
		channel: channel,
		logger:  logger,
		handle:  handle,
		state:   StateDisconnected,
	}
}

func (s *subscriber) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *subscriber) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *subscriber) State() ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *subscriber) setState(state ConnState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *subscriber) run(ctx context.Context) {
	defer s.wg.Done()
	defer s.setState(StateDisconnected)

	delay := reconnectBaseDelay
	for {
		s.setState(StateConnecting)

		sub, err := s.broker.Subscribe(ctx, s.channel)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("channel subscribe failed, retrying",
				zap.String("channel", s.channel),
				zap.Duration("retry_in", delay),
				zap.Error(err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		s.setState(StateConnected)
		delay = reconnectBaseDelay

		s.consume(ctx, sub)
		_ = sub.Close()

		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("channel subscription dropped, reconnecting",
			zap.String("channel", s.channel))
	}
}

func (s *subscriber) consume(ctx context.Context, sub Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			s.handle(msg)
		}
	}
}
