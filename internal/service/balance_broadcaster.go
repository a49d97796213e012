package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/talent-tree-api/internal/dto"
	"github.com/noah-isme/talent-tree-api/internal/observability"
)

const (
	balanceBufferSize = 8
	// seenEnvelopes bounds the ids remembered to drop the copy of an event
	// that arrives over the second transport.
	seenEnvelopes = 256
)

// BalanceBroadcaster fans committed balance changes out to live subscribers
// on this node and, through Redis and NATS, on every other node.
type BalanceBroadcaster interface {
	BalanceObserver
	Subscribe(profileID uint) (<-chan dto.BalanceEvent, func())
	Start(ctx context.Context)
}

type balanceBroadcaster struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *balanceBroker
	nodeID       string

	seenMu    sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
}

type balanceEnvelope struct {
	ID     string           `json:"id"`
	Source string           `json:"source"`
	Event  dto.BalanceEvent `json:"event"`
	SentAt time.Time        `json:"sent_at"`
}

type balanceBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.BalanceEvent]struct{}
}

// NewBalanceBroadcaster constructs the broadcaster. Redis and NATS are optional.
func NewBalanceBroadcaster(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) BalanceBroadcaster {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":balance"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".balance"
	}

	return &balanceBroadcaster{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "balance_broadcaster").Logger(),
		broker: &balanceBroker{
			subscribers: make(map[uint]map[chan dto.BalanceEvent]struct{}),
		},
		nodeID: uuid.NewString(),
		seen:   make(map[string]struct{}, seenEnvelopes),
	}
}

func (b *balanceBroadcaster) Start(ctx context.Context) {
	if b.redis != nil && b.redisChannel != "" {
		go b.consumeRedis(ctx)
	}
	if b.nats != nil && b.natsSubject != "" {
		b.consumeNATS(ctx)
	}
}

func (b *balanceBroadcaster) BalanceChanged(ctx context.Context, event dto.BalanceEvent) {
	observability.BalanceEvents().WithLabelValues("local").Inc()
	b.broker.broadcast(event)

	if err := b.publish(ctx, event); err != nil {
		b.logger.Warn().Err(err).Uint("profile_id", event.ProfileID).Msg("failed to publish balance event")
	}
}

func (b *balanceBroadcaster) Subscribe(profileID uint) (<-chan dto.BalanceEvent, func()) {
	channel := make(chan dto.BalanceEvent, balanceBufferSize)

	b.broker.subscribe(profileID, channel)
	observability.LiveClientsActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			b.broker.unsubscribe(profileID, channel)
			observability.LiveClientsActive().Dec()
		})
	}

	return channel, cleanup
}

func (b *balanceBroadcaster) publish(ctx context.Context, event dto.BalanceEvent) error {
	envelope := balanceEnvelope{
		ID:     uuid.NewString(),
		Source: b.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	var errs []error
	if b.redis != nil && b.redisChannel != "" {
		if err := b.redis.Publish(ctx, b.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (b *balanceBroadcaster) consumeRedis(ctx context.Context) {
	pubsub := b.redis.Subscribe(ctx, b.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			b.logger.Error().Err(err).Msg("balance redis subscription closed")
			return
		}
		b.handleEnvelope("redis", []byte(msg.Payload))
	}
}

func (b *balanceBroadcaster) consumeNATS(ctx context.Context) {
	// A plain subscription: every node must see every event.
	sub, err := b.nats.Subscribe(b.natsSubject, func(msg *nats.Msg) {
		b.handleEnvelope("nats", msg.Data)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to nats balance subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain balance nats subscription")
		}
	}()
}

func (b *balanceBroadcaster) handleEnvelope(origin string, payload []byte) {
	var envelope balanceEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		b.logger.Warn().Err(err).Str("origin", origin).Msg("invalid balance event payload")
		return
	}

	if envelope.Source == b.nodeID || envelope.Event.ProfileID == 0 {
		return
	}
	if !b.markSeen(envelope.ID) {
		return
	}

	observability.BalanceEvents().WithLabelValues(origin).Inc()
	b.broker.broadcast(envelope.Event)
}

// markSeen records id and reports whether it was new.
func (b *balanceBroadcaster) markSeen(id string) bool {
	if id == "" {
		return true
	}

	b.seenMu.Lock()
	defer b.seenMu.Unlock()

	if _, ok := b.seen[id]; ok {
		return false
	}
	b.seen[id] = struct{}{}
	b.seenOrder = append(b.seenOrder, id)
	if len(b.seenOrder) > seenEnvelopes {
		delete(b.seen, b.seenOrder[0])
		b.seenOrder = b.seenOrder[1:]
	}
	return true
}

func (b *balanceBroker) subscribe(profileID uint, ch chan dto.BalanceEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[profileID]; !exists {
		b.subscribers[profileID] = make(map[chan dto.BalanceEvent]struct{})
	}
	b.subscribers[profileID][ch] = struct{}{}
}

func (b *balanceBroker) unsubscribe(profileID uint, ch chan dto.BalanceEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[profileID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, profileID)
		}
	}
}

func (b *balanceBroker) broadcast(event dto.BalanceEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[event.ProfileID] {
		select {
		case ch <- event:
		default:
		}
	}
}
