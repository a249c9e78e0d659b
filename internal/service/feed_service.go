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

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/observability"
)

const (
	feedBufferSize  = 16
	feedSeenHistory = 256
)

// FeedService streams booking events to the owning tutor's open feeds,
// including bookings made on other nodes.
type FeedService interface {
	Publish(ctx context.Context, event dto.BookingEvent) error
	Subscribe(tutorID uint) (<-chan dto.BookingEvent, func())
	Start(ctx context.Context)
}

type feedService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *feedBroker
	nodeID       string

	seenMu    sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
}

type feedEnvelope struct {
	ID     string           `json:"id"`
	Source string           `json:"source"`
	Event  dto.BookingEvent `json:"event"`
	SentAt time.Time        `json:"sent_at"`
}

type feedBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.BookingEvent]struct{}
}

// NewFeedService constructs the booking feed. Redis and NATS are optional;
// without either, events only reach feeds on this node.
func NewFeedService(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) FeedService {
	channel, subject := "", ""
	if channelBase != "" {
		channel = channelBase
		subject = strings.ReplaceAll(channelBase, ":", ".")
	}

	return &feedService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "feed_service").Logger(),
		broker:       &feedBroker{subscribers: make(map[uint]map[chan dto.BookingEvent]struct{})},
		nodeID:       uuid.NewString(),
		seen:         make(map[string]struct{}),
	}
}

func (s *feedService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		s.consumeNATS(ctx)
	}
}

// Publish delivers event to local subscribers and fans it out to other nodes.
func (s *feedService) Publish(ctx context.Context, event dto.BookingEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	observability.FeedEventsTotal().WithLabelValues("local").Inc()
	s.broker.broadcast(event.TutorID, event)

	envelope := feedEnvelope{
		ID:     uuid.NewString(),
		Source: s.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	var errs []error
	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *feedService) Subscribe(tutorID uint) (<-chan dto.BookingEvent, func()) {
	channel := make(chan dto.BookingEvent, feedBufferSize)

	s.broker.subscribe(tutorID, channel)
	observability.FeedSubscribers().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(tutorID, channel)
			observability.FeedSubscribers().Dec()
		})
	}

	return channel, cleanup
}

func (s *feedService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("feed redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload), "redis")
	}
}

func (s *feedService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data, "nats")
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to feed nats subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain feed nats subscription")
		}
	}()
}

// handleEnvelope broadcasts remote events once, ignoring this node's own
// events and copies already received over the other transport.
func (s *feedService) handleEnvelope(payload []byte, source string) {
	var envelope feedEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Str("source", source).Msg("invalid feed event payload")
		return
	}

	if envelope.Source == s.nodeID || !s.markSeen(envelope.ID) {
		return
	}

	observability.FeedEventsTotal().WithLabelValues(source).Inc()
	s.broker.broadcast(envelope.Event.TutorID, envelope.Event)
}

func (s *feedService) markSeen(id string) bool {
	if id == "" {
		return true
	}

	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.seenOrder = append(s.seenOrder, id)
	if len(s.seenOrder) > feedSeenHistory {
		delete(s.seen, s.seenOrder[0])
		s.seenOrder = s.seenOrder[1:]
	}
	return true
}

func (b *feedBroker) subscribe(tutorID uint, ch chan dto.BookingEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[tutorID]; !exists {
		b.subscribers[tutorID] = make(map[chan dto.BookingEvent]struct{})
	}
	b.subscribers[tutorID][ch] = struct{}{}
}

func (b *feedBroker) unsubscribe(tutorID uint, ch chan dto.BookingEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[tutorID]; ok {
		if _, present := subscribers[ch]; !present {
			return
		}
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, tutorID)
		}
	}
}

// broadcast drops the event for subscribers whose buffer is full.
func (b *feedBroker) broadcast(tutorID uint, event dto.BookingEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[tutorID] {
		select {
		case ch <- event:
		default:
		}
	}
}
