package rpc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/market"
	"go.uber.org/zap"
)

// StreamOffers is the WebSocket stream carrying marketplace events.
const StreamOffers = "offers"

// OfferEventMessage is pushed to subscribers of the offers stream.
type OfferEventMessage struct {
	Type      string       `json:"type"`
	Event     string       `json:"event"`
	OfferID   *uint64      `json:"offer_id,omitempty"`
	Data      market.Event `json:"data"`
	Timestamp int64        `json:"timestamp"`
}

type subscriber struct {
	send chan []byte

	// offers filters delivery to the listed offers; empty means all events.
	offers map[uint64]struct{}
}

func (s *subscriber) wants(ev market.Event) bool {
	if len(s.offers) == 0 {
		return true
	}
	id, ok := ev.OfferRef()
	if !ok {
		return false
	}
	_, ok = s.offers[id]
	return ok
}

// Publisher fans committed marketplace events out to stream subscribers. It
// is the engine's market.EventSink; delivery never blocks the engine.
type Publisher struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	now    func() time.Time
	logger *zap.Logger
}

var _ market.EventSink = (*Publisher)(nil)

func NewPublisher(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		subs:   make(map[string]*subscriber),
		now:    time.Now,
		logger: logger,
	}
}

// Subscribe registers send under id, or widens an existing subscription.
// Subscribing without offer ids clears any filter.
func (p *Publisher) Subscribe(id string, send chan []byte, offerIDs []uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub, ok := p.subs[id]
	if !ok {
		sub = &subscriber{send: send, offers: make(map[uint64]struct{})}
		p.subs[id] = sub
	} else if len(offerIDs) == 0 {
		sub.offers = make(map[uint64]struct{})
	}
	for _, o := range offerIDs {
		sub.offers[o] = struct{}{}
	}
}

// Unsubscribe narrows a filtered subscription, or removes it when no offer
// ids are given or none remain.
func (p *Publisher) Unsubscribe(id string, offerIDs []uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub, ok := p.subs[id]
	if !ok {
		return
	}
	if len(offerIDs) == 0 {
		delete(p.subs, id)
		return
	}
	for _, o := range offerIDs {
		delete(sub.offers, o)
	}
	if len(sub.offers) == 0 {
		delete(p.subs, id)
	}
}

// SubscriberCount returns the number of subscriptions to the offers stream.
func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// Emit implements market.EventSink.
func (p *Publisher) Emit(_ context.Context, ev market.Event) error {
	msg := OfferEventMessage{
		Type:      "offerEvent",
		Event:     string(ev.Kind()),
		Data:      ev,
		Timestamp: p.now().Unix(),
	}
	if id, ok := ev.OfferRef(); ok {
		msg.OfferID = &id
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for id, sub := range p.subs {
		if !sub.wants(ev) {
			continue
		}
		select {
		case sub.send <- data:
		default:
			p.logger.Warn("dropping event for slow subscriber",
				zap.String("connection", id), zap.String("event", msg.Event))
		}
	}
	return nil
}
