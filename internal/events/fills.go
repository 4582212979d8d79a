// Package events publishes fill notifications over NATS via watermill. It
// wraps a watermill message.Publisher around a concrete transport and stays
// narrow on purpose: one event type, one topic per pair.
package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradsys/clob/internal/host"
)

// Fill is the wire payload published after a take order commits.
type Fill struct {
	Pair      string `json:"pair"`
	Side      string `json:"side"`
	AmountIn  uint64 `json:"amount_in"`
	AmountOut uint64 `json:"amount_out"`
	FeeAmount uint64 `json:"fee_amount"`
	Slot      uint64 `json:"slot"`
	Taker     string `json:"taker,omitempty"`
}

// Publisher publishes Fill events to "clob.fills.<pair>".
type Publisher struct {
	pub    message.Publisher
	logger *zap.Logger
}

// NewPublisher dials natsURL and returns a Publisher: watermill's standard
// logger adapter, then a concrete NATS pub/sub implementation. logger is used
// only for Publish failures.
func NewPublisher(natsURL string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	wmLogger := watermill.NewStdLogger(false, false)

	marshaler := &nats.GobMarshaler{}
	pub, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         natsURL,
			NatsOptions: nil,
			Marshaler:   marshaler,
		},
		wmLogger,
	)
	if err != nil {
		return nil, err
	}

	return &Publisher{pub: pub, logger: logger}, nil
}

// Publish sends fill on the topic "clob.fills.<pair>".
func (p *Publisher) Publish(ctx context.Context, pair string, fill Fill) error {
	payload, err := json.Marshal(fill)
	if err != nil {
		return err
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.Metadata.Set("pair", pair)
	msg.SetContext(ctx)

	if err := p.pub.Publish("clob.fills."+pair, msg); err != nil {
		p.logger.Error("failed to publish fill event", zap.String("pair", pair), zap.Error(err))
		return err
	}
	return nil
}

// Close releases the underlying connection.
func (p *Publisher) Close() error {
	return p.pub.Close()
}

// IdentityString renders a host.Identity for inclusion in a Fill payload.
func IdentityString(id host.Identity) string {
	return id.Hex()
}
