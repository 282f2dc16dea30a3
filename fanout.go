package wablaster

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/korospace/BE-WA-blaster/types"
)

// natsPublisher implements types.EventPublisher on core NATS.
//
// Publication is fire-and-forget by contract: no JetStream, no ack, no
// retry. Subscribers that are not listening simply miss the update.
type natsPublisher struct {
	conn   *nats.Conn
	prefix string
}

var _ types.EventPublisher = (*natsPublisher)(nil)

// newNATSPublisher creates the default realtime publisher.
func newNATSPublisher(conn *nats.Conn, prefix string) *natsPublisher {
	return &natsPublisher{conn: conn, prefix: prefix}
}

// Publish sends the update on "<prefix>.<tenantID>.<instanceID>".
func (p *natsPublisher) Publish(_ context.Context, tenantID, instanceID string, update types.StatusUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode status update for %s: %w", instanceID, err)
	}

	subject := fmt.Sprintf("%s.%s.%s", p.prefix, tenantID, instanceID)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("%w: publish %s: %w", types.ErrNotification, subject, err)
	}

	return nil
}
