package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.exchange = exchange
	c.key = key
	c.msg = msg
	return c.err
}

func TestAMQPPublisherPublishesAuditEvent(t *testing.T) {
	ch := &fakeChannel{}
	p := NewAMQPPublisher(ch, "work_order_events", time.Second)

	after := "status: OPEN"
	order := &domain.WorkOrder{ID: 5, CompanyID: 3}
	entry := &domain.AuditLogEntry{ID: 9, WorkOrderID: 5, ActorID: 2, Action: "created", After: &after, CreatedAt: time.Now()}

	if err := p.PublishAudit(context.Background(), NewAuditEvent(order, entry)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if ch.exchange != "work_order_events" || ch.key != RoutingKeyAuditAppended {
		t.Fatalf("unexpected exchange/key: %s %s", ch.exchange, ch.key)
	}
	if ch.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("expected persistent delivery")
	}

	var got AuditEvent
	if err := json.Unmarshal(ch.msg.Body, &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.CompanyID != 3 || got.EntryID != 9 || got.After == nil || *got.After != after {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestAMQPPublisherWrapsError(t *testing.T) {
	boom := errors.New("channel closed")
	p := NewAMQPPublisher(&fakeChannel{err: boom}, "x", time.Second)

	err := p.PublishAudit(context.Background(), AuditEvent{Type: RoutingKeyAuditAppended})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped channel error, got %v", err)
	}
}
