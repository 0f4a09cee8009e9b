// Package events 将已提交的审计记录发布到 RabbitMQ，供下游系统订阅。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
)

const RoutingKeyAuditAppended = "work_order.audit.appended"

type AuditEvent struct {
	Type        string    `json:"type"`
	EntryID     int64     `json:"entryId"`
	WorkOrderID int64     `json:"workOrderId"`
	CompanyID   int64     `json:"companyId"`
	ActorID     int64     `json:"actorId"`
	Action      string    `json:"action"`
	Before      *string   `json:"before"`
	After       *string   `json:"after"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func NewAuditEvent(order *domain.WorkOrder, entry *domain.AuditLogEntry) AuditEvent {
	return AuditEvent{
		Type:        RoutingKeyAuditAppended,
		EntryID:     entry.ID,
		WorkOrderID: entry.WorkOrderID,
		CompanyID:   order.CompanyID,
		ActorID:     entry.ActorID,
		Action:      entry.Action,
		Before:      entry.Before,
		After:       entry.After,
		OccurredAt:  entry.CreatedAt,
	}
}

type Publisher interface {
	PublishAudit(ctx context.Context, event AuditEvent) error
}

// Channel 是 *amqp.Channel 中发布消息所需的部分
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AMQPPublisher struct {
	channel  Channel
	exchange string
	timeout  time.Duration
}

// DeclareExchange 声明持久化的 topic exchange
func DeclareExchange(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

func NewAMQPPublisher(ch Channel, exchange string, timeout time.Duration) *AMQPPublisher {
	return &AMQPPublisher{
		channel:  ch,
		exchange: exchange,
		timeout:  timeout,
	}
}

func (p *AMQPPublisher) PublishAudit(ctx context.Context, event AuditEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("无法序列化审计事件: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.channel.PublishWithContext(
		ctx,
		p.exchange,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
			Headers: amqp.Table{
				"work_order_id": strconv.FormatInt(event.WorkOrderID, 10),
				"company_id":    strconv.FormatInt(event.CompanyID, 10),
			},
		},
	); err != nil {
		return fmt.Errorf("无法发布审计事件: %w", err)
	}

	return nil
}

// NopPublisher 在未配置 RabbitMQ 时使用
type NopPublisher struct{}

func (NopPublisher) PublishAudit(ctx context.Context, event AuditEvent) error {
	slog.Debug("未启用事件发布，跳过审计事件", "workOrderId", event.WorkOrderID, "action", event.Action)
	return nil
}
