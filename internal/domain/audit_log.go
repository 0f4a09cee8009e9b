package domain

import "time"

// AuditLogEntry 只会被追加，不会被修改或删除
type AuditLogEntry struct {
	ID          int64     `json:"id"`
	WorkOrderID int64     `json:"workOrderId"`
	ActorID     int64     `json:"actorId"`
	Action      string    `json:"action"`
	Before      *string   `json:"before"`
	After       *string   `json:"after"`
	CreatedAt   time.Time `json:"createdAt"`
}
