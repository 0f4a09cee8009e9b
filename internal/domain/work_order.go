package domain

import (
	"fmt"
	"time"
)

type WorkOrderStatus string

const (
	StatusOpen            WorkOrderStatus = "OPEN"
	StatusInProgress      WorkOrderStatus = "IN_PROGRESS"
	StatusPendingApproval WorkOrderStatus = "PENDING_APPROVAL"
	StatusCompleted       WorkOrderStatus = "COMPLETED"
	StatusArchived        WorkOrderStatus = "ARCHIVED"
	StatusCancelled       WorkOrderStatus = "CANCELLED"
)

func (s WorkOrderStatus) Terminal() bool {
	return s == StatusArchived || s == StatusCancelled
}

// StatusSnapshot 是写入审计日志的状态快照
func (s WorkOrderStatus) StatusSnapshot() string {
	return fmt.Sprintf("status: %s", s)
}

// NextOnDelete 计算删除操作之后的状态：已完成的工单被归档，其余未终结的工单被取消
func (s WorkOrderStatus) NextOnDelete() (WorkOrderStatus, bool) {
	switch {
	case s.Terminal():
		return s, false
	case s == StatusCompleted:
		return StatusArchived, true
	default:
		return StatusCancelled, true
	}
}

type WorkOrder struct {
	ID             int64           `json:"id"`
	CompanyID      int64           `json:"companyId"`
	CreatorID      int64           `json:"creatorId"`
	ResponsibleID  *int64          `json:"responsibleId"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Location       string          `json:"location"`
	Deadline       *time.Time      `json:"deadline"`
	Requirements   string          `json:"requirements"`
	PrivateProject bool            `json:"privateProject"`
	Status         WorkOrderStatus `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	Version        int32           `json:"-"`
}

type Participant struct {
	ID          int64      `json:"id"`
	WorkOrderID int64      `json:"workOrderId"`
	UserID      int64      `json:"userId"`
	JoinedAt    time.Time  `json:"joinedAt"`
	LeftAt      *time.Time `json:"leftAt"`
}

func (p *Participant) Active() bool {
	return p.LeftAt == nil
}
