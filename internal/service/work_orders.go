package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/events"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/obs"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/store"
)

// 审计记录的类别，用于指标标签
const (
	auditCreated            = "created"
	auditArchived           = "archived"
	auditCancelled          = "cancelled"
	auditParticipantAdded   = "participant_added"
	auditParticipantRemoved = "participant_removed"
)

type CreateWorkOrderInput struct {
	Title          string
	Description    string
	Location       string
	Deadline       *time.Time
	Requirements   string
	PrivateProject bool
}

type WorkOrderService struct {
	c *core
}

// pendingAudit 是事务中已写入、等待提交后对外发布的审计记录
type pendingAudit struct {
	kind  string
	order *domain.WorkOrder
	entry *domain.AuditLogEntry
}

func (s *WorkOrderService) appendAudit(ctx context.Context, tx store.Store, order *domain.WorkOrder, actor *domain.User, kind, action string, before, after *string) (*pendingAudit, error) {
	entry := &domain.AuditLogEntry{
		WorkOrderID: order.ID,
		ActorID:     actor.ID,
		Action:      action,
		Before:      before,
		After:       after,
		CreatedAt:   s.c.now(),
	}
	if err := tx.AuditLogs().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("无法写入审计日志: %w", err)
	}
	return &pendingAudit{kind: kind, order: order, entry: entry}, nil
}

// publish 在事务提交之后发布审计事件，发布失败不影响已提交的结果
func (s *WorkOrderService) publish(ctx context.Context, p *pendingAudit) {
	obs.ObserveAuditEntry(p.kind)
	if err := s.c.publisher.PublishAudit(ctx, events.NewAuditEvent(p.order, p.entry)); err != nil {
		slog.Warn("无法发布审计事件", "workOrderId", p.order.ID, "entryId", p.entry.ID, "error", err)
	}
}

func (s *WorkOrderService) Create(ctx context.Context, actor *domain.User, in CreateWorkOrderInput) (*domain.WorkOrder, error) {
	if blank(in.Title) {
		return nil, domain.Validation("工单标题不能为空")
	}

	order := &domain.WorkOrder{
		CompanyID:      actor.CompanyID,
		CreatorID:      actor.ID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Location:       in.Location,
		Deadline:       in.Deadline,
		Requirements:   in.Requirements,
		PrivateProject: in.PrivateProject,
		Status:         domain.StatusOpen,
		CreatedAt:      s.c.now(),
	}

	var pending *pendingAudit
	err := s.c.store.Atomic(ctx, func(tx store.Store) error {
		if err := tx.WorkOrders().Create(ctx, order); err != nil {
			return err
		}

		var err error
		pending, err = s.appendAudit(ctx, tx, order, actor, auditCreated, "工单已创建", nil, stringPtr(domain.StatusOpen.StatusSnapshot()))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, pending)
	return order, nil
}

func (s *WorkOrderService) getByIDScoped(ctx context.Context, st store.Store, actor *domain.User, id int64) (*domain.WorkOrder, error) {
	order, err := st.WorkOrders().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "工单不存在：%d", id)
	}
	if !actor.CanSeeCompany(order.CompanyID) {
		return nil, domain.Forbidden("不能访问其他企业的工单")
	}
	return order, nil
}

func (s *WorkOrderService) GetByIDScoped(ctx context.Context, actor *domain.User, id int64) (*domain.WorkOrder, error) {
	return s.getByIDScoped(ctx, s.c.store, actor, id)
}

// List 按层级决定可见范围：系统管理员可见全部，主管及以上可见本企业，普通用户只能看到自己创建的工单
func (s *WorkOrderService) List(ctx context.Context, actor *domain.User, page domain.Page) ([]*domain.WorkOrder, error) {
	page = s.c.page(page)

	switch actor.Level {
	case domain.LevelSystemAdmin:
		return s.c.store.WorkOrders().List(ctx, page)
	case domain.LevelDirector, domain.LevelManager, domain.LevelSupervisor:
		return s.c.store.WorkOrders().ListByCompany(ctx, actor.CompanyID, page)
	default:
		return s.c.store.WorkOrders().ListByCompanyAndCreator(ctx, actor.CompanyID, actor.ID, page)
	}
}

// Delete 不会物理删除工单：已完成的工单被归档，其余的被取消
func (s *WorkOrderService) Delete(ctx context.Context, actor *domain.User, id int64) (*domain.WorkOrder, error) {
	var order *domain.WorkOrder
	var pending *pendingAudit

	err := s.c.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		order, err = s.getByIDScoped(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		before := order.Status
		next, ok := before.NextOnDelete()
		if !ok {
			return domain.Conflict("工单已处于终止状态：%s", before)
		}

		order.Status = next
		if err := tx.WorkOrders().UpdateStatus(ctx, order); err != nil {
			switch {
			case errors.Is(err, store.ErrStaleVersion):
				return domain.Conflict("工单已被并发修改，请重试")
			case errors.Is(err, store.ErrNotFound):
				return domain.NotFound("工单不存在：%d", id)
			default:
				return err
			}
		}

		kind, action := auditCancelled, "工单已取消"
		if next == domain.StatusArchived {
			kind, action = auditArchived, "工单已归档"
		}
		pending, err = s.appendAudit(ctx, tx, order, actor, kind, action,
			stringPtr(before.StatusSnapshot()), stringPtr(next.StatusSnapshot()))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, pending)
	return order, nil
}

func userSnapshot(userID int64) *string {
	return stringPtr(fmt.Sprintf("userId: %d", userID))
}

func (s *WorkOrderService) AddParticipant(ctx context.Context, actor *domain.User, orderID, userID int64) (*domain.Participant, error) {
	var participant *domain.Participant
	var pending *pendingAudit

	err := s.c.store.Atomic(ctx, func(tx store.Store) error {
		order, err := s.getByIDScoped(ctx, tx, actor, orderID)
		if err != nil {
			return err
		}

		candidate, err := tx.Users().Get(ctx, userID)
		if err != nil {
			return notFound(err, "用户不存在：%d", userID)
		}
		if candidate.CompanyID != order.CompanyID {
			return domain.Validation("用户 '%s' 不属于该工单所在的企业", candidate.FullName)
		}

		exists, err := tx.Participants().ActiveExists(ctx, order.ID, candidate.ID)
		if err != nil {
			return err
		}
		if exists {
			return domain.Conflict("用户 '%s' 已经是该工单的参与者", candidate.FullName)
		}

		participant = &domain.Participant{
			WorkOrderID: order.ID,
			UserID:      candidate.ID,
			JoinedAt:    s.c.now(),
		}
		if err := tx.Participants().Create(ctx, participant); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return domain.Conflict("用户 '%s' 已经是该工单的参与者", candidate.FullName)
			}
			return err
		}

		pending, err = s.appendAudit(ctx, tx, order, actor, auditParticipantAdded,
			fmt.Sprintf("参与者 '%s' 已加入工单", candidate.FullName), nil, userSnapshot(candidate.ID))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, pending)
	return participant, nil
}

// RemoveParticipant 通过记录离开时间移除参与者，之后可以再次加入
func (s *WorkOrderService) RemoveParticipant(ctx context.Context, actor *domain.User, orderID, participantID int64) error {
	var pending *pendingAudit

	err := s.c.store.Atomic(ctx, func(tx store.Store) error {
		order, err := s.getByIDScoped(ctx, tx, actor, orderID)
		if err != nil {
			return err
		}

		participant, err := tx.Participants().Get(ctx, participantID)
		if err != nil {
			return notFound(err, "参与者不存在：%d", participantID)
		}
		if participant.WorkOrderID != order.ID {
			return domain.Validation("参与者 %d 不属于工单 %d", participantID, order.ID)
		}
		if !participant.Active() {
			return domain.Conflict("参与者 %d 已被移出工单", participantID)
		}

		user, err := tx.Users().Get(ctx, participant.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.IllegalState("参与者 %d 关联的用户不存在", participantID)
			}
			return err
		}

		if err := tx.Participants().MarkLeft(ctx, participant.ID, s.c.now()); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Conflict("参与者 %d 已被移出工单", participantID)
			}
			return err
		}

		pending, err = s.appendAudit(ctx, tx, order, actor, auditParticipantRemoved,
			fmt.Sprintf("参与者 '%s' 已移出工单", user.FullName), userSnapshot(user.ID), nil)
		return err
	})
	if err != nil {
		return err
	}

	s.publish(ctx, pending)
	return nil
}

func (s *WorkOrderService) ListParticipants(ctx context.Context, actor *domain.User, orderID int64) ([]*domain.Participant, error) {
	order, err := s.GetByIDScoped(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return s.c.store.Participants().ListActive(ctx, order.ID)
}

// History 返回工单的审计记录，最新的排在前面
func (s *WorkOrderService) History(ctx context.Context, actor *domain.User, orderID int64, page domain.Page) ([]*domain.AuditLogEntry, error) {
	order, err := s.GetByIDScoped(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return s.c.store.AuditLogs().ListByWorkOrder(ctx, order.ID, s.c.page(page))
}
