package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
)

func seedCompanyAndUser(t *testing.T, m *Memory) (*domain.Company, *domain.User) {
	t.Helper()
	ctx := context.Background()

	company := &domain.Company{Name: "Acme", EnrollmentCode: "ACME1"}
	if err := m.Companies().Create(ctx, company); err != nil {
		t.Fatalf("create company: %v", err)
	}
	user := &domain.User{CompanyID: company.ID, FullName: "Bob", Username: "bob", Email: "bob@acme.test", Level: domain.LevelCommon, IsActive: true}
	if err := m.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return company, user
}

func TestMemoryAtomicRollsBackOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	company, user := seedCompanyAndUser(t, m)

	boom := errors.New("boom")
	err := m.Atomic(ctx, func(tx Store) error {
		order := &domain.WorkOrder{CompanyID: company.ID, CreatorID: user.ID, Title: "Fix printer", Status: domain.StatusOpen}
		if err := tx.WorkOrders().Create(ctx, order); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	orders, err := m.WorkOrders().List(ctx, domain.Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected rollback to discard the work order, found %d", len(orders))
	}
}

func TestMemoryAtomicCommits(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	company, user := seedCompanyAndUser(t, m)

	err := m.Atomic(ctx, func(tx Store) error {
		order := &domain.WorkOrder{CompanyID: company.ID, CreatorID: user.ID, Title: "Fix printer", Status: domain.StatusOpen}
		if err := tx.WorkOrders().Create(ctx, order); err != nil {
			return err
		}
		return tx.AuditLogs().Append(ctx, &domain.AuditLogEntry{WorkOrderID: order.ID, ActorID: user.ID, Action: "created"})
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}

	orders, _ := m.WorkOrders().List(ctx, domain.Page{})
	if len(orders) != 1 {
		t.Fatalf("expected 1 work order, got %d", len(orders))
	}
	entries, _ := m.AuditLogs().ListByWorkOrder(ctx, orders[0].ID, domain.Page{})
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
}

func TestMemoryAtomicRollsBackOnCancelledContext(t *testing.T) {
	m := NewMemory()
	company, user := seedCompanyAndUser(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	err := m.Atomic(ctx, func(tx Store) error {
		order := &domain.WorkOrder{CompanyID: company.ID, CreatorID: user.ID, Title: "Fix printer", Status: domain.StatusOpen}
		if err := tx.WorkOrders().Create(ctx, order); err != nil {
			return err
		}
		if err := tx.AuditLogs().Append(ctx, &domain.AuditLogEntry{WorkOrderID: order.ID, ActorID: user.ID, Action: "created"}); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	orders, _ := m.WorkOrders().List(context.Background(), domain.Page{})
	if len(orders) != 0 {
		t.Fatalf("expected cancelled transaction to be discarded, found %d work orders", len(orders))
	}
}

func TestMemoryReadsWaitForTransaction(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	company, user := seedCompanyAndUser(t, m)

	seen := make(chan int, 1)
	err := m.Atomic(ctx, func(tx Store) error {
		order := &domain.WorkOrder{CompanyID: company.ID, CreatorID: user.ID, Title: "Fix printer", Status: domain.StatusOpen}
		if err := tx.WorkOrders().Create(ctx, order); err != nil {
			return err
		}

		go func() {
			orders, _ := m.WorkOrders().List(ctx, domain.Page{})
			seen <- len(orders)
		}()

		select {
		case n := <-seen:
			t.Errorf("read outside the transaction returned early with %d work orders", n)
		case <-time.After(50 * time.Millisecond):
		}
		return errors.New("rollback")
	})
	if err == nil {
		t.Fatal("expected rollback error")
	}

	select {
	case n := <-seen:
		if n != 0 {
			t.Fatalf("expected the read to see the rolled back state, got %d work orders", n)
		}
	case <-time.After(time.Second):
		t.Fatal("read outside the transaction never completed")
	}
}

func TestMemoryUniqueConstraints(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	company, user := seedCompanyAndUser(t, m)

	if err := m.Companies().Create(ctx, &domain.Company{Name: "Other", EnrollmentCode: "ACME1"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on duplicate enrollment code, got %v", err)
	}

	dup := &domain.User{CompanyID: company.ID, Username: "bob", Email: "other@acme.test", Level: domain.LevelCommon}
	if err := m.Users().Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on duplicate username, got %v", err)
	}

	order := &domain.WorkOrder{CompanyID: company.ID, CreatorID: user.ID, Title: "t", Status: domain.StatusOpen}
	if err := m.WorkOrders().Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	p := &domain.Participant{WorkOrderID: order.ID, UserID: user.ID, JoinedAt: time.Now()}
	if err := m.Participants().Create(ctx, p); err != nil {
		t.Fatalf("create participant: %v", err)
	}
	if err := m.Participants().Create(ctx, &domain.Participant{WorkOrderID: order.ID, UserID: user.ID}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on duplicate active participant, got %v", err)
	}
	if err := m.Participants().MarkLeft(ctx, p.ID, time.Now()); err != nil {
		t.Fatalf("mark left: %v", err)
	}
	if err := m.Participants().Create(ctx, &domain.Participant{WorkOrderID: order.ID, UserID: user.ID}); err != nil {
		t.Fatalf("re-adding after leaving should succeed: %v", err)
	}
}

func TestMemoryCompanyDeleteGuard(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	company, _ := seedCompanyAndUser(t, m)

	if err := m.Companies().Delete(ctx, company.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict deleting company with users, got %v", err)
	}
	if err := m.Companies().Delete(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStaleVersion(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	company, user := seedCompanyAndUser(t, m)

	order := &domain.WorkOrder{CompanyID: company.ID, CreatorID: user.ID, Title: "t", Status: domain.StatusOpen}
	if err := m.WorkOrders().Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	first := *order
	second := *order
	first.Status = domain.StatusCancelled
	if err := m.WorkOrders().UpdateStatus(ctx, &first); err != nil {
		t.Fatalf("first update: %v", err)
	}
	second.Status = domain.StatusCancelled
	if err := m.WorkOrders().UpdateStatus(ctx, &second); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected stale version, got %v", err)
	}
}

func TestMemoryAuditNewestFirstAndPaged(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	company, user := seedCompanyAndUser(t, m)

	order := &domain.WorkOrder{CompanyID: company.ID, CreatorID: user.ID, Title: "t", Status: domain.StatusOpen}
	if err := m.WorkOrders().Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, action := range []string{"a", "b", "c"} {
		entry := &domain.AuditLogEntry{WorkOrderID: order.ID, ActorID: user.ID, Action: action, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := m.AuditLogs().Append(ctx, entry); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := m.AuditLogs().ListByWorkOrder(ctx, order.ID, domain.Page{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].Action != "c" || entries[1].Action != "b" {
		t.Fatalf("unexpected order: %+v", entries)
	}
}
