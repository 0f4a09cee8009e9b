package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
)

type memData struct {
	companies    map[int64]domain.Company
	users        map[int64]domain.User
	workOrders   map[int64]domain.WorkOrder
	participants map[int64]domain.Participant
	auditLogs    map[int64]domain.AuditLogEntry
	seq          int64
}

func (d *memData) clone() *memData {
	c := &memData{
		companies:    make(map[int64]domain.Company, len(d.companies)),
		users:        make(map[int64]domain.User, len(d.users)),
		workOrders:   make(map[int64]domain.WorkOrder, len(d.workOrders)),
		participants: make(map[int64]domain.Participant, len(d.participants)),
		auditLogs:    make(map[int64]domain.AuditLogEntry, len(d.auditLogs)),
		seq:          d.seq,
	}
	for k, v := range d.companies {
		c.companies[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.workOrders {
		c.workOrders[k] = v
	}
	for k, v := range d.participants {
		c.participants[k] = v
	}
	for k, v := range d.auditLogs {
		c.auditLogs[k] = v
	}
	return c
}

func (d *memData) nextID() int64 {
	d.seq++
	return d.seq
}

// Memory 是 Store 的内存实现，用于测试和本地开发。
// Atomic 之间互斥执行，出错时恢复到事务开始前的快照。
// 事务外的读写会等待正在进行的 Atomic 结束，因此看不到未提交的修改。
type Memory struct {
	mu   *sync.Mutex
	txMu *sync.RWMutex
	data *memData
	inTx bool
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		mu:   &sync.Mutex{},
		txMu: &sync.RWMutex{},
		data: (&memData{}).clone(),
		now:  time.Now,
	}
}

func (m *Memory) Companies() CompanyStore       { return memCompanies{m} }
func (m *Memory) Users() UserStore               { return memUsers{m} }
func (m *Memory) WorkOrders() WorkOrderStore     { return memWorkOrders{m} }
func (m *Memory) Participants() ParticipantStore { return memParticipants{m} }
func (m *Memory) AuditLogs() AuditLogStore       { return memAuditLogs{m} }

func (m *Memory) Atomic(ctx context.Context, fn func(tx Store) error) error {
	if m.inTx {
		return fn(m)
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.data.clone()
	m.mu.Unlock()

	tx := &Memory{mu: m.mu, txMu: m.txMu, data: m.data, inTx: true, now: m.now}
	err := fn(tx)
	if err == nil {
		// 与数据库一致，上下文在提交前结束时整个事务作废
		err = ctx.Err()
	}
	if err != nil {
		m.mu.Lock()
		*m.data = *snapshot
		m.mu.Unlock()
		return err
	}

	return nil
}

// lock 锁住数据；事务外的调用还需要等待正在执行的 Atomic
func (m *Memory) lock() func() {
	if !m.inTx {
		m.txMu.RLock()
	}
	m.mu.Lock()
	return func() {
		m.mu.Unlock()
		if !m.inTx {
			m.txMu.RUnlock()
		}
	}
}

func paginate[T any](items []T, page domain.Page) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	items = items[page.Offset:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}

/**********************************************
 * companies
 **********************************************/

type memCompanies struct{ m *Memory }

func (s memCompanies) Create(ctx context.Context, company *domain.Company) error {
	defer s.m.lock()()

	for _, c := range s.m.data.companies {
		if c.EnrollmentCode == company.EnrollmentCode {
			return ErrConflict
		}
	}

	company.ID = s.m.data.nextID()
	company.CreatedAt = s.m.now()
	company.Version = 1
	s.m.data.companies[company.ID] = *company
	return nil
}

func (s memCompanies) Get(ctx context.Context, id int64) (*domain.Company, error) {
	defer s.m.lock()()

	c, ok := s.m.data.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s memCompanies) GetByEnrollmentCode(ctx context.Context, code string) (*domain.Company, error) {
	defer s.m.lock()()

	for _, c := range s.m.data.companies {
		if c.EnrollmentCode == code {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s memCompanies) ExistsByEnrollmentCode(ctx context.Context, code string) (bool, error) {
	_, err := s.GetByEnrollmentCode(ctx, code)
	switch err {
	case nil:
		return true, nil
	case ErrNotFound:
		return false, nil
	default:
		return false, err
	}
}

func (s memCompanies) List(ctx context.Context, page domain.Page) ([]*domain.Company, error) {
	defer s.m.lock()()

	companies := make([]*domain.Company, 0, len(s.m.data.companies))
	for _, c := range s.m.data.companies {
		companies = append(companies, &c)
	}
	slices.SortFunc(companies, func(a, b *domain.Company) int { return cmp.Compare(a.ID, b.ID) })
	return paginate(companies, page), nil
}

func (s memCompanies) Update(ctx context.Context, company *domain.Company) error {
	defer s.m.lock()()

	stored, ok := s.m.data.companies[company.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != company.Version {
		return ErrStaleVersion
	}

	stored.Name = company.Name
	stored.Version++
	s.m.data.companies[company.ID] = stored
	*company = stored
	return nil
}

func (s memCompanies) Delete(ctx context.Context, id int64) error {
	defer s.m.lock()()

	if _, ok := s.m.data.companies[id]; !ok {
		return ErrNotFound
	}
	for _, u := range s.m.data.users {
		if u.CompanyID == id {
			return ErrConflict
		}
	}
	delete(s.m.data.companies, id)
	return nil
}

/**********************************************
 * users
 **********************************************/

type memUsers struct{ m *Memory }

func (s memUsers) Create(ctx context.Context, user *domain.User) error {
	defer s.m.lock()()

	if _, ok := s.m.data.companies[user.CompanyID]; !ok {
		return ErrConflict
	}
	for _, u := range s.m.data.users {
		if u.CompanyID == user.CompanyID && (u.Username == user.Username || u.Email == user.Email) {
			return ErrConflict
		}
	}

	user.ID = s.m.data.nextID()
	user.CreatedAt = s.m.now()
	user.Version = 1
	s.m.data.users[user.ID] = *user
	return nil
}

func (s memUsers) Get(ctx context.Context, id int64) (*domain.User, error) {
	defer s.m.lock()()

	u, ok := s.m.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s memUsers) find(match func(u *domain.User) bool) []*domain.User {
	defer s.m.lock()()

	users := make([]*domain.User, 0)
	for _, u := range s.m.data.users {
		if match(&u) {
			users = append(users, &u)
		}
	}
	slices.SortFunc(users, func(a, b *domain.User) int { return cmp.Compare(a.ID, b.ID) })
	return users
}

func (s memUsers) FindByUsername(ctx context.Context, username string) ([]*domain.User, error) {
	return s.find(func(u *domain.User) bool { return u.Username == username }), nil
}

func (s memUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return len(s.find(func(u *domain.User) bool { return u.Username == username })) > 0, nil
}

func (s memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return len(s.find(func(u *domain.User) bool { return u.Email == email })) > 0, nil
}

func (s memUsers) ExistsByUsernameInCompany(ctx context.Context, username string, companyID int64) (bool, error) {
	return len(s.find(func(u *domain.User) bool { return u.CompanyID == companyID && u.Username == username })) > 0, nil
}

func (s memUsers) ExistsByEmailInCompany(ctx context.Context, email string, companyID int64) (bool, error) {
	return len(s.find(func(u *domain.User) bool { return u.CompanyID == companyID && u.Email == email })) > 0, nil
}

func (s memUsers) ExistsInCompany(ctx context.Context, companyID int64) (bool, error) {
	return len(s.find(func(u *domain.User) bool { return u.CompanyID == companyID })) > 0, nil
}

func (s memUsers) List(ctx context.Context, page domain.Page) ([]*domain.User, error) {
	return paginate(s.find(func(*domain.User) bool { return true }), page), nil
}

func (s memUsers) ListByCompany(ctx context.Context, companyID int64, page domain.Page) ([]*domain.User, error) {
	return paginate(s.find(func(u *domain.User) bool { return u.CompanyID == companyID }), page), nil
}

func (s memUsers) Update(ctx context.Context, user *domain.User) error {
	defer s.m.lock()()

	stored, ok := s.m.data.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != user.Version {
		return ErrStaleVersion
	}

	stored.PasswordHash = user.PasswordHash
	stored.Level = user.Level
	stored.Title = user.Title
	stored.IsActive = user.IsActive
	stored.Version++
	s.m.data.users[user.ID] = stored
	*user = stored
	return nil
}

/**********************************************
 * work orders
 **********************************************/

type memWorkOrders struct{ m *Memory }

func (s memWorkOrders) Create(ctx context.Context, order *domain.WorkOrder) error {
	defer s.m.lock()()

	if _, ok := s.m.data.companies[order.CompanyID]; !ok {
		return ErrConflict
	}
	if _, ok := s.m.data.users[order.CreatorID]; !ok {
		return ErrConflict
	}

	order.ID = s.m.data.nextID()
	order.Version = 1
	s.m.data.workOrders[order.ID] = *order
	return nil
}

func (s memWorkOrders) Get(ctx context.Context, id int64) (*domain.WorkOrder, error) {
	defer s.m.lock()()

	o, ok := s.m.data.workOrders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s memWorkOrders) find(match func(o *domain.WorkOrder) bool, page domain.Page) []*domain.WorkOrder {
	defer s.m.lock()()

	orders := make([]*domain.WorkOrder, 0)
	for _, o := range s.m.data.workOrders {
		if match(&o) {
			orders = append(orders, &o)
		}
	}
	slices.SortFunc(orders, func(a, b *domain.WorkOrder) int { return cmp.Compare(a.ID, b.ID) })
	return paginate(orders, page)
}

func (s memWorkOrders) List(ctx context.Context, page domain.Page) ([]*domain.WorkOrder, error) {
	return s.find(func(*domain.WorkOrder) bool { return true }, page), nil
}

func (s memWorkOrders) ListByCompany(ctx context.Context, companyID int64, page domain.Page) ([]*domain.WorkOrder, error) {
	return s.find(func(o *domain.WorkOrder) bool { return o.CompanyID == companyID }, page), nil
}

func (s memWorkOrders) ListByCompanyAndCreator(ctx context.Context, companyID, creatorID int64, page domain.Page) ([]*domain.WorkOrder, error) {
	return s.find(func(o *domain.WorkOrder) bool { return o.CompanyID == companyID && o.CreatorID == creatorID }, page), nil
}

func (s memWorkOrders) UpdateStatus(ctx context.Context, order *domain.WorkOrder) error {
	defer s.m.lock()()

	stored, ok := s.m.data.workOrders[order.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != order.Version {
		return ErrStaleVersion
	}

	stored.Status = order.Status
	stored.Version++
	s.m.data.workOrders[order.ID] = stored
	*order = stored
	return nil
}

/**********************************************
 * participants
 **********************************************/

type memParticipants struct{ m *Memory }

func (s memParticipants) Create(ctx context.Context, participant *domain.Participant) error {
	defer s.m.lock()()

	if _, ok := s.m.data.workOrders[participant.WorkOrderID]; !ok {
		return ErrConflict
	}
	if _, ok := s.m.data.users[participant.UserID]; !ok {
		return ErrConflict
	}
	for _, p := range s.m.data.participants {
		if p.WorkOrderID == participant.WorkOrderID && p.UserID == participant.UserID && p.Active() {
			return ErrConflict
		}
	}

	participant.ID = s.m.data.nextID()
	s.m.data.participants[participant.ID] = *participant
	return nil
}

func (s memParticipants) Get(ctx context.Context, id int64) (*domain.Participant, error) {
	defer s.m.lock()()

	p, ok := s.m.data.participants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s memParticipants) ActiveExists(ctx context.Context, workOrderID, userID int64) (bool, error) {
	defer s.m.lock()()

	for _, p := range s.m.data.participants {
		if p.WorkOrderID == workOrderID && p.UserID == userID && p.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (s memParticipants) ListActive(ctx context.Context, workOrderID int64) ([]*domain.Participant, error) {
	defer s.m.lock()()

	participants := make([]*domain.Participant, 0)
	for _, p := range s.m.data.participants {
		if p.WorkOrderID == workOrderID && p.Active() {
			participants = append(participants, &p)
		}
	}
	slices.SortFunc(participants, func(a, b *domain.Participant) int { return cmp.Compare(a.ID, b.ID) })
	return participants, nil
}

func (s memParticipants) MarkLeft(ctx context.Context, id int64, at time.Time) error {
	defer s.m.lock()()

	p, ok := s.m.data.participants[id]
	if !ok || !p.Active() {
		return ErrNotFound
	}
	p.LeftAt = &at
	s.m.data.participants[id] = p
	return nil
}

/**********************************************
 * audit logs
 **********************************************/

type memAuditLogs struct{ m *Memory }

func (s memAuditLogs) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	defer s.m.lock()()

	if _, ok := s.m.data.workOrders[entry.WorkOrderID]; !ok {
		return ErrConflict
	}

	entry.ID = s.m.data.nextID()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.m.now()
	}
	s.m.data.auditLogs[entry.ID] = *entry
	return nil
}

func (s memAuditLogs) ListByWorkOrder(ctx context.Context, workOrderID int64, page domain.Page) ([]*domain.AuditLogEntry, error) {
	defer s.m.lock()()

	entries := make([]*domain.AuditLogEntry, 0)
	for _, e := range s.m.data.auditLogs {
		if e.WorkOrderID == workOrderID {
			entries = append(entries, &e)
		}
	}
	// 最新的记录排在前面
	slices.SortFunc(entries, func(a, b *domain.AuditLogEntry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return paginate(entries, page), nil
}
