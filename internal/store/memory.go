package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/internaltypes"
)

// Memory keeps every table in maps behind one mutex. Tests across the module
// run against it.
type Memory struct {
	mu       sync.Mutex
	nextID   int64
	tasks    map[int64]domain.Task
	accounts map[int64]domain.Account
	payments map[int64]domain.PaymentProfile
	bookings map[int64]domain.Booking
	logs     []domain.LogEntry
}

func NewMemory() *Memory {
	return &Memory{
		tasks:    make(map[int64]domain.Task),
		accounts: make(map[int64]domain.Account),
		payments: make(map[int64]domain.PaymentProfile),
		bookings: make(map[int64]domain.Booking),
	}
}

func (m *Memory) Stores() Stores {
	return Stores{
		Tasks:    memTasks{m},
		Accounts: memAccounts{m},
		Payments: memPayments{m},
		Bookings: memBookings{m},
		Logs:     memLogs{m},
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// PutAccount stores a, assigning an id when it has none.
func (m *Memory) PutAccount(a domain.Account) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		a.ID = m.id()
	}
	m.accounts[a.ID] = a
	return a.ID
}

func (m *Memory) PutPayment(p domain.PaymentProfile) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.id()
	}
	m.payments[p.ID] = p
	return p.ID
}

// PutTask stores t without validating its fields. Create is the validated
// path. An empty status becomes PENDING; a status outside the known set
// panics.
func (m *Memory) PutTask(t domain.Task) int64 {
	if t.Status == "" {
		t.Status = domain.StatusPending
	}
	if _, err := domain.ParseStatus(string(t.Status)); err != nil {
		panic(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		t.ID = m.id()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.tasks[t.ID] = t
	return t.ID
}

// SetStatus overwrites a task status without validation, the way an operator
// editing the row directly would.
func (m *Memory) SetStatus(id int64, s domain.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tasks[id]
	t.Status = s
	m.tasks[id] = t
}

func (m *Memory) LogEntries() []domain.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LogEntry(nil), m.logs...)
}

func (m *Memory) BookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

type memTasks struct{ m *Memory }

func (s memTasks) ListActive(ctx context.Context) ([]domain.Task, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []domain.Task
	for _, t := range s.m.tasks {
		if t.Status.IsActive() {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s memTasks) Get(ctx context.Context, id int64) (domain.Task, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tasks[id]
	if !ok {
		return domain.Task{}, internaltypes.ErrNotFound
	}
	return t, nil
}

func (s memTasks) Create(ctx context.Context, t domain.Task) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	t.ID = 0
	t.Status = domain.StatusPending
	t.LastCheckedAt = nil
	t.CreatedAt = time.Time{}
	return s.m.PutTask(t), nil
}

func (s memTasks) Transition(ctx context.Context, id int64, from, to domain.Status) error {
	if err := domain.Transition(from, to); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tasks[id]
	if !ok || t.Status != from {
		return fmt.Errorf("task %d: %w (expected %s)", id, internaltypes.ErrStaleStatus, from)
	}
	t.Status = to
	s.m.tasks[id] = t
	return nil
}

func (s memTasks) Touch(ctx context.Context, id int64, at time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tasks[id]
	if !ok {
		return nil
	}
	at = at.UTC()
	if t.LastCheckedAt == nil || at.After(*t.LastCheckedAt) {
		t.LastCheckedAt = &at
	}
	s.m.tasks[id] = t
	return nil
}

type memAccounts struct{ m *Memory }

func (s memAccounts) Get(ctx context.Context, id int64) (domain.Account, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	a, ok := s.m.accounts[id]
	if !ok {
		return domain.Account{}, internaltypes.ErrNotFound
	}
	return a, nil
}

type memPayments struct{ m *Memory }

func (s memPayments) Get(ctx context.Context, id int64) (domain.PaymentProfile, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.payments[id]
	if !ok {
		return domain.PaymentProfile{}, internaltypes.ErrNotFound
	}
	return p, nil
}

type memBookings struct{ m *Memory }

func (s memBookings) Insert(ctx context.Context, b domain.Booking) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.bookings {
		if existing.TaskID == b.TaskID {
			return 0, fmt.Errorf("%w: booking_task_unique", internaltypes.ErrDuplicate)
		}
	}
	b.ID = s.m.id()
	if b.BookedAt.IsZero() {
		b.BookedAt = time.Now().UTC()
	}
	s.m.bookings[b.ID] = b
	return b.ID, nil
}

func (s memBookings) ForTask(ctx context.Context, taskID int64) (domain.Booking, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, b := range s.m.bookings {
		if b.TaskID == taskID {
			return b, nil
		}
	}
	return domain.Booking{}, internaltypes.ErrNotFound
}

type memLogs struct{ m *Memory }

func (s memLogs) Append(ctx context.Context, e domain.LogEntry) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	e.ID = s.m.id()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.m.logs = append(s.m.logs, e)
	return nil
}
