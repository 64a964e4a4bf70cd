package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/field-dispatch/internal/entity"
	"github.com/xavierca1/field-dispatch/internal/infra/queue"
)

// memStore is an in-memory ledger backend. Do holds a per-technician and
// per-schedule mutex for the life of the transaction, like SELECT ... FOR
// UPDATE, and applies staged writes only on commit.
type memStore struct {
	mu              sync.Mutex
	techs           map[string]*entity.Technician
	leads           map[string]*entity.Lead
	schedules       map[string]*entity.JobSchedule
	enqueued        map[string]bool
	rowLocks        map[string]*sync.Mutex
	commits         int
	rollbacks       int
	txDelay         time.Duration
	listWeekNo      int
	// notifyResultErr fails the next UpdateNotificationResult once
	notifyResultErr error
}

func newMemStore() *memStore {
	return &memStore{
		techs:     map[string]*entity.Technician{},
		leads:     map[string]*entity.Lead{},
		schedules: map[string]*entity.JobSchedule{},
		enqueued:  map[string]bool{},
		rowLocks:  map[string]*sync.Mutex{},
	}
}

func (s *memStore) addTech(t *entity.Technician) *entity.Technician {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.techs[t.ID] = t
	return t
}

func (s *memStore) addLead(l *entity.Lead) *entity.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[l.ID] = l
	return l
}

func (s *memStore) addSchedule(j *entity.JobSchedule) *entity.JobSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[j.ID] = j
	return j
}

func (s *memStore) schedule(id string) entity.JobSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.schedules[id]
}

func (s *memStore) scheduleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.schedules)
}

func (s *memStore) rowLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rowLocks[key]
	if !ok {
		m = &sync.Mutex{}
		s.rowLocks[key] = m
	}
	return m
}

func (s *memStore) Do(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx := &memTx{store: s, held: map[string]*sync.Mutex{}, staged: map[string]*entity.JobSchedule{}}
	defer tx.release()

	if err := fn(tx); err != nil {
		s.mu.Lock()
		s.rollbacks++
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, j := range tx.staged {
		if prev, ok := s.schedules[id]; ok && !timePtrEqual(prev.NotifyAt, j.NotifyAt) {
			delete(s.enqueued, id)
		}
		s.schedules[id] = j
	}
	s.commits++
	return nil
}

type memTx struct {
	store  *memStore
	held   map[string]*sync.Mutex
	staged map[string]*entity.JobSchedule
}

func (tx *memTx) lock(key string) {
	if _, ok := tx.held[key]; ok {
		return
	}
	m := tx.store.rowLock(key)
	m.Lock()
	tx.held[key] = m
}

func (tx *memTx) release() {
	for _, m := range tx.held {
		m.Unlock()
	}
}

func (tx *memTx) LockTechnician(ctx context.Context, id string) (*entity.Technician, error) {
	tx.store.mu.Lock()
	_, ok := tx.store.techs[id]
	tx.store.mu.Unlock()
	if !ok {
		return nil, entity.ErrTechnicianNotFound
	}

	tx.lock("tech:" + id)
	if tx.store.txDelay > 0 {
		time.Sleep(tx.store.txDelay)
	}

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	t := *tx.store.techs[id]
	return &t, nil
}

func (tx *memTx) LockSchedule(ctx context.Context, id string) (*entity.JobSchedule, error) {
	tx.store.mu.Lock()
	_, ok := tx.store.schedules[id]
	tx.store.mu.Unlock()
	if !ok {
		return nil, entity.ErrScheduleNotFound
	}

	tx.lock("schedule:" + id)

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	j := *tx.store.schedules[id]
	return &j, nil
}

func (tx *memTx) FindLead(ctx context.Context, id string) (*entity.Lead, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	l, ok := tx.store.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	cp := *l
	return &cp, nil
}

func (tx *memTx) CountActiveOnDate(ctx context.Context, technicianID, date, excludeScheduleID string) (int, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	visible := map[string]*entity.JobSchedule{}
	for id, j := range tx.store.schedules {
		visible[id] = j
	}
	for id, j := range tx.staged {
		visible[id] = j
	}

	n := 0
	for id, j := range visible {
		if id == excludeScheduleID {
			continue
		}
		if j.TechnicianID == technicianID && j.ScheduledDate == date && j.Status != entity.ScheduleStatusCancelled {
			n++
		}
	}
	return n, nil
}

func (tx *memTx) InsertSchedule(ctx context.Context, s *entity.JobSchedule) error {
	cp := *s
	tx.staged[s.ID] = &cp
	return nil
}

func (tx *memTx) UpdateSchedule(ctx context.Context, s *entity.JobSchedule) error {
	cp := *s
	tx.staged[s.ID] = &cp
	return nil
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// memScheduleRepo exposes memStore as a ScheduleRepository.
type memScheduleRepo struct{ *memStore }

func (r memScheduleRepo) FindByID(ctx context.Context, id string) (*entity.JobSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.schedules[id]
	if !ok {
		return nil, entity.ErrScheduleNotFound
	}
	cp := *j
	return &cp, nil
}

func (r memScheduleRepo) view(j *entity.JobSchedule) *entity.ScheduleView {
	v := &entity.ScheduleView{JobSchedule: *j}
	if t, ok := r.techs[j.TechnicianID]; ok {
		v.Technician = entity.TechnicianSnapshot{
			ID: t.ID, Name: t.Name, Phone: t.Phone, Email: t.Email,
			Color: t.Color, NotificationPreference: t.NotificationPreference, IsActive: t.IsActive,
		}
	}
	if l, ok := r.leads[j.LeadID]; ok {
		v.Lead = entity.LeadSnapshot{
			ID: l.ID, Name: l.Name, Phone: l.Phone, Email: l.Email,
			Address: l.Address, ServiceType: l.ServiceType, Status: l.Status,
		}
	}
	return v
}

func (r memScheduleRepo) FindView(ctx context.Context, id string) (*entity.ScheduleView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.schedules[id]
	if !ok {
		return nil, entity.ErrScheduleNotFound
	}
	return r.view(j), nil
}

func (r memScheduleRepo) ListWeek(ctx context.Context, from, to string) ([]*entity.ScheduleView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listWeekNo++

	out := []*entity.ScheduleView{}
	for _, j := range r.schedules {
		if j.Status == entity.ScheduleStatusCancelled || j.ScheduledDate < from || j.ScheduledDate > to {
			continue
		}
		out = append(out, r.view(j))
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].ScheduledDate != out[b].ScheduledDate {
			return out[a].ScheduledDate < out[b].ScheduledDate
		}
		if out[a].ScheduledTime != out[b].ScheduledTime {
			return out[a].ScheduledTime < out[b].ScheduledTime
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

func (r memScheduleRepo) UpdateNotificationResult(ctx context.Context, id string, status entity.NotificationStatus, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notifyResultErr != nil {
		err := r.notifyResultErr
		r.notifyResultErr = nil
		return err
	}
	j, ok := r.schedules[id]
	if !ok {
		return entity.ErrScheduleNotFound
	}
	if j.NotificationStatus != entity.NotificationPending {
		return entity.ErrNotificationAlreadyRecorded
	}
	j.NotificationStatus = status
	j.NotificationProviderID = providerID
	return nil
}

func (r memScheduleRepo) ClaimDueNotifications(ctx context.Context, now time.Time, limit int) ([]*entity.JobSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.JobSchedule
	for id, j := range r.schedules {
		if len(out) >= limit {
			break
		}
		if j.NotificationStatus != entity.NotificationPending || r.enqueued[id] || j.Status.Terminal() {
			continue
		}
		if j.NotifyAt == nil || j.NotifyAt.After(now) {
			continue
		}
		r.enqueued[id] = true
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (r memScheduleRepo) ReleaseNotificationClaim(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.enqueued, id)
	return nil
}

// memTechRepo exposes memStore as a TechnicianRepository.
type memTechRepo struct{ *memStore }

func (r memTechRepo) Create(ctx context.Context, t *entity.Technician) error {
	r.addTech(t)
	return nil
}

func (r memTechRepo) FindByID(ctx context.Context, id string) (*entity.Technician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.techs[id]
	if !ok {
		return nil, entity.ErrTechnicianNotFound
	}
	cp := *t
	return &cp, nil
}

func (r memTechRepo) ListActive(ctx context.Context) ([]*entity.Technician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Technician
	for _, t := range r.techs {
		if t.IsActive {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

func (r memTechRepo) Update(ctx context.Context, t *entity.Technician) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.techs[t.ID]; !ok {
		return entity.ErrTechnicianNotFound
	}
	cp := *t
	r.techs[t.ID] = &cp
	return nil
}

func (r memTechRepo) CountActiveJobsByTechnician(ctx context.Context, date string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int{}
	for _, j := range r.schedules {
		if j.ScheduledDate == date && j.Status != entity.ScheduleStatusCancelled {
			counts[j.TechnicianID]++
		}
	}
	return counts, nil
}

// memLeadRepo exposes memStore as a LeadRepository.
type memLeadRepo struct{ *memStore }

func (r memLeadRepo) Create(ctx context.Context, l *entity.Lead) error {
	r.addLead(l)
	return nil
}

func (r memLeadRepo) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	cp := *l
	return &cp, nil
}

func (r memLeadRepo) FindByStatus(ctx context.Context, statuses []entity.LeadStatus, limit int) ([]*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[entity.LeadStatus]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	var out []*entity.Lead
	for _, l := range r.leads {
		if want[l.Status] {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memLeadRepo) UpdateStatus(ctx context.Context, id string, status entity.LeadStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return entity.ErrLeadNotFound
	}
	l.Status = status
	return nil
}

// memCache is a WeekViewCache that counts invalidations.
type memCache struct {
	mu          sync.Mutex
	generation  int64
	rows        map[string][]*entity.ScheduleView
	invalidated int
}

func newMemCache() *memCache {
	return &memCache{rows: map[string][]*entity.ScheduleView{}}
}

func (c *memCache) key(gen int64, week string) string {
	return fmt.Sprintf("%d:%s", gen, week)
}

func (c *memCache) Get(ctx context.Context, weekStart string) ([]*entity.ScheduleView, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, ok := c.rows[c.key(c.generation, weekStart)]
	return rows, c.generation, ok, nil
}

func (c *memCache) Set(ctx context.Context, weekStart string, generation int64, rows []*entity.ScheduleView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[c.key(generation, weekStart)] = rows
	return nil
}

func (c *memCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.invalidated++
	return nil
}

func (c *memCache) invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated
}

type MockNotificationQueue struct {
	mock.Mock
}

func (m *MockNotificationQueue) PublishNotification(ctx context.Context, payload queue.NotificationPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) Send(ctx context.Context, to, body string) (string, error) {
	args := m.Called(ctx, to, body)
	return args.String(0), args.Error(1)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendJobNotification(to string, data JobNotificationData) (string, error) {
	args := m.Called(to, data)
	return args.String(0), args.Error(1)
}

// fixture wires a ledger over memStore with a fixed clock in UTC.
type fixture struct {
	store    *memStore
	cache    *memCache
	queue    *MockNotificationQueue
	notifier *NotificationScheduler
	ledger   *ScheduleLedger
	registry *TechnicianRegistry
	now      time.Time
}

func newFixture(now time.Time) *fixture {
	store := newMemStore()
	cache := newMemCache()
	q := new(MockNotificationQueue)
	clock := func() time.Time { return now }

	notifier := NewNotificationScheduler(time.Hour, time.UTC, memScheduleRepo{store}, q, nil)
	notifier.Now = clock
	ledger := NewScheduleLedger(store, memScheduleRepo{store}, notifier, cache, nil)
	ledger.Now = clock
	registry := NewTechnicianRegistry(memTechRepo{store}, cache, time.UTC, nil)
	registry.Now = clock

	return &fixture{
		store:    store,
		cache:    cache,
		queue:    q,
		notifier: notifier,
		ledger:   ledger,
		registry: registry,
		now:      now,
	}
}

func (f *fixture) technician(name string, max int, serviceTypes ...string) *entity.Technician {
	t := entity.NewTechnician(name, "5551234567", "", serviceTypes, max, entity.NotifyAll, "")
	return f.store.addTech(t)
}

func (f *fixture) lead(name, serviceType string, status entity.LeadStatus) *entity.Lead {
	l, err := entity.NewLead(name, "5559876543", "", "1 Main St", serviceType, "")
	if err != nil {
		panic(err)
	}
	l.Status = status
	return f.store.addLead(l)
}

func strPtr(s string) *string { return &s }
