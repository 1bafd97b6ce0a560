// Package memory is an in-process implementation of the unit of work used by
// tests and local simulations. Production wiring always uses the gorm one.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/repository/contract"
	"fitness-billing-be/internal/repository/unitofwork"
	"fitness-billing-be/pkg/billing"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type state struct {
	users    map[uuid.UUID]entity.User
	subs     map[uuid.UUID]entity.Subscription
	seq      map[uuid.UUID]int64
	audit    []entity.SubscriptionAuditEvent
	receipts map[string]entity.BillingEventReceipt
}

func (s *state) clone() *state {
	c := &state{
		users:    make(map[uuid.UUID]entity.User, len(s.users)),
		subs:     make(map[uuid.UUID]entity.Subscription, len(s.subs)),
		seq:      make(map[uuid.UUID]int64, len(s.seq)),
		audit:    append([]entity.SubscriptionAuditEvent(nil), s.audit...),
		receipts: make(map[string]entity.BillingEventReceipt, len(s.receipts)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.subs {
		c.subs[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.receipts {
		c.receipts[k] = v
	}
	return c
}

// Store holds all rows. Transactions snapshot the whole store on Begin and
// restore it on Rollback.
type Store struct {
	mu      sync.Mutex
	data    *state
	counter int64
	failOn  map[string]error
	locks   []string

	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		data: &state{
			users:    make(map[uuid.UUID]entity.User),
			subs:     make(map[uuid.UUID]entity.Subscription),
			seq:      make(map[uuid.UUID]int64),
			receipts: make(map[string]entity.BillingEventReceipt),
		},
		failOn: make(map[string]error),
		Now:    time.Now,
	}
}

// FailOn makes the named operation (e.g. "subscriptions.create") return err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[op] = err
}

// LockedKeys lists every key passed to UnitOfWork.Lock, in order.
func (s *Store) LockedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.locks...)
}

func (s *Store) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: s}
}

// Users returns a copy of every stored user.
func (s *Store) Users() []entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.User, 0, len(s.data.users))
	for _, u := range s.data.users {
		out = append(out, u)
	}
	return out
}

// Subscriptions returns every stored row, oldest first.
func (s *Store) Subscriptions() []entity.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Subscription, 0, len(s.data.subs))
	for _, sub := range s.data.subs {
		out = append(out, sub)
	}
	seq := s.data.seq
	sort.Slice(out, func(i, j int) bool { return seq[out[i].Id] < seq[out[j].Id] })
	return out
}

func (s *Store) AuditEvents() []entity.SubscriptionAuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.SubscriptionAuditEvent(nil), s.data.audit...)
}

// PutUser seeds a user directly, bypassing transactions.
func (s *Store) PutUser(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Id == uuid.Nil {
		u.Id = uuid.New()
	}
	s.data.users[u.Id] = u
}

// PutSubscription seeds a ledger row directly, bypassing transactions.
func (s *Store) PutSubscription(sub entity.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.Id == uuid.Nil {
		sub.Id = uuid.New()
	}
	s.counter++
	s.data.seq[sub.Id] = s.counter
	s.data.subs[sub.Id] = sub
}

func (s *Store) fail(op string) error {
	return s.failOn[op]
}

type unitOfWork struct {
	store    *Store
	snapshot *state
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if u.snapshot != nil {
		return fmt.Errorf("transaction already started")
	}
	if err := u.store.fail("begin"); err != nil {
		return err
	}
	u.snapshot = u.store.data.clone()
	return nil
}

func (u *unitOfWork) Commit() error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if u.snapshot == nil {
		return fmt.Errorf("no transaction to commit")
	}
	if err := u.store.fail("commit"); err != nil {
		u.store.data = u.snapshot
		u.snapshot = nil
		return err
	}
	u.snapshot = nil
	return nil
}

func (u *unitOfWork) Rollback() error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if u.snapshot == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	u.store.data = u.snapshot
	u.snapshot = nil
	return nil
}

func (u *unitOfWork) Lock(ctx context.Context, key string) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if u.snapshot == nil {
		return fmt.Errorf("lock requires an open transaction")
	}
	u.store.locks = append(u.store.locks, key)
	return nil
}

func (u *unitOfWork) UserRepository() contract.UserRepository {
	return &userRepository{store: u.store}
}

func (u *unitOfWork) SubscriptionRepository() contract.SubscriptionRepository {
	return &subscriptionRepository{store: u.store}
}

func (u *unitOfWork) EventReceiptRepository() contract.EventReceiptRepository {
	return &receiptRepository{store: u.store}
}

type userRepository struct {
	store *Store
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("users.create"); err != nil {
		return err
	}
	for _, existing := range s.data.users {
		if existing.Phone == user.Phone {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.Id == uuid.Nil {
		user.Id = uuid.New()
	}
	now := s.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.data.users[user.Id] = *user
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("users.find"); err != nil {
		return nil, err
	}
	u, ok := s.data.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepository) FindByPhone(ctx context.Context, phone string) (*entity.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("users.find"); err != nil {
		return nil, err
	}
	for _, u := range s.data.users {
		if u.Phone == phone {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (r *userRepository) UpdateSubscriptionMirror(ctx context.Context, user *entity.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("users.update_mirror"); err != nil {
		return err
	}
	stored, ok := s.data.users[user.Id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.SubscriptionStatus = user.SubscriptionStatus
	stored.SubscriptionPlan = user.SubscriptionPlan
	stored.SubscriptionEndDate = user.SubscriptionEndDate
	stored.UpdatedAt = s.Now()
	s.data.users[user.Id] = stored
	return nil
}

type subscriptionRepository struct {
	store *Store
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *entity.Subscription) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("subscriptions.create"); err != nil {
		return err
	}
	for _, existing := range s.data.subs {
		if sub.AggregatorTransactionId != "" && existing.Phone == sub.Phone && existing.AggregatorTransactionId == sub.AggregatorTransactionId {
			return billing.ErrDuplicateTransaction
		}
	}
	if sub.Status == entity.SubscriptionStatusActive {
		for _, existing := range s.data.subs {
			if existing.UserId == sub.UserId && existing.Status == entity.SubscriptionStatusActive {
				return billing.ErrActiveSubscriptionExists
			}
		}
	}
	if sub.Id == uuid.Nil {
		sub.Id = uuid.New()
	}
	now := s.Now()
	sub.CreatedAt, sub.UpdatedAt = now, now
	s.counter++
	s.data.seq[sub.Id] = s.counter
	stored := *sub
	stored.AuditTrail = nil
	s.data.subs[sub.Id] = stored
	return nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *entity.Subscription) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("subscriptions.update"); err != nil {
		return err
	}
	if _, ok := s.data.subs[sub.Id]; !ok {
		return gorm.ErrRecordNotFound
	}
	sub.UpdatedAt = s.Now()
	stored := *sub
	stored.AuditTrail = nil
	s.data.subs[sub.Id] = stored
	return nil
}

func (r *subscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Subscription, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.data.subs[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (r *subscriptionRepository) FindByTransaction(ctx context.Context, phone, transactionId string) (*entity.Subscription, error) {
	if transactionId == "" {
		return nil, nil
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.data.subs {
		if sub.Phone == phone && sub.AggregatorTransactionId == transactionId {
			found := sub
			return &found, nil
		}
	}
	return nil, nil
}

func (r *subscriptionRepository) FindByUserAndStatus(ctx context.Context, userId uuid.UUID, status entity.SubscriptionStatus) ([]*entity.Subscription, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("subscriptions.find"); err != nil {
		return nil, err
	}
	return s.newestFirst(func(sub entity.Subscription) bool {
		return sub.UserId == userId && sub.Status == status
	}), nil
}

func (r *subscriptionRepository) FindHistory(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*entity.Subscription, int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.newestFirst(func(sub entity.Subscription) bool { return sub.UserId == userId })
	total := int64(len(all))
	if offset >= len(all) {
		return []*entity.Subscription{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *subscriptionRepository) ExpireActiveBefore(ctx context.Context, userId uuid.UUID, cutoff time.Time) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("subscriptions.expire"); err != nil {
		return 0, err
	}
	var n int64
	for id, sub := range s.data.subs {
		if sub.UserId == userId && sub.Status == entity.SubscriptionStatusActive && sub.EndDate.Before(cutoff) {
			sub.Status = entity.SubscriptionStatusExpired
			sub.UpdatedAt = s.Now()
			s.data.subs[id] = sub
			n++
		}
	}
	return n, nil
}

func (r *subscriptionRepository) AppendAuditEvent(ctx context.Context, event *entity.SubscriptionAuditEvent) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("audit.append"); err != nil {
		return err
	}
	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	event.CreatedAt = s.Now()
	s.data.audit = append(s.data.audit, *event)
	return nil
}

func (r *subscriptionRepository) FindAuditTrail(ctx context.Context, subscriptionId uuid.UUID) ([]entity.SubscriptionAuditEvent, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.SubscriptionAuditEvent
	for _, e := range s.data.audit {
		if e.SubscriptionId == subscriptionId {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *subscriptionRepository) GetStats(ctx context.Context) (*entity.SubscriptionStats, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &entity.SubscriptionStats{
		ByStatus: make(map[entity.SubscriptionStatus]int64),
		ByPlan:   make(map[billing.PlanType]int64),
	}
	for _, sub := range s.data.subs {
		stats.TotalSubscriptions++
		stats.ByStatus[sub.Status]++
		stats.ByPlan[sub.PlanType]++
		if sub.Status != entity.SubscriptionStatusPending {
			stats.TotalRevenue += sub.Amount * int64(1+sub.RenewalCount)
		}
	}
	stats.ActiveSubscribers = stats.ByStatus[entity.SubscriptionStatusActive]
	return stats, nil
}

// newestFirst must be called with s.mu held.
func (s *Store) newestFirst(match func(entity.Subscription) bool) []*entity.Subscription {
	var out []*entity.Subscription
	for _, sub := range s.data.subs {
		if match(sub) {
			c := sub
			out = append(out, &c)
		}
	}
	seq := s.data.seq
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return seq[out[i].Id] > seq[out[j].Id]
	})
	return out
}

type receiptRepository struct {
	store *Store
}

func (r *receiptRepository) Claim(ctx context.Context, receipt *entity.BillingEventReceipt) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("receipts.claim"); err != nil {
		return false, err
	}
	key := receipt.Phone + "|" + receipt.TransactionId + "|" + receipt.EventType
	if _, exists := s.data.receipts[key]; exists {
		return false, nil
	}
	if receipt.Id == uuid.Nil {
		receipt.Id = uuid.New()
	}
	s.data.receipts[key] = *receipt
	return true, nil
}
