// Package memstore реализует storage.Store в памяти процесса.
//
// Используется при storage_driver: memory и в тестах движка. Блокировки по ключам
// реальные, записи транзакции накапливаются отдельно и применяются только при
// успешном завершении функции, поэтому откат не оставляет следов.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
	"github.com/magabrotheeeer/mentorship-booking/internal/storage"
)

// Store хранит данные в памяти.
type Store struct {
	locks *keyedMutex

	mu       sync.RWMutex
	mentors  map[string]models.Mentor
	rules    map[string][]models.AvailabilityRule
	bookings map[string]models.Booking
	packages map[string]models.Package
	subs     map[string]models.Subscription
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		locks:    newKeyedMutex(),
		mentors:  make(map[string]models.Mentor),
		rules:    make(map[string][]models.AvailabilityRule),
		bookings: make(map[string]models.Booking),
		packages: make(map[string]models.Package),
		subs:     make(map[string]models.Subscription),
	}
}

// InTx выполняет fn, удерживая блокировки locks; записи fn применяются атомарно.
func (s *Store) InTx(ctx context.Context, locks []storage.LockKey, fn func(ctx context.Context, tx storage.Tx) error) error {
	const op = "memstore.InTx"

	held := make([]string, 0, len(locks))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			s.locks.Unlock(held[i])
		}
	}()
	for _, k := range storage.SortedLocks(locks) {
		if err := s.locks.Lock(ctx, string(k)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		held = append(held, string(k))
	}

	tx := newTx(s)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.commit(tx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// commit проверяет ограничения, которые в PostgreSQL обеспечивают индексы,
// и применяет накопленные записи.
func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range tx.bookings {
		if !b.Status.HoldsTime() {
			continue
		}
		for otherID, o := range s.bookings {
			if staged, ok := tx.bookings[otherID]; ok {
				o = staged
			}
			if otherID == id || o.MentorID != b.MentorID || !o.Status.HoldsTime() {
				continue
			}
			if models.Overlaps(b.ScheduledAt, b.EndsAt(), o.ScheduledAt, o.EndsAt()) {
				return apperr.Conflict("booking %s overlaps booking %s", id, otherID)
			}
		}
	}
	for id, sub := range tx.subs {
		if sub.Status != models.SubscriptionActive {
			continue
		}
		for otherID, o := range s.subs {
			if staged, ok := tx.subs[otherID]; ok {
				o = staged
			}
			if otherID != id && o.UserID == sub.UserID && o.Status == models.SubscriptionActive {
				return apperr.Conflict("user %s already has an active subscription", sub.UserID)
			}
		}
	}

	for id, b := range tx.bookings {
		s.bookings[id] = b
	}
	for id, sub := range tx.subs {
		s.subs[id] = sub
	}
	for id, m := range tx.mentors {
		s.mentors[id] = m
	}
	for id, r := range tx.rules {
		s.rules[id] = r
	}
	return nil
}

// AddMentor добавляет ментора с правилами доступности.
func (s *Store) AddMentor(m models.Mentor, rules ...models.AvailabilityRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mentors[m.ID] = cloneMentor(m)
	for i := range rules {
		rules[i].MentorID = m.ID
	}
	s.rules[m.ID] = slices.Clone(rules)
}

// AddPackage добавляет пакет в каталог.
func (s *Store) AddPackage(p models.Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages[p.ID] = p
}

// AddSubscription добавляет подписку без проверок.
func (s *Store) AddSubscription(sub models.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.ID] = cloneSubscription(sub)
}

// AddBooking добавляет сессию без проверок.
func (s *Store) AddBooking(b models.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = cloneBooking(b)
}

// Snapshot возвращает копии всех сессий и подписок; используется для проверки инвариантов.
func (s *Store) Snapshot() ([]models.Booking, []models.Subscription) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bookings := make([]models.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		bookings = append(bookings, cloneBooking(b))
	}
	subs := make([]models.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, cloneSubscription(sub))
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ScheduledAt.Before(bookings[j].ScheduledAt) })
	return bookings, subs
}

type memTx struct {
	s        *Store
	mentors  map[string]models.Mentor
	rules    map[string][]models.AvailabilityRule
	bookings map[string]models.Booking
	subs     map[string]models.Subscription
}

func newTx(s *Store) *memTx {
	return &memTx{
		s:        s,
		mentors:  make(map[string]models.Mentor),
		rules:    make(map[string][]models.AvailabilityRule),
		bookings: make(map[string]models.Booking),
		subs:     make(map[string]models.Subscription),
	}
}

func (t *memTx) mentor(id string) (models.Mentor, bool) {
	if m, ok := t.mentors[id]; ok {
		return m, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	m, ok := t.s.mentors[id]
	return m, ok
}

func (t *memTx) GetMentor(_ context.Context, id string) (*models.Mentor, error) {
	m, ok := t.mentor(id)
	if !ok {
		return nil, apperr.NotFound("mentor %s", id)
	}
	m = cloneMentor(m)
	return &m, nil
}

func (t *memTx) GetMentorByUser(_ context.Context, userID string) (*models.Mentor, error) {
	t.s.mu.RLock()
	ids := make([]string, 0, len(t.s.mentors))
	for id := range t.s.mentors {
		ids = append(ids, id)
	}
	t.s.mu.RUnlock()
	for id := range t.mentors {
		ids = append(ids, id)
	}
	for _, id := range ids {
		if m, ok := t.mentor(id); ok && m.UserID == userID {
			m = cloneMentor(m)
			return &m, nil
		}
	}
	return nil, apperr.NotFound("mentor for user %s", userID)
}

func (t *memTx) SetMentorRating(_ context.Context, mentorID string, rating *float64) error {
	m, ok := t.mentor(mentorID)
	if !ok {
		return apperr.NotFound("mentor %s", mentorID)
	}
	m = cloneMentor(m)
	m.Rating = nil
	if rating != nil {
		r := *rating
		m.Rating = &r
	}
	t.mentors[mentorID] = m
	return nil
}

func (t *memTx) ListAvailabilityRules(_ context.Context, mentorID string) ([]models.AvailabilityRule, error) {
	if r, ok := t.rules[mentorID]; ok {
		return slices.Clone(r), nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return slices.Clone(t.s.rules[mentorID]), nil
}

func (t *memTx) ReplaceAvailabilityRules(_ context.Context, mentorID string, rules []models.AvailabilityRule) error {
	if _, ok := t.mentor(mentorID); !ok {
		return apperr.NotFound("mentor %s", mentorID)
	}
	rules = slices.Clone(rules)
	for i := range rules {
		rules[i].MentorID = mentorID
	}
	t.rules[mentorID] = rules
	return nil
}

// bookingsView возвращает сессии с учётом накопленных записей транзакции.
func (t *memTx) bookingsView() []models.Booking {
	t.s.mu.RLock()
	out := make([]models.Booking, 0, len(t.s.bookings)+len(t.bookings))
	for id, b := range t.s.bookings {
		if _, staged := t.bookings[id]; !staged {
			out = append(out, b)
		}
	}
	t.s.mu.RUnlock()
	for _, b := range t.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out
}

func (t *memTx) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	if b, ok := t.bookings[id]; ok {
		b = cloneBooking(b)
		return &b, nil
	}
	t.s.mu.RLock()
	b, ok := t.s.bookings[id]
	t.s.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound("booking %s", id)
	}
	b = cloneBooking(b)
	return &b, nil
}

func (t *memTx) ListBookings(_ context.Context, f storage.BookingFilter) ([]*models.Booking, error) {
	var out []*models.Booking
	skipped := 0
	for _, b := range t.bookingsView() {
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.MentorID != "" && b.MentorID != f.MentorID {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
		b = cloneBooking(b)
		out = append(out, &b)
	}
	return out, nil
}

func (t *memTx) ListMentorBookingsInRange(_ context.Context, mentorID string, from, to time.Time, excludeID string) ([]*models.Booking, error) {
	var out []*models.Booking
	for _, b := range t.bookingsView() {
		if b.MentorID != mentorID || b.ID == excludeID || !b.Status.HoldsTime() {
			continue
		}
		if models.Overlaps(b.ScheduledAt, b.EndsAt(), from, to) {
			b = cloneBooking(b)
			out = append(out, &b)
		}
	}
	return out, nil
}

func (t *memTx) ListFeedbackRatings(_ context.Context, mentorID string) ([]int, error) {
	var out []int
	for _, b := range t.bookingsView() {
		if b.MentorID == mentorID && b.Status == models.BookingCompleted && b.Feedback != nil {
			out = append(out, b.Feedback.Rating)
		}
	}
	return out, nil
}

func (t *memTx) ListPendingReminders(_ context.Context, from, to time.Time) ([]*models.Booking, error) {
	var out []*models.Booking
	for _, b := range t.bookingsView() {
		if b.Status == models.BookingScheduled && b.RemindedAt == nil &&
			!b.ScheduledAt.Before(from) && b.ScheduledAt.Before(to) {
			b = cloneBooking(b)
			out = append(out, &b)
		}
	}
	return out, nil
}

func (t *memTx) InsertBooking(_ context.Context, b *models.Booking) error {
	if _, err := t.GetBooking(context.Background(), b.ID); err == nil {
		return apperr.Conflict("booking %s already exists", b.ID)
	}
	t.bookings[b.ID] = cloneBooking(*b)
	return nil
}

func (t *memTx) UpdateBooking(ctx context.Context, b *models.Booking) error {
	if _, err := t.GetBooking(ctx, b.ID); err != nil {
		return err
	}
	t.bookings[b.ID] = cloneBooking(*b)
	return nil
}

func (t *memTx) GetPackage(_ context.Context, id string) (*models.Package, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	p, ok := t.s.packages[id]
	if !ok {
		return nil, apperr.NotFound("package %s", id)
	}
	return &p, nil
}

func (t *memTx) subsView() []models.Subscription {
	t.s.mu.RLock()
	out := make([]models.Subscription, 0, len(t.s.subs)+len(t.subs))
	for id, sub := range t.s.subs {
		if _, staged := t.subs[id]; !staged {
			out = append(out, sub)
		}
	}
	t.s.mu.RUnlock()
	for _, sub := range t.subs {
		out = append(out, sub)
	}
	return out
}

func (t *memTx) GetSubscription(_ context.Context, id string) (*models.Subscription, error) {
	for _, sub := range t.subsView() {
		if sub.ID == id {
			sub = cloneSubscription(sub)
			return &sub, nil
		}
	}
	return nil, apperr.NotFound("subscription %s", id)
}

func (t *memTx) GetActiveSubscription(_ context.Context, userID string) (*models.Subscription, error) {
	for _, sub := range t.subsView() {
		if sub.UserID == userID && sub.Status == models.SubscriptionActive {
			sub = cloneSubscription(sub)
			return &sub, nil
		}
	}
	return nil, apperr.NotFound("active subscription for user %s", userID)
}

func (t *memTx) InsertSubscription(_ context.Context, sub *models.Subscription) error {
	for _, o := range t.subsView() {
		if o.ID == sub.ID {
			return apperr.Conflict("subscription %s already exists", sub.ID)
		}
	}
	t.subs[sub.ID] = cloneSubscription(*sub)
	return nil
}

func (t *memTx) UpdateSubscription(_ context.Context, sub *models.Subscription) error {
	for _, o := range t.subsView() {
		if o.ID == sub.ID {
			t.subs[sub.ID] = cloneSubscription(*sub)
			return nil
		}
	}
	return apperr.NotFound("subscription %s", sub.ID)
}

func (t *memTx) ExpireSubscriptions(_ context.Context, now time.Time) (int, error) {
	n := 0
	for _, sub := range t.subsView() {
		if sub.Status == models.SubscriptionActive && sub.Expired(now) {
			sub.Status = models.SubscriptionExpired
			t.subs[sub.ID] = sub
			n++
		}
	}
	return n, nil
}

func cloneMentor(m models.Mentor) models.Mentor {
	if m.Rating != nil {
		r := *m.Rating
		m.Rating = &r
	}
	m.Specializations = slices.Clone(m.Specializations)
	return m
}

func cloneBooking(b models.Booking) models.Booking {
	if b.Feedback != nil {
		f := *b.Feedback
		b.Feedback = &f
	}
	if b.CancelledAt != nil {
		c := *b.CancelledAt
		b.CancelledAt = &c
	}
	if b.CompletedAt != nil {
		c := *b.CompletedAt
		b.CompletedAt = &c
	}
	if b.RemindedAt != nil {
		r := *b.RemindedAt
		b.RemindedAt = &r
	}
	return b
}

func cloneSubscription(s models.Subscription) models.Subscription {
	if s.ExpiresAt != nil {
		e := *s.ExpiresAt
		s.ExpiresAt = &e
	}
	return s
}
