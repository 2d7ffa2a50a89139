package postgresql

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/mentorship-booking/internal/lib/retry"
	"github.com/magabrotheeeer/mentorship-booking/internal/migrations"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreatePackage создает пакет каталога
func (f *TestDataFactory) CreatePackage(t *testing.T, tier models.Tier, totalSessions int) models.Package {
	p := models.Package{
		ID:            "pkg-" + uuid.NewString(),
		Name:          string(tier) + " package",
		Tier:          tier,
		Segment:       models.SegmentEarlyCareer,
		TotalSessions: totalSessions,
		Phases:        1,
	}
	_, err := f.storage.DB.Exec(`INSERT INTO packages (id, name, tier, segment, total_sessions, phases, validity_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, string(p.Tier), string(p.Segment), p.TotalSessions, p.Phases, p.ValidityDays)
	require.NoError(t, err)
	return p
}

// CreateMentor создает ментора
func (f *TestDataFactory) CreateMentor(t *testing.T) models.Mentor {
	m := models.Mentor{
		ID:              "mentor-" + uuid.NewString(),
		UserID:          "user-" + uuid.NewString(),
		Name:            "Test Mentor",
		Active:          true,
		Level:           "senior",
		Specializations: []models.Segment{models.SegmentEarlyCareer, models.SegmentMidCareer},
		Timezone:        "UTC",
	}
	_, err := f.storage.DB.Exec(`INSERT INTO mentors (id, user_id, name, active, level, specializations, timezone)
		VALUES ($1, $2, $3, $4, $5, string_to_array($6, ','), $7)`,
		m.ID, m.UserID, m.Name, m.Active, m.Level, "EARLY_CAREER,MID_CAREER", m.Timezone)
	require.NoError(t, err)
	return m
}

// CreateSubscription создает ACTIVE-подписку пользователя на пакет
func (f *TestDataFactory) CreateSubscription(t *testing.T, userID string, p models.Package, used int) models.Subscription {
	s := models.Subscription{
		ID:            "sub-" + uuid.NewString(),
		UserID:        userID,
		PackageID:     p.ID,
		Tier:          p.Tier,
		Segment:       p.Segment,
		Status:        models.SubscriptionActive,
		TotalSessions: p.TotalSessions,
		SessionsUsed:  used,
		CurrentPhase:  1,
		PurchasedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := f.storage.DB.Exec(`INSERT INTO subscriptions
		(id, user_id, package_id, tier, segment, status, total_sessions, sessions_used, current_phase, purchased_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.UserID, s.PackageID, string(s.Tier), string(s.Segment), string(s.Status),
		s.TotalSessions, s.SessionsUsed, s.CurrentPhase, s.PurchasedAt)
	require.NoError(t, err)
	return s
}

// NewBooking возвращает сессию, готовую к вставке
func NewBooking(sub models.Subscription, mentorID string, at time.Time, duration int) *models.Booking {
	return &models.Booking{
		ID:             uuid.NewString(),
		UserID:         sub.UserID,
		MentorID:       mentorID,
		PackageID:      sub.PackageID,
		SubscriptionID: sub.ID,
		ScheduledAt:    at,
		Duration:       duration,
		Status:         models.BookingScheduled,
		SessionNumber:  sub.SessionsUsed + 1,
		CreatedAt:      at.Add(-24 * time.Hour),
	}
}

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn, retry.Config{MaxAttempts: 5, InitialInterval: 10 * time.Millisecond, MaxInterval: 100 * time.Millisecond})
	require.NoError(t, err)

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}
