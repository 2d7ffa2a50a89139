package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

const subscriptionColumns = `id, user_id, package_id, tier, segment, status,
        total_sessions, sessions_used, current_phase, purchased_at, expires_at, upgraded_from`

func (t *pgTx) GetPackage(ctx context.Context, id string) (*models.Package, error) {
	const op = "storage.postgresql.GetPackage"

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var (
		p             models.Package
		tier, segment string
	)
	err := t.tx.QueryRowContext(ctx, `
        SELECT id, name, tier, segment, total_sessions, phases, validity_days
        FROM packages WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &tier, &segment, &p.TotalSessions, &p.Phases, &p.ValidityDays)
	if err != nil {
		return nil, mapError(op, err)
	}
	p.Tier = models.Tier(tier)
	p.Segment = models.Segment(segment)
	return &p, nil
}

func (t *pgTx) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "storage.postgresql.GetSubscription"

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	row := t.tx.QueryRowContext(ctx, `
        SELECT `+subscriptionColumns+`
        FROM subscriptions
        WHERE id = $1`, id)
	s, err := scanSubscription(row)
	if err != nil {
		return nil, mapError(op, err)
	}
	return s, nil
}

func (t *pgTx) GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.postgresql.GetActiveSubscription"

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	row := t.tx.QueryRowContext(ctx, `
        SELECT `+subscriptionColumns+`
        FROM subscriptions
        WHERE user_id = $1 AND status = 'ACTIVE'`, userID)
	s, err := scanSubscription(row)
	if err != nil {
		return nil, mapError(op, err)
	}
	return s, nil
}

func scanSubscription(row *sql.Row) (*models.Subscription, error) {
	var (
		s                     models.Subscription
		tier, segment, status string
		expires               sql.NullTime
		upgradedFrom          sql.NullString
	)
	err := row.Scan(&s.ID, &s.UserID, &s.PackageID, &tier, &segment, &status,
		&s.TotalSessions, &s.SessionsUsed, &s.CurrentPhase, &s.PurchasedAt, &expires, &upgradedFrom)
	if err != nil {
		return nil, err
	}
	s.Tier = models.Tier(tier)
	s.Segment = models.Segment(segment)
	s.Status = models.SubscriptionStatus(status)
	s.PurchasedAt = s.PurchasedAt.UTC()
	if expires.Valid {
		e := expires.Time.UTC()
		s.ExpiresAt = &e
	}
	s.UpgradedFrom = upgradedFrom.String
	return &s, nil
}

func (t *pgTx) InsertSubscription(ctx context.Context, s *models.Subscription) error {
	const op = "storage.postgresql.InsertSubscription"

	_, err := t.tx.ExecContext(ctx, `
        INSERT INTO subscriptions (`+subscriptionColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.UserID, s.PackageID, string(s.Tier), string(s.Segment), string(s.Status),
		s.TotalSessions, s.SessionsUsed, s.CurrentPhase, s.PurchasedAt, s.ExpiresAt,
		sql.NullString{String: s.UpgradedFrom, Valid: s.UpgradedFrom != ""})
	if err != nil {
		return mapError(op, err)
	}
	return nil
}

func (t *pgTx) UpdateSubscription(ctx context.Context, s *models.Subscription) error {
	const op = "storage.postgresql.UpdateSubscription"

	res, err := t.tx.ExecContext(ctx, `
        UPDATE subscriptions SET
            status = $2, total_sessions = $3, sessions_used = $4, current_phase = $5, expires_at = $6
        WHERE id = $1`,
		s.ID, string(s.Status), s.TotalSessions, s.SessionsUsed, s.CurrentPhase, s.ExpiresAt)
	if err != nil {
		return mapError(op, err)
	}
	return expectRow(op, res, "subscription "+s.ID)
}

func (t *pgTx) ExpireSubscriptions(ctx context.Context, now time.Time) (int, error) {
	const op = "storage.postgresql.ExpireSubscriptions"

	res, err := t.tx.ExecContext(ctx, `
        UPDATE subscriptions SET status = 'EXPIRED'
        WHERE status = 'ACTIVE' AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}
