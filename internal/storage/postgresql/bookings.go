package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/magabrotheeeer/mentorship-booking/internal/models"
	"github.com/magabrotheeeer/mentorship-booking/internal/storage"
)

const bookingColumns = `id, user_id, user_email, mentor_id, package_id, subscription_id, scheduled_at,
        duration_minutes, status, notes, feedback, session_number, meeting_url,
        cancel_reason, created_at, cancelled_at, completed_at, reminded_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var (
		b           models.Booking
		status      string
		feedback    []byte
		cancelledAt sql.NullTime
		completedAt sql.NullTime
		remindedAt  sql.NullTime
	)
	err := row.Scan(&b.ID, &b.UserID, &b.UserEmail, &b.MentorID, &b.PackageID, &b.SubscriptionID, &b.ScheduledAt,
		&b.Duration, &status, &b.Notes, &feedback, &b.SessionNumber, &b.MeetingURL,
		&b.CancelReason, &b.CreatedAt, &cancelledAt, &completedAt, &remindedAt)
	if err != nil {
		return nil, err
	}
	b.Status = models.BookingStatus(status)
	b.ScheduledAt = b.ScheduledAt.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	if len(feedback) > 0 {
		var f models.Feedback
		if err := json.Unmarshal(feedback, &f); err != nil {
			return nil, fmt.Errorf("decode feedback: %w", err)
		}
		b.Feedback = &f
	}
	if cancelledAt.Valid {
		c := cancelledAt.Time.UTC()
		b.CancelledAt = &c
	}
	if completedAt.Valid {
		c := completedAt.Time.UTC()
		b.CompletedAt = &c
	}
	if remindedAt.Valid {
		r := remindedAt.Time.UTC()
		b.RemindedAt = &r
	}
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]*models.Booking, error) {
	defer rows.Close()
	var out []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func feedbackValue(f *models.Feedback) (any, error) {
	if f == nil {
		return nil, nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (t *pgTx) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	const op = "storage.postgresql.GetBooking"

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	row := t.tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, mapError(op, err)
	}
	return b, nil
}

func (t *pgTx) ListBookings(ctx context.Context, f storage.BookingFilter) ([]*models.Booking, error) {
	const op = "storage.postgresql.ListBookings"

	limit := any(nil)
	if f.Limit > 0 {
		limit = f.Limit
	}
	rows, err := t.tx.QueryContext(ctx, `
        SELECT `+bookingColumns+`
        FROM bookings
        WHERE ($1 = '' OR user_id = $1)
          AND ($2 = '' OR mentor_id = $2)
        ORDER BY scheduled_at, id
        LIMIT $3 OFFSET $4`,
		f.UserID, f.MentorID, limit, f.Offset)
	if err != nil {
		return nil, mapError(op, err)
	}
	out, err := scanBookings(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (t *pgTx) ListMentorBookingsInRange(ctx context.Context, mentorID string, from, to time.Time, excludeID string) ([]*models.Booking, error) {
	const op = "storage.postgresql.ListMentorBookingsInRange"

	rows, err := t.tx.QueryContext(ctx, `
        SELECT `+bookingColumns+`
        FROM bookings
        WHERE mentor_id = $1
          AND status IN ('SCHEDULED', 'COMPLETED')
          AND scheduled_at < $3
          AND ends_at > $2
          AND id <> $4
        ORDER BY scheduled_at`,
		mentorID, from, to, excludeID)
	if err != nil {
		return nil, mapError(op, err)
	}
	out, err := scanBookings(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (t *pgTx) ListFeedbackRatings(ctx context.Context, mentorID string) ([]int, error) {
	const op = "storage.postgresql.ListFeedbackRatings"

	rows, err := t.tx.QueryContext(ctx, `
        SELECT (feedback->>'rating')::int
        FROM bookings
        WHERE mentor_id = $1 AND status = 'COMPLETED' AND feedback IS NOT NULL
        ORDER BY id`, mentorID)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ratings, nil
}

func (t *pgTx) ListPendingReminders(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	const op = "storage.postgresql.ListPendingReminders"

	rows, err := t.tx.QueryContext(ctx, `
        SELECT `+bookingColumns+`
        FROM bookings
        WHERE status = 'SCHEDULED' AND reminded_at IS NULL
          AND scheduled_at >= $1 AND scheduled_at < $2
        ORDER BY scheduled_at`, from, to)
	if err != nil {
		return nil, mapError(op, err)
	}
	out, err := scanBookings(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (t *pgTx) InsertBooking(ctx context.Context, b *models.Booking) error {
	const op = "storage.postgresql.InsertBooking"

	fb, err := feedbackValue(b.Feedback)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err = t.tx.ExecContext(ctx, `
        INSERT INTO bookings (id, user_id, user_email, mentor_id, package_id, subscription_id,
            scheduled_at, ends_at, duration_minutes, status, notes, feedback, session_number,
            meeting_url, cancel_reason, created_at, cancelled_at, completed_at, reminded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		b.ID, b.UserID, b.UserEmail, b.MentorID, b.PackageID, b.SubscriptionID, b.ScheduledAt,
		b.EndsAt(), b.Duration, string(b.Status), b.Notes, fb, b.SessionNumber, b.MeetingURL,
		b.CancelReason, b.CreatedAt, b.CancelledAt, b.CompletedAt, b.RemindedAt)
	if err != nil {
		return mapError(op, err)
	}
	return nil
}

func (t *pgTx) UpdateBooking(ctx context.Context, b *models.Booking) error {
	const op = "storage.postgresql.UpdateBooking"

	fb, err := feedbackValue(b.Feedback)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	res, err := t.tx.ExecContext(ctx, `
        UPDATE bookings SET
            scheduled_at = $2, ends_at = $3, duration_minutes = $4, status = $5, notes = $6,
            feedback = $7, meeting_url = $8, cancel_reason = $9, cancelled_at = $10, completed_at = $11,
            reminded_at = $12
        WHERE id = $1`,
		b.ID, b.ScheduledAt, b.EndsAt(), b.Duration, string(b.Status), b.Notes,
		fb, b.MeetingURL, b.CancelReason, b.CancelledAt, b.CompletedAt, b.RemindedAt)
	if err != nil {
		return mapError(op, err)
	}
	return expectRow(op, res, "booking "+b.ID)
}
