package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

const mentorColumns = `id, user_id, name, active, rating, level,
        array_to_string(specializations, ','), timezone`

func scanMentor(row interface{ Scan(...any) error }) (*models.Mentor, error) {
	var (
		m      models.Mentor
		rating sql.NullFloat64
		specs  string
	)
	if err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Active, &rating, &m.Level, &specs, &m.Timezone); err != nil {
		return nil, err
	}
	if rating.Valid {
		r := rating.Float64
		m.Rating = &r
	}
	if specs != "" {
		for _, s := range strings.Split(specs, ",") {
			m.Specializations = append(m.Specializations, models.Segment(s))
		}
	}
	return &m, nil
}

func (t *pgTx) GetMentor(ctx context.Context, id string) (*models.Mentor, error) {
	const op = "storage.postgresql.GetMentor"

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	row := t.tx.QueryRowContext(ctx, `SELECT `+mentorColumns+` FROM mentors WHERE id = $1`, id)
	m, err := scanMentor(row)
	if err != nil {
		return nil, mapError(op, err)
	}
	return m, nil
}

func (t *pgTx) GetMentorByUser(ctx context.Context, userID string) (*models.Mentor, error) {
	const op = "storage.postgresql.GetMentorByUser"

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	row := t.tx.QueryRowContext(ctx, `SELECT `+mentorColumns+` FROM mentors WHERE user_id = $1`, userID)
	m, err := scanMentor(row)
	if err != nil {
		return nil, mapError(op, err)
	}
	return m, nil
}

func (t *pgTx) SetMentorRating(ctx context.Context, mentorID string, rating *float64) error {
	const op = "storage.postgresql.SetMentorRating"

	var value sql.NullFloat64
	if rating != nil {
		value = sql.NullFloat64{Float64: *rating, Valid: true}
	}
	res, err := t.tx.ExecContext(ctx, `UPDATE mentors SET rating = $2 WHERE id = $1`, mentorID, value)
	if err != nil {
		return mapError(op, err)
	}
	return expectRow(op, res, "mentor "+mentorID)
}

func (t *pgTx) ListAvailabilityRules(ctx context.Context, mentorID string) ([]models.AvailabilityRule, error) {
	const op = "storage.postgresql.ListAvailabilityRules"

	rows, err := t.tx.QueryContext(ctx, `
        SELECT kind, weekday, rule_date, start_minute, end_minute
        FROM availability_rules
        WHERE mentor_id = $1
        ORDER BY id`, mentorID)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var rules []models.AvailabilityRule
	for rows.Next() {
		var (
			kind       string
			weekday    sql.NullInt16
			date       sql.NullTime
			start, end int
		)
		if err := rows.Scan(&kind, &weekday, &date, &start, &end); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		rule := models.AvailabilityRule{
			Kind:     models.RuleKind(kind),
			Start:    models.ClockTime(start),
			End:      models.ClockTime(end),
			MentorID: mentorID,
		}
		if weekday.Valid {
			rule.Weekday = time.Weekday(weekday.Int16)
		}
		if date.Valid {
			y, mo, d := date.Time.Date()
			rule.Date = time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rules, nil
}

func (t *pgTx) ReplaceAvailabilityRules(ctx context.Context, mentorID string, rules []models.AvailabilityRule) error {
	const op = "storage.postgresql.ReplaceAvailabilityRules"

	if _, err := t.GetMentor(ctx, mentorID); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM availability_rules WHERE mentor_id = $1`, mentorID); err != nil {
		return mapError(op, err)
	}
	for _, r := range rules {
		var (
			weekday any
			date    any
		)
		switch r.Kind {
		case models.RuleRecurring:
			weekday = int16(r.Weekday)
		case models.RuleOneOff:
			date = r.Date.Format(time.DateOnly)
		}
		_, err := t.tx.ExecContext(ctx, `
            INSERT INTO availability_rules (mentor_id, kind, weekday, rule_date, start_minute, end_minute)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			mentorID, string(r.Kind), weekday, date, int(r.Start), int(r.End))
		if err != nil {
			return mapError(op, err)
		}
	}
	return nil
}

func expectRow(op string, res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperr.NotFound("%s", what))
	}
	return nil
}
