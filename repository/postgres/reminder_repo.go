package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/repository"
)

const reminderColumns = `r.id, r.client_id, r.due_date, r.due_time, r.frequency, r.description, r.is_completed, r.last_notified_at, r.created_at`

type reminderRepository struct {
	pool *pgxpool.Pool
}

// NewReminderRepository returns a Postgres-backed implementation of ReminderRepository.
func NewReminderRepository(pool *pgxpool.Pool) repository.ReminderRepository {
	return &reminderRepository{pool: pool}
}

func (r *reminderRepository) GetByID(ctx context.Context, id int64) (*domain.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders r WHERE r.id = $1`
	return scanReminder(r.pool.QueryRow(ctx, query, id))
}

func (r *reminderRepository) List(ctx context.Context, filter repository.ReminderFilter) ([]domain.Reminder, error) {
	query := `
	SELECT ` + reminderColumns + `
	FROM reminders r
	WHERE ($1 = 0 OR r.client_id = $1)
	  AND ($2::boolean IS NULL OR r.is_completed = $2)
	ORDER BY r.due_date, r.id
	LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, filter.ClientID, filter.Completed, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []domain.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, *reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

func (r *reminderRepository) Create(ctx context.Context, reminder *domain.Reminder) (*domain.Reminder, error) {
	if reminder == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO reminders (client_id, due_date, due_time, frequency, description, created_at)
	VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	RETURNING id, created_at
	`

	if err := r.pool.QueryRow(ctx, query,
		reminder.ClientID,
		encodeDate(reminder.DueDate),
		encodeTimeOfDay(reminder.DueTime),
		string(reminder.Frequency),
		reminder.Description,
		nullTime(reminder.CreatedAt),
	).Scan(&reminder.ID, &reminder.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	return reminder, nil
}

func (r *reminderRepository) Update(ctx context.Context, reminder *domain.Reminder) error {
	if reminder == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE reminders
	SET client_id = $2,
		due_date = $3,
		due_time = $4,
		frequency = $5,
		description = $6
	WHERE id = $1
	RETURNING is_completed, last_notified_at, created_at
	`

	if err := r.pool.QueryRow(ctx, query,
		reminder.ID,
		reminder.ClientID,
		encodeDate(reminder.DueDate),
		encodeTimeOfDay(reminder.DueTime),
		string(reminder.Frequency),
		reminder.Description,
	).Scan(&reminder.Completed, &reminder.LastNotifiedAt, &reminder.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrReminderNotFound
		}
		return fmt.Errorf("update reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) ListNotifiable(ctx context.Context, filter repository.CandidateFilter) ([]domain.Candidate, error) {
	query := `
	SELECT ` + reminderColumns + `, c.name, c.email
	FROM reminders r
	JOIN clients c ON c.id = r.client_id
	WHERE r.is_completed = FALSE
	  AND c.email IS NOT NULL AND c.email <> ''
	  AND r.id > $1
	ORDER BY r.id
	LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, filter.AfterID, clampLimit(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("list notifiable reminders: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		candidate, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifiable reminders: %w", err)
	}
	return candidates, nil
}

func (r *reminderRepository) GetCandidate(ctx context.Context, id int64) (*domain.Candidate, error) {
	query := `
	SELECT ` + reminderColumns + `, c.name, c.email
	FROM reminders r
	LEFT JOIN clients c ON c.id = r.client_id
	WHERE r.id = $1
	`
	return scanCandidate(r.pool.QueryRow(ctx, query, id))
}

func (r *reminderRepository) MarkNotified(ctx context.Context, id int64, at time.Time) error {
	const query = `
	UPDATE reminders
	SET last_notified_at = GREATEST(last_notified_at, $2::timestamptz)
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("mark reminder %d notified: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func (r *reminderRepository) MarkCompleted(ctx context.Context, id int64) error {
	const query = `UPDATE reminders SET is_completed = TRUE WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark reminder %d completed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func scanReminder(row rowScanner) (*domain.Reminder, error) {
	var (
		reminder  domain.Reminder
		dueDate   time.Time
		dueTime   pgtype.Time
		frequency string
	)

	if err := row.Scan(
		&reminder.ID,
		&reminder.ClientID,
		&dueDate,
		&dueTime,
		&frequency,
		&reminder.Description,
		&reminder.Completed,
		&reminder.LastNotifiedAt,
		&reminder.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReminderNotFound
		}
		return nil, fmt.Errorf("scan reminder: %w", err)
	}

	reminder.DueDate = domain.DateOf(dueDate)
	reminder.DueTime = decodeTimeOfDay(dueTime)
	reminder.Frequency = domain.Frequency(frequency)
	return &reminder, nil
}

func scanCandidate(row rowScanner) (*domain.Candidate, error) {
	var (
		candidate   domain.Candidate
		dueDate     time.Time
		dueTime     pgtype.Time
		frequency   string
		name, email *string
	)

	if err := row.Scan(
		&candidate.ID,
		&candidate.ClientID,
		&dueDate,
		&dueTime,
		&frequency,
		&candidate.Description,
		&candidate.Completed,
		&candidate.LastNotifiedAt,
		&candidate.CreatedAt,
		&name,
		&email,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReminderNotFound
		}
		return nil, fmt.Errorf("scan candidate: %w", err)
	}

	candidate.DueDate = domain.DateOf(dueDate)
	candidate.DueTime = decodeTimeOfDay(dueTime)
	candidate.Frequency = domain.Frequency(frequency)
	candidate.ClientName = derefString(name)
	candidate.ClientEmail = derefString(email)
	return &candidate, nil
}
