package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/repository"
)

const reminderColumns = `r.id, r.client_id, r.due_date, r.due_time, r.frequency, r.description, r.is_completed, r.last_notified_at, r.created_at`

type reminderRepository struct {
	db *sql.DB
}

// NewReminderRepository returns a SQLite-backed implementation of ReminderRepository.
func NewReminderRepository(db *sql.DB) repository.ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) GetByID(ctx context.Context, id int64) (*domain.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders r WHERE r.id = ?`
	return scanReminder(r.db.QueryRowContext(ctx, query, id))
}

func (r *reminderRepository) List(ctx context.Context, filter repository.ReminderFilter) ([]domain.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders r
		WHERE (?1 = 0 OR r.client_id = ?1)
		  AND (?2 IS NULL OR r.is_completed = ?2)
		ORDER BY r.due_date, r.id
		LIMIT ?3 OFFSET ?4
	`
	var completed interface{}
	if filter.Completed != nil {
		completed = *filter.Completed
	}
	rows, err := r.db.QueryContext(ctx, query, filter.ClientID, completed, clampLimit(filter.Limit), filter.Offset)
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
	return reminders, rows.Err()
}

func (r *reminderRepository) Create(ctx context.Context, reminder *domain.Reminder) (*domain.Reminder, error) {
	if reminder == nil {
		return nil, domain.ErrInvalidPayload
	}
	reminder.CreatedAt = fromMillis(toMillis(createdAtOrNow(reminder.CreatedAt)))

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (client_id, due_date, due_time, frequency, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		nullClientID(reminder.ClientID),
		reminder.DueDate.String(),
		nullTimeOfDay(reminder.DueTime),
		string(reminder.Frequency),
		reminder.Description,
		toMillis(reminder.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	reminder.ID = id
	return reminder, nil
}

func (r *reminderRepository) Update(ctx context.Context, reminder *domain.Reminder) error {
	if reminder == nil {
		return domain.ErrInvalidPayload
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE reminders
		SET client_id = ?, due_date = ?, due_time = ?, frequency = ?, description = ?
		WHERE id = ?
		RETURNING is_completed, last_notified_at, created_at
	`,
		nullClientID(reminder.ClientID),
		reminder.DueDate.String(),
		nullTimeOfDay(reminder.DueTime),
		string(reminder.Frequency),
		reminder.Description,
		reminder.ID,
	)

	var (
		lastNotified sql.NullInt64
		createdAt    int64
	)
	if err := row.Scan(&reminder.Completed, &lastNotified, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrReminderNotFound
		}
		return fmt.Errorf("update reminder: %w", err)
	}
	reminder.LastNotifiedAt = nil
	if lastNotified.Valid {
		last := fromMillis(lastNotified.Int64)
		reminder.LastNotifiedAt = &last
	}
	reminder.CreatedAt = fromMillis(createdAt)
	return nil
}

func (r *reminderRepository) ListNotifiable(ctx context.Context, filter repository.CandidateFilter) ([]domain.Candidate, error) {
	query := `
		SELECT ` + reminderColumns + `, c.name, c.email
		FROM reminders r
		JOIN clients c ON c.id = r.client_id
		WHERE r.is_completed = 0
		  AND c.email IS NOT NULL AND c.email <> ''
		  AND r.id > ?
		ORDER BY r.id
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, filter.AfterID, clampLimit(filter.Limit))
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
	return candidates, rows.Err()
}

func (r *reminderRepository) GetCandidate(ctx context.Context, id int64) (*domain.Candidate, error) {
	query := `
		SELECT ` + reminderColumns + `, c.name, c.email
		FROM reminders r
		LEFT JOIN clients c ON c.id = r.client_id
		WHERE r.id = ?
	`
	return scanCandidate(r.db.QueryRowContext(ctx, query, id))
}

func (r *reminderRepository) MarkNotified(ctx context.Context, id int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET last_notified_at = MAX(COALESCE(last_notified_at, 0), ?) WHERE id = ?`,
		toMillis(at), id,
	)
	if err != nil {
		return fmt.Errorf("mark reminder %d notified: %w", id, err)
	}
	return requireRow(result, id)
}

func (r *reminderRepository) MarkCompleted(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE reminders SET is_completed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark reminder %d completed: %w", id, err)
	}
	return requireRow(result, id)
}

func requireRow(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reminder %d: rows affected: %w", id, err)
	}
	if n == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func scanReminder(row rowScanner) (*domain.Reminder, error) {
	var raw reminderRow
	if err := row.Scan(raw.targets()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReminderNotFound
		}
		return nil, fmt.Errorf("scan reminder: %w", err)
	}
	reminder, err := raw.decode()
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

func scanCandidate(row rowScanner) (*domain.Candidate, error) {
	var (
		raw         reminderRow
		name, email sql.NullString
	)
	if err := row.Scan(append(raw.targets(), &name, &email)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReminderNotFound
		}
		return nil, fmt.Errorf("scan candidate: %w", err)
	}
	reminder, err := raw.decode()
	if err != nil {
		return nil, err
	}
	return &domain.Candidate{
		Reminder:    reminder,
		ClientName:  name.String,
		ClientEmail: email.String,
	}, nil
}
