package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/repository"
)

type clientRepository struct {
	db *sql.DB
}

// NewClientRepository instantiates a SQLite-backed client repository.
func NewClientRepository(db *sql.DB) repository.ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	const query = `SELECT id, name, email, phone, created_at FROM clients WHERE id = ?`
	return scanClient(r.db.QueryRowContext(ctx, query, id))
}

func (r *clientRepository) List(ctx context.Context, filter repository.ClientFilter) ([]domain.Client, error) {
	const query = `
		SELECT id, name, email, phone, created_at
		FROM clients
		ORDER BY id
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *client)
	}
	return clients, rows.Err()
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	if client == nil {
		return nil, domain.ErrInvalidPayload
	}
	client.CreatedAt = fromMillis(toMillis(createdAtOrNow(client.CreatedAt)))

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (name, email, phone, created_at) VALUES (?, ?, ?, ?)`,
		client.Name,
		nullString(client.Email),
		nullString(client.Phone),
		toMillis(client.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert client: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert client: %w", err)
	}
	client.ID = id
	return client, nil
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	if client == nil {
		return domain.ErrInvalidPayload
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE clients SET name = ?, email = ?, phone = ? WHERE id = ? RETURNING created_at`,
		client.Name,
		nullString(client.Email),
		nullString(client.Phone),
		client.ID,
	)
	var createdAt int64
	if err := row.Scan(&createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrClientNotFound
		}
		return fmt.Errorf("update client: %w", err)
	}
	client.CreatedAt = fromMillis(createdAt)
	return nil
}

func scanClient(row rowScanner) (*domain.Client, error) {
	var (
		client       domain.Client
		email, phone sql.NullString
		createdAt    int64
	)
	if err := row.Scan(&client.ID, &client.Name, &email, &phone, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("scan client: %w", err)
	}
	client.Email = email.String
	client.Phone = phone.String
	client.CreatedAt = fromMillis(createdAt)
	return &client, nil
}
