package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/repository"
)

type clientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository instantiates a Postgres-backed client repository.
func NewClientRepository(pool *pgxpool.Pool) repository.ClientRepository {
	return &clientRepository{pool: pool}
}

func (r *clientRepository) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	const query = `
	SELECT id, name, email, phone, created_at
	FROM clients
	WHERE id = $1
	`
	return scanClient(r.pool.QueryRow(ctx, query, id))
}

func (r *clientRepository) List(ctx context.Context, filter repository.ClientFilter) ([]domain.Client, error) {
	const query = `
	SELECT id, name, email, phone, created_at
	FROM clients
	ORDER BY id
	LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, clampLimit(filter.Limit), filter.Offset)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	if client == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO clients (name, email, phone, created_at)
	VALUES ($1, $2, $3, COALESCE($4, NOW()))
	RETURNING id, created_at
	`

	if err := r.pool.QueryRow(ctx, query,
		client.Name,
		nullString(client.Email),
		nullString(client.Phone),
		nullTime(client.CreatedAt),
	).Scan(&client.ID, &client.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert client: %w", err)
	}
	return client, nil
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	if client == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE clients
	SET name = $2,
		email = $3,
		phone = $4
	WHERE id = $1
	RETURNING created_at
	`

	if err := r.pool.QueryRow(ctx, query,
		client.ID,
		client.Name,
		nullString(client.Email),
		nullString(client.Phone),
	).Scan(&client.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrClientNotFound
		}
		return fmt.Errorf("update client: %w", err)
	}
	return nil
}

func scanClient(row rowScanner) (*domain.Client, error) {
	var (
		client       domain.Client
		email, phone *string
	)
	if err := row.Scan(&client.ID, &client.Name, &email, &phone, &client.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("scan client: %w", err)
	}
	client.Email = derefString(email)
	client.Phone = derefString(phone)
	return &client, nil
}
