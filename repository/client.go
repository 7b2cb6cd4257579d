package repository

import (
	"context"

	"github.com/fastygo/reminders/domain"
)

type ClientFilter struct {
	Limit  int
	Offset int
}

type ClientRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Client, error)
	List(ctx context.Context, filter ClientFilter) ([]domain.Client, error)
	Create(ctx context.Context, client *domain.Client) (*domain.Client, error)
	Update(ctx context.Context, client *domain.Client) error
}
