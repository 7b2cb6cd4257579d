package client

import (
	"context"
	netmail "net/mail"

	"go.uber.org/zap"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/repository"
)

type UseCase struct {
	clients repository.ClientRepository
	logger  *zap.Logger
}

func New(clients repository.ClientRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		clients: clients,
		logger:  logger,
	}
}

func (uc *UseCase) ListClients(ctx context.Context, filter repository.ClientFilter) ([]domain.Client, error) {
	return uc.clients.List(ctx, filter)
}

func (uc *UseCase) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	return uc.clients.GetByID(ctx, id)
}

func (uc *UseCase) CreateClient(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	if err := validate(client); err != nil {
		return nil, err
	}
	created, err := uc.clients.Create(ctx, client)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("client created", zap.Int64("client_id", created.ID))
	return created, nil
}

func (uc *UseCase) UpdateClient(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	if err := validate(client); err != nil {
		return nil, err
	}
	if err := uc.clients.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func validate(client *domain.Client) error {
	if err := client.Normalize(); err != nil {
		return err
	}
	if client.Email == "" {
		return nil
	}
	addr, err := netmail.ParseAddress(client.Email)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, domain.ErrInvalidEmail.Message, err)
	}
	client.Email = addr.Address
	return nil
}
