package client

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/reminders/domain"
	sqlitestore "github.com/fastygo/reminders/internal/infrastructure/sqlite"
	"github.com/fastygo/reminders/repository"
	sqliterepo "github.com/fastygo/reminders/repository/sqlite"
)

func newUseCase(t *testing.T) *UseCase {
	t.Helper()
	db, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "reminders.db"), true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqliterepo.NewClientRepository(db), nil)
}

func TestCreateClient(t *testing.T) {
	uc := newUseCase(t)

	created, err := uc.CreateClient(context.Background(), &domain.Client{Name: " Asha ", Email: "Asha <asha@example.com>"})
	require.NoError(t, err)
	assert.Equal(t, "Asha", created.Name)
	assert.Equal(t, "asha@example.com", created.Email)

	got, err := uc.GetClient(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", got.Email)
}

func TestCreateClient_Validation(t *testing.T) {
	uc := newUseCase(t)

	_, err := uc.CreateClient(context.Background(), &domain.Client{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrEmptyClientName)

	_, err = uc.CreateClient(context.Background(), &domain.Client{Name: "Ravi", Email: "not-an-address"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	created, err := uc.CreateClient(context.Background(), &domain.Client{Name: "Ravi"})
	require.NoError(t, err)
	assert.False(t, created.CanReceiveEmail())
}

func TestUpdateClient(t *testing.T) {
	uc := newUseCase(t)
	ctx := context.Background()
	created, err := uc.CreateClient(ctx, &domain.Client{Name: "Ravi"})
	require.NoError(t, err)

	created.Email = "ravi@example.com"
	updated, err := uc.UpdateClient(ctx, created)
	require.NoError(t, err)
	assert.True(t, updated.CanReceiveEmail())

	_, err = uc.UpdateClient(ctx, &domain.Client{ID: 404, Name: "ghost"})
	assert.ErrorIs(t, err, domain.ErrClientNotFound)

	list, err := uc.ListClients(ctx, repository.ClientFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
