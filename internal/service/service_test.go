package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/usersapi/internal/apperror"
	"github.com/patric-chuzhbe/usersapi/internal/db/memorystorage"
	"github.com/patric-chuzhbe/usersapi/internal/mockstorage"
	"github.com/patric-chuzhbe/usersapi/internal/models"
)

func newMemoryService(t *testing.T) *Service {
	t.Helper()
	db, err := memorystorage.New()
	require.NoError(t, err)

	return New(db)
}

func requireNotFound(t *testing.T, err error) {
	t.Helper()
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected *apperror.Error, got %v", err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "User not found", appErr.Message)
}

func TestServiceCRUD(t *testing.T) {
	ctx := context.Background()
	s := newMemoryService(t)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	created, err := s.CreateUser(ctx, models.NewUser{Name: "John Smith", Email: "john@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	got, err := s.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	name := "John Updated"
	updated, err := s.UpdateUser(ctx, created.ID, models.UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, models.User{ID: 1, Name: "John Updated", Email: "john@example.com"}, updated)

	count, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.DeleteUser(ctx, created.ID))
	requireNotFound(t, s.DeleteUser(ctx, created.ID))

	require.NoError(t, s.Ping(ctx))
}

func TestServiceNotFound(t *testing.T) {
	ctx := context.Background()
	s := newMemoryService(t)

	_, err := s.GetUser(ctx, 999)
	requireNotFound(t, err)

	name := "Updated User"
	_, err = s.UpdateUser(ctx, 999, models.UserPatch{Name: &name})
	requireNotFound(t, err)

	err = s.DeleteUser(ctx, 999)
	requireNotFound(t, err)
}

func TestServiceForwardsStorageErrors(t *testing.T) {
	ctx := context.Background()
	storageErr := errors.New("storage is gone")

	db := &mockstorage.StorageMock{}
	db.On("List", mock.Anything).Return(nil, storageErr)
	db.On("GetByID", mock.Anything, int64(1)).Return(models.User{}, false, storageErr)
	db.On("Create", mock.Anything, mock.Anything).Return(models.User{}, storageErr)
	db.On("Update", mock.Anything, int64(1), mock.Anything).Return(models.User{}, false, storageErr)
	db.On("Delete", mock.Anything, int64(1)).Return(false, storageErr)
	db.On("Ping", mock.Anything).Return(storageErr)

	s := New(db)

	_, err := s.ListUsers(ctx)
	assert.ErrorIs(t, err, storageErr)

	_, err = s.GetUser(ctx, 1)
	assert.ErrorIs(t, err, storageErr)

	_, err = s.CreateUser(ctx, models.NewUser{Name: "New User", Email: "new@example.com"})
	assert.ErrorIs(t, err, storageErr)

	_, err = s.UpdateUser(ctx, 1, models.UserPatch{})
	assert.ErrorIs(t, err, storageErr)

	assert.ErrorIs(t, s.DeleteUser(ctx, 1), storageErr)
	assert.ErrorIs(t, s.Ping(ctx), storageErr)

	_, isAppErr := apperror.As(err)
	assert.False(t, isAppErr, "storage failures must not be reinterpreted")

	db.AssertExpectations(t)
}
