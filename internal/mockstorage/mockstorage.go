// Package mockstorage provides a testify-based mock implementation
// of the storage interfaces used by the service and router packages.
// It is used to simulate storage failures that the in-memory storage
// never produces.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/usersapi/internal/models"
)

// StorageMock is a testify mock that implements every storage method
// the service layer calls.
type StorageMock struct {
	mock.Mock
}

// List mocks listing all users.
func (m *StorageMock) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

// GetByID mocks a lookup by id.
func (m *StorageMock) GetByID(ctx context.Context, id int64) (models.User, bool, error) {
	args := m.Called(ctx, id)
	usr, _ := args.Get(0).(models.User)
	return usr, args.Bool(1), args.Error(2)
}

// Create mocks storing a new user.
func (m *StorageMock) Create(ctx context.Context, newUser models.NewUser) (models.User, error) {
	args := m.Called(ctx, newUser)
	usr, _ := args.Get(0).(models.User)
	return usr, args.Error(1)
}

// Update mocks a partial update.
func (m *StorageMock) Update(ctx context.Context, id int64, patch models.UserPatch) (models.User, bool, error) {
	args := m.Called(ctx, id, patch)
	usr, _ := args.Get(0).(models.User)
	return usr, args.Bool(1), args.Error(2)
}

// Delete mocks removing a user.
func (m *StorageMock) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// Count mocks counting users.
func (m *StorageMock) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// Ping mocks the pinger interface to simulate a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the storage.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
