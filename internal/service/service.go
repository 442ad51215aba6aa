// Package service runs the user operations against the storage and turns
// "not found" results into 404 errors.
package service

import (
	"context"

	"github.com/patric-chuzhbe/usersapi/internal/apperror"
	"github.com/patric-chuzhbe/usersapi/internal/models"
)

type usersKeeper interface {
	List(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, bool, error)
	Create(ctx context.Context, newUser models.NewUser) (models.User, error)
	Update(ctx context.Context, id int64, patch models.UserPatch) (models.User, bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	usersKeeper
	pinger
}

type Service struct {
	db storage
}

func New(db storage) *Service {
	return &Service{db: db}
}

// ListUsers returns every user in insertion order.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.db.List(ctx)
}

// GetUser returns the user or a 404 error.
func (s *Service) GetUser(ctx context.Context, id int64) (models.User, error) {
	usr, found, err := s.db.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if !found {
		return models.User{}, apperror.NotFound(apperror.MsgUserNotFound)
	}

	return usr, nil
}

// CreateUser stores a validated new user.
func (s *Service) CreateUser(ctx context.Context, newUser models.NewUser) (models.User, error) {
	return s.db.Create(ctx, newUser)
}

// UpdateUser merges a validated patch into an existing user.
func (s *Service) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (models.User, error) {
	usr, found, err := s.db.Update(ctx, id, patch)
	if err != nil {
		return models.User{}, err
	}
	if !found {
		return models.User{}, apperror.NotFound(apperror.MsgUserNotFound)
	}

	return usr, nil
}

// DeleteUser removes a user or returns a 404 error.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	deleted, err := s.db.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperror.NotFound(apperror.MsgUserNotFound)
	}

	return nil
}

// CountUsers returns the size of the collection.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	return s.db.Count(ctx)
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
