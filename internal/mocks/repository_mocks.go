package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"architect-assistant/internal/model"
	"architect-assistant/internal/repository"
)

// MockIterationRepository is a mock type for the repository.IterationRepository type
type MockIterationRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, iteration
func (_m *MockIterationRepository) Create(ctx context.Context, iteration model.DesignIteration) (model.DesignIteration, error) {
	ret := _m.Called(ctx, iteration)
	return ret.Get(0).(model.DesignIteration), ret.Error(1)
}

// GetByID provides a mock function with given fields: ctx, id
func (_m *MockIterationRepository) GetByID(ctx context.Context, id int64) (model.DesignIteration, error) {
	ret := _m.Called(ctx, id)
	return ret.Get(0).(model.DesignIteration), ret.Error(1)
}

// ListByOwner provides a mock function with given fields: ctx, ownerID
func (_m *MockIterationRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.DesignIteration, error) {
	ret := _m.Called(ctx, ownerID)

	var r0 []model.DesignIteration
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.DesignIteration)
	}
	return r0, ret.Error(1)
}

// Complete provides a mock function with given fields: ctx, id, imageURL, narrative, complianceCheck
func (_m *MockIterationRepository) Complete(ctx context.Context, id int64, imageURL, narrative, complianceCheck string) (bool, error) {
	ret := _m.Called(ctx, id, imageURL, narrative, complianceCheck)
	return ret.Bool(0), ret.Error(1)
}

// Fail provides a mock function with given fields: ctx, id
func (_m *MockIterationRepository) Fail(ctx context.Context, id int64) (bool, error) {
	ret := _m.Called(ctx, id)
	return ret.Bool(0), ret.Error(1)
}

// NewMockIterationRepository creates a new instance of MockIterationRepository
// and registers the testing interface on the mock.
func NewMockIterationRepository(t interface {
	mock.TestingT
	Helper()
}) *MockIterationRepository {
	m := &MockIterationRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.IterationRepository = (*MockIterationRepository)(nil)

// MockUserRepository is a mock type for the repository.UserRepository type
type MockUserRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, user
func (_m *MockUserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	ret := _m.Called(ctx, user)
	return ret.Get(0).(model.User), ret.Error(1)
}

// GetByUsername provides a mock function with given fields: ctx, username
func (_m *MockUserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	ret := _m.Called(ctx, username)
	return ret.Get(0).(model.User), ret.Error(1)
}

// GetByEmail provides a mock function with given fields: ctx, email
func (_m *MockUserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	ret := _m.Called(ctx, email)
	return ret.Get(0).(model.User), ret.Error(1)
}

// NewMockUserRepository creates a new instance of MockUserRepository
// and registers the testing interface on the mock.
func NewMockUserRepository(t interface {
	mock.TestingT
	Helper()
}) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.UserRepository = (*MockUserRepository)(nil)
