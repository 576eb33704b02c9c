package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"architect-assistant/internal/gateway"
)

// MockAIClient is a mock type for the gateway.AIClient type
type MockAIClient struct {
	mock.Mock
}

// GenerateVision provides a mock function with given fields: ctx, prompt, sketchPath
func (_m *MockAIClient) GenerateVision(ctx context.Context, prompt string, sketchPath string) (string, error) {
	ret := _m.Called(ctx, prompt, sketchPath)
	return ret.String(0), ret.Error(1)
}

// GenerateText provides a mock function with given fields: ctx, prompt
func (_m *MockAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	ret := _m.Called(ctx, prompt)
	return ret.String(0), ret.Error(1)
}

// NewMockAIClient creates a new instance of MockAIClient and registers the
// testing interface on the mock.
func NewMockAIClient(t interface {
	mock.TestingT
	Helper()
}) *MockAIClient {
	m := &MockAIClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ gateway.AIClient = (*MockAIClient)(nil)

// MockImageClient is a mock type for the gateway.ImageClient type
type MockImageClient struct {
	mock.Mock
}

// GenerateImage provides a mock function with given fields: ctx, prompt
func (_m *MockImageClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	ret := _m.Called(ctx, prompt)
	return ret.String(0), ret.Error(1)
}

// NewMockImageClient creates a new instance of MockImageClient and registers
// the testing interface on the mock.
func NewMockImageClient(t interface {
	mock.TestingT
	Helper()
}) *MockImageClient {
	m := &MockImageClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ gateway.ImageClient = (*MockImageClient)(nil)
