package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"architect-assistant/internal/pipeline"
)

// MockPipelineRunner is a mock type for the service.PipelineRunner type
type MockPipelineRunner struct {
	mock.Mock
}

// Run provides a mock function with given fields: ctx, prompt, sketchPath
func (_m *MockPipelineRunner) Run(ctx context.Context, prompt string, sketchPath string) pipeline.Result {
	ret := _m.Called(ctx, prompt, sketchPath)
	return ret.Get(0).(pipeline.Result)
}

// NewMockPipelineRunner creates a new instance of MockPipelineRunner and
// registers the testing interface on the mock.
func NewMockPipelineRunner(t interface {
	mock.TestingT
	Helper()
}) *MockPipelineRunner {
	m := &MockPipelineRunner{}
	m.Mock.Test(t)
	t.Helper()
	return m
}
