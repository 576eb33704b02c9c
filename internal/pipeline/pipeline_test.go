package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"architect-assistant/internal/gateway"
	"architect-assistant/internal/mocks"
	"architect-assistant/internal/pipeline"
	"architect-assistant/internal/schemas"
)

const (
	testBrief      = "A two-story family house with a green roof"
	testSketchPath = "/tmp/sketch.png"
)

func newOrchestrator(t *testing.T) (*pipeline.Orchestrator, *mocks.MockAIClient, *mocks.MockImageClient) {
	t.Helper()
	aiClient := mocks.NewMockAIClient(t)
	imageClient := mocks.NewMockImageClient(t)
	return pipeline.New(aiClient, imageClient, zap.NewNop()), aiClient, imageClient
}

// Инструкции этапов должны включать исходный бриф пользователя.
func containsBrief(prompt string) bool {
	return strings.Contains(prompt, testBrief)
}

func TestRun_Success(t *testing.T) {
	orchestrator, aiClient, imageClient := newOrchestrator(t)
	ctx := context.Background()

	aiClient.On("GenerateVision", mock.Anything, mock.MatchedBy(containsBrief), testSketchPath).
		Return("photorealistic rendering of a two-story house", nil).Once()
	imageClient.On("GenerateImage", mock.Anything, "photorealistic rendering of a two-story house").
		Return("https://images.example.com/result.png", nil).Once()
	aiClient.On("GenerateText", mock.Anything, mock.MatchedBy(containsBrief)).
		Return(`{"narrative": "Open plan living.", "compliance_check": "Verify stair rise."}`, nil).Once()

	result := orchestrator.Run(ctx, testBrief, testSketchPath)

	require.True(t, result.Succeeded())
	assert.NoError(t, result.Err)
	assert.Equal(t, "https://images.example.com/result.png", result.ImageURL)
	assert.Equal(t, "Open plan living.", result.Narrative)
	assert.Equal(t, "Verify stair rise.", result.ComplianceCheck)

	aiClient.AssertExpectations(t)
	imageClient.AssertExpectations(t)
}

func TestRun_VisionFailureShortCircuits(t *testing.T) {
	orchestrator, aiClient, imageClient := newOrchestrator(t)
	ctx := context.Background()

	upstreamErr := wrapUpstream("vision timed out")
	aiClient.On("GenerateVision", mock.Anything, mock.Anything, testSketchPath).
		Return("", upstreamErr).Once()

	result := orchestrator.Run(ctx, testBrief, testSketchPath)

	require.False(t, result.Succeeded())
	assert.Equal(t, pipeline.StageVision, result.FailedStage)
	assert.ErrorIs(t, result.Err, gateway.ErrUpstream)
	assert.Empty(t, result.ImageURL)
	assert.Empty(t, result.Narrative)

	// Последующие этапы не должны запускаться
	imageClient.AssertNotCalled(t, "GenerateImage", mock.Anything, mock.Anything)
	aiClient.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
}

func TestRun_ImageFailureShortCircuitsNarrative(t *testing.T) {
	orchestrator, aiClient, imageClient := newOrchestrator(t)
	ctx := context.Background()

	aiClient.On("GenerateVision", mock.Anything, mock.Anything, testSketchPath).
		Return("generated prompt", nil).Once()
	imageClient.On("GenerateImage", mock.Anything, "generated prompt").
		Return("", wrapUpstream("quota exceeded")).Once()

	result := orchestrator.Run(ctx, testBrief, testSketchPath)

	require.False(t, result.Succeeded())
	assert.Equal(t, pipeline.StageImage, result.FailedStage)
	assert.ErrorIs(t, result.Err, gateway.ErrUpstream)

	aiClient.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
}

func TestRun_NarrativeFailure(t *testing.T) {
	orchestrator, aiClient, imageClient := newOrchestrator(t)
	ctx := context.Background()

	aiClient.On("GenerateVision", mock.Anything, mock.Anything, testSketchPath).
		Return("generated prompt", nil).Once()
	imageClient.On("GenerateImage", mock.Anything, mock.Anything).
		Return("https://images.example.com/result.png", nil).Once()
	aiClient.On("GenerateText", mock.Anything, mock.Anything).
		Return("", wrapUpstream("model unavailable")).Once()

	result := orchestrator.Run(ctx, testBrief, testSketchPath)

	require.False(t, result.Succeeded())
	assert.Equal(t, pipeline.StageNarrative, result.FailedStage)
	// При сбое поля результата не заполняются, даже уже полученный URL
	assert.Empty(t, result.ImageURL)
}

func TestRun_DegradedNarrativeStillSucceeds(t *testing.T) {
	orchestrator, aiClient, imageClient := newOrchestrator(t)
	ctx := context.Background()

	aiClient.On("GenerateVision", mock.Anything, mock.Anything, testSketchPath).
		Return("generated prompt", nil).Once()
	imageClient.On("GenerateImage", mock.Anything, mock.Anything).
		Return("https://images.example.com/result.png", nil).Once()
	// Модель вернула текст без валидного JSON
	aiClient.On("GenerateText", mock.Anything, mock.Anything).
		Return("Here is my critique of the design...", nil).Once()

	result := orchestrator.Run(ctx, testBrief, testSketchPath)

	require.True(t, result.Succeeded())
	assert.Equal(t, schemas.FallbackNarrative, result.Narrative)
	assert.Equal(t, schemas.FallbackComplianceCheck, result.ComplianceCheck)
	assert.Equal(t, "https://images.example.com/result.png", result.ImageURL)
}

func TestRun_UnclassifiedErrorBecomesUpstream(t *testing.T) {
	orchestrator, aiClient, _ := newOrchestrator(t)
	ctx := context.Background()

	aiClient.On("GenerateVision", mock.Anything, mock.Anything, testSketchPath).
		Return("", errors.New("connection reset by peer")).Once()

	result := orchestrator.Run(ctx, testBrief, testSketchPath)

	require.False(t, result.Succeeded())
	assert.ErrorIs(t, result.Err, gateway.ErrUpstream)
}

func TestRun_InvalidInputIsPreserved(t *testing.T) {
	orchestrator, aiClient, _ := newOrchestrator(t)
	ctx := context.Background()

	invalidErr := errors.Join(gateway.ErrInvalidInput)
	aiClient.On("GenerateVision", mock.Anything, mock.Anything, testSketchPath).
		Return("", invalidErr).Once()

	result := orchestrator.Run(ctx, testBrief, testSketchPath)

	require.False(t, result.Succeeded())
	assert.ErrorIs(t, result.Err, gateway.ErrInvalidInput)
	assert.NotErrorIs(t, result.Err, gateway.ErrUpstream)
}

func TestRun_PanicIsRecovered(t *testing.T) {
	orchestrator, aiClient, _ := newOrchestrator(t)
	ctx := context.Background()

	aiClient.On("GenerateVision", mock.Anything, mock.Anything, testSketchPath).
		Run(func(args mock.Arguments) { panic("boom") }).
		Return("", nil).Once()

	result := orchestrator.Run(ctx, testBrief, testSketchPath)

	require.False(t, result.Succeeded())
	assert.ErrorIs(t, result.Err, gateway.ErrUpstream)
}

func wrapUpstream(msg string) error {
	return errors.Join(gateway.ErrUpstream, errors.New(msg))
}
