// Package pipeline реализует трехэтапную цепочку генерации дизайна:
// анализ скетча -> генерация изображения -> нарратив и проверка норм.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"architect-assistant/internal/gateway"
	"architect-assistant/internal/schemas"
)

// Stage идентифицирует этап пайплайна.
type Stage string

const (
	StageVision    Stage = "vision"
	StageImage     Stage = "image_generation"
	StageNarrative Stage = "narrative"
)

// Result - результат прогона пайплайна. Ошибки возвращаются значением:
// при Err != nil поля результата не заполнены, FailedStage указывает этап сбоя.
type Result struct {
	ImageURL        string
	Narrative       string
	ComplianceCheck string
	FailedStage     Stage
	Err             error
}

// Succeeded сообщает, завершился ли прогон успешно.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Инструкция первого этапа: из брифа и скетча собрать промпт для генерации изображения.
const visionPromptTemplate = `You are an expert architectural assistant. Analyze the following user brief and rough sketch.
Synthesize them into a highly detailed and descriptive prompt for an AI image generation model like Stable Diffusion.
The prompt should capture the style, materials, lighting, and environment.
Focus on creating a photorealistic architectural rendering.
User Brief: "%s"`

// Инструкция третьего этапа: нарратив и проверка строительных норм по исходному брифу.
const narrativePromptTemplate = `You are an architectural critic. Based on the original design brief "%s",
create a short "Design Narrative" explaining the concept.
Also, perform a mock "Building Code Compliance Check", identifying one potential consideration
(e.g., related to safety, energy, or accessibility).
Return the response as a JSON object with two keys: "narrative" and "compliance_check".`

// Orchestrator запускает этапы пайплайна строго последовательно.
type Orchestrator struct {
	aiClient    gateway.AIClient
	imageClient gateway.ImageClient
	logger      *zap.Logger
}

// New создает новый Orchestrator.
func New(aiClient gateway.AIClient, imageClient gateway.ImageClient, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		aiClient:    aiClient,
		imageClient: imageClient,
		logger:      logger,
	}
}

// Run выполняет все три этапа для одного брифа и скетча.
//
// Go-ошибок наружу не возвращает: любой сбой, включая панику этапа,
// превращается в Result с заполненными FailedStage и Err. Сбой этапа
// отменяет все последующие этапы.
func (o *Orchestrator) Run(ctx context.Context, prompt string, sketchPath string) (result Result) {
	metricsIncrementRunsStarted()

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("Pipeline panicked", zap.Any("panic", rec))
			result = o.failure(StageVision, fmt.Errorf("%w: внутренний сбой пайплайна: %v", gateway.ErrUpstream, rec))
		}
	}()

	// Этап 1: анализ брифа и скетча
	visionStart := time.Now()
	imagePrompt, err := o.aiClient.GenerateVision(ctx, fmt.Sprintf(visionPromptTemplate, prompt), sketchPath)
	metricsObserveStageDuration(StageVision, time.Since(visionStart))
	if err != nil {
		o.logger.Warn("Vision stage failed", zap.Error(err))
		return o.failure(StageVision, classify(err))
	}
	o.logger.Info("Vision stage completed", zap.Int("image_prompt_chars", len(imagePrompt)))

	// Этап 2: генерация изображения по синтезированному промпту
	imageStart := time.Now()
	imageURL, err := o.imageClient.GenerateImage(ctx, imagePrompt)
	metricsObserveStageDuration(StageImage, time.Since(imageStart))
	if err != nil {
		o.logger.Warn("Image generation stage failed", zap.Error(err))
		return o.failure(StageImage, classify(err))
	}
	o.logger.Info("Image generation stage completed", zap.String("image_url", imageURL))

	// Этап 3: нарратив по ИСХОДНОМУ брифу, не по синтезированному промпту
	narrativeStart := time.Now()
	rawNarrative, err := o.aiClient.GenerateText(ctx, fmt.Sprintf(narrativePromptTemplate, prompt))
	metricsObserveStageDuration(StageNarrative, time.Since(narrativeStart))
	if err != nil {
		o.logger.Warn("Narrative stage failed", zap.Error(err))
		return o.failure(StageNarrative, classify(err))
	}

	// Разбор ответа тотален: деградация до заглушек не проваливает пайплайн
	parsed := schemas.ParseNarrativeResponse(rawNarrative)
	if parsed.Degraded {
		o.logger.Warn("Narrative response degraded to fallback values",
			zap.Int("raw_chars", len(rawNarrative)),
		)
	}

	metricsIncrementRunsSucceeded()
	return Result{
		ImageURL:        imageURL,
		Narrative:       parsed.Narrative,
		ComplianceCheck: parsed.ComplianceCheck,
	}
}

func (o *Orchestrator) failure(stage Stage, err error) Result {
	metricsIncrementRunsFailed(stage)
	return Result{
		FailedStage: stage,
		Err:         err,
	}
}

// classify приводит ошибку этапа к таксономии шлюза.
// Все, что не распознано, считается сбоем внешнего сервиса.
func classify(err error) error {
	if errors.Is(err, gateway.ErrUpstream) || errors.Is(err, gateway.ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %v", gateway.ErrUpstream, err)
}
