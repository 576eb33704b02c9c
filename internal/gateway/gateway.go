// Package gateway инкапсулирует обращения к внешним AI моделям:
// анализ скетча, генерация текста и генерация изображения.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Регистрация декодеров для проверки скетча
	_ "image/png"
	"os"
	"strings"

	"go.uber.org/zap"

	"architect-assistant/internal/config"
)

var (
	// ErrUpstream - сбой внешней модели: сеть, авторизация, квота, таймаут, пустой ответ.
	ErrUpstream = errors.New("ошибка внешнего AI сервиса")
	// ErrInvalidInput - входные данные не могут быть отправлены модели (нечитаемый скетч и т.п.).
	ErrInvalidInput = errors.New("некорректные входные данные")
)

// AIClient определяет интерфейс текстовых и визуальных моделей.
type AIClient interface {
	// GenerateVision отправляет инструкцию вместе с изображением скетча
	// и возвращает сгенерированный текст.
	GenerateVision(ctx context.Context, prompt string, sketchPath string) (string, error)
	// GenerateText отправляет текстовую инструкцию и возвращает ответ модели.
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImageClient определяет интерфейс модели генерации изображений.
type ImageClient interface {
	// GenerateImage генерирует изображение по текстовому промпту и возвращает его URL.
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ValidateSketch проверяет, что файл скетча существует и декодируется как PNG или JPEG.
// Возвращает формат изображения ("png" или "jpeg").
func ValidateSketch(sketchPath string) (string, error) {
	f, err := os.Open(sketchPath)
	if err != nil {
		return "", fmt.Errorf("%w: не удалось открыть скетч: %v", ErrInvalidInput, err)
	}
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", fmt.Errorf("%w: скетч не является PNG или JPEG: %v", ErrInvalidInput, err)
	}

	return format, nil
}

// NewAIClient создает AI клиент в зависимости от конфигурации.
func NewAIClient(cfg config.AIConfig, logger *zap.Logger) (AIClient, error) {
	switch strings.ToLower(cfg.ClientType) {
	case "openai":
		logger.Info("Using AI client implementation: OpenAI",
			zap.String("base_url", cfg.BaseURL),
			zap.String("vision_model", cfg.VisionModel),
			zap.String("text_model", cfg.TextModel),
		)
		return newOpenAIClient(cfg, logger), nil
	case "ollama":
		logger.Info("Using AI client implementation: Ollama",
			zap.String("base_url", cfg.BaseURL),
			zap.String("vision_model", cfg.VisionModel),
			zap.String("text_model", cfg.TextModel),
		)
		return newOllamaClient(cfg, logger)
	default:
		return nil, fmt.Errorf("неизвестный тип AI клиента: '%s'", cfg.ClientType)
	}
}
