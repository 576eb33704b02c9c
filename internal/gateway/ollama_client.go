package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"architect-assistant/internal/config"
)

// ollamaClient реализует AIClient с использованием нативного ollama/api.
type ollamaClient struct {
	client        *api.Client
	visionModel   string
	textModel     string
	visionTimeout time.Duration
	textTimeout   time.Duration
	logger        *zap.Logger
}

// newOllamaClient создает клиент для локального Ollama сервера.
func newOllamaClient(cfg config.AIConfig, logger *zap.Logger) (*ollamaClient, error) {
	// api.NewClient требует URL без суффикса /v1
	ollamaBaseURL := strings.TrimSuffix(cfg.BaseURL, "/v1")
	ollamaBaseURL = strings.TrimSuffix(ollamaBaseURL, "/")

	parsedURL, err := url.Parse(ollamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", ollamaBaseURL, err)
	}

	httpClient := &http.Client{
		Timeout: maxDuration(cfg.VisionTimeout(), cfg.TextTimeout()),
	}

	return &ollamaClient{
		client:        api.NewClient(parsedURL, httpClient),
		visionModel:   cfg.VisionModel,
		textModel:     cfg.TextModel,
		visionTimeout: cfg.VisionTimeout(),
		textTimeout:   cfg.TextTimeout(),
		logger:        logger,
	}, nil
}

var _ AIClient = (*ollamaClient)(nil)

// GenerateVision отправляет инструкцию и скетч мультимодальной модели Ollama.
func (c *ollamaClient) GenerateVision(ctx context.Context, prompt string, sketchPath string) (string, error) {
	if _, err := ValidateSketch(sketchPath); err != nil {
		return "", err
	}

	imageData, err := os.ReadFile(sketchPath)
	if err != nil {
		return "", fmt.Errorf("%w: не удалось прочитать скетч: %v", ErrInvalidInput, err)
	}

	req := &api.ChatRequest{
		Model: c.visionModel,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{imageData},
			},
		},
		Stream: func(b bool) *bool { return &b }(false),
	}

	return c.chat(ctx, req, c.visionModel, c.visionTimeout)
}

// GenerateText отправляет текстовую инструкцию модели Ollama.
func (c *ollamaClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	req := &api.ChatRequest{
		Model: c.textModel,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream: func(b bool) *bool { return &b }(false),
	}

	return c.chat(ctx, req, c.textModel, c.textTimeout)
}

func (c *ollamaClient) chat(ctx context.Context, req *api.ChatRequest, model string, timeout time.Duration) (string, error) {
	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	startTime := time.Now()
	c.logger.Debug("Sending request to Ollama", zap.String("model", model))

	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r // Сохраняем последний (полный) ответ
		return nil
	})

	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Ollama request failed",
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.Message.Content == "" {
		c.logger.Error("Ollama returned empty response",
			zap.String("model", model),
			zap.Duration("duration", duration),
		)
		return "", fmt.Errorf("%w: получен пустой ответ", ErrUpstream)
	}

	c.logger.Debug("Ollama response received",
		zap.Duration("duration", duration),
		zap.Int("response_chars", len(resp.Message.Content)),
	)

	return resp.Message.Content, nil
}
