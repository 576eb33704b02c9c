package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"architect-assistant/internal/config"
)

// openAIClient реализует AIClient с использованием go-openai.
type openAIClient struct {
	client        *openaigo.Client
	visionModel   string
	textModel     string
	visionTimeout time.Duration
	textTimeout   time.Duration
	logger        *zap.Logger
}

func newOpenAIClient(cfg config.AIConfig, logger *zap.Logger) *openAIClient {
	openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
	openaiConfig.BaseURL = cfg.BaseURL
	// Транспортный таймаут перекрывает оба этапа, точные лимиты ставим per-call
	openaiConfig.HTTPClient = &http.Client{
		Timeout: maxDuration(cfg.VisionTimeout(), cfg.TextTimeout()),
	}

	return &openAIClient{
		client:        openaigo.NewClientWithConfig(openaiConfig),
		visionModel:   cfg.VisionModel,
		textModel:     cfg.TextModel,
		visionTimeout: cfg.VisionTimeout(),
		textTimeout:   cfg.TextTimeout(),
		logger:        logger,
	}
}

var _ AIClient = (*openAIClient)(nil)

// GenerateVision отправляет инструкцию и скетч мультимодальной модели.
func (c *openAIClient) GenerateVision(ctx context.Context, prompt string, sketchPath string) (string, error) {
	dataURL, err := encodeSketchDataURL(sketchPath)
	if err != nil {
		return "", err
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.visionTimeout)
	defer cancel()

	startTime := time.Now()
	c.logger.Debug("Sending vision request",
		zap.String("model", c.visionModel),
		zap.Int("prompt_bytes", len(prompt)),
	)

	resp, err := c.client.CreateChatCompletion(requestCtx, openaigo.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openaigo.ChatCompletionMessage{
			{
				Role: openaigo.ChatMessageRoleUser,
				MultiContent: []openaigo.ChatMessagePart{
					{
						Type: openaigo.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openaigo.ChatMessagePartTypeImageURL,
						ImageURL: &openaigo.ChatMessageImageURL{
							URL: dataURL,
						},
					},
				},
			},
		},
	})

	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Vision request failed",
			zap.String("model", c.visionModel),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		c.logger.Error("Vision request returned empty response",
			zap.String("model", c.visionModel),
			zap.Duration("duration", duration),
		)
		return "", fmt.Errorf("%w: получен пустой ответ", ErrUpstream)
	}

	c.logger.Debug("Vision response received",
		zap.Duration("duration", duration),
		zap.Int("response_chars", len(resp.Choices[0].Message.Content)),
	)

	return resp.Choices[0].Message.Content, nil
}

// GenerateText отправляет текстовую инструкцию модели.
func (c *openAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	requestCtx, cancel := context.WithTimeout(ctx, c.textTimeout)
	defer cancel()

	startTime := time.Now()
	c.logger.Debug("Sending text request",
		zap.String("model", c.textModel),
		zap.Int("prompt_bytes", len(prompt)),
	)

	resp, err := c.client.CreateChatCompletion(requestCtx, openaigo.ChatCompletionRequest{
		Model: c.textModel,
		Messages: []openaigo.ChatCompletionMessage{
			{
				Role:    openaigo.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})

	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Text request failed",
			zap.String("model", c.textModel),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		c.logger.Error("Text request returned empty response",
			zap.String("model", c.textModel),
			zap.Duration("duration", duration),
		)
		return "", fmt.Errorf("%w: получен пустой ответ", ErrUpstream)
	}

	c.logger.Debug("Text response received",
		zap.Duration("duration", duration),
		zap.Int("response_chars", len(resp.Choices[0].Message.Content)),
	)

	return resp.Choices[0].Message.Content, nil
}

// encodeSketchDataURL читает скетч и кодирует его в data URL для vision API.
func encodeSketchDataURL(sketchPath string) (string, error) {
	format, err := ValidateSketch(sketchPath)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(sketchPath)
	if err != nil {
		return "", fmt.Errorf("%w: не удалось прочитать скетч: %v", ErrInvalidInput, err)
	}

	return fmt.Sprintf("data:image/%s;base64,%s", format, base64.StdEncoding.EncodeToString(data)), nil
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
