package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"architect-assistant/internal/config"
)

// httpImageClient реализует ImageClient через predictions API (replicate-совместимый сервер).
type httpImageClient struct {
	httpClient *http.Client
	cfg        config.ImageAPIConfig
	logger     *zap.Logger
}

// NewImageClient создает новый HTTP клиент генерации изображений.
func NewImageClient(cfg config.ImageAPIConfig, logger *zap.Logger) ImageClient {
	return &httpImageClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		cfg:    cfg,
		logger: logger,
	}
}

var _ ImageClient = (*httpImageClient)(nil)

// predictionRequest - тело запроса к predictions API.
type predictionRequest struct {
	Version string          `json:"version,omitempty"`
	Input   predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt string `json:"prompt"`
}

// predictionResponse - ответ predictions API. Модель может вернуть
// несколько кандидатов в output, используется первый.
type predictionResponse struct {
	Output []string `json:"output"`
	Status string   `json:"status"`
	Error  string   `json:"error"`
}

// GenerateImage генерирует изображение и возвращает URL первого кандидата.
func (c *httpImageClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	log := c.logger.With(zap.String("api_url", c.cfg.BaseURL))

	reqPayload := predictionRequest{
		Version: c.cfg.Version,
		Input:   predictionInput{Prompt: prompt},
	}
	reqBodyBytes, err := json.Marshal(reqPayload)
	if err != nil {
		log.Error("Failed to marshal prediction request payload", zap.Error(err))
		return "", fmt.Errorf("%w: не удалось сериализовать запрос: %v", ErrUpstream, err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	endpointURL := c.cfg.BaseURL + "/predictions"
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpointURL, bytes.NewReader(reqBodyBytes))
	if err != nil {
		log.Error("Failed to create prediction request", zap.String("url", endpointURL), zap.Error(err))
		return "", fmt.Errorf("%w: не удалось создать запрос: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Синхронный режим: сервер держит соединение до готовности результата
	req.Header.Set("Prefer", "wait")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	startTime := time.Now()
	log.Debug("Sending request to image API", zap.String("url", endpointURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("Failed to execute image API request", zap.Error(err))
		return "", fmt.Errorf("%w: http запрос не выполнен: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error("Image API returned non-2xx status",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", bodyBytes),
		)
		return "", fmt.Errorf("%w: API вернул статус %d", ErrUpstream, resp.StatusCode)
	}

	if readErr != nil {
		log.Error("Failed to read image API response body", zap.Error(readErr))
		return "", fmt.Errorf("%w: не удалось прочитать ответ: %v", ErrUpstream, readErr)
	}

	var prediction predictionResponse
	if err := json.Unmarshal(bodyBytes, &prediction); err != nil {
		log.Error("Failed to decode image API response", zap.Error(err))
		return "", fmt.Errorf("%w: некорректный JSON в ответе: %v", ErrUpstream, err)
	}

	if prediction.Error != "" {
		log.Error("Image API reported generation error", zap.String("api_error", prediction.Error))
		return "", fmt.Errorf("%w: %s", ErrUpstream, prediction.Error)
	}

	if len(prediction.Output) == 0 {
		log.Error("Image API returned empty output")
		return "", fmt.Errorf("%w: API вернул пустой результат", ErrUpstream)
	}

	log.Info("Image generated",
		zap.Duration("duration", time.Since(startTime)),
		zap.Int("candidates", len(prediction.Output)),
	)

	// Используется первый кандидат, остальные игнорируются
	return prediction.Output[0], nil
}
