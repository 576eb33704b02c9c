package pipeline

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	jobName = "design_pipeline_worker"
)

var (
	// Локальный реестр, чтобы метрики пайплайна не смешивались
	// с глобальным prometheus.DefaultRegistry
	registry = prometheus.NewRegistry()

	runsStarted = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "design_pipeline_runs_total",
			Help: "Total number of design pipeline runs started.",
		},
	)
	runsFailed = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "design_pipeline_runs_failed_total",
			Help: "Total number of failed pipeline runs, partitioned by stage.",
		},
		[]string{"stage"},
	)
	runsSucceeded = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "design_pipeline_runs_succeeded_total",
			Help: "Total number of successfully completed pipeline runs.",
		},
	)
	stageDuration = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "design_pipeline_stage_duration_seconds",
			Help:    "Histogram of pipeline stage durations.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		},
		[]string{"stage"},
	)

	// Pusher для отправки метрик в Pushgateway; nil когда push отключен
	pusher *push.Pusher
)

// InitMetricsPusher инициализирует клиент Pushgateway.
// Пустой pushgatewayURL отключает отправку, метрики продолжают копиться локально.
func InitMetricsPusher(pushgatewayURL string) error {
	if pushgatewayURL == "" {
		log.Println("[Metrics] Pushgateway URL is empty, metrics push disabled")
		return nil
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
		log.Printf("[Metrics] Warning: could not get hostname: %v", err)
	}
	instanceID := fmt.Sprintf("%s-%d", hostname, os.Getpid())

	log.Printf("[Metrics] Initializing Pushgateway pusher for job '%s' with instance '%s' to %s", jobName, instanceID, pushgatewayURL)

	pusher = push.New(pushgatewayURL, jobName).Gatherer(registry).Grouping("instance", instanceID)

	// Сразу отправляем нулевые значения, чтобы проверить соединение
	if err := pusher.Push(); err != nil {
		pusher = nil
		return fmt.Errorf("could not push initial metrics to Pushgateway: %w", err)
	}
	return nil
}

// StartMetricsPusher запускает горутину периодической отправки метрик.
func StartMetricsPusher(interval time.Duration) {
	if pusher == nil {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			if err := pushMetrics(); err != nil {
				// Ошибка уже залогирована внутри pushMetrics
				continue
			}
		}
	}()
	log.Printf("[Metrics] Started periodic pusher with interval %v", interval)
}

// CleanupMetrics удаляет метрики этого инстанса из Pushgateway.
// Должна вызываться через defer в main.
func CleanupMetrics() {
	if pusher == nil {
		return
	}

	if err := pusher.Delete(); err != nil {
		log.Printf("[Metrics] Error deleting metrics from Pushgateway: %v", err)
	}
}

func pushMetrics() error {
	if pusher == nil {
		return errors.New("pusher not initialized")
	}

	if err := pusher.Push(); err != nil {
		log.Printf("[Metrics] Error pushing metrics to Pushgateway: %v", err)
		return err
	}
	return nil
}

func metricsIncrementRunsStarted() {
	runsStarted.Inc()
	pushMetrics()
}

func metricsIncrementRunsFailed(stage Stage) {
	runsFailed.WithLabelValues(string(stage)).Inc()
	pushMetrics()
}

func metricsIncrementRunsSucceeded() {
	runsSucceeded.Inc()
	pushMetrics()
}

func metricsObserveStageDuration(stage Stage, d time.Duration) {
	stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}
