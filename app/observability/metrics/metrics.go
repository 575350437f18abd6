package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	ChatTurnsTotal           metric.Int64Counter
	ToolCallsTotal           metric.Int64Counter
	LLMRequestDuration       metric.Float64Histogram
	InquiriesTotal           metric.Int64Counter
	ListingSynthesisFailures metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() *AppMetrics {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("haven-estate-assistant")
		var err error
		m := &AppMetrics{}

		m.ChatTurnsTotal, err = meter.Int64Counter(
			"chat_turns_total",
			metric.WithDescription("Total number of chat turns processed"),
			metric.WithUnit("{turn}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_turns_total: %v", err)
		}

		m.ToolCallsTotal, err = meter.Int64Counter(
			"search_tool_calls_total",
			metric.WithDescription("Total number of property search tool invocations requested by the model"),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create search_tool_calls_total: %v", err)
		}

		m.LLMRequestDuration, err = meter.Float64Histogram(
			"llm_request_duration_seconds",
			metric.WithDescription("Duration of model generation requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create llm_request_duration_seconds: %v", err)
		}

		m.InquiriesTotal, err = meter.Int64Counter(
			"inquiries_total",
			metric.WithDescription("Total number of inquiry records written"),
			metric.WithUnit("{inquiry}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create inquiries_total: %v", err)
		}

		m.ListingSynthesisFailures, err = meter.Int64Counter(
			"listing_synthesis_failures_total",
			metric.WithDescription("Total number of failed best-effort listing syntheses after Sell inquiries"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create listing_synthesis_failures_total: %v", err)
		}

		appMetrics = m
	})
	return appMetrics
}

// Get returns the initialized metrics, or nil when InitAppMetrics has not run.
func Get() *AppMetrics {
	return appMetrics
}
