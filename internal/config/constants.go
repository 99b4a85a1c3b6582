package config

import "time"

const (
	envPort             = "PORT"
	envMetricsPort      = "METRICS_PORT"
	envMetricsOn        = "METRICS_ENABLED"
	envOtelEndpoint     = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOtelService      = "OTEL_SERVICE_NAME"
	envOtelInsecure     = "OTEL_EXPORTER_OTLP_INSECURE"
	envTriggerToken     = "TRIGGER_TOKEN"
	envCompetitions     = "COMPETITIONS"
	envCompetitionsFile = "COMPETITIONS_FILE"

	envFeedProvider    = "FEED_PROVIDER"
	envFeedTimeout     = "FEED_TIMEOUT"
	envFeedRetries     = "FEED_RETRY_ATTEMPTS"
	envFeedBackoff     = "FEED_RETRY_BACKOFF"
	envFeedMinInterval = "FEED_MIN_INTERVAL"

	envStoreBackend    = "STORE_BACKEND"
	envRedisAddr       = "REDIS_ADDR"
	envRedisUsername   = "REDIS_USERNAME"
	envRedisPassword   = "REDIS_PASSWORD"
	envRedisDB         = "REDIS_DB"
	envRedisPoolSize   = "REDIS_POOL_SIZE"
	envRedisTimeout    = "REDIS_TIMEOUT"
	envSubscriberIndex = "SUBSCRIBER_INDEX"
	envSubscriberKey   = "SUBSCRIBER_KEY_PREFIX"
	envLeaseTTL        = "LEASE_TTL"

	envNotifier          = "NOTIFIER"
	envPushURL           = "PUSH_WEBHOOK_URL"
	envPushToken         = "PUSH_WEBHOOK_TOKEN"
	envNatsURL           = "NATS_URL"
	envNatsSubject       = "NATS_SUBJECT_PREFIX"
	envDeliveryTimeout   = "DELIVERY_TIMEOUT"
	envDispatchBatchSize = "DISPATCH_BATCH_SIZE"

	envScheduleInterval = "SCHEDULE_INTERVAL"

	defaultPort        = "4000"
	defaultMetricsPort = "9090"
	defaultServiceName = "matchday-notifier"

	defaultFeedProvider = "espn"
	// Upstream scoreboard calls should never hang a run; a timed-out fetch counts as feed unavailable.
	defaultFeedTimeout     = 10 * time.Second
	defaultFeedRetries     = 3
	defaultFeedBackoff     = 500 * time.Millisecond
	defaultFeedMinInterval = 2 * time.Second

	defaultStoreBackend    = "memory"
	defaultRedisAddr       = "localhost:6379"
	defaultRedisPoolSize   = 10
	defaultRedisTimeout    = 5 * time.Second
	defaultSubscriberIndex = "reverse"
	defaultSubscriberKey   = "preferences"
	defaultLeaseTTL        = 2 * time.Minute

	defaultNotifier          = "log"
	defaultNatsSubject       = "notifications"
	defaultDeliveryTimeout   = 5 * time.Second
	defaultDispatchBatchSize = 40
)
