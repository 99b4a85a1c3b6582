package config

import "time"

// FeedConfig controls how the scoreboard feed is reached.
type FeedConfig struct {
	Provider      string // espn or fixture
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	MinInterval   time.Duration // minimum spacing between upstream calls
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend             string // memory or redis
	Redis               RedisConfig
	SubscriberIndex     string // reverse or scan
	SubscriberKeyPrefix string
	LeaseTTL            time.Duration
}

// RedisConfig mirrors the connection knobs exposed by go-redis.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

// NotifierConfig selects how notifications leave the process.
type NotifierConfig struct {
	Kind          string // log, webhook or nats
	WebhookURL    string
	WebhookToken  string
	NatsURL       string
	SubjectPrefix string
	Timeout       time.Duration
}

// DispatchConfig bounds fan-out concurrency.
type DispatchConfig struct {
	BatchSize int
}

// SchedulerConfig controls the optional in-process trigger. Zero interval disables it.
type SchedulerConfig struct {
	Interval time.Duration
}

func loadFeed() FeedConfig {
	return FeedConfig{
		Provider:      envOrDefault(envFeedProvider, defaultFeedProvider),
		Timeout:       durationEnvOrDefault(envFeedTimeout, defaultFeedTimeout),
		RetryAttempts: intEnvOrDefault(envFeedRetries, defaultFeedRetries),
		RetryBackoff:  durationEnvOrDefault(envFeedBackoff, defaultFeedBackoff),
		MinInterval:   durationEnvOrDefault(envFeedMinInterval, defaultFeedMinInterval),
	}
}

func loadStore() StoreConfig {
	return StoreConfig{
		Backend: envOrDefault(envStoreBackend, defaultStoreBackend),
		Redis: RedisConfig{
			Addr:     envOrDefault(envRedisAddr, defaultRedisAddr),
			Username: envOrDefault(envRedisUsername, ""),
			Password: envOrDefault(envRedisPassword, ""),
			DB:       nonNegativeIntEnvOrDefault(envRedisDB, 0),
			PoolSize: intEnvOrDefault(envRedisPoolSize, defaultRedisPoolSize),
			Timeout:  durationEnvOrDefault(envRedisTimeout, defaultRedisTimeout),
		},
		SubscriberIndex:     envOrDefault(envSubscriberIndex, defaultSubscriberIndex),
		SubscriberKeyPrefix: envOrDefault(envSubscriberKey, defaultSubscriberKey),
		LeaseTTL:            durationEnvOrDefault(envLeaseTTL, defaultLeaseTTL),
	}
}

func loadNotifier() NotifierConfig {
	return NotifierConfig{
		Kind:          envOrDefault(envNotifier, defaultNotifier),
		WebhookURL:    envOrDefault(envPushURL, ""),
		WebhookToken:  envOrDefault(envPushToken, ""),
		NatsURL:       envOrDefault(envNatsURL, ""),
		SubjectPrefix: envOrDefault(envNatsSubject, defaultNatsSubject),
		Timeout:       durationEnvOrDefault(envDeliveryTimeout, defaultDeliveryTimeout),
	}
}

func loadDispatch() DispatchConfig {
	return DispatchConfig{
		BatchSize: intEnvOrDefault(envDispatchBatchSize, defaultDispatchBatchSize),
	}
}

func loadScheduler() SchedulerConfig {
	return SchedulerConfig{
		Interval: nonNegativeDurationEnvOrDefault(envScheduleInterval, 0),
	}
}
