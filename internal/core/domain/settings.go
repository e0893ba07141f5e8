package domain

import "time"

const unknownDescription = "Unknown"

// StorageBackend selects the Record Store implementation.
type StorageBackend string

// Available storage backends.
const (
	// StorageSQLite is an on-device SQLite database.
	StorageSQLite StorageBackend = "sqlite"

	// StorageRedis is a shared Redis instance.
	StorageRedis StorageBackend = "redis"

	// StorageMemory keeps everything in process memory.
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageSQLite, StorageRedis, StorageMemory:
		return true
	default:
		return false
	}
}

// IsDurable returns true if data survives a process restart.
func (b StorageBackend) IsDurable() bool {
	return b == StorageSQLite || b == StorageRedis
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StorageBackend) Description() string {
	switch b {
	case StorageSQLite:
		return "SQLite (on-device file)"
	case StorageRedis:
		return "Redis (shared key-value store)"
	case StorageMemory:
		return "Memory (lost on exit)"
	default:
		return unknownDescription
	}
}

// NotificationTransport selects how "summary ready" events arrive.
type NotificationTransport string

// Available notification transports.
const (
	// NotifyWebhook receives events over a local HTTP endpoint.
	NotifyWebhook NotificationTransport = "webhook"

	// NotifyKafka consumes events from a Kafka topic.
	NotifyKafka NotificationTransport = "kafka"
)

// IsValid returns true if the transport is recognised.
func (t NotificationTransport) IsValid() bool {
	return t == NotifyWebhook || t == NotifyKafka
}

// String returns the string representation.
func (t NotificationTransport) String() string {
	return string(t)
}

// ServerSettings describes the remote indexing service.
type ServerSettings struct {
	// BaseURL is the service root, e.g. https://api.example.com.
	BaseURL string

	// Token is the bearer token identifying the user.
	Token string

	// UserID is sent with every batch upload.
	UserID string

	// Timeout bounds every remote call.
	Timeout time.Duration

	// RateLimit is the sustained request rate per second.
	RateLimit float64

	// Burst is the token bucket size.
	Burst int
}

// IsConfigured returns true if the service can be reached.
func (s ServerSettings) IsConfigured() bool {
	return s.BaseURL != ""
}

// StorageSettings selects and configures the Record Store.
type StorageSettings struct {
	Backend StorageBackend

	// DataDir holds the SQLite database. Empty means ~/.docchat/data.
	DataDir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// NotificationSettings configures the summary notification listener.
type NotificationSettings struct {
	Transport    NotificationTransport
	ListenAddr   string
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
}

// AppSettings aggregates all user-configurable settings.
type AppSettings struct {
	Server        ServerSettings
	Storage       StorageSettings
	Notifications NotificationSettings
	Retention     RetentionPolicy

	// StagingMaxAge is the lifetime of a staging batch. Unindexed records
	// older than this are orphans.
	StagingMaxAge time.Duration

	// SchedulerEnabled turns background sweeps on for `serve`.
	SchedulerEnabled bool

	// LogFormat is "text" or "json".
	LogFormat string
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Server: ServerSettings{
			BaseURL:   "http://localhost:8080",
			Timeout:   120 * time.Second,
			RateLimit: 5,
			Burst:     5,
		},
		Storage: StorageSettings{
			Backend:     StorageSQLite,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "docchat",
		},
		Notifications: NotificationSettings{
			Transport:    NotifyWebhook,
			ListenAddr:   ":8787",
			KafkaBrokers: []string{"localhost:9092"},
			KafkaTopic:   "summary-ready",
			KafkaGroupID: "docchat",
		},
		Retention:        DefaultRetentionPolicy(),
		StagingMaxAge:    30 * time.Minute,
		SchedulerEnabled: true,
		LogFormat:        "text",
	}
}
