package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ensure Settings implements the interface.
var _ driving.SettingsService = (*Settings)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyServerURL       = "server.url"
	KeyServerToken     = "server.token"
	KeyServerUserID    = "server.user_id"
	KeyServerTimeout   = "server.timeout"
	KeyServerRateLimit = "server.rate_limit"
	KeyServerBurst     = "server.burst"

	KeyStorageBackend = "storage.backend"
	KeyStorageDataDir = "storage.data_dir"

	KeyRedisAddr     = "redis.addr"
	KeyRedisPassword = "redis.password"
	KeyRedisDB       = "redis.db"
	KeyRedisPrefix   = "redis.prefix"

	KeyNotifyTransport  = "notifications.transport"
	KeyNotifyListenAddr = "notifications.listen_addr"
	KeyKafkaBrokers     = "kafka.brokers"
	KeyKafkaTopic       = "kafka.topic"
	KeyKafkaGroupID     = "kafka.group_id"

	KeyRetentionDays     = "retention.days"
	KeyRetentionInterval = "retention.min_interval_hours"
	KeyStagingMaxAge     = "staging.max_age_minutes"
	KeySchedulerEnabled  = "scheduler.enabled"
	KeyLogFormat         = "log.format"
)

// Settings reads typed application settings from a ConfigStore.
type Settings struct {
	configStore driven.ConfigStore
}

// NewSettings creates a settings reader.
func NewSettings(configStore driven.ConfigStore) *Settings {
	return &Settings{configStore: configStore}
}

// Get returns the current settings with defaults applied to missing keys.
func (s *Settings) Get() domain.AppSettings {
	d := domain.DefaultAppSettings()

	return domain.AppSettings{
		Server: domain.ServerSettings{
			BaseURL:   s.getString(KeyServerURL, d.Server.BaseURL),
			Token:     s.configStore.GetString(KeyServerToken),
			UserID:    s.configStore.GetString(KeyServerUserID),
			Timeout:   s.getDuration(KeyServerTimeout, time.Second, d.Server.Timeout),
			RateLimit: s.getFloat(KeyServerRateLimit, d.Server.RateLimit),
			Burst:     s.getInt(KeyServerBurst, d.Server.Burst),
		},
		Storage: domain.StorageSettings{
			Backend:       s.getBackend(d.Storage.Backend),
			DataDir:       s.configStore.GetString(KeyStorageDataDir),
			RedisAddr:     s.getString(KeyRedisAddr, d.Storage.RedisAddr),
			RedisPassword: s.configStore.GetString(KeyRedisPassword),
			RedisDB:       s.configStore.GetInt(KeyRedisDB),
			RedisPrefix:   s.getString(KeyRedisPrefix, d.Storage.RedisPrefix),
		},
		Notifications: domain.NotificationSettings{
			Transport:    s.getTransport(d.Notifications.Transport),
			ListenAddr:   s.getString(KeyNotifyListenAddr, d.Notifications.ListenAddr),
			KafkaBrokers: s.getStrings(KeyKafkaBrokers, d.Notifications.KafkaBrokers),
			KafkaTopic:   s.getString(KeyKafkaTopic, d.Notifications.KafkaTopic),
			KafkaGroupID: s.getString(KeyKafkaGroupID, d.Notifications.KafkaGroupID),
		},
		Retention: domain.RetentionPolicy{
			Days:        s.getInt(KeyRetentionDays, d.Retention.Days),
			MinInterval: s.getDuration(KeyRetentionInterval, time.Hour, d.Retention.MinInterval),
		},
		StagingMaxAge:    s.getDuration(KeyStagingMaxAge, time.Minute, d.StagingMaxAge),
		SchedulerEnabled: s.getBool(KeySchedulerEnabled, d.SchedulerEnabled),
		LogFormat:        s.getString(KeyLogFormat, d.LogFormat),
	}
}

// SchedulerConfig derives the scheduler configuration from the settings.
func (s *Settings) SchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	cfg.Enabled = s.getBool(KeySchedulerEnabled, cfg.Enabled)
	return cfg
}

// Set validates and stores one setting.
func (s *Settings) Set(key string, value any) error {
	switch key {
	case KeyStorageBackend:
		if b := domain.StorageBackend(fmt.Sprint(value)); !b.IsValid() {
			return fmt.Errorf("%w: storage backend %q", domain.ErrInvalidInput, b)
		}
	case KeyNotifyTransport:
		if t := domain.NotificationTransport(fmt.Sprint(value)); !t.IsValid() {
			return fmt.Errorf("%w: notification transport %q", domain.ErrInvalidInput, t)
		}
	}
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *Settings) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *Settings) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *Settings) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *Settings) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *Settings) getStrings(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

// getDuration reads a count of unit from key.
func (s *Settings) getDuration(key string, unit, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * unit
}

func (s *Settings) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	b := domain.StorageBackend(s.configStore.GetString(KeyStorageBackend))
	if !b.IsValid() {
		return defaultVal
	}
	return b
}

func (s *Settings) getTransport(defaultVal domain.NotificationTransport) domain.NotificationTransport {
	t := domain.NotificationTransport(s.configStore.GetString(KeyNotifyTransport))
	if !t.IsValid() {
		return defaultVal
	}
	return t
}
