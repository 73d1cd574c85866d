package config

import (
	"strings"
	"time"

	"github.com/gdbrns/go-whatsapp-multibot/pkg/env"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/validation"
)

// Bot holds settings for the live bot process.
type Bot struct {
	Name         string
	Version      string
	Prefix       string
	SessionID    string
	AlwaysOnline bool
	Owners       []string

	SessionDir     string
	DatastoreType  string
	DatastoreURI   string
	PluginManifest string

	DownloaderAPIURL string
	NewsFeedURL      string

	OutboundRatePerSecond float64
	LimiterIdle           time.Duration
	LimiterSweepSpec      string
	MetricsAddress        string
}

// Server holds settings for the provisioning HTTP API.
type Server struct {
	Name         string
	Address      string
	Port         string
	TempDir      string
	SessionTTL   time.Duration
	SweepSpec    string
	QRWait       time.Duration
	CleanupDelay time.Duration
	MaxAttempts  int
}

// LoadBot reads the bot configuration from the environment.
func LoadBot() Bot {
	owners := env.GetEnvListOrDefault("BOT_OWNERS", nil)
	for i, owner := range owners {
		owners[i] = validation.NormalizePhone(owner)
	}

	return Bot{
		Name:         env.GetEnvStringOrDefault("BOT_NAME", "KENTECH MULTIBOT"),
		Version:      env.GetEnvStringOrDefault("BOT_VERSION", "1.0.0"),
		Prefix:       prefix(env.GetEnvStringOrDefault("BOT_PREFIX", ".")),
		SessionID:    env.GetEnvStringOrDefault("SESSION_ID", ""),
		AlwaysOnline: env.GetEnvBoolOrDefault("ALWAYS_ONLINE", false),
		Owners:       owners,

		SessionDir:     env.GetEnvStringOrDefault("SESSION_DIR", "auth_info_session"),
		DatastoreType:  env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_TYPE", "sqlite"),
		DatastoreURI:   env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_URI", "file:multibot.db"),
		PluginManifest: env.GetEnvStringOrDefault("PLUGINS_FILE", "plugins.yaml"),

		DownloaderAPIURL: env.GetEnvStringOrDefault("DOWNLOADER_API_URL", ""),
		NewsFeedURL:      env.GetEnvStringOrDefault("NEWS_FEED_URL", "https://feeds.bbci.co.uk/news/world/rss.xml"),

		OutboundRatePerSecond: env.GetEnvFloat64OrDefault("OUTBOUND_RATE_PER_SECOND", 1),
		LimiterIdle:           env.GetEnvDurationOrDefault("OUTBOUND_LIMITER_IDLE", 30*time.Minute),
		LimiterSweepSpec:      env.GetEnvStringOrDefault("OUTBOUND_LIMITER_SWEEP_CRON", "0 */10 * * * *"),
		MetricsAddress:        env.GetEnvStringOrDefault("METRICS_ADDRESS", ""),
	}
}

// LoadServer reads the provisioning server configuration from the environment.
func LoadServer() Server {
	return Server{
		Name:         env.GetEnvStringOrDefault("SERVER_NAME", "KENTECH MULTIBOT Session Generator"),
		Address:      env.GetEnvStringOrDefault("SERVER_ADDRESS", "0.0.0.0"),
		Port:         env.GetEnvStringOrDefault("SERVER_PORT", "3000"),
		TempDir:      env.GetEnvStringOrDefault("SESSION_TEMP_DIR", "temp_sessions"),
		SessionTTL:   env.GetEnvDurationOrDefault("SESSION_TTL", 5*time.Minute),
		SweepSpec:    env.GetEnvStringOrDefault("SESSION_SWEEP_CRON", "0 */5 * * * *"),
		QRWait:       env.GetEnvDurationOrDefault("SESSION_QR_WAIT", 15*time.Second),
		CleanupDelay: env.GetEnvDurationOrDefault("SESSION_CLEANUP_DELAY", 30*time.Second),
		MaxAttempts:  env.GetEnvIntOrDefault("SESSION_MAX_ATTEMPTS", 3),
	}
}

// IsOwner reports whether the phone number belongs to a configured owner.
func (b Bot) IsOwner(phone string) bool {
	phone = validation.NormalizePhone(phone)
	for _, owner := range b.Owners {
		if owner == phone {
			return true
		}
	}
	return false
}

func prefix(v string) string {
	// an unquoted space prefix cannot survive env trimming, so allow a literal "none"
	if strings.EqualFold(v, "none") {
		return ""
	}
	return v
}
