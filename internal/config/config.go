package config

import (
	"time"
)

type ServerConfig struct {
	Port             int           `config:"port" default:"8080" description:"HTTP port of the read API"`
	GracefulShutdown time.Duration `config:"graceful-shutdown" default:"10s" description:"Grace period for in-flight requests and jobs on shutdown"`
	ReadTimeout      time.Duration `config:"read-timeout" default:"30s" description:"HTTP read timeout"`
	WriteTimeout     time.Duration `config:"write-timeout" default:"30s" description:"HTTP write timeout"`
}

type LoggingConfig struct {
	Level string `config:"level" default:"info" validate:"oneof=debug info warn error" description:"Logging level"`
	File  string `config:"file" description:"Logging file path, rotated when set"`
}

type DBConfig struct {
	DataSource  string `config:"data-source" validate:"required" description:"Postgres connection string"`
	PrepareStmt bool   `config:"prepare-stmt" default:"true" description:"Enable prepared statements"`
	LogLevel    string `config:"log-level" default:"error" description:"Database log level"`
	Pool        struct {
		Enable             bool          `config:"enable" default:"true" description:"Enable database pool"`
		MaxOpenConnections int           `config:"max-open-connections" default:"25" description:"Database max open connections"`
		MaxIdleConnections int           `config:"max-idle-connections" default:"25" description:"Database max idle connections"`
		MaxLifetime        time.Duration `config:"max-lifetime" default:"10m" description:"Database max connection lifetime"`
	} `config:"pool"`
}

type CacheConfig struct {
	MaxSize   int           `config:"max-size" default:"10485760" description:"In-memory cache size in bytes"`
	TTL       time.Duration `config:"ttl" default:"5m" description:"Lifetime of cached API responses"`
	RedisAddr string        `config:"redis-addr" description:"Redis address, in-memory cache is used when empty"`
	RedisPass string        `config:"redis-pass" description:"Redis password"`
}

type QueueConfig struct {
	Enable      bool          `config:"enable" default:"true" description:"Run the ingestion job worker"`
	Periodic    bool          `config:"periodic" default:"true" description:"Schedule ingestion runs from source cron expressions"`
	MaxAttempts int           `config:"max-attempts" default:"5" validate:"min=1" description:"Attempts per ingestion job before it is discarded"`
	JobTimeout  time.Duration `config:"job-timeout" default:"10m" description:"Upper bound for one ingestion job"`
}

type CTFTimeConfig struct {
	Enable   bool          `config:"enable" default:"true" description:"Ingest events from the CTFtime API"`
	URL      string        `config:"url" default:"https://ctftime.org/api/v1/events/" validate:"omitempty,url" description:"CTFtime events endpoint"`
	Window   time.Duration `config:"window" default:"1y" description:"How far ahead to request events"`
	Schedule string        `config:"schedule" default:"0 */6 * * *" description:"Cron expression for periodic CTFtime ingestion"`
}

type FeedConfig struct {
	Enable   bool     `config:"enable" default:"true" description:"Ingest conference items from RSS/Atom feeds"`
	URLs     []string `config:"urls" default:"https://www.usenix.org/rss.xml" validate:"dive,url" description:"Feed URLs"`
	Schedule string   `config:"schedule" default:"30 */12 * * *" description:"Cron expression for periodic feed ingestion"`
}

type SourcesConfig struct {
	UserAgent       string        `config:"user-agent" default:"ctfwatch/1.0 (+https://github.com/ctfwatch/ctfwatch)" validate:"required" description:"User-Agent sent to upstreams"`
	Timeout         time.Duration `config:"timeout" default:"10s" validate:"gt=0" description:"Upstream request timeout"`
	RequestInterval time.Duration `config:"request-interval" default:"1s" description:"Minimum spacing between requests to one upstream host"`
	Limit           int           `config:"limit" default:"100" validate:"gt=0" description:"Default number of upstream records to request"`
	CTFTime         CTFTimeConfig `config:"ctftime"`
	RSS             FeedConfig    `config:"rss"`
}

type NotifyConfig struct {
	TelegramToken string        `config:"telegram-token" description:"Telegram bot token"`
	Recipients    []string      `config:"recipients" description:"Telegram chat IDs that receive new event digests"`
	APIURL        string        `config:"api-url" default:"https://api.telegram.org" description:"Telegram Bot API base URL"`
	Timeout       time.Duration `config:"timeout" default:"10s" validate:"gt=0" description:"Per-recipient send timeout"`
}

type ServerCmdConfig struct {
	Server  ServerConfig  `config:"server"`
	Log     LoggingConfig `config:"log"`
	DB      DBConfig      `config:"db"`
	Cache   CacheConfig   `config:"cache"`
	Queue   QueueConfig   `config:"queue"`
	Sources SourcesConfig `config:"sources"`
	Notify  NotifyConfig  `config:"notify"`
}
