package main

import "time"

type Config struct {
	Host              string        `env:"HOST,default=0.0.0.0"`
	Port              int           `env:"PORT,default=6687"`
	DatabaseURL       string        `env:"DATABASE_URL,required=true"`
	FeedChannels      string        `env:"FEED_CHANNELS,default=chat_updated,chat_message_created"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	TokenTTL          time.Duration `env:"TOKEN_TTL,default=24h"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
	FeedBufferSize    int           `env:"FEED_BUFFER_SIZE,default=256"`
	SessionBufferSize int           `env:"SESSION_BUFFER_SIZE,default=64"`
	KeepaliveInterval time.Duration `env:"KEEPALIVE_INTERVAL,default=30s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	FeedMinBackoff    time.Duration `env:"FEED_MIN_BACKOFF,default=500ms"`
	FeedMaxBackoff    time.Duration `env:"FEED_MAX_BACKOFF,default=30s"`
	StatsInterval     time.Duration `env:"STATS_INTERVAL,default=15s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	DebugPort         int           `env:"DEBUG_PORT"`
}
