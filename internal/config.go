package internal

import (
	"fmt"
	"strings"
	"time"

	"chat-relay/runtime"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`

	TokenSecret       string        `env:"TOKEN_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=4096"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT,default=60s"`

	// Comma-separated lists; parsed by the helper methods because go-env
	// reserves the comma inside tag options.
	BroadcastCommands string `env:"BROADCAST_COMMANDS"`
	CensoredWords     string `env:"CENSORED_WORDS"`
	CharReplacement   string `env:"CHARACTER_REPLACEMENT,default=*"`

	LimitMessages     int           `env:"LIMIT_MESSAGES,default=50"`
	SearchResultLimit int           `env:"SEARCH_RESULT_LIMIT,default=20"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,default=30s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CharacterRune validates that the configured replacement is one character.
func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}

// BroadcastCommandList returns the commands whose results go to everyone,
// falling back to the built-in default when unset.
func (c Config) BroadcastCommandList() []string {
	if strings.TrimSpace(c.BroadcastCommands) == "" {
		return runtime.DefaultBroadcastCommands
	}
	return splitTrimmed(c.BroadcastCommands)
}

// CensoredWordList returns the moderation dictionary; empty means moderation
// is a pass-through.
func (c Config) CensoredWordList() []string {
	return splitTrimmed(c.CensoredWords)
}

func splitTrimmed(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
