package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// IMAP captures mailbox connection settings.
type IMAP struct {
	Host     string
	Port     int
	Account  string
	Password string
}

// Addr returns the host:port dial address.
func (i IMAP) Addr() string {
	return fmt.Sprintf("%s:%d", i.Host, i.Port)
}

// Telegram captures alert channel settings. Both fields must be set for
// alerts to be delivered; otherwise the notifier is a no-op.
type Telegram struct {
	BotToken string
	ChatID   string
}

// Config holds all process configuration.
type Config struct {
	Addr          string
	IMAP          IMAP
	GmailToken    string
	Telegram      Telegram
	LogFile       string
	JWTSigningKey string

	AlertEveryResend bool
	AlertLimit       int
	AlertWindow      time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr: ":" + envOr("PORT", "10000"),
		IMAP: IMAP{
			Host:     envOr("IMAP_HOST", "imap.gmail.com"),
			Port:     envInt("IMAP_PORT", 993),
			Account:  os.Getenv("EMAIL_ACCOUNT"),
			Password: os.Getenv("EMAIL_PASSWORD"),
		},
		GmailToken: os.Getenv("GMAIL_TOKEN"),
		Telegram: Telegram{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		},
		LogFile:       envOr("LOG_FILE", "resend_logs.json"),
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),

		AlertEveryResend: os.Getenv("ALERT_EVERY_RESEND") == "true",
		AlertLimit:       envInt("ALERT_RESEND_LIMIT", 5),
		AlertWindow:      time.Duration(envInt("ALERT_WINDOW_MINUTES", 10)) * time.Minute,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
