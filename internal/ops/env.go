package ops

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/yanun0323/logs"
)

// Env carries credentials and optional endpoints sourced from the process
// environment, with a .env file overlay when one exists.
type Env struct {
	APIKey        string
	SecretKey     string
	PaperTrading  bool
	PushbulletKey string
	DatabaseDSN   string
}

// LoadEnv reads .env (if present) then the process environment.
func LoadEnv() Env {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logs.Warnf("load .env, err: %+v", err)
	}

	return Env{
		APIKey:        os.Getenv("API_KEY"),
		SecretKey:     os.Getenv("SECRET_KEY"),
		PaperTrading:  envBool("USE_PAPER_TRADING", true),
		PushbulletKey: os.Getenv("PUSHBULLET_API_KEY"),
		DatabaseDSN:   os.Getenv("JOURNAL_DB_DSN"),
	}
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
