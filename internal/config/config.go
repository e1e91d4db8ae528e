package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBDSN     string
	LogFile   string
	RedisAddr string // empty => in-memory reservation/rate-limit stores
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] skipping .env: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "swiftcart.db" // sqlite file in project root
	}
	logFile := os.Getenv("LOG_FILE")
	redisAddr := os.Getenv("REDIS_ADDR")

	cfg := Config{Port: port, DBDSN: dsn, LogFile: logFile, RedisAddr: redisAddr}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s REDIS_ADDR=%s", cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.RedisAddr)
	return cfg
}
