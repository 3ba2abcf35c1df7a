package configs

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/IlyaPronin461/mushroom-classification/configs/loader"
)

type TelegramConfig struct {
	Token             string `validate:"required"`
	ConnectionTimeout time.Duration
}

type RedisConfig struct {
	Host         string `validate:"required"`
	DB           int
	User         string
	Password     string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	Host           string `validate:"required"`
	Port           int
	User           string
	Password       string
	Database       string
	MaxRetries     int
	RetryDelay     time.Duration
	ConnectTimeout time.Duration
}

type ClassifierConfig struct {
	Path         string `validate:"required"`
	ModelRef     string
	TopK         int
	MaxAttempts  int
	AwaitTimeout time.Duration
	BackoffBase  time.Duration
	Workers      int
}

type Config struct {
	TG  TelegramConfig
	RD  RedisConfig
	PG  PostgresConfig
	CL  ClassifierConfig
	Env string
}

func MustLoad(loader loader.ConfigLoader) *Config {
	env := flag.String("env", "dev", "Environment type")
	flag.Parse()

	const op = "configs.MustLoad"
	envs, err := loader.Load()
	if err != nil {
		log.Fatalf("%s: config load failed: %+v", op, err)
	}
	cfg := &Config{
		TG: TelegramConfig{
			Token:             envs["TELEGRAM_TOKEN"],
			ConnectionTimeout: getEnvAsDuration(envs["TELEGRAM_CONNECTION_TIMEOUT"], 30*time.Second),
		},
		RD: RedisConfig{
			Host:         envs["REDIS_HOST"],
			DB:           getEnvAsInt(envs["REDIS_DB"], 0),
			User:         envs["REDIS_USER"],
			Password:     envs["REDIS_PASSWORD"],
			MaxRetries:   getEnvAsInt(envs["REDIS_MAX_RETRIES"], 3),
			DialTimeout:  getEnvAsDuration(envs["REDIS_DIAL_TIMEOUT"], 5*time.Second),
			ReadTimeout:  getEnvAsDuration(envs["REDIS_READ_TIMEOUT"], 5*time.Second),
			WriteTimeout: getEnvAsDuration(envs["REDIS_WRITE_TIMEOUT"], 5*time.Second),
		},
		PG: PostgresConfig{
			Host:           envs["POSTGRES_HOST"],
			Port:           getEnvAsInt(envs["POSTGRES_PORT"], 5432),
			User:           envs["POSTGRES_USER"],
			Password:       envs["POSTGRES_PASSWORD"],
			Database:       envs["POSTGRES_DB"],
			MaxRetries:     getEnvAsInt(envs["POSTGRES_MAX_RETRIES"], 5),
			RetryDelay:     getEnvAsDuration(envs["POSTGRES_RETRY_DELAY"], 5*time.Second),
			ConnectTimeout: getEnvAsDuration(envs["POSTGRES_CONNECT_TIMEOUT"], 5*time.Second),
		},
		CL: ClassifierConfig{
			Path:         envs["CLASSIFIER_PATH"],
			ModelRef:     envs["CLASSIFIER_MODEL_REF"],
			TopK:         getEnvAsInt(envs["CLASSIFIER_TOP_K"], 5),
			MaxAttempts:  getEnvAsInt(envs["CLASSIFIER_MAX_ATTEMPTS"], 3),
			AwaitTimeout: getEnvAsDuration(envs["CLASSIFIER_AWAIT_TIMEOUT"], 60*time.Second),
			BackoffBase:  getEnvAsDuration(envs["CLASSIFIER_BACKOFF_BASE"], 500*time.Millisecond),
			Workers:      getEnvAsInt(envs["CLASSIFIER_WORKERS"], 4),
		},
		Env: *env,
	}

	if err := validateConfig(cfg); err != nil {
		log.Fatalf("%s: config validation failed: %+v", op, err)
	}

	return cfg
}

func validateConfig(cfg *Config) error {
	if cfg.TG.Token == "" || cfg.CL.Path == "" {
		return fmt.Errorf("missing required configuration")
	}
	if cfg.CL.TopK != 3 && cfg.CL.TopK != 5 {
		return fmt.Errorf("CLASSIFIER_TOP_K must be 3 or 5, got %d", cfg.CL.TopK)
	}
	if cfg.CL.MaxAttempts < 1 {
		return fmt.Errorf("CLASSIFIER_MAX_ATTEMPTS must be positive, got %d", cfg.CL.MaxAttempts)
	}
	return nil
}

func getEnvAsDuration(strValue string, defaultValue time.Duration) time.Duration {
	const op = "configs.getEnvAsDuration"
	if strValue == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(strValue)
	if err != nil {
		log.Printf("%s:Invalid value for %s, using default: %v", op, strValue, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsInt(strValue string, defaultValue int) int {
	const op = "configs.getEnvAsInt"
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("%s:Invalid value for %s, using default: %v", op, strValue, defaultValue)
		return defaultValue
	}
	return value
}
