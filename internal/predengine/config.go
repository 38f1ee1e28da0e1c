package predengine

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all env-parsed configuration for the prediction engine service.
type Config struct {
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	ConsumerGroup string
	ConsumerName  string
	Symbols       []string
	WindowSize    int
	EvalIntervalS int
	TrainIntervalS int
	TrainSeed     int64
	WeightsPath   string
	HTTPAddr      string
	MetricsAddr   string
	PELIntervalS  int
	PELMinIdleMs  int64
	WebhookURL    string
	CBMaxFailures int
	CBResetSec    int
}

// LoadConfig reads all environment variables and returns a Config.
func LoadConfig() Config {
	return Config{
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		SQLitePath:     getEnv("SQLITE_PATH", "data/predictions.db"),
		ConsumerGroup:  getEnv("CONSUMER_GROUP", "predengine"),
		ConsumerName:   getEnv("CONSUMER_NAME", "worker-1"),
		Symbols:        parseSymbols(getEnv("SYMBOLS", "BTCUSDT,ETHUSDT,SOLUSDT")),
		WindowSize:     getEnvInt("WINDOW_SIZE", 256),
		EvalIntervalS:  getEnvInt("EVAL_INTERVAL_SEC", 1),
		TrainIntervalS: getEnvInt("TRAIN_INTERVAL_SEC", 10),
		TrainSeed:      int64(getEnvInt("TRAIN_SEED", 1)),
		WeightsPath:    getEnv("WEIGHTS_PATH", ""),
		HTTPAddr:       getEnv("PREDENGINE_HTTP_ADDR", ":9096"),
		MetricsAddr:    getEnv("METRICS_ADDR", ":9097"),
		PELIntervalS:   getEnvInt("PEL_RECLAIM_INTERVAL_SEC", 30),
		PELMinIdleMs:   int64(getEnvInt("PEL_MIN_IDLE_MS", 60000)),
		WebhookURL:     getEnv("WEBHOOK_URL", ""),
		CBMaxFailures:  getEnvInt("CB_MAX_FAILURES", 5),
		CBResetSec:     getEnvInt("CB_RESET_SEC", 10),
	}
}

// CandleStreams returns the Redis stream names to consume, one per symbol.
func (c Config) CandleStreams() []string {
	streams := make([]string, len(c.Symbols))
	for i, s := range c.Symbols {
		streams[i] = "candle:" + s
	}
	return streams
}

func parseSymbols(s string) []string {
	parts := strings.Split(s, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			symbols = append(symbols, p)
		}
	}
	return symbols
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
