package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"PORT" env-default:"3001"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"true"`
	Host     string `yaml:"host" env:"MONGO_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
	User     string `yaml:"user" env:"MONGO_USER" env-default:""`
	Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"qiming"`
}

type MysqlConfig struct {
	Host     string `yaml:"host" env:"MYSQL_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"MYSQL_PORT" env-default:"3306"`
	User     string `yaml:"user" env:"MYSQL_USER" env-default:""`
	Password string `yaml:"password" env:"MYSQL_PASSWORD" env-default:""`
	Database string `yaml:"database" env:"MYSQL_DATABASE" env-default:"qiming"`
}

type JwtConfig struct {
	Secret      string `yaml:"secret" env:"JWT_SECRET" env-default:""`
	ExpiresDays int    `yaml:"expires_days" env:"JWT_EXPIRES_DAYS" env-default:"90"`
}

type AiConfig struct {
	Url            string  `yaml:"url" env:"AI_API_URL" env-default:"https://api.deepseek.com/v1/chat/completions"`
	Model          string  `yaml:"model" env:"AI_MODEL" env-default:"deepseek-chat"`
	Key            string  `yaml:"key" env:"AI_API_KEY" env-default:""`
	TimeoutSeconds int     `yaml:"timeout_seconds" env:"AI_API_TIMEOUT" env-default:"60"`
	Temperature    float64 `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"1.0"`
	MaxTokens      int     `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"3000"`
	TopP           float64 `yaml:"top_p" env:"AI_TOP_P" env-default:"0"`
	PromptFile     string  `yaml:"prompt_file" env:"AI_PROMPT_FILE" env-default:""`
}

type RateLimitConfig struct {
	CooldownSeconds   int `yaml:"cooldown_seconds" env:"RATE_LIMIT_COOLDOWN" env-default:"30"`
	AuthWindowMinutes int `yaml:"auth_window_minutes" env:"AUTH_LIMIT_WINDOW" env-default:"15"`
	AuthMaxRequests   int `yaml:"auth_max_requests" env:"AUTH_LIMIT_MAX" env-default:"10"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
	ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	ChatId  int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID" env-default:"0"`
}

// Config is the full service configuration. CorsOrigins is a comma-separated
// origin allow-list for the web client.
type Config struct {
	Env         string          `yaml:"env" env:"ENV" env-default:"local"`
	Listen      Listen          `yaml:"listen"`
	Storage     string          `yaml:"storage" env:"STORAGE" env-default:"mongo"`
	Mongo       MongoConfig     `yaml:"mongo"`
	Mysql       MysqlConfig     `yaml:"mysql"`
	RedisUrl    string          `yaml:"redis_url" env:"REDIS_URL" env-default:""`
	Jwt         JwtConfig       `yaml:"jwt"`
	Ai          AiConfig        `yaml:"ai"`
	CorsOrigins string          `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:"http://localhost:5173"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Telegram    TelegramConfig  `yaml:"telegram"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
		if instance.Env == "prod" && instance.Jwt.Secret == "" {
			log.Fatal("config: jwt secret must be set in prod")
		}
		if instance.Jwt.Secret == "" {
			instance.Jwt.Secret = "baby-name-secret-key-2025-dev-only"
		}
	})
	return instance
}
