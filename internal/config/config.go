package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"4000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"30"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN            string `env:"DSN,required"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout   int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		MaxOpenConns   int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns   int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime    int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"604800"` // 7 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Cookie struct {
		Name   string `env:"NAME" envDefault:"token"`
		Secure bool   `env:"SECURE" envDefault:"true"`
	} `envPrefix:"COOKIE_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD" envDefault:"password123"`
		} `envPrefix:"USER_"`
		EmailDomain string `env:"EMAIL_DOMAIN" envDefault:"example.com"`
	} `envPrefix:"SEED_"`
	Email struct {
		SMTP struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
		TemplateDir string `env:"TEMPLATE_DIR" envDefault:"./templates"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		Queue          string `env:"QUEUE" envDefault:"email_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host             string `env:"HOST" envDefault:"localhost"`
		Port             int    `env:"PORT" envDefault:"6379"`
		Password         string `env:"PASSWORD"`
		OperationTimeout int    `env:"OPERATION_TIMEOUT" envDefault:"10"`
		LockTTL          int    `env:"LOCK_TTL" envDefault:"60"`
		LockWait         int    `env:"LOCK_WAIT" envDefault:"15"`
	} `envPrefix:"REDIS_"`
	S3 struct {
		AccessKey        string `env:"ACCESS_KEY,required"`
		SecretKey        string `env:"SECRET_KEY,required"`
		Bucket           string `env:"BUCKET" envDefault:"job-portal"`
		Region           string `env:"REGION" envDefault:"us-east-1"`
		BaseEndpoint     string `env:"BASE_ENDPOINT" envDefault:"http://127.0.0.1:9000"`
		PublicBaseURL    string `env:"PUBLIC_BASE_URL" envDefault:"http://127.0.0.1:9000"`
		OperationTimeout int    `env:"OPERATION_TIMEOUT" envDefault:"30"`
	} `envPrefix:"S3_"`
	Resume struct {
		MaxSize int64 `env:"MAX_SIZE" envDefault:"5242880"` // 5 MiB
	} `envPrefix:"RESUME_"`
	OTP struct {
		Expiration int `env:"EXPIRATION" envDefault:"900"` // 15 分钟
	} `envPrefix:"OTP_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}
