package config

import "time"

type DBConfig struct {
	URL             string        `mapstructure:"url" validate:"required"`
	MaxOpenConns    int32         `mapstructure:"max_open_conns"`
	MinIdleConns    int32         `mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	HealthTimeout   time.Duration `mapstructure:"health_timeout"`
}

type RedisConfig struct {
	URL             string        `mapstructure:"url"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type RabbitMQConfig struct {
	BrokerLink   string `mapstructure:"broker_link"`
	ExchangeName string `mapstructure:"exchange_name"`
	ExchangeType string `mapstructure:"exchange_type"`
	QueueName    string `mapstructure:"queue_name"`
	RoutingKey   string `mapstructure:"routing_key"`
	WorkerCount  int    `mapstructure:"worker_count"`
}

type SchedulerConfig struct {
	Interval  time.Duration `mapstructure:"interval" validate:"required"`
	BatchSize int           `mapstructure:"batch_size" validate:"min=1"`
	// queue mode only
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
	StaggerMax        time.Duration `mapstructure:"stagger_max"`
}

type ReclaimerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Limit    int           `mapstructure:"limit"`
}

type AlertConfig struct {
	WorkerCount int           `mapstructure:"worker_count" validate:"min=1"`
	QueueSize   int           `mapstructure:"queue_size" validate:"min=1"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
}

type Config struct {
	Env         string           `mapstructure:"env"`
	ServiceName string           `mapstructure:"service_name"`
	Port        int              `mapstructure:"port"`
	Mode        string           `mapstructure:"mode" validate:"oneof=memory queue"`
	DB          *DBConfig        `mapstructure:"db" validate:"required"`
	Redis       *RedisConfig     `mapstructure:"redis"`
	RabbitMQ    *RabbitMQConfig  `mapstructure:"rabbitmq"`
	Scheduler   *SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Reclaimer   *ReclaimerConfig `mapstructure:"reclaimer"`
	Alert       *AlertConfig     `mapstructure:"alert" validate:"required"`
}
