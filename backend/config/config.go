package config

import "github.com/spf13/viper"

type Config struct {
	Running struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"running"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Mysql struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"mysql"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
	Auth struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"auth"`
}

// Load 读取 deltaConfig.yaml，兼容从项目根目录或 backend 目录启动
func Load() (*Config, error) {
	cfg := &Config{}
	v := viper.New()
	v.SetConfigName("deltaConfig")
	v.SetConfigType("yaml")
	v.AddConfigPath("./backend/config")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetDefault("running.port", 3002)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("kafka.topic", "doc-ops")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
