package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	FirmID                string
	DictionaryTTLSeconds  int
	AuthSecret            string
	AccessTokenTTLMinutes int
	MetricsEnabled        bool
}

func Load() Config {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("allowed_origin", "http://127.0.0.1:3000")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("default_firm_id", "firm-1")
	v.SetDefault("dictionary_ttl_seconds", 60)
	v.SetDefault("auth_secret", "")
	v.SetDefault("access_token_ttl_minutes", 480)
	v.SetDefault("metrics_enabled", true)
	v.AutomaticEnv()

	ttl := v.GetInt("dictionary_ttl_seconds")
	if ttl < 1 {
		ttl = 60
	}
	tokenTTL := v.GetInt("access_token_ttl_minutes")
	if tokenTTL < 1 {
		tokenTTL = 480
	}

	return Config{
		Port:                  v.GetString("port"),
		AllowedOrigin:         v.GetString("allowed_origin"),
		DatabaseURL:           v.GetString("database_url"),
		RedisAddr:             v.GetString("redis_addr"),
		RedisPassword:         v.GetString("redis_password"),
		RedisDB:               v.GetInt("redis_db"),
		FirmID:                v.GetString("default_firm_id"),
		DictionaryTTLSeconds:  ttl,
		AuthSecret:            strings.TrimSpace(v.GetString("auth_secret")),
		AccessTokenTTLMinutes: tokenTTL,
		MetricsEnabled:        v.GetBool("metrics_enabled"),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
