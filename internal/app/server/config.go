package server

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	IdleTimeout time.Duration

	StakingWindow        time.Duration
	ConfirmationWindow   time.Duration
	ForwardSkewTolerance time.Duration

	AwsRegion   string
	RedisAddr   string
	JwtSecret   string
	PushEnabled bool

	DuelsTableName                string
	ChallengesTableName           string
	HealthDataTableName           string
	ApplicationEndpointsTableName string
}

func NewConfig() Config {
	var config Config

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs/server")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	viper.SetDefault("Server.Port", "8080")
	viper.SetDefault("Server.IdleTimeout", "60s")
	viper.SetDefault("Duel.StakingWindow", "60s")
	viper.SetDefault("Duel.ConfirmationWindow", "30s")
	viper.SetDefault("Duel.ForwardSkewTolerance", "5m")
	viper.SetDefault("Tables.Duels", "Duels")
	viper.SetDefault("Tables.Challenges", "Challenges")
	viper.SetDefault("Tables.HealthData", "HealthData")
	viper.SetDefault("Tables.ApplicationEndpoints", "ApplicationEndpoints")

	config.Port = viper.GetString("Server.Port")
	config.IdleTimeout = mustParseDuration("Server.IdleTimeout")
	config.StakingWindow = mustParseDuration("Duel.StakingWindow")
	config.ConfirmationWindow = mustParseDuration("Duel.ConfirmationWindow")
	config.ForwardSkewTolerance = mustParseDuration("Duel.ForwardSkewTolerance")
	config.AwsRegion = viper.GetString("AWS_REGION")
	config.RedisAddr = viper.GetString("Redis.Addr")
	config.JwtSecret = viper.GetString("JWT_SECRET")
	config.PushEnabled = viper.GetBool("Push.Enabled")
	config.DuelsTableName = viper.GetString("Tables.Duels")
	config.ChallengesTableName = viper.GetString("Tables.Challenges")
	config.HealthDataTableName = viper.GetString("Tables.HealthData")
	config.ApplicationEndpointsTableName = viper.GetString("Tables.ApplicationEndpoints")

	return config
}

func mustParseDuration(key string) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}
	return d
}
