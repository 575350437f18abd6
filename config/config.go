package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode     string `mapstructure:"mode"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Mongo struct {
			URI string `mapstructure:"uri"`
			DB  string `mapstructure:"db"`
		} `mapstructure:"mongo"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Assistant struct {
		Model       string        `mapstructure:"model"`
		Temperature float32       `mapstructure:"temperature"`
		TurnTimeout time.Duration `mapstructure:"turnTimeout"`
	} `mapstructure:"assistant"`
	Auth struct {
		AccessTTL  time.Duration `mapstructure:"accessTTL"`
		RefreshTTL time.Duration `mapstructure:"refreshTTL"`
		OTPTTL     time.Duration `mapstructure:"otpTTL"`
	} `mapstructure:"auth"`
	Mail struct {
		Server   string `mapstructure:"server"`
		Port     int    `mapstructure:"port"`
		From     string `mapstructure:"from"`
		Username string `mapstructure:"username"`
	} `mapstructure:"mail"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}
