package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Upload       UploadConfig       `mapstructure:"upload"`
	Certificates CertificatesConfig `mapstructure:"certificates"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// UploadConfig bounds incoming certificate uploads.
type UploadConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// CertificatesConfig selects where legacy (path-referenced) certificate
// files are read from. Backend is "local" or "s3".
type CertificatesConfig struct {
	Backend string   `mapstructure:"backend"`
	BaseDir string   `mapstructure:"base_dir"`
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling: nested keys map to underscored env vars,
	// e.g. server.address -> SERVER_ADDRESS, jwt.expiration -> JWT_EXPIRATION.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "workout_points")
	viper.SetDefault("jwt.expiration", "1h")
	viper.SetDefault("upload.max_size_bytes", 10<<20) // 10 MiB
	viper.SetDefault("certificates.backend", "local")
	viper.SetDefault("certificates.base_dir", ".")
	viper.SetDefault("certificates.s3.use_ssl", true)

	err = viper.ReadInConfig()
	// The config file is optional; env vars and defaults may be enough.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
