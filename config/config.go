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

// placeholderSecret is the value shipped in config.yml; deployments must
// override it via MATCHPOINT_JWT_SECRETKEY or a local config file.
const placeholderSecret = "change-me-in-production"

type JWTConfig struct {
	SecretKey        string        `mapstructure:"secretKey"`
	Issuer           string        `mapstructure:"issuer"`
	Audience         string        `mapstructure:"audience"`
	TokenTTL         time.Duration `mapstructure:"tokenTTL"`
	RefreshThreshold time.Duration `mapstructure:"refreshThreshold"`
	CookieName       string        `mapstructure:"cookieName"`
}

type RateLimitConfig struct {
	MaxAttempts int           `mapstructure:"maxAttempts"`
	Window      time.Duration `mapstructure:"window"`
}

type OAuthProviderConfig struct {
	Key         string `mapstructure:"key"`
	Secret      string `mapstructure:"secret"`
	CallbackURL string `mapstructure:"callbackURL"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMODE  string `mapstructure:"SSLMODE"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	CORS      struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
	OAuth struct {
		Google OAuthProviderConfig `mapstructure:"google"`
	} `mapstructure:"oauth"`
}

// IsProduction reports whether the app is running in production mode.
// Cookie attributes and secret validation depend on it.
func (c *Config) IsProduction() bool {
	return c.Mode == "production"
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix("MATCHPOINT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// validate enforces the startup invariants the auth core depends on and
// fills in defaults for unset durations.
func (c *Config) validate() error {
	if len(c.JWT.SecretKey) < 8 {
		return fmt.Errorf("jwt.secretKey must be at least 8 characters")
	}
	if c.IsProduction() && c.JWT.SecretKey == placeholderSecret {
		return fmt.Errorf("jwt.secretKey is still the placeholder default; refusing to start in production")
	}
	if c.JWT.TokenTTL <= 0 {
		c.JWT.TokenTTL = 7 * 24 * time.Hour
	}
	if c.JWT.RefreshThreshold <= 0 {
		c.JWT.RefreshThreshold = 24 * time.Hour
	}
	if c.JWT.CookieName == "" {
		c.JWT.CookieName = "auth_token"
	}
	if c.RateLimit.MaxAttempts <= 0 {
		c.RateLimit.MaxAttempts = 10
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = 15 * time.Minute
	}
	return nil
}
