package storefront

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/RobertEarleCodes/Scrittle/internal/cart"
	pkgconfig "github.com/RobertEarleCodes/Scrittle/pkg/config"
	"github.com/RobertEarleCodes/Scrittle/pkg/database"
)

// Cart backend names.
const (
	CartBackendFile   = "file"
	CartBackendRedis  = "redis"
	CartBackendMemory = "memory"
)

// Config holds the terminal client configuration.
type Config struct {
	APIURL   string `env:"STOREFRONT_API_URL" envDefault:"http://localhost:3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`

	CartBackend string `env:"CART_BACKEND" envDefault:"file"`
	// CartFile defaults to a file under the user config directory.
	CartFile      string `env:"CART_FILE"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	CartRedisKey  string `env:"CART_REDIS_KEY" envDefault:"pickup_edge_cart"`

	TimeoutSecs int `env:"CLIENT_TIMEOUT_SECONDS" envDefault:"15"`
}

// LoadConfig reads the client configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load client config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFrom reads the client configuration from the given variables.
func LoadConfigFrom(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, environment); err != nil {
		return nil, fmt.Errorf("load client config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	u, err := url.ParseRequestURI(c.APIURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid STOREFRONT_API_URL %q", c.APIURL)
	}
	if !slices.Contains([]string{CartBackendFile, CartBackendRedis, CartBackendMemory}, c.CartBackend) {
		return fmt.Errorf("CART_BACKEND must be one of file, redis, memory, got %q", c.CartBackend)
	}
	if c.CartBackend == CartBackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when CART_BACKEND=redis")
	}
	if c.TimeoutSecs < 1 {
		return fmt.Errorf("CLIENT_TIMEOUT_SECONDS must be positive, got %d", c.TimeoutSecs)
	}
	return nil
}

// Timeout bounds each API request.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CartPath resolves the cart file location.
func (c *Config) CartPath() string {
	if c.CartFile != "" {
		return c.CartFile
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return cart.DefaultKey + ".json"
	}
	return filepath.Join(dir, "pickup-edge", cart.DefaultKey+".json")
}

// RedisConfig returns the Redis connection settings for the cart backend.
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}
