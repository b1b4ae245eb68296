package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/macieszak/confectionery-storefront/internal/domain/catalog"
)

// Config holds the complete storefront configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	APIBaseURL     string        `default:"http://localhost:8080/api" usage:"Store API base URL" flag:"api-base-url"`
	RequestTimeout time.Duration `default:"10s" usage:"Per-request timeout for catalog resolution" flag:"request-timeout"`
	SearchMode     string        `default:"combined" usage:"Search composition with filters: combined or exclusive" flag:"search-mode"`
	MaxQuantity    int           `default:"99" usage:"Quantity selector ceiling" flag:"max-quantity"`
	Gzip           bool          `default:"true" usage:"Request gzip-encoded responses"`
	Token          string        `usage:"Bearer token for authenticated actions (STOREFRONT_TOKEN)"`

	Browse BrowseConfig
	Mock   MockConfig
}

// BrowseConfig holds the catalog axes and detail actions for the demo CLI.
type BrowseConfig struct {
	Search    string `default:"" usage:"Free-text search"`
	Category  string `default:"all" usage:"Category filter: all, cakes, cookies"`
	PriceBand string `default:"all" usage:"Price band: all, 0-15, 15-50" flag:"price-band"`
	Sort      string `default:"default" usage:"Sort order: default, cheapest, expensive"`
	ProductID int64  `default:"0" usage:"Product ID to open in the detail view" flag:"product-id"`
	AddToCart int    `default:"0" usage:"Quantity to add to the cart from the detail view (requires token)" flag:"add-to-cart"`
}

// MockConfig configures the mock-api fixture server.
type MockConfig struct {
	Addr string `default:"0.0.0.0:8080" usage:"mock-api listen address"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	switch catalog.SearchMode(cfg.SearchMode) {
	case catalog.SearchCombined, catalog.SearchExclusive:
	default:
		return nil, errors.Errorf("invalid search mode %q", cfg.SearchMode)
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) onto the mock server's listen address.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Mock.Addr == "0.0.0.0:8080" {
		c.Mock.Addr = "0.0.0.0:" + port
	}
}
