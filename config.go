package shareme

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const DefaultApiUrl = "https://api.shareme.app"

// one logical page per fetch. the api counts `skip` in pages, not items
const DefaultPageSize = 10

const DefaultSearchDebounceTimeout = 500 * time.Millisecond

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

type ClientSettings struct {
	ApiUrl                string        `env:"SHAREME_API_URL"`
	PageSize              int           `env:"SHAREME_PAGE_SIZE"`
	SearchDebounceTimeout time.Duration `env:"SHAREME_SEARCH_DEBOUNCE"`
	HttpTimeout           time.Duration `env:"SHAREME_HTTP_TIMEOUT"`
	HttpConnectTimeout    time.Duration `env:"SHAREME_HTTP_CONNECT_TIMEOUT"`
	HttpTlsTimeout        time.Duration `env:"SHAREME_HTTP_TLS_TIMEOUT"`
}

func DefaultClientSettings() *ClientSettings {
	return &ClientSettings{
		ApiUrl:                DefaultApiUrl,
		PageSize:              DefaultPageSize,
		SearchDebounceTimeout: DefaultSearchDebounceTimeout,
		HttpTimeout:           defaultHttpTimeout,
		HttpConnectTimeout:    defaultHttpConnectTimeout,
		HttpTlsTimeout:        defaultHttpTlsTimeout,
	}
}

// defaults overridden by any SHAREME_* environment variables that are set
func ClientSettingsFromEnv() (*ClientSettings, error) {
	settings := DefaultClientSettings()
	if err := env.Parse(settings); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if settings.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive: %d", settings.PageSize)
	}
	return settings, nil
}
