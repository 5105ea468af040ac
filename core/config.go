package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultRenewalTimeout       = 15 * time.Second
	DefaultRequestTimeout       = 30 * time.Second
	DefaultMaxResponseBodyBytes = int64(10 << 20)
)

type EndpointsConfig struct {
	Authenticate string `koanf:"authenticate" mapstructure:"authenticate"`
	Renew        string `koanf:"renew" mapstructure:"renew"`
	Terminate    string `koanf:"terminate" mapstructure:"terminate"`
	Identity     string `koanf:"identity" mapstructure:"identity"`
}

type NavigationConfig struct {
	LoginPath     string `koanf:"login_path" mapstructure:"login_path"`
	ForbiddenPath string `koanf:"forbidden_path" mapstructure:"forbidden_path"`
	HomePath      string `koanf:"home_path" mapstructure:"home_path"`
}

type RenewalConfig struct {
	// Timeout bounds a single renewal call. Expiry counts as a rejected renewal.
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type TransportConfig struct {
	RequestTimeout       time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

type Config struct {
	ServiceName string           `koanf:"service_name" mapstructure:"service_name"`
	BaseURL     string           `koanf:"base_url" mapstructure:"base_url"`
	Renewal     RenewalConfig    `koanf:"renewal" mapstructure:"renewal"`
	Endpoints   EndpointsConfig  `koanf:"endpoints" mapstructure:"endpoints"`
	Navigation  NavigationConfig `koanf:"navigation" mapstructure:"navigation"`
	Transport   TransportConfig  `koanf:"transport" mapstructure:"transport"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "session",
		BaseURL:     "http://localhost:8000",
		Renewal: RenewalConfig{
			Timeout: DefaultRenewalTimeout,
		},
		Endpoints: EndpointsConfig{
			Authenticate: "/login",
			Renew:        "/refresh",
			Terminate:    "/logout",
			Identity:     "/me",
		},
		Navigation: NavigationConfig{
			LoginPath:     "/login",
			ForbiddenPath: "/forbidden",
			HomePath:      "/dashboard",
		},
		Transport: TransportConfig{
			RequestTimeout:       DefaultRequestTimeout,
			MaxResponseBodyBytes: DefaultMaxResponseBodyBytes,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Renewal.Timeout <= 0 {
		return fmt.Errorf("core: renewal.timeout must be positive")
	}
	if c.Transport.RequestTimeout < 0 {
		return fmt.Errorf("core: transport.request_timeout must be >= 0")
	}
	if c.Transport.MaxResponseBodyBytes < 0 {
		return fmt.Errorf("core: transport.max_response_body_bytes must be >= 0")
	}
	endpoints := map[string]string{
		"endpoints.authenticate": c.Endpoints.Authenticate,
		"endpoints.renew":        c.Endpoints.Renew,
		"endpoints.terminate":    c.Endpoints.Terminate,
		"endpoints.identity":     c.Endpoints.Identity,
	}
	seen := make(map[string]string, len(endpoints))
	for _, key := range []string{"endpoints.authenticate", "endpoints.renew", "endpoints.terminate", "endpoints.identity"} {
		path := normalizePath(endpoints[key])
		if path == "" {
			return fmt.Errorf("core: %s is required", key)
		}
		if other, ok := seen[path]; ok {
			return fmt.Errorf("core: %s and %s must not share path %q", other, key, path)
		}
		seen[path] = key
	}
	if strings.TrimSpace(c.Navigation.LoginPath) == "" {
		return fmt.Errorf("core: navigation.login_path is required")
	}
	if strings.TrimSpace(c.Navigation.ForbiddenPath) == "" {
		return fmt.Errorf("core: navigation.forbidden_path is required")
	}
	if strings.TrimSpace(c.Navigation.HomePath) == "" {
		return fmt.Errorf("core: navigation.home_path is required")
	}
	return nil
}
