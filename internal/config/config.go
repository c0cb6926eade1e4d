// Package config provides configuration types for the coursekit client
// runtime.
//
// Configuration is file based (coursekit.yaml) with environment overrides
// (COURSEKIT_API_BASE_URL and friends). Everything has a default: an empty
// configuration talks to a local development server and keeps its session
// in ./coursekit-state.json.
package config

import "time"

// Config is the top-level configuration.
type Config struct {
	// API configures the REST server the runtime talks to.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Storage configures where the session survives restarts.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// LogLevel is one of debug, info, warn, error. Default: info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error"`

	// Navigation configures the guard's redirect targets.
	Navigation NavigationConfig `yaml:"navigation" mapstructure:"navigation"`

	// Routes adds routes to the built-in table or replaces built-in routes
	// of the same name.
	Routes []RouteConfig `yaml:"routes" mapstructure:"routes" validate:"omitempty,dive"`

	// Tracing configures OpenTelemetry spans.
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// APIConfig configures the REST client.
type APIConfig struct {
	// BaseURL is prefixed to every API path.
	// Default: "http://127.0.0.1:8000".
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	// Timeout bounds each request (e.g. "10s"). Default: "10s".
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"required,duration"`
	// AuthScheme is the Authorization header scheme. Default: "Token".
	AuthScheme string `yaml:"auth_scheme" mapstructure:"auth_scheme" validate:"required,alpha"`
}

// TimeoutDuration parses Timeout. Call after Validate.
func (c APIConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Storage drivers.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// StorageConfig configures durable session storage.
type StorageConfig struct {
	// Driver is "file" (JSON state file), "sqlite", or "memory" (nothing
	// survives the process). Default: "file".
	Driver string `yaml:"driver" mapstructure:"driver" validate:"required,oneof=file sqlite memory"`
	// Path is the state file or database path. Ignored by "memory".
	// Default: "./coursekit-state.json" for file, "./coursekit.db" for sqlite.
	Path string `yaml:"path" mapstructure:"path" validate:"required_unless=Driver memory"`
}

// NavigationConfig names the routes the navigation guard redirects to and
// where the runtime starts.
type NavigationConfig struct {
	// LoginRoute receives unauthenticated users. Default: "login".
	LoginRoute string `yaml:"login_route" mapstructure:"login_route" validate:"required"`
	// EntryRoutes are sent away from when already logged in.
	// Default: ["login", "register"].
	EntryRoutes []string `yaml:"entry_routes" mapstructure:"entry_routes" validate:"min=1,dive,required"`
	// DeniedRoute receives users lacking a role. Default: "home".
	DeniedRoute string `yaml:"denied_route" mapstructure:"denied_route" validate:"required"`
	// LandingRoute receives logged-in users hitting an entry route.
	// Default: "courses".
	LandingRoute string `yaml:"landing_route" mapstructure:"landing_route" validate:"required"`
	// StartPath is the path the runtime considers current at startup.
	// Default: "/".
	StartPath string `yaml:"start_path" mapstructure:"start_path" validate:"required,route_path"`
}

// RouteConfig is a route table entry.
type RouteConfig struct {
	Name          string   `yaml:"name" mapstructure:"name" validate:"required"`
	Path          string   `yaml:"path" mapstructure:"path" validate:"required,route_path"`
	RequiresAuth  bool     `yaml:"requires_auth" mapstructure:"requires_auth"`
	RequiredRoles []string `yaml:"required_roles" mapstructure:"required_roles" validate:"omitempty,dive,oneof=student instructor admin"`
	// Condition is an optional CEL expression; see the cel adapter for the
	// available variables.
	Condition string `yaml:"condition" mapstructure:"condition" validate:"max=1024"`
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	// Enabled exports one span per API request to stderr.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// SetDefaults applies default values to empty fields.
func (c *Config) SetDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://127.0.0.1:8000"
	}
	if c.API.Timeout == "" {
		c.API.Timeout = "10s"
	}
	if c.API.AuthScheme == "" {
		c.API.AuthScheme = "Token"
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageFile
	}
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case StorageFile:
			c.Storage.Path = "./coursekit-state.json"
		case StorageSQLite:
			c.Storage.Path = "./coursekit.db"
		}
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Navigation.LoginRoute == "" {
		c.Navigation.LoginRoute = "login"
	}
	if len(c.Navigation.EntryRoutes) == 0 {
		c.Navigation.EntryRoutes = []string{"login", "register"}
	}
	if c.Navigation.DeniedRoute == "" {
		c.Navigation.DeniedRoute = "home"
	}
	if c.Navigation.LandingRoute == "" {
		c.Navigation.LandingRoute = "courses"
	}
	if c.Navigation.StartPath == "" {
		c.Navigation.StartPath = "/"
	}
}
