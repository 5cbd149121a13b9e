package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fulmenhq/isolinks/pkg/mirror"
)

// EnvPrefix is prepended to every environment override, e.g. ISOLINKS_OUTPUT_PATH.
const EnvPrefix = "ISOLINKS"

// Config holds all configuration for isolinks
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Output  OutputConfig  `mapstructure:"output"`
	Resolve ResolveConfig `mapstructure:"resolve"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Windows WindowsConfig `mapstructure:"windows"`
	Git     GitConfig     `mapstructure:"git"`
}

// CatalogConfig locates the distribution catalog
type CatalogConfig struct {
	// Source is a local path or an http(s) URL.
	Source string `mapstructure:"source"`
}

// OutputConfig locates the result file
type OutputConfig struct {
	Path string `mapstructure:"path"`
}

// ResolveConfig tunes the resolution engine
type ResolveConfig struct {
	Workers int `mapstructure:"workers"`
}

// HTTPConfig holds mirror request settings
type HTTPConfig struct {
	ListingTimeout time.Duration `mapstructure:"listing_timeout"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	UserAgent      string        `mapstructure:"user_agent"`
	Referer        string        `mapstructure:"referer"`
	Accept         string        `mapstructure:"accept"`
	AcceptLanguage string        `mapstructure:"accept_language"`
}

// WindowsConfig configures the products.xml source
type WindowsConfig struct {
	UpdateCommand string        `mapstructure:"update_command"`
	UpdateTimeout time.Duration `mapstructure:"update_timeout"`
	// CacheFile overrides the products.xml location.
	CacheFile string `mapstructure:"cache_file"`
}

// GitConfig configures publishing of the result file
type GitConfig struct {
	Remote      string `mapstructure:"remote"`
	Branch      string `mapstructure:"branch"`
	AuthorName  string `mapstructure:"author_name"`
	AuthorEmail string `mapstructure:"author_email"`
	// TokenEnv names the environment variable holding the push token.
	TokenEnv string `mapstructure:"token_env"`
}

var defaultConfig = Config{
	Catalog: CatalogConfig{Source: "distros.yaml"},
	Output:  OutputConfig{Path: "links.json"},
	Resolve: ResolveConfig{Workers: 1},
	HTTP: HTTPConfig{
		ListingTimeout: mirror.DefaultListingTimeout,
		ProbeTimeout:   mirror.DefaultProbeTimeout,
		MaxAttempts:    mirror.DefaultMaxAttempts,
		UserAgent:      mirror.DefaultUserAgent,
		Referer:        mirror.DefaultReferer,
		Accept:         mirror.DefaultAccept,
		AcceptLanguage: mirror.DefaultAcceptLanguage,
	},
	Windows: WindowsConfig{
		UpdateCommand: "download-windows-esd",
		UpdateTimeout: 60 * time.Second,
	},
	Git: GitConfig{
		Remote:   "origin",
		Branch:   "main",
		TokenEnv: "ISOLINKS_GIT_TOKEN",
	},
}

// Default returns a copy of the built-in configuration.
func Default() Config {
	return defaultConfig
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// ConfigFile is an explicit config path. It must exist when set.
	ConfigFile string
	// SearchPaths replaces the default isolinks.yaml search directories.
	SearchPaths []string
	// EnvFiles are dotenv files loaded before the environment is read.
	// Missing files are skipped. Defaults to ".env".
	EnvFiles []string
}

// Load merges, from lowest to highest precedence: defaults, isolinks.yaml,
// dotenv files and ISOLINKS_* environment variables.
func Load(opts LoadOptions) (*Config, error) {
	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading env file %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("isolinks")
		v.SetConfigType("yaml")
		paths := opts.SearchPaths
		if paths == nil {
			paths = defaultSearchPaths()
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := defaultConfig
	v.SetDefault("catalog.source", d.Catalog.Source)
	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("resolve.workers", d.Resolve.Workers)

	v.SetDefault("http.listing_timeout", d.HTTP.ListingTimeout)
	v.SetDefault("http.probe_timeout", d.HTTP.ProbeTimeout)
	v.SetDefault("http.max_attempts", d.HTTP.MaxAttempts)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("http.referer", d.HTTP.Referer)
	v.SetDefault("http.accept", d.HTTP.Accept)
	v.SetDefault("http.accept_language", d.HTTP.AcceptLanguage)

	v.SetDefault("windows.update_command", d.Windows.UpdateCommand)
	v.SetDefault("windows.update_timeout", d.Windows.UpdateTimeout)
	v.SetDefault("windows.cache_file", d.Windows.CacheFile)

	// Empty defaults still register the keys so AutomaticEnv can fill them.
	v.SetDefault("git.remote", d.Git.Remote)
	v.SetDefault("git.branch", d.Git.Branch)
	v.SetDefault("git.author_name", d.Git.AuthorName)
	v.SetDefault("git.author_email", d.Git.AuthorEmail)
	v.SetDefault("git.token_env", d.Git.TokenEnv)
}

func defaultSearchPaths() []string {
	paths := []string{".", "$HOME"}
	if home, err := GetIsolinksHome(); err == nil {
		paths = append(paths, filepath.Join(home, "config"))
	}
	return paths
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Catalog.Source) == "" {
		errs = append(errs, errors.New("catalog.source must not be empty"))
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		errs = append(errs, errors.New("output.path must not be empty"))
	}
	if c.Resolve.Workers < 1 {
		errs = append(errs, fmt.Errorf("resolve.workers must be at least 1, got %d", c.Resolve.Workers))
	}
	if c.HTTP.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("http.max_attempts must be at least 1, got %d", c.HTTP.MaxAttempts))
	}
	if c.HTTP.ListingTimeout <= 0 || c.HTTP.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("http timeouts must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// MirrorOptions returns the per-client mirror settings.
func (c *Config) MirrorOptions() mirror.Options {
	return mirror.Options{
		UserAgent:      c.HTTP.UserAgent,
		Referer:        c.HTTP.Referer,
		Accept:         c.HTTP.Accept,
		AcceptLanguage: c.HTTP.AcceptLanguage,
		ListingTimeout: c.HTTP.ListingTimeout,
		ProbeTimeout:   c.HTTP.ProbeTimeout,
		MaxAttempts:    c.HTTP.MaxAttempts,
	}
}

// GitToken returns the push token from the configured variable, if any.
func (c *Config) GitToken() string {
	if c.Git.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.Git.TokenEnv)
}

// GetIsolinksHome returns the isolinks home directory
func GetIsolinksHome() (string, error) {
	if home := os.Getenv("ISOLINKS_HOME"); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".isolinks"), nil
}
