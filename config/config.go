package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath = "."

	defaultProfileFetchTimeout = 5 * time.Second
	defaultInitialLoadTimeout  = 10 * time.Second
	defaultLoadingFloor        = 12 * time.Second
	defaultVisibilityGrace     = 500 * time.Millisecond
	defaultLandingRoute        = "/dashboard"
	defaultPublicLandingRoute  = "/"

	defaultAccessTokenTTL  = time.Hour
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultRefreshMargin   = time.Minute
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port     int `json:"port" yaml:"port"`
		Timeouts struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	SecretKey struct {
		Access  string `json:"access" yaml:"access"`
		Refresh string `json:"refresh" yaml:"refresh"`
	} `json:"secretKey" yaml:"secretKey"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	// Session holds the timeout policy of the session state machine and profile sync.
	Session *SessionConfig `json:"session" yaml:"session"`
}

// AuthConfig defines the local identity provider configuration.
type AuthConfig struct {
	BcryptCost      int           `json:"bcryptCost" yaml:"bcryptCost"`
	AccessTokenTTL  time.Duration `json:"accessTokenTTL" yaml:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `json:"refreshTokenTTL" yaml:"refreshTokenTTL"`

	// RefreshMargin is how long before access-token expiry the session is refreshed.
	RefreshMargin time.Duration `json:"refreshMargin" yaml:"refreshMargin"`
}

// SessionConfig is the single timeout policy shared by the session machine and the
// profile coordinator. The values must satisfy
// ProfileFetchTimeout <= InitialLoadTimeout <= LoadingFloor.
type SessionConfig struct {
	// ProfileFetchTimeout bounds every profile read issued by the coordinator.
	ProfileFetchTimeout time.Duration `json:"profileFetchTimeout" yaml:"profileFetchTimeout"`

	// InitialLoadTimeout forces READY when INITIALIZING/RESOLVING_PROFILE has not completed.
	InitialLoadTimeout time.Duration `json:"initialLoadTimeout" yaml:"initialLoadTimeout"`

	// LoadingFloor is the UI-level bound after which isLoading is reported false no matter what.
	LoadingFloor time.Duration `json:"loadingFloor" yaml:"loadingFloor"`

	// VisibilityGrace is the delay before a saved profile is re-read for verification.
	VisibilityGrace time.Duration `json:"visibilityGrace" yaml:"visibilityGrace"`

	DefaultLandingRoute string `json:"defaultLandingRoute" yaml:"defaultLandingRoute"`
	PublicLandingRoute  string `json:"publicLandingRoute" yaml:"publicLandingRoute"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// DefaultSessionConfig returns the session timeout policy with every default applied.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ProfileFetchTimeout: defaultProfileFetchTimeout,
		InitialLoadTimeout:  defaultInitialLoadTimeout,
		LoadingFloor:        defaultLoadingFloor,
		VisibilityGrace:     defaultVisibilityGrace,
		DefaultLandingRoute: defaultLandingRoute,
		PublicLandingRoute:  defaultPublicLandingRoute,
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *SessionConfig) ApplyDefaults() {
	defaults := DefaultSessionConfig()
	if c.ProfileFetchTimeout <= 0 {
		c.ProfileFetchTimeout = defaults.ProfileFetchTimeout
	}
	if c.InitialLoadTimeout <= 0 {
		c.InitialLoadTimeout = defaults.InitialLoadTimeout
	}
	if c.LoadingFloor <= 0 {
		c.LoadingFloor = defaults.LoadingFloor
	}
	if c.VisibilityGrace < 0 {
		c.VisibilityGrace = defaults.VisibilityGrace
	}
	if strings.TrimSpace(c.DefaultLandingRoute) == "" {
		c.DefaultLandingRoute = defaults.DefaultLandingRoute
	}
	if strings.TrimSpace(c.PublicLandingRoute) == "" {
		c.PublicLandingRoute = defaults.PublicLandingRoute
	}
}

// Validate checks that the timeout ladder is ordered.
func (c *SessionConfig) Validate() error {
	if c.ProfileFetchTimeout > c.InitialLoadTimeout {
		return errors.Errorf("session.profileFetchTimeout (%s) must not exceed session.initialLoadTimeout (%s)",
			c.ProfileFetchTimeout, c.InitialLoadTimeout)
	}
	if c.InitialLoadTimeout > c.LoadingFloor {
		return errors.Errorf("session.initialLoadTimeout (%s) must not exceed session.loadingFloor (%s)",
			c.InitialLoadTimeout, c.LoadingFloor)
	}

	return nil
}

// ApplyDefaults fills zero values with defaults.
func (c *AuthConfig) ApplyDefaults() {
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = defaultAccessTokenTTL
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	if c.RefreshMargin <= 0 || c.RefreshMargin >= c.AccessTokenTTL {
		c.RefreshMargin = min(defaultRefreshMargin, c.AccessTokenTTL/2)
	}
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	configFile, found := findConfigFile(searchPaths, currEnv+".yaml")
	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// SESSION_PROFILEFETCHTIMEOUT -> session.profileFetchTimeout
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			return canonicalizeEnvKey(k, existingConfigMap), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) normalize() error {
	if c.Session == nil {
		c.Session = DefaultSessionConfig()
	}
	c.Session.ApplyDefaults()
	if err := c.Session.Validate(); err != nil {
		return err
	}

	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	c.Auth.ApplyDefaults()

	if c.Postgres == nil {
		return errors.New("postgres configuration is required")
	}

	return nil
}

func findConfigFile(searchPaths []string, name string) (string, bool) {
	for _, path := range searchPaths {
		candidate := filepath.Join(path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}

	return "", false
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
