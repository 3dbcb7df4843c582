package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultPath         = "."
	defaultQueryTimeout = 5 * time.Second
	defaultSQLitePath   = "AppData/app.db"
	defaultRedisPrefix  = "accounts"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Password hashing algorithms.
const (
	HasherArgon2id = "argon2id"
	HasherBcrypt   = "bcrypt"
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

	Storage *StorageConfig `json:"storage" yaml:"storage"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	// Admin guards the activation endpoints. They are not mounted when APIKey is empty.
	Admin *AdminConfig `json:"admin" yaml:"admin"`
}

// StorageConfig selects and configures the user store.
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"`

	// QueryTimeout bounds every single store call.
	QueryTimeout time.Duration `json:"queryTimeout" yaml:"queryTimeout"`

	SQLite   *SQLiteConfig    `json:"sqlite" yaml:"sqlite"`
	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`
	Redis    *RedisConfig     `json:"redis" yaml:"redis"`
}

type SQLiteConfig struct {
	Path string `json:"path" yaml:"path"`
}

type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	Hasher     string        `json:"hasher" yaml:"hasher"`
	BcryptCost int           `json:"bcryptCost" yaml:"bcryptCost"`
	Argon2     *Argon2Config `json:"argon2" yaml:"argon2"`

	// UnifyLoginFailures hides whether a login failed on the username or the password.
	UnifyLoginFailures bool `json:"unifyLoginFailures" yaml:"unifyLoginFailures"`

	// StrictEmail rejects registrations whose email is not a well-formed address.
	StrictEmail bool `json:"strictEmail" yaml:"strictEmail"`

	// Zero disables the corresponding limit.
	MaxUsernameLength int `json:"maxUsernameLength" yaml:"maxUsernameLength"`
	MaxEmailLength    int `json:"maxEmailLength" yaml:"maxEmailLength"`
}

type Argon2Config struct {
	Time      uint32 `json:"time" yaml:"time"`
	MemoryKiB uint32 `json:"memoryKiB" yaml:"memoryKiB"`
	Threads   uint8  `json:"threads" yaml:"threads"`
	KeyLen    uint32 `json:"keyLen" yaml:"keyLen"`
}

type AdminConfig struct {
	APIKey string `json:"apiKey" yaml:"apiKey"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
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

	var configFile string
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate

			break
		}
	}

	if configFile == "" {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// STORAGE_REDIS_KEYPREFIX -> storage.redis.keyPrefix
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
	// A missing .env file is not an error.
	_ = godotenv.Load()

	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if cfg.Storage.Postgres != nil {
		// POSTGRES replicas come from STORAGE_POSTGRES_REPLICAS_{index}_{field}.
		cfg.Storage.Postgres.Replicas = buildReplicasFromEnv()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage == nil {
		c.Storage = &StorageConfig{}
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.QueryTimeout <= 0 {
		c.Storage.QueryTimeout = defaultQueryTimeout
	}
	if c.Storage.SQLite == nil {
		c.Storage.SQLite = &SQLiteConfig{}
	}
	if strings.TrimSpace(c.Storage.SQLite.Path) == "" {
		c.Storage.SQLite.Path = defaultSQLitePath
	}
	if c.Storage.Redis != nil && c.Storage.Redis.KeyPrefix == "" {
		c.Storage.Redis.KeyPrefix = defaultRedisPrefix
	}

	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	if c.Auth.Hasher == "" {
		c.Auth.Hasher = HasherArgon2id
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = bcrypt.DefaultCost
	}
	if c.Auth.Argon2 == nil {
		c.Auth.Argon2 = &Argon2Config{}
	}

	if c.Admin == nil {
		c.Admin = &AdminConfig{}
	}
}

// Validate reports configuration values the service cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.Storage.Postgres == nil {
			return errors.New("storage.postgres is required for the postgres driver")
		}
	case DriverRedis:
		if c.Storage.Redis == nil || c.Storage.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required for the redis driver")
		}
	default:
		return errors.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	switch c.Auth.Hasher {
	case HasherArgon2id, HasherBcrypt:
	default:
		return errors.Errorf("unknown password hasher: %q", c.Auth.Hasher)
	}

	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return errors.Errorf("auth.bcryptCost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	}

	if c.Auth.MaxUsernameLength < 0 || c.Auth.MaxEmailLength < 0 {
		return errors.New("auth length limits must not be negative")
	}

	return nil
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

func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "STORAGE_POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			break
		}

		replicas = append(replicas, postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		})
	}

	return replicas
}
