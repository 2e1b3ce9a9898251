package config

import (
	"fmt"
	"os"
	"time"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// MaxKeyLength is the widest key the key columns hold.
const MaxKeyLength = 32

const (
	BlobDriverS3     = "s3"
	BlobDriverBadger = "badger"
)

type Config struct {
	Env           string   `yaml:"env"`
	BaseURL       string   `yaml:"base_url"`
	KeyLength     int      `yaml:"key_length"`
	MaxUploadSize ByteSize `yaml:"max_upload_size"`
	HTTPServer    `yaml:"http_server"`
	Postgres      `yaml:"postgres"`
	BlobStore     `yaml:"blob_store"`
	Sweeper       `yaml:"sweeper"`
	RateLimit     `yaml:"rate_limit"`
}

// ByteSize is a size in bytes written in human form, such as "100MiB" or "512k".
type ByteSize int64

func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}

	n, err := units.RAMInBytes(raw)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", raw, err)
	}

	*b = ByteSize(n)
	return nil
}

func (b ByteSize) String() string {
	return units.BytesSize(float64(b))
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
	DocsPath       string        `yaml:"docs_path"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    30 * time.Second,
	WriteTimeout:   time.Minute,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
	DocsPath:       "./docs/swagger.yml",
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	MigrationsPath  string        `yaml:"migrations_path"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`

	// ConnectAttempts bounds the tries made to reach the database at startup.
	ConnectAttempts   int           `yaml:"connect_attempts"`
	ConnectRetryDelay time.Duration `yaml:"connect_retry_delay"`
}

var defaultPostgres = Postgres{
	Host:              "localhost",
	Port:              5432,
	SSLMode:           "disable",
	MigrationsPath:    "file://migrations",
	ConnMaxIdleTime:   5 * time.Minute,
	ConnMaxLifetime:   30 * time.Minute,
	MaxIdleConns:      5,
	MaxOpenConns:      25,
	ConnectAttempts:   5,
	ConnectRetryDelay: time.Second,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

// BlobStore selects where file payloads are kept.
type BlobStore struct {
	Driver string `yaml:"driver"`
	S3     S3     `yaml:"s3"`
	Badger Badger `yaml:"badger"`
}

type S3 struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

type Badger struct {
	// Dir is the database directory. An empty Dir keeps payloads in memory.
	Dir string `yaml:"dir"`
}

var defaultBlobStore = BlobStore{
	Driver: BlobDriverBadger,
	S3: S3{
		Region: "us-east-1",
	},
	Badger: Badger{
		Dir: "data/blobs",
	},
}

type Sweeper struct {
	// Interval between sweeps. Zero disables the background sweeper.
	Interval time.Duration `yaml:"interval"`
}

type RateLimit struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
	// ClientIPHeader is trusted to carry the client address. Leave it empty
	// unless a proxy in front of the service always sets it.
	ClientIPHeader string `yaml:"client_ip_header"`
}

var defaultRateLimit = RateLimit{
	Enabled: true,
	RPS:     10,
	Burst:   20,
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.BlobStore.Driver {
	case BlobDriverBadger:
	case BlobDriverS3:
		if c.BlobStore.S3.Bucket == "" {
			return fmt.Errorf("blob_store.s3.bucket is required for the %s driver", BlobDriverS3)
		}
	default:
		return fmt.Errorf("unknown blob_store.driver %q", c.BlobStore.Driver)
	}

	if c.KeyLength < 1 || c.KeyLength > MaxKeyLength {
		return fmt.Errorf("key_length must be between 1 and %d, got %d", MaxKeyLength, c.KeyLength)
	}

	return nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.BaseURL = "http://localhost:8080"
	cfg.KeyLength = 10
	cfg.MaxUploadSize = 100 * units.MiB
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
	cfg.BlobStore = defaultBlobStore
	cfg.Sweeper = Sweeper{Interval: time.Hour}
	cfg.RateLimit = defaultRateLimit
}
