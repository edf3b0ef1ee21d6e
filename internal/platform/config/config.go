package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultAtRiskRatio    = 0.8
	defaultRequestTimeout = 10 * time.Second
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	SLA      SLAConfig      `yaml:"sla"`
}

// ServerConfig は gRPC ヘルスチェックサーバーに関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// HTTPConfig は REST API サーバーに関する設定です。
type HTTPConfig struct {
	ListenAddr        string        `yaml:"listen_addr"`
	ReadTimeout       time.Duration `yaml:"-"`
	WriteTimeout      time.Duration `yaml:"-"`
	RequestTimeout    time.Duration `yaml:"-"`
	ReadTimeoutRaw    string        `yaml:"read_timeout"`
	WriteTimeoutRaw   string        `yaml:"write_timeout"`
	RequestTimeoutRaw string        `yaml:"request_timeout"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
}

// AuthConfig は外部認証基盤が発行した JWT の検証設定です。
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
}

// RedisConfig はイベント配信用 Redis の設定です。Addr が空なら配信を行いません。
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// Enabled は Redis への配信が有効かを返します。
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SLAConfig は SLA 評価に関する設定です。
type SLAConfig struct {
	AtRiskRatio      float64       `yaml:"at_risk_ratio"`
	SweepInterval    time.Duration `yaml:"-"`
	SweepIntervalRaw string        `yaml:"sweep_interval"`
}

// Load は .env を読み込んだうえで指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	cfg.applyEnvOverrides(os.LookupEnv)

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) {
	if v, ok := lookup("ATS_HTTP_LISTEN_ADDR"); ok && v != "" {
		c.HTTP.ListenAddr = v
	}
	if v, ok := lookup("ATS_DATABASE_HOST"); ok && v != "" {
		c.Database.Host = v
	}
	if v, ok := lookup("ATS_DATABASE_PASSWORD"); ok && v != "" {
		c.Database.Password = v
	}
	if v, ok := lookup("ATS_DATABASE_PORT"); ok && v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v, ok := lookup("ATS_AUTH_JWT_SECRET"); ok && v != "" {
		c.Auth.JWTSecret = v
	}
	if v, ok := lookup("ATS_REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	if err := c.HTTP.validateAndNormalize(); err != nil {
		return err
	}

	db := &c.Database
	if err := db.validateAndNormalize(); err != nil {
		return err
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret must be set")
	}

	if c.Redis.Enabled() && c.Redis.Channel == "" {
		c.Redis.Channel = "ats.events"
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "":
		c.Log.Format = "json"
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format must be json or text")
	}

	return c.SLA.validateAndNormalize()
}

func (h *HTTPConfig) validateAndNormalize() error {
	if h.ListenAddr == "" {
		return fmt.Errorf("config: http.listen_addr must be set")
	}
	if _, _, err := net.SplitHostPort(h.ListenAddr); err != nil {
		return fmt.Errorf("config: http.listen_addr: %w", err)
	}

	read, err := parseDurationAllowEmpty(h.ReadTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: http.read_timeout: %w", err)
	}
	h.ReadTimeout = read

	write, err := parseDurationAllowEmpty(h.WriteTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: http.write_timeout: %w", err)
	}
	h.WriteTimeout = write

	request, err := parseDurationAllowEmpty(h.RequestTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: http.request_timeout: %w", err)
	}
	if request == 0 {
		request = defaultRequestTimeout
	}
	h.RequestTimeout = request

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (s *SLAConfig) validateAndNormalize() error {
	if s.AtRiskRatio == 0 {
		s.AtRiskRatio = defaultAtRiskRatio
	}
	if s.AtRiskRatio < 0 || s.AtRiskRatio > 1 {
		return fmt.Errorf("config: sla.at_risk_ratio must be between 0 and 1")
	}

	interval, err := parseDurationAllowEmpty(s.SweepIntervalRaw)
	if err != nil {
		return fmt.Errorf("config: sla.sweep_interval: %w", err)
	}
	s.SweepInterval = interval
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", raw)
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。認証情報はエスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
