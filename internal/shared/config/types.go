package config

import "fmt"

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
}

type AdminCredentialConfig struct {
	Username string `mapstructure:"username"`
	// PasswordHash is a bcrypt hash; the plain credential never appears in config.
	PasswordHash string `mapstructure:"password_hash"`
}

type AuthConfig struct {
	JWT   JWTConfig             `mapstructure:"jwt"`
	Admin AdminCredentialConfig `mapstructure:"admin"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// EntitlementConfig holds tunables for the device entitlement ledger.
type EntitlementConfig struct {
	// TxMaxRetries bounds the optimistic-conflict retry loop for ledger transactions.
	TxMaxRetries int `mapstructure:"tx_max_retries"`
	// ClearBatchSize is the number of devices deactivated per batch commit
	// during administrative bulk clears.
	ClearBatchSize int `mapstructure:"clear_batch_size"`
	// SweepIntervalMinutes is the interval of the periodic downgrade sweep.
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
	// SummaryCacheTTLSeconds is the TTL of the cached code slot summary.
	SummaryCacheTTLSeconds int `mapstructure:"summary_cache_ttl_seconds"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}
