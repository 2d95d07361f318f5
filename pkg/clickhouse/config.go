package clickhouse

import "time"

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds ClickHouse configuration. It doubles as the clickhouse
// section of the application config.
type ClientConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	UseHTTP         bool          `yaml:"use_http"`
	AsyncInsert     bool          `yaml:"async_insert"`
	WaitForAsync    bool          `yaml:"wait_for_async_insert"`
	MaxExecTime     time.Duration `yaml:"max_execution_time"`
}

// WithConfig applies every non-zero field of cfg.
func WithConfig(cfg ClientConfig) ClientOption {
	return func(c *ClientConfig) {
		if cfg.Host != "" {
			c.Host = cfg.Host
		}
		if cfg.Port != 0 {
			c.Port = cfg.Port
		}
		if cfg.Database != "" {
			c.Database = cfg.Database
		}
		if cfg.User != "" {
			c.User, c.Password = cfg.User, cfg.Password
		}
		if cfg.MaxOpenConns > 0 {
			c.MaxOpenConns = cfg.MaxOpenConns
		}
		if cfg.MaxIdleConns > 0 {
			c.MaxIdleConns = cfg.MaxIdleConns
		}
		if cfg.ConnMaxLifetime > 0 {
			c.ConnMaxLifetime = cfg.ConnMaxLifetime
		}
		if cfg.DialTimeout > 0 {
			c.DialTimeout = cfg.DialTimeout
		}
		if cfg.ReadTimeout > 0 {
			c.ReadTimeout = cfg.ReadTimeout
		}
		if cfg.WriteTimeout > 0 {
			c.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.MaxExecTime > 0 {
			c.MaxExecTime = cfg.MaxExecTime
		}
		c.UseHTTP = cfg.UseHTTP
		c.AsyncInsert = cfg.AsyncInsert
		c.WaitForAsync = cfg.WaitForAsync
	}
}

// WithHost sets database host.
func WithHost(host string) ClientOption {
	return func(c *ClientConfig) {
		c.Host = host
	}
}

// WithPort sets database port.
func WithPort(port int) ClientOption {
	return func(c *ClientConfig) {
		c.Port = port
	}
}

// WithDatabase sets database name.
func WithDatabase(database string) ClientOption {
	return func(c *ClientConfig) {
		c.Database = database
	}
}

// WithCredentials sets username and password.
func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.User = user
		c.Password = password
	}
}

// WithTimeouts sets dial/read/write timeouts.
func WithTimeouts(dial, read, write time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.DialTimeout = dial
		c.ReadTimeout = read
		c.WriteTimeout = write
	}
}
