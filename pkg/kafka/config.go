package kafka

import "time"

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds producer configuration. It doubles as the kafka
// section of the application config.
type ProducerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	RequiredAcks int           `yaml:"required_acks"`
	Compression  string        `yaml:"compression"`
	MaxAttempts  int           `yaml:"max_attempts"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	BatchSize    int           `yaml:"batch_size"`
	BatchBytes   int           `yaml:"batch_bytes"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	HashByKey    bool          `yaml:"hash_by_key"`
}

// WithConfig applies the non-zero fields of cfg.
func WithConfig(cfg ProducerConfig) ProducerOption {
	return func(c *ProducerConfig) {
		if len(cfg.Brokers) > 0 {
			c.Brokers = cfg.Brokers
		}
		if cfg.Topic != "" {
			c.Topic = cfg.Topic
		}
		if cfg.RequiredAcks != 0 {
			c.RequiredAcks = cfg.RequiredAcks
		}
		if cfg.Compression != "" {
			c.Compression = cfg.Compression
		}
		if cfg.MaxAttempts > 0 {
			c.MaxAttempts = cfg.MaxAttempts
		}
		if cfg.WriteTimeout > 0 || cfg.ReadTimeout > 0 {
			WithTimeouts(cfg.WriteTimeout, cfg.ReadTimeout)(c)
		}
		if cfg.BatchSize > 0 {
			c.BatchSize = cfg.BatchSize
		}
		if cfg.BatchBytes > 0 {
			c.BatchBytes = cfg.BatchBytes
		}
		if cfg.BatchTimeout > 0 {
			c.BatchTimeout = cfg.BatchTimeout
		}
		c.HashByKey = cfg.HashByKey
	}
}

// WithBrokers sets Kafka brokers.
func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = brokers
	}
}

// WithCompression sets compression type.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Compression = compression
	}
}

// WithTimeouts sets writer read/write timeouts. Zero keeps the current value.
func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if write > 0 {
			c.WriteTimeout = write
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithHashByKey sets hash balancer so reports for one run stay on one partition.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.HashByKey = hash
	}
}
