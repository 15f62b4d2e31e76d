// Package postgres owns the process-wide PostgreSQL connection pool.
package postgres

import "time"

// Pool defaults.
const (
	DefaultHost            = "localhost"
	DefaultPort            = 5432
	DefaultDatabase        = "dataplatform"
	DefaultUser            = "postgres"
	DefaultApplicationName = "servicesearch"
	DefaultConnectTimeout  = 10 * time.Second
	DefaultAcquireTimeout  = 15 * time.Second
	DefaultMaxConns        = 30
	DefaultMinConns        = 2
	DefaultMaxConnIdleTime = 60 * time.Second
)

// Config holds connection and pool parameters.
type Config struct {
	Host            string
	Port            uint16
	Database        string
	User            string
	Password        string
	ApplicationName string
	ConnectTimeout  time.Duration
	AcquireTimeout  time.Duration
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
	// RequirePostGIS adds the geography type probe to startup.
	RequirePostGIS bool
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.User == "" {
		c.User = DefaultUser
	}
	if c.ApplicationName == "" {
		c.ApplicationName = DefaultApplicationName
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = DefaultAcquireTimeout
	}
	if c.MaxConns <= 0 {
		c.MaxConns = DefaultMaxConns
	}
	if c.MinConns <= 0 {
		c.MinConns = DefaultMinConns
	}
	if c.MinConns > c.MaxConns {
		c.MinConns = c.MaxConns
	}
	if c.MaxConnIdleTime <= 0 {
		c.MaxConnIdleTime = DefaultMaxConnIdleTime
	}
}
