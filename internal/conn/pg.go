// Package conn opens the Postgres connection used by the journal.
package conn

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// EnvDSN names the variable that replaces the configured connection.
const EnvDSN = "TURTLE_DB_DSN"

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// Option defines connection options for PostgreSQL.
type Option struct {
	Host       string            `json:"host" yaml:"host"`
	Port       int               `json:"port" yaml:"port"`
	User       string            `json:"user" yaml:"user"`
	Password   string            `json:"password" yaml:"password"`
	Database   string            `json:"database" yaml:"database"`
	SSLMode    string            `json:"ssl_mode" yaml:"ssl_mode"`
	Params     map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	ConnString string            `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Config     *gorm.Config      `json:"-" yaml:"-"`
}

// Open connects to PostgreSQL with the provided options.
func Open(option Option) (*gorm.DB, error) {
	connString, err := option.DSN()
	if err != nil {
		return nil, err
	}

	config := option.Config
	if config == nil {
		config = &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	}

	return gorm.Open(postgres.Open(connString), config)
}

// Close closes the pool behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Override returns opt with its connection string taken from EnvDSN, and
// whether the variable was set. A blank value leaves opt untouched.
func (opt Option) Override(lookup func(string) (string, bool)) (Option, bool) {
	v, ok := lookup(EnvDSN)
	if v = strings.TrimSpace(v); !ok || v == "" {
		return opt, false
	}
	opt.ConnString = v
	return opt, true
}

// DSN is ConnString when set, otherwise a postgres:// URL built from the
// fields with defaults for host, port and sslmode.
func (opt Option) DSN() (string, error) {
	if opt.ConnString != "" {
		return opt.ConnString, nil
	}
	o := opt.withDefaults()
	if o.Port < 1 || o.Port > 65535 {
		return "", fmt.Errorf("invalid postgres port %d", o.Port)
	}
	return o.url().String(), nil
}

// Redacted is the DSN with its password hidden. Keyword/value connection
// strings are not parsed and are hidden whole.
func (opt Option) Redacted() string {
	dsn, err := opt.DSN()
	if err != nil {
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "xxxxx"
	}
	return u.Redacted()
}

func (opt Option) withDefaults() Option {
	if opt.Host == "" {
		opt.Host = defaultPostgresHost
	}
	if opt.Port == 0 {
		opt.Port = defaultPostgresPort
	}
	if opt.SSLMode == "" {
		opt.SSLMode = defaultPostgresSSLMode
	}
	return opt
}

func (opt Option) url() *url.URL {
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(opt.Host, strconv.Itoa(opt.Port)),
	}
	switch {
	case opt.User != "" && opt.Password != "":
		u.User = url.UserPassword(opt.User, opt.Password)
	case opt.User != "":
		u.User = url.User(opt.User)
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	q := url.Values{"sslmode": {opt.SSLMode}}
	for k, v := range opt.Params {
		if k != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u
}
