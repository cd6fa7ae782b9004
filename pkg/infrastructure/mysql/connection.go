package mysql

import (
	"time"

	"github.com/cenkalti/backoff"
	driver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type DSN struct {
	User     string
	Password string
	Host     string
	Database string
}

func (d DSN) String() string {
	cfg := driver.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = d.Host
	cfg.DBName = d.Database
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

type ConnectionConfig struct {
	DSN            DSN
	MaxConnections int
	ConnectTimeout time.Duration
}

// Open connects to MySQL, retrying with exponential backoff until the server
// answers or ConnectTimeout elapses.
func Open(cfg ConnectionConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", cfg.DSN.String())
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	db.SetConnMaxLifetime(time.Hour)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.ConnectTimeout
	err = backoff.RetryNotify(db.Ping, policy, func(err error, next time.Duration) {
		log.WithError(err).WithField("retryIn", next).Warn("mysql is not reachable yet")
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping mysql")
	}
	return db, nil
}
