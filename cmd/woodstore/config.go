package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"woodstore/pkg/domain/model"
	"woodstore/pkg/infrastructure/mysql"
)

const appID = "woodstore"

// config is read from WOODSTORE_* variables. Keys with an explicit
// envconfig tag are also accepted without the prefix, e.g. RESEND_API_KEY.
type config struct {
	LogLevel string `envconfig:"log_level" default:"info"`

	RESTAddress   string        `envconfig:"rest_address" default:":8080"`
	GRPCAddress   string        `envconfig:"grpc_address" default:":8081"`
	PublicURL     string        `envconfig:"public_url" default:"http://localhost:8080"`
	SecureCookies bool          `envconfig:"secure_cookies" default:"false"`
	MaxUploadSize int64         `envconfig:"max_upload_size" default:"10485760"`
	HealthPeriod  time.Duration `envconfig:"health_period" default:"10s"`

	DBUser           string        `envconfig:"db_user" default:"woodstore"`
	DBPassword       string        `envconfig:"db_password" default:"1234"`
	DBHost           string        `envconfig:"db_host" default:"localhost:3306"`
	DBName           string        `envconfig:"db_name" default:"woodstore"`
	DBMaxConnections int           `envconfig:"db_max_connections" default:"10"`
	DBConnectTimeout time.Duration `envconfig:"db_connect_timeout" default:"1m"`

	CloudinaryURL string   `envconfig:"cloudinary_url"`
	ResendAPIKey  string   `envconfig:"resend_api_key"`
	MailFrom      string   `envconfig:"mail_from" default:"EMMES Industries <onboarding@resend.dev>"`
	MailTo        []string `envconfig:"mail_to"`

	StoreName      string `envconfig:"store_name" default:"EMMES Industries"`
	WhatsAppNumber string `envconfig:"whatsapp_number" default:"919843167364"`
	UPIID          string `envconfig:"upi_id"`
	PayeeName      string `envconfig:"payee_name" default:"EMMES Industries"`
	CheckoutMode   string `envconfig:"checkout_mode" default:"upi"`

	AMQPURL      string `envconfig:"amqp_url"`
	AMQPExchange string `envconfig:"amqp_exchange" default:"woodstore.events"`
}

func parseEnv() (*config, error) {
	c := new(config)
	if err := envconfig.Process(appID, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	return c, nil
}

func (c *config) checkoutMode() (model.CheckoutMode, error) {
	return model.ParseCheckoutMode(c.CheckoutMode)
}

func (c *config) connection() mysql.ConnectionConfig {
	return mysql.ConnectionConfig{
		DSN: mysql.DSN{
			User:     c.DBUser,
			Password: c.DBPassword,
			Host:     c.DBHost,
			Database: c.DBName,
		},
		MaxConnections: c.DBMaxConnections,
		ConnectTimeout: c.DBConnectTimeout,
	}
}

func (c *config) validate() error {
	if _, err := c.checkoutMode(); err != nil {
		return err
	}
	if c.ResendAPIKey != "" && len(c.MailTo) == 0 {
		return errors.New("mail_to must be set when a Resend API key is configured")
	}
	return nil
}

func initLogger(c *config) {
	log.SetFormatter(&log.JSONFormatter{})
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithError(err).Warn("unknown log level, falling back to info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
