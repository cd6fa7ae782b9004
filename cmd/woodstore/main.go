package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"woodstore/pkg/domain/model"
	"woodstore/pkg/domain/service"
	"woodstore/pkg/infrastructure/email"
	"woodstore/pkg/infrastructure/events"
	"woodstore/pkg/infrastructure/health"
	"woodstore/pkg/infrastructure/media"
	"woodstore/pkg/infrastructure/mysql"
	"woodstore/pkg/infrastructure/password"
	"woodstore/pkg/infrastructure/seed"
	"woodstore/pkg/infrastructure/transport"
)

const shutdownTimeout = 15 * time.Second

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	app := &cli.App{
		Name:  appID,
		Usage: "storefront and back office for a wooden products manufacturer",
		Commands: []*cli.Command{
			{
				Name:   "service",
				Usage:  "run the HTTP API and the gRPC health endpoint",
				Action: runService,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: runMigrate,
			},
			{
				Name:  "seed",
				Usage: "load categories and products from a JSON catalog",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "path to the catalog JSON file; the built-in catalog is used when empty",
					},
				},
				Action: runSeed,
			},
			{
				Name:  "grant-admin",
				Usage: "give an existing user the admin role",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
				},
				Action: runGrantAdmin,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup() (*config, *sqlx.DB, error) {
	c, err := parseEnv()
	if err != nil {
		return nil, nil, err
	}
	initLogger(c)
	if err := c.validate(); err != nil {
		return nil, nil, err
	}

	db, err := mysql.Open(c.connection())
	if err != nil {
		return nil, nil, err
	}
	return c, db, nil
}

func runMigrate(_ *cli.Context) error {
	_, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	return mysql.Migrate(db)
}

func runSeed(ctx *cli.Context) error {
	_, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	catalog, err := seed.LoadCatalog(ctx.String("file"))
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	return seed.Apply(ctx.Context, mysql.NewCatalogRepository(db), catalog)
}

func runGrantAdmin(ctx *cli.Context) error {
	c, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	auth := service.NewAuthService(
		service.AuthConfig{StoreName: c.StoreName},
		mysql.NewUserRepository(db),
		mysql.NewSessionRepository(db),
		password.NewBcryptManager(0),
		nil,
		events.NewLogDispatcher(),
	)
	if err := auth.GrantAdmin(ctx.Context, ctx.String("email")); err != nil {
		return err
	}
	log.WithField("email", ctx.String("email")).Info("admin role granted")
	return nil
}

func runService(_ *cli.Context) error {
	c, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := mysql.Migrate(db); err != nil {
		return err
	}

	dispatcher, closeDispatcher, err := newDispatcher(c)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	mediaStore := media.NewUnconfiguredStore()
	if c.CloudinaryURL != "" {
		mediaStore, err = media.NewCloudinaryStore(c.CloudinaryURL)
		if err != nil {
			return err
		}
	} else {
		log.Warn("cloudinary is not configured, uploads are disabled")
	}

	var mailer model.Mailer
	if c.ResendAPIKey != "" {
		mailer = email.NewResendMailer(email.Config{APIKey: c.ResendAPIKey})
	} else {
		log.Warn("resend is not configured, enquiry relay is disabled")
	}

	mode, _ := c.checkoutMode()
	catalogRepo := mysql.NewCatalogRepository(db)
	catalogService := service.NewCatalogService(catalogRepo)
	cartService := service.NewCartService(mysql.NewCartStorage(db))
	orderService := service.NewOrderService(mysql.NewOrderRepository(db), dispatcher)

	services := transport.Services{
		Catalog: catalogService,
		Cart:    cartService,
		Checkout: service.NewCheckoutService(
			service.CheckoutConfig{
				Mode:           mode,
				StoreName:      c.StoreName,
				UPIID:          c.UPIID,
				PayeeName:      c.PayeeName,
				WhatsAppNumber: c.WhatsAppNumber,
			},
			mysql.NewCheckoutRepository(db),
			cartService,
			orderService,
			mediaStore,
		),
		Auth: service.NewAuthService(
			service.AuthConfig{
				StoreName: c.StoreName,
				VerifyURL: c.PublicURL + "/api/v1/auth/verify",
				MailFrom:  c.MailFrom,
			},
			mysql.NewUserRepository(db),
			mysql.NewSessionRepository(db),
			password.NewBcryptManager(0),
			mailer,
			dispatcher,
		),
		Admin: service.NewAdminService(catalogRepo, catalogService, orderService, mediaStore, dispatcher),
		Leads: service.NewLeadService(
			service.LeadConfig{
				StoreName:      c.StoreName,
				WhatsAppNumber: c.WhatsAppNumber,
				MailFrom:       c.MailFrom,
				MailTo:         c.MailTo,
			},
			mailer,
			dispatcher,
		),
	}

	return serve(c, db, services)
}

func newDispatcher(c *config) (service.EventDispatcher, func(), error) {
	if c.AMQPURL == "" {
		return events.NewLogDispatcher(), func() {}, nil
	}
	dispatcher, err := events.DialAMQP(events.AMQPConfig{
		URL:            c.AMQPURL,
		Exchange:       c.AMQPExchange,
		ConnectTimeout: c.DBConnectTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return dispatcher, func() {
		if err := dispatcher.Close(); err != nil {
			log.WithError(err).Warn("failed to close amqp connection")
		}
	}, nil
}

func serve(c *config, db *sqlx.DB, services transport.Services) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr: c.RESTAddress,
		Handler: transport.Router(services, transport.Options{
			SecureCookies: c.SecureCookies,
			MaxUploadSize: c.MaxUploadSize,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
	}

	grpcServer := grpc.NewServer()
	monitor := health.NewMonitor(db, c.HealthPeriod)
	monitor.Register(grpcServer)

	g.Go(func() error {
		log.WithFields(log.Fields{"url": c.RESTAddress}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "rest server")
		}
		return nil
	})
	g.Go(func() error {
		listener, err := net.Listen("tcp", c.GRPCAddress)
		if err != nil {
			return errors.Wrap(err, "listen grpc")
		}
		log.WithFields(log.Fields{"url": c.GRPCAddress}).Info("Starting health server")
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return errors.Wrap(err, "grpc server")
		}
		return nil
	})
	g.Go(func() error {
		return monitor.Run(ctx)
	})
	g.Go(func() error {
		killSignalChan := getKillSignalChan()
		select {
		case <-ctx.Done():
		case killSignal := <-killSignalChan:
			switch killSignal {
			case os.Interrupt:
				log.Info("Got SIGINT...")
			case syscall.SIGTERM:
				log.Info("Got SIGTERM...")
			}
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		grpcServer.GracefulStop()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}
