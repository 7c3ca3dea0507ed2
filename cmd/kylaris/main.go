package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	ginzap "github.com/gin-contrib/zap"

	"github.com/flarexio/core/events"
	"github.com/flarexio/core/pubsub"

	"github.com/kylaris/trading"
	"github.com/kylaris/trading/conf"
	"github.com/kylaris/trading/persistence"
	"github.com/kylaris/trading/price"
	"github.com/kylaris/trading/price/binance"

	transHTTP "github.com/kylaris/trading/transport/http"
	transPubSub "github.com/kylaris/trading/transport/pubsub"
)

var (
	Version   string = "0.0.0"
	BuildTime string
	GitCommit string
)

var versionCmd = &cli.Command{
	Name:    "version",
	Aliases: []string{"ver", "v"},
	Usage:   "Show version",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "all",
			Aliases: []string{"a"},
			Usage:   "Show all infomation (include: Version, BuildTime, GitCommit)",
			Value:   false,
		},
	},
	Action: func(ctx *cli.Context) error {
		if !ctx.Bool("all") {
			fmt.Println(ctx.App.Version)
		} else {
			cli.ShowVersion(ctx)
		}
		return nil
	},
}

var genkeyCmd = &cli.Command{
	Name:  "genkey",
	Usage: "Generate a new ed25519 key pair for signing API tokens",
	Action: func(ctx *cli.Context) error {
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return fmt.Errorf("failed to generate key pair: %w", err)
		}

		fmt.Printf("Public Key: %s\n", base64.StdEncoding.EncodeToString(pub))
		fmt.Printf("Private Key: %s\n", base64.StdEncoding.EncodeToString(priv))

		return nil
	},
}

var tokenCmd = &cli.Command{
	Name:  "token",
	Usage: "Sign an API token with the configured key",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "subject",
			Aliases:  []string{"sub"},
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:  "role",
			Value: cli.NewStringSlice(transHTTP.TraderRole),
		},
	},
	Action: func(cli *cli.Context) error {
		cfg, err := loadConfig(cli)
		if err != nil {
			return err
		}

		token, err := transHTTP.SignToken(cfg.JWT, cfg.BaseURL, cli.String("subject"), cli.StringSlice("role"))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cli.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(token)
	},
}

func priceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "symbol",
			Value: price.ETHUSDT.String(),
		},
		&cli.StringFlag{
			Name:  "interval",
			Value: price.Minute15.String(),
		},
		&cli.IntFlag{
			Name:  "hours",
			Usage: "Look back this many hours",
		},
		&cli.IntFlag{
			Name:  "days",
			Usage: "Look back this many days",
		},
	}
}

func priceQuery(cli *cli.Context) trading.PriceQuery {
	return trading.PriceQuery{
		Symbol:   cli.String("symbol"),
		Interval: cli.String("interval"),
		Hours:    cli.Int("hours"),
		Days:     cli.Int("days"),
	}
}

func main() {
	cli.VersionPrinter = func(cli *cli.Context) {
		fmt.Println("Version: " + cli.App.Version)
		fmt.Println("BuildTime: " + BuildTime)
		fmt.Println("GitCommit: " + GitCommit)
	}

	app := &cli.App{
		Name:    "kylaris",
		Usage:   "Market data, indicators and trade review prompts",
		Version: Version,
		Commands: []*cli.Command{
			versionCmd, genkeyCmd, tokenCmd,
			reviewCmd, indicatorsCmd, watchCmd,
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Usage:   "Specifies the working directory",
				EnvVars: []string{"KYLARIS_PATH"},
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "Specifies the HTTP service port",
				Value:   8080,
				EnvVars: []string{"KYLARIS_HTTP_PORT"},
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "Specifies the NATS server URL",
				EnvVars: []string{"NATS_URL"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(cli *cli.Context) (*conf.Config, error) {
	if err := conf.LoadEnv(cli); err != nil {
		return nil, err
	}

	cfg, err := conf.LoadConfig()
	if err != nil {
		return nil, err
	}

	conf.ReplaceGlobals(cfg)
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	log, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(log)
	return log, nil
}

func newProvider(cfg conf.Binance, log *zap.Logger) price.Provider {
	var provider price.Provider = binance.NewProvider(cfg, log)
	if cfg.CacheTTL > 0 {
		provider = price.CachedProvider(provider, cfg.CacheTTL)
	}

	return provider
}

func connectNATS(url string, cfg *conf.Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
	}

	creds := conf.Path + "/user.creds"
	if _, err := os.Stat(creds); err == nil {
		opts = append(opts, nats.UserCredentials(creds))
	}

	return nats.Connect(url, opts...)
}

func run(cli *cli.Context) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	// Add Persistence
	repo, err := persistence.NewExecutionRepository(cfg.Persistence)
	if err != nil {
		log.Error(err.Error(),
			zap.String("infra", "persistence"),
			zap.String("driver", cfg.Persistence.Driver.String()),
		)
		return err
	}
	defer repo.Close()

	// Add Event Bus
	var (
		ps     pubsub.PubSub
		natsPS pubsub.NATSPubSub
	)

	if natsURL := cli.String("nats"); natsURL != "" && cfg.EventBus.Provider == conf.NATS {
		log := log.With(
			zap.String("infra", "pubsub"),
			zap.String("provider", cfg.EventBus.Provider.String()),
		)

		creds := conf.Path + "/user.creds"

		natsPS, err = pubsub.NewNATSPubSub(natsURL, cfg.Name, creds)
		if err != nil {
			log.Error(err.Error())
			return err
		}
		defer natsPS.Close()

		log.Info("connected")

		ps = natsPS
	} else {
		localPS := transPubSub.NewLocalPubSub()
		defer localPS.Close()

		ps = localPS
	}

	// SUB executions.#
	if err := ps.Subscribe("executions.#", transPubSub.EventHandler(log)); err != nil {
		log.Error(err.Error(), zap.String("infra", "pubsub"))
		return err
	}

	events.ReplaceGlobals(ps)

	// Add Service and Middlewares
	provider := newProvider(cfg.Binance, log)

	svc := trading.NewService(repo, provider, cfg.Review)
	svc = trading.LoggingMiddleware(log)(svc)

	// Add Endpoints
	endpoints := trading.NewEndpointSet(svc)

	// Add PubSub Transport
	if natsPS != nil {
		srv, err := natsPS.AddService(micro.Config{
			Name:        "kylaris",
			Version:     Version,
			Description: "Market data, indicators and trade review prompts",
			Metadata: map[string]string{
				"id": cfg.Name,
			},
		})
		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup(cfg.EventBus.Topic)

		// SUB trading.prices
		root.AddEndpoint("prices", transPubSub.PricesHandler(endpoints.Prices))

		// SUB trading.review
		root.AddEndpoint("review", transPubSub.ReviewHandler(endpoints.Review))
	}

	// Add HTTP Transport
	r := gin.New()
	r.Use(ginzap.Ginzap(log, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(log, true))

	if cfg.JWT.Privkey != nil {
		transHTTP.Init(
			cfg.BaseURL,          // issuer
			cfg.JWT.Audiences[0], // audience
			cfg.JWT.Privkey,      // ed25519 private key
		)
	} else {
		log.Warn("jwt not configured, execution changes are disabled")
	}

	// GET /.well-known/jwks.json
	r.GET("/.well-known/jwks.json", transHTTP.JWKHandler)

	apiV1 := r.Group("/trading/v1")
	transHTTP.AddRoutes(apiV1, endpoints)

	go r.Run(":" + strconv.Itoa(conf.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("shutdown", zap.String("signal", sign.String()))
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
