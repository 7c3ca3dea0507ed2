package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kylaris/trading"
	"github.com/kylaris/trading/conf"
	"github.com/kylaris/trading/indicator"
	"github.com/kylaris/trading/persistence"
	"github.com/kylaris/trading/price"
	"github.com/kylaris/trading/price/binance"
	"github.com/kylaris/trading/prompt"

	transPubSub "github.com/kylaris/trading/transport/pubsub"
)

var reviewCmd = &cli.Command{
	Name:  "review",
	Usage: "Print the trade review prompt for the executions in a YAML file",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    "YAML file with executions, execution_ids and comments",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "lang",
			Value: "chinese",
		},
		&cli.IntFlag{
			Name:  "window",
			Usage: "Number of price rows in the prompt",
		},
		&cli.BoolFlag{
			Name:  "remote",
			Usage: "Ask a running instance over NATS",
		},
	}, priceFlags()...),
	Action: review,
}

var indicatorsCmd = &cli.Command{
	Name:  "indicators",
	Usage: "Print the latest prices with EMA, RSI, ATR and MACD",
	Flags: append([]cli.Flag{
		&cli.IntFlag{
			Name:  "rows",
			Value: 10,
		},
	}, priceFlags()...),
	Action: indicators,
}

var watchCmd = &cli.Command{
	Name:  "watch",
	Usage: "Stream closed klines with running EMA and RSI",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "symbol",
			Value: price.ETHUSDT.String(),
		},
		&cli.StringFlag{
			Name:  "interval",
			Value: price.Minute15.String(),
		},
		&cli.IntFlag{
			Name:  "history",
			Usage: "Hours of history to seed the indicators with",
			Value: 24,
		},
	},
	Action: watch,
}

type reviewInput struct {
	Executions   []trading.RecordExecutionRequest `yaml:"executions"`
	ExecutionIDs []string                         `yaml:"execution_ids"`
	Comments     prompt.LocalizableString         `yaml:"comments"`
}

func loadReviewInput(path string) (*reviewInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var input *reviewInput
	if err := yaml.NewDecoder(f).Decode(&input); err != nil {
		return nil, err
	}

	if input == nil {
		return nil, errors.New("empty review input")
	}

	return input, nil
}

func reviewQuery(cli *cli.Context) (trading.ReviewQuery, error) {
	input, err := loadReviewInput(cli.String("input"))
	if err != nil {
		return trading.ReviewQuery{}, err
	}

	return trading.ReviewQuery{
		PriceQuery:   priceQuery(cli),
		ExecutionIDs: input.ExecutionIDs,
		Executions:   input.Executions,
		Comments:     input.Comments,
		WindowSize:   cli.Int("window"),
	}, nil
}

// localService wires the service without transports for one-shot commands.
func localService(cfg *conf.Config, log *zap.Logger) (trading.Service, func() error, error) {
	repo, err := persistence.NewExecutionRepository(cfg.Persistence)
	if err != nil {
		return nil, nil, err
	}

	provider := newProvider(cfg.Binance, log)

	svc := trading.NewService(repo, provider, cfg.Review)
	svc = trading.LoggingMiddleware(log)(svc)

	return svc, repo.Close, nil
}

func review(cli *cli.Context) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	lang, err := prompt.ParseLanguage(cli.String("lang"))
	if err != nil {
		return err
	}

	q, err := reviewQuery(cli)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var result prompt.LocalizableString

	if cli.Bool("remote") {
		natsURL := cli.String("nats")
		if natsURL == "" {
			return errors.New("nats url required for remote review")
		}

		nc, err := connectNATS(natsURL, cfg)
		if err != nil {
			return err
		}
		defer nc.Close()

		endpoint := transPubSub.ReviewEndpoint(nc, cfg.EventBus.Topic+".review")

		resp, err := endpoint(ctx, q)
		if err != nil {
			return err
		}

		review, ok := resp.(prompt.LocalizableString)
		if !ok {
			return errors.New("invalid review response")
		}

		result = review
	} else {
		req, err := q.Request()
		if err != nil {
			return err
		}

		svc, closeFn, err := localService(cfg, log)
		if err != nil {
			return err
		}
		defer closeFn()

		result, err = svc.Review(ctx, req)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(cli.App.Writer, result.Get(lang))
	return nil
}

func indicators(cli *cli.Context) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	pctx, err := priceQuery(cli).Context()
	if err != nil {
		return err
	}

	svc, closeFn, err := localService(cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := signalContext()
	defer cancel()

	set, err := svc.Indicators(ctx, trading.IndicatorsRequest{Context: pctx})
	if err != nil {
		return err
	}

	return writeIndicators(cli.App.Writer, set, cfg.Review.Location, cli.Int("rows"))
}

func format(s indicator.Series, i int) string {
	if !s.Valid(i) {
		return "nan"
	}
	return strconv.FormatFloat(s[i], 'f', 2, 64)
}

// writeIndicators prints the last rows of set as an aligned table.
func writeIndicators(w io.Writer, set *trading.IndicatorSet, loc *time.Location, rows int) error {
	if loc == nil {
		loc = time.UTC
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCLOSE\tEMA_FAST\tEMA_SLOW\tRSI\tATR\tMACD\tSIGNAL\tHIST")

	start := len(set.Prices) - rows
	if start < 0 || rows <= 0 {
		start = 0
	}

	for i := start; i < len(set.Prices); i++ {
		p := set.Prices[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Timestamp.In(loc).Format("2006-01-02 15:04"),
			strconv.FormatFloat(p.Close, 'f', 2, 64),
			format(set.EMAFast, i),
			format(set.EMASlow, i),
			format(set.RSI, i),
			format(set.ATR, i),
			format(set.MACD.Line, i),
			format(set.MACD.Signal, i),
			format(set.MACD.Histogram, i),
		)
	}

	return tw.Flush()
}

func watch(cli *cli.Context) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	symbol, err := price.NewMarketIdentifier(cli.String("symbol"))
	if err != nil {
		return err
	}

	interval, err := price.ParseInterval(cli.String("interval"))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	provider := binance.NewProvider(cfg.Binance, log)

	prices, err := provider.Fetch(ctx, price.ProviderContext{
		Symbol:    symbol,
		Interval:  interval,
		StartTime: price.Since(price.Offset{Hours: cli.Int("history")}),
		EndTime:   price.Now(),
	})
	if err != nil {
		return err
	}

	stream, err := provider.Stream(ctx, symbol, interval)
	if err != nil {
		return err
	}

	log = log.With(
		zap.String("symbol", symbol.String()),
		zap.String("interval", interval.String()),
	)

	log.Info("watching", zap.Int("history", len(prices)))

	tracker := newTracker(prices, cfg.Review)
	for p := range stream {
		values, err := tracker.Add(p)
		if err != nil {
			log.Error(err.Error())
			continue
		}

		log.Info("kline closed",
			zap.Time("time", p.Timestamp.In(cfg.Review.Location)),
			zap.Float64("close", p.Close),
			zap.Float64("ema_fast", values.EMAFast),
			zap.Float64("ema_slow", values.EMASlow),
			zap.Float64("rsi", values.RSI),
		)
	}

	return nil
}
