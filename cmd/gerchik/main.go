package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gregtusar/gerchik/internal/config"
	"github.com/gregtusar/gerchik/pkg/atr"
	"github.com/gregtusar/gerchik/pkg/binance"
	"github.com/gregtusar/gerchik/pkg/models"
	"github.com/gregtusar/gerchik/pkg/plan"
	"github.com/gregtusar/gerchik/pkg/quantity"
	"github.com/gregtusar/gerchik/pkg/report"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	jsonOutput bool
	logger     *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gerchik",
		Short: "Binance futures level-trading toolkit",
		Long:  `Tools for level trading on Binance USDⓈ-M futures: STOP_MARKET order placement with balance-aware sizing, Gerchik ATR reports from daily candles, and entry/stop/target plans around a key price level`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print the final result as JSON")

	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Place a STOP_MARKET order",
		Run:   runOrder,
	}
	orderCmd.Flags().String("symbol", "", "ticker, e.g. 1000RATSUSDT (overrides order.symbol)")
	orderCmd.Flags().String("side", "", "BUY or SELL (overrides order.side)")
	orderCmd.Flags().String("quantity", "", `contracts, "10usdt" or "10%" (overrides order.quantity)`)
	orderCmd.Flags().Float64("stop-price", 0, "trigger price (overrides order.stop_price)")
	orderCmd.Flags().String("position-side", "", "BOTH, LONG or SHORT (overrides order.position_side)")

	atrCmd := &cobra.Command{
		Use:   "atr",
		Short: "Report the Gerchik ATR from daily candles",
		Run:   runATR,
	}
	atrCmd.Flags().String("symbol", "", "ticker (overrides atr.symbol)")

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Build an entry/stop/target plan around a key level",
		Run:   runPlan,
	}
	planCmd.Flags().String("symbol", "", "ticker (overrides plan.symbol)")
	planCmd.Flags().String("direction", "", "long or short (overrides plan.direction)")
	planCmd.Flags().Float64("level", 0, "key price level (overrides plan.level_price)")

	rootCmd.AddCommand(orderCmd, atrCmd, planCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command) *config.Config {
	// Initialize logger
	logger = logrus.New()

	// Pick up credentials from a local .env if present
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.WithError(err).Error("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	applyFlagOverrides(cmd, cfg)

	return cfg
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	stringInto := func(name string, dst *string) {
		if value, _ := cmd.Flags().GetString(name); value != "" {
			*dst = value
		}
	}
	floatInto := func(name string, dst *float64) {
		if value, _ := cmd.Flags().GetFloat64(name); value != 0 {
			*dst = value
		}
	}

	switch cmd.Name() {
	case "order":
		stringInto("symbol", &cfg.Order.Symbol)
		stringInto("side", &cfg.Order.Side)
		stringInto("quantity", &cfg.Order.Quantity)
		stringInto("position-side", &cfg.Order.PositionSide)
		floatInto("stop-price", &cfg.Order.StopPrice)
	case "atr":
		stringInto("symbol", &cfg.ATR.Symbol)
	case "plan":
		stringInto("symbol", &cfg.Plan.Symbol)
		stringInto("direction", &cfg.Plan.Direction)
		floatInto("level", &cfg.Plan.LevelPrice)
	}
}

func runOrder(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)
	ctx := context.Background()

	if err := cfg.ValidateOrder(); err != nil {
		logger.WithError(err).Fatal("Invalid order configuration")
	}
	if err := cfg.ValidateCredentials(); err != nil {
		logger.WithError(err).Fatal("Missing credentials")
	}

	spec, err := quantity.Parse(cfg.Order.Quantity)
	if err != nil {
		logger.WithError(err).Fatal("Invalid order quantity")
	}

	client := binance.NewClient(cfg.Binance.APIKey, cfg.Binance.APISecret, cfg.Binance.BaseURL, logger)

	// Resolve the quantity spec exactly once, before signing.
	qty, err := spec.Resolve(ctx, client, cfg.Order.Symbol)
	if err != nil {
		logger.WithError(err).Fatal("Failed to resolve order quantity")
	}

	order := &models.OrderRequest{
		Symbol:       cfg.Order.Symbol,
		Side:         models.OrderSide(cfg.Order.Side),
		Quantity:     qty,
		StopPrice:    cfg.Order.StopPrice,
		PositionSide: models.PositionSide(cfg.Order.PositionSide),
		WorkingType:  models.WorkingType(cfg.Order.WorkingType),
		PriceProtect: cfg.Order.PriceProtect,
		ReduceOnly:   cfg.Order.ReduceOnly,
	}

	logger.WithFields(logrus.Fields{
		"symbol":       order.Symbol,
		"side":         order.Side,
		"quantity":     order.Quantity,
		"stopPrice":    order.StopPrice,
		"positionSide": order.PositionSide,
	}).Info("Submitting STOP_MARKET order")

	ack, err := client.PlaceStopMarketOrder(ctx, order)
	if err != nil {
		logger.WithError(err).Fatal("Order placement failed")
	}

	if jsonOutput {
		if err := report.JSON(os.Stdout, ack); err != nil {
			logger.WithError(err).Fatal("Failed to encode result")
		}
		return
	}
	if err := report.OrderAck(os.Stdout, ack); err != nil {
		logger.WithError(err).Fatal("Failed to print result")
	}
}

func runATR(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)
	ctx := context.Background()

	if cfg.ATR.Symbol == "" {
		logger.Fatal("atr.symbol is required")
	}

	client := binance.NewClient("", "", cfg.Binance.BaseURL, logger)

	result, err := client.DailyKlines(ctx, cfg.Binance.KlineEndpoints, cfg.ATR.Symbol, cfg.ATR.Limit)
	if err != nil {
		logger.WithError(err).Fatal("Failed to fetch daily candles")
	}
	logger.WithField("endpoint", result.Endpoint).Info("Fetched daily candles")

	atrResult, err := atr.Compute(result.Klines, time.Now())
	if err != nil {
		logger.WithError(err).Fatal("ATR computation aborted")
	}

	if jsonOutput {
		if err := report.JSON(os.Stdout, atrResult); err != nil {
			logger.WithError(err).Fatal("Failed to encode result")
		}
		return
	}
	if err := report.Candles(os.Stdout, atrResult.Rows); err != nil {
		logger.WithError(err).Fatal("Failed to print candle table")
	}
	fmt.Println()
	if err := report.ATRSummary(os.Stdout, atrResult); err != nil {
		logger.WithError(err).Fatal("Failed to print ATR summary")
	}
}

func runPlan(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)
	ctx := context.Background()

	if cfg.Plan.Symbol == "" {
		logger.Fatal("plan.symbol is required")
	}
	direction := models.Direction(cfg.Plan.Direction)
	if err := plan.ValidateDirection(direction); err != nil {
		logger.WithError(err).Fatal("Invalid plan configuration")
	}

	client := binance.NewClient("", "", cfg.Binance.BaseURL, logger)

	result, err := client.DailyKlines(ctx, cfg.Binance.KlineEndpoints, cfg.Plan.Symbol, cfg.Plan.Limit)
	if err != nil {
		logger.WithError(err).Fatal("Failed to fetch daily candles")
	}
	logger.WithField("endpoint", result.Endpoint).Info("Fetched daily candles")

	atrResult, err := atr.Compute(result.Klines, time.Now())
	if err != nil {
		logger.WithError(err).Fatal("ATR computation aborted")
	}

	// Mark-price failure degrades to the last daily close, never fails the
	// plan.
	reference := atrResult.LastClose
	degraded := true
	endpoint, markPrice, err := client.MarkPrice(ctx, cfg.Binance.PremiumIndexEndpoints, cfg.Plan.Symbol)
	if err != nil {
		logger.WithError(err).Warn("Mark price fetch failed, using last daily close as reference")
	} else {
		logger.WithField("endpoint", endpoint).Info("Fetched mark price")
		reference = markPrice
		degraded = false
	}

	tradePlan, err := plan.Derive(plan.Input{
		Symbol:          cfg.Plan.Symbol,
		Direction:       direction,
		LevelPrice:      cfg.Plan.LevelPrice,
		ATR:             atrResult.ATR,
		EntryMultiplier: cfg.Plan.EntryMultiplier,
		StopMultiplier:  cfg.Plan.StopMultiplier,
		RiskMultiples:   cfg.Plan.RiskMultiples,
		ReferencePrice:  reference,
		Degraded:        degraded,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to derive trade plan")
	}

	if jsonOutput {
		if err := report.JSON(os.Stdout, tradePlan); err != nil {
			logger.WithError(err).Fatal("Failed to encode result")
		}
		return
	}
	if err := report.Candles(os.Stdout, atrResult.Rows); err != nil {
		logger.WithError(err).Fatal("Failed to print candle table")
	}
	fmt.Println()
	if err := report.ATRSummary(os.Stdout, atrResult); err != nil {
		logger.WithError(err).Fatal("Failed to print ATR summary")
	}
	fmt.Println()
	if err := report.Plan(os.Stdout, tradePlan); err != nil {
		logger.WithError(err).Fatal("Failed to print trade plan")
	}
}
