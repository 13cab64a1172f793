package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rateScope/internal/chain"
	"rateScope/internal/config"
	"rateScope/internal/discovery"
	"rateScope/internal/quote"
	"rateScope/internal/storage"
	"rateScope/internal/storage/postgres"
	"rateScope/internal/watch"
)

func main() {
	root := &cobra.Command{
		Use:          "watcher",
		Short:        "SOL/token exchange-rate watcher",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the watcher",
		RunE:  runWatcher,
	}

	runCmd.Flags().String("rpc", "https://api.mainnet-beta.solana.com", "Solana RPC URL")
	runCmd.Flags().String("token", "", "target token mint (prompted on stdin when empty)")
	runCmd.Flags().String("whirlpool-index", "https://api.orca.so/v1/whirlpool/list", "whirlpool pool-index base URL")
	runCmd.Flags().String("dlmm-index", "https://dlmm-api.meteora.ag", "DLMM pool-index base URL")
	runCmd.Flags().String("dlmm-program", "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo", "DLMM program id")
	runCmd.Flags().String("native-mint", "So11111111111111111111111111111111111111112", "native asset mint")
	runCmd.Flags().String("native-symbol", "SOL", "native asset symbol")
	runCmd.Flags().Uint("native-decimals", 9, "native asset decimals")
	runCmd.Flags().Duration("interval", 10*time.Second, "delay between polling cycles")
	runCmd.Flags().Uint32("slippage-bps", 50, "slippage tolerance in basis points")
	runCmd.Flags().Int("page-limit", 50, "pool-index page size")
	runCmd.Flags().String("out", "./data/observations.json", "observation log path")
	runCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for an observation sink")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWatcher(cmd *cobra.Command, _ []string) error {
	// Optional .env for local runs; absence is fine.
	_ = godotenv.Load()

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	native, err := solana.PublicKeyFromBase58(cfg.NativeMint)
	if err != nil {
		return fmt.Errorf("native mint: %w", err)
	}

	dlmmProgram, err := solana.PublicKeyFromBase58(cfg.DLMMProgramID)
	if err != nil {
		return fmt.Errorf("dlmm program: %w", err)
	}

	tokenStr := cfg.Token
	if tokenStr == "" {
		tokenStr, err = promptToken(os.Stdin, os.Stdout)
		if err != nil {
			return err
		}
	}
	target, err := solana.PublicKeyFromBase58(tokenStr)
	if err != nil {
		return fmt.Errorf("token mint %q: %w", tokenStr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient := chain.NewClient(cfg.RPCURL)

	indexes := []discovery.Index{
		discovery.NewWhirlpoolIndex(cfg.WhirlpoolIndexURL, cfg.PageLimit, native, logger),
		discovery.NewDLMMIndex(cfg.DLMMIndexURL, native, logger),
	}

	quoters := []quote.Quoter{
		quote.NewWhirlpoolQuoter(chainClient, native, logger),
		quote.NewBinQuoter(chainClient, native, cfg.NativeSymbol, dlmmProgram, logger),
	}

	sinks := []storage.Storage{storage.NewJSONFileStore(cfg.Out, logger)}
	if cfg.PgDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		sinks = append(sinks, pgStore)
	}

	runner := watch.NewRunner(watch.Config{
		Target:         target,
		Native:         native,
		NativeSymbol:   cfg.NativeSymbol,
		NativeDecimals: cfg.NativeDecimals,
		Interval:       cfg.Interval,
		SlippageBps:    cfg.SlippageBps,
	}, indexes, quoters, chainClient, sinks, os.Stdout, logger)

	logger.Info("watcher start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("token", target.String()),
		zap.String("native", native.String()),
		zap.Duration("interval", cfg.Interval),
		zap.Uint32("slippage_bps", cfg.SlippageBps),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", cfg.PgDSN != ""),
	)

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func promptToken(in *os.File, out *os.File) (string, error) {
	fmt.Fprint(out, "token mint address: ")
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read token mint: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", fmt.Errorf("token mint is required")
	}
	return token, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
