package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL            string
	WhirlpoolIndexURL string
	DLMMIndexURL      string
	DLMMProgramID     string
	NativeMint        string
	NativeSymbol      string
	NativeDecimals    uint8
	Token             string
	Interval          time.Duration
	SlippageBps       uint32
	PageLimit         int
	Out               string
	PgDSN             string
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RATESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc", "https://api.mainnet-beta.solana.com")
	v.SetDefault("whirlpool-index", "https://api.orca.so/v1/whirlpool/list")
	v.SetDefault("dlmm-index", "https://dlmm-api.meteora.ag")
	v.SetDefault("dlmm-program", "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo")
	v.SetDefault("native-mint", "So11111111111111111111111111111111111111112")
	v.SetDefault("native-symbol", "SOL")
	v.SetDefault("native-decimals", 9)
	v.SetDefault("interval", 10*time.Second)
	v.SetDefault("slippage-bps", 50)
	v.SetDefault("page-limit", 50)
	v.SetDefault("out", "./data/observations.json")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		WhirlpoolIndexURL: v.GetString("whirlpool-index"),
		DLMMIndexURL:      v.GetString("dlmm-index"),
		DLMMProgramID:     v.GetString("dlmm-program"),
		NativeMint:        v.GetString("native-mint"),
		NativeSymbol:      v.GetString("native-symbol"),
		NativeDecimals:    uint8(v.GetUint("native-decimals")),
		Token:             v.GetString("token"),
		Interval:          v.GetDuration("interval"),
		SlippageBps:       v.GetUint32("slippage-bps"),
		PageLimit:         v.GetInt("page-limit"),
		Out:               v.GetString("out"),
		PgDSN:             v.GetString("pg-dsn"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}
