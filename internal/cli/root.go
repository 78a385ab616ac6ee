// Package cli is the claims-admin command line: schema migrations,
// requirement matrix seeding, bulk status transitions and session tokens.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	commoncfg "incapacity-claims/common/config"
	"incapacity-claims/common/logger"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "claims-admin",
	Short: "Operator tool for the incapacity claims service",
	Long: `claims-admin runs maintenance tasks against the claims database and
session store.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CLAIMS_*, e.g. CLAIMS_DB_HOST)
3. Config file (--config, YAML)
4. Defaults`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.user", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.name", "incapacidades")
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("auth.session_ttl", "8h")
}

// initConfig reads the optional config file and CLAIMS_* environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		} else if verbose {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}
	viper.SetEnvPrefix("CLAIMS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func databaseConfig() *commoncfg.DatabaseConfig {
	return &commoncfg.DatabaseConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetInt("db.port"),
		User:     viper.GetString("db.user"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.name"),
		SSLMode:  viper.GetString("db.sslmode"),
		MaxConns: 2,
		MaxIdle:  1,
	}
}

func redisConfig() *commoncfg.RedisConfig {
	return &commoncfg.RedisConfig{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	}
}

func newLogger() *zap.Logger {
	level := "warn"
	if viper.GetBool("verbose") {
		level = "debug"
	}
	log, err := logger.NewLogger(level, "console", "claims-admin")
	if err != nil {
		return zap.NewNop()
	}
	return log
}
