package util

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/xslock/lib/lockmgr"
	"github.com/ValentinKolb/xslock/lib/store"
	"github.com/ValentinKolb/xslock/lib/store/lstore"
	"github.com/ValentinKolb/xslock/lib/store/rstore"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}
	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the store connection flags to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := "store"
	cmd.PersistentFlags().String(key, "redis", WrapString("The store to use: redis, or local for a store that only lives inside this process"))

	key = "redis-addr"
	cmd.PersistentFlags().String(key, "localhost:6379", WrapString("The address of the redis server. A comma-separated list connects to a cluster"))

	key = "redis-password"
	cmd.PersistentFlags().String(key, "", WrapString("The password of the redis server"))

	key = "redis-db"
	cmd.PersistentFlags().Int(key, 0, WrapString("The redis database to use"))

	key = "redis-timeout"
	cmd.PersistentFlags().Duration(key, 5*time.Second, WrapString("Dial, read and write timeout of the redis connection"))

	key = "prefix"
	cmd.PersistentFlags().String(key, "", WrapString("Prefix added to every lock key"))

	key = "mode"
	cmd.PersistentFlags().String(key, lockmgr.DefaultMode, WrapString(fmt.Sprintf("The lock algorithm (%s)", strings.Join(lockmgr.DefaultRegistry().Modes(), ", "))))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("The level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("xslock")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetStoreConfig reads the store configuration from viper
func GetStoreConfig() *StoreConfig {
	return &StoreConfig{
		Type:          viper.GetString("store"),
		RedisAddrs:    strings.Split(viper.GetString("redis-addr"), ","),
		RedisPassword: viper.GetString("redis-password"),
		RedisDB:       viper.GetInt("redis-db"),
		RedisTimeout:  viper.GetDuration("redis-timeout"),
		Prefix:        viper.GetString("prefix"),
		Mode:          viper.GetString("mode"),
		LogLevel:      viper.GetString("log-level"),
	}
}

// NewStore connects to the configured store
func NewStore(ctx context.Context, conf *StoreConfig) (store.IStore, error) {
	switch conf.Type {
	case "redis":
		return rstore.Connect(ctx, &redis.UniversalOptions{
			Addrs:        conf.RedisAddrs,
			Password:     conf.RedisPassword,
			DB:           conf.RedisDB,
			DialTimeout:  conf.RedisTimeout,
			ReadTimeout:  conf.RedisTimeout,
			WriteTimeout: conf.RedisTimeout,
		})
	case "local":
		return lstore.NewLocalStore(), nil
	default:
		return nil, fmt.Errorf("invalid store %s", conf.Type)
	}
}

// NewFactory creates a lock factory on the store, checking the mode first
func NewFactory(s store.IStore, conf *StoreConfig) (*lockmgr.Factory, error) {
	if _, err := lockmgr.DefaultRegistry().Lookup(conf.Mode); err != nil {
		return nil, err
	}
	return lockmgr.NewFactory(s, lockmgr.FactoryConfig{
		Prefix: conf.Prefix,
		Mode:   conf.Mode,
	}), nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
