package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/playscope/internal/utils"
	"github.com/sw33tLie/playscope/pkg/play"
	"github.com/sw33tLie/playscope/pkg/storage"
	"github.com/sw33tLie/playscope/pkg/whttp"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	       _
	 _ __ | | __ _ _   _ ___  ___ ___  _ __   ___
	| '_ \| |/ _' | | | / __|/ __/ _ \| '_ \ / _ \
	| |_) | | (_| | |_| \__ \ (_| (_) | |_) |  __/
	| .__/|_|\__,_|\__, |___/\___\___/| .__/ \___|
	|_|            |___/              |_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "playscope",
	Short: "Fetch and track Google Play apps, reviews and permissions.",
	Long: LOGO + `playscope reads app details, search results, reviews and permissions from the
Google Play storefront, and keeps a local watchlist of apps whose reviews it can poll for changes.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.playscope.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("lang", play.DefaultLang, "Store language (hl)")
	rootCmd.PersistentFlags().String("country", play.DefaultCountry, "Store country (gl)")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/playscope/playscope.sqlite)")
	rootCmd.PersistentFlags().Bool("color", false, "Colorize JSON output")

	viper.BindPFlag("http.proxy", rootCmd.PersistentFlags().Lookup("proxy"))
	viper.BindPFlag("play.lang", rootCmd.PersistentFlags().Lookup("lang"))
	viper.BindPFlag("play.country", rootCmd.PersistentFlags().Lookup("country"))
	viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("dbpath"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetDefault("play.lang", play.DefaultLang)
	viper.SetDefault("play.country", play.DefaultCountry)
	viper.SetDefault("http.timeout", whttp.DefaultTimeout.String())
	viper.SetDefault("http.retries", whttp.DefaultRetries)
	viper.SetDefault("http.max_attempts", whttp.DefaultMaxAttempts)
	viper.SetDefault("http.rate_limit_delay", whttp.DefaultRateLimitDelay.String())
	viper.SetDefault("http.proxy", "")
	viper.SetDefault("db.path", "")
	viper.SetDefault("serve.username", "")
	viper.SetDefault("serve.password", "")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".playscope")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".playscope.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

// newPlayClient builds a store client from the http.* settings.
func newPlayClient() (*play.Client, error) {
	transport, err := whttp.NewClient(whttp.Config{
		Timeout:        viper.GetDuration("http.timeout"),
		Retries:        viper.GetInt("http.retries"),
		MaxAttempts:    viper.GetInt("http.max_attempts"),
		RateLimitDelay: viper.GetDuration("http.rate_limit_delay"),
		Proxy:          viper.GetString("http.proxy"),
	})
	if err != nil {
		return nil, err
	}
	return play.NewClient(transport), nil
}

// storeLocale returns the configured language and country after checking
// that both are well formed.
func storeLocale() (string, string, error) {
	lang, country := viper.GetString("play.lang"), viper.GetString("play.country")
	if err := play.ValidateLocale(lang, country); err != nil {
		return "", "", err
	}
	return lang, country, nil
}

// openDB opens the configured database, creating its directory if needed.
func openDB() (*storage.DB, string, error) {
	path, err := utils.GetAbsDBPath(viper.GetString("db.path"))
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, "", err
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, "", err
	}
	return db, path, nil
}

// openLockedDB opens the database for writing, holding the file lock until
// release is called.
func openLockedDB() (*storage.DB, func(), error) {
	db, path, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	lock, err := utils.NewDBLock(path)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := lock.Lock(); err != nil {
		db.Close()
		return nil, nil, err
	}
	release := func() {
		if err := lock.Unlock(); err != nil {
			utils.Log.Warnf("%v", err)
		}
		db.Close()
	}
	return db, release, nil
}
