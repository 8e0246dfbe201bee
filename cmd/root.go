package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wecollab/matchmaker/internal/logger"
	"github.com/wecollab/matchmaker/internal/matchmaking"
	"github.com/wecollab/matchmaker/internal/scoring"
	"github.com/wecollab/matchmaker/internal/server"
	"github.com/wecollab/matchmaker/internal/store/cache"
)

const (
	app       = "matchmaker"
	envPrefix = "MATCHMAKER"
)

type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Matching MatchingConfig `mapstructure:"matching"`
	Server   server.Config  `mapstructure:"server"`
	AI       *AIConfig      `mapstructure:"ai"`
}

type StoreConfig struct {
	// Driver is one of memory, file, postgres, sqlite, mysql or remote.
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	DSN       string `mapstructure:"dsn"`
	DSNFile   string `mapstructure:"dsn-file"`
	Table     string `mapstructure:"table"`
	URL       string `mapstructure:"url"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token-file"`

	ConnectAttempts int           `mapstructure:"connect-attempts"`
	ConnectDelay    time.Duration `mapstructure:"connect-delay"`

	Cache *CacheConfig `mapstructure:"cache"`
}

type CacheConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	cache.Config `mapstructure:",squash"`
	PasswordFile string `mapstructure:"password-file"`
}

type MatchingConfig struct {
	scoring.Config `mapstructure:",squash"`
	MaxPageSize    int    `mapstructure:"max-page-size"`
	Workers        int    `mapstructure:"workers"`
	Language       string `mapstructure:"language"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Workers  int           `mapstructure:"workers"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "matchmaker ranks fellow students as potential teammates",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is matchmaker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "profiles.yaml")
	v.SetDefault("store.connect-attempts", 5)
	v.SetDefault("store.connect-delay", 2*time.Second)

	weights := scoring.DefaultWeights()
	v.SetDefault("matching.weights.interests", weights.Interests)
	v.SetDefault("matching.weights.skills", weights.Skills)
	v.SetDefault("matching.weights.university", weights.University)
	v.SetDefault("matching.weights.activity", weights.Activity)
	v.SetDefault("matching.university-baseline", scoring.DefaultUniversityBaseline)
	v.SetDefault("matching.activity-window", scoring.DefaultActivityWindow)
	v.SetDefault("matching.max-page-size", matchmaking.MaxPageSize)
	v.SetDefault("matching.workers", 4)
	v.SetDefault("matching.language", "en")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read-timeout", server.DefaultReadTimeout)
	v.SetDefault("server.write-timeout", server.DefaultWriteTimeout)
	v.SetDefault("server.shutdown-timeout", server.DefaultShutdownTimeout)
}

func initConfig() {
	// .env is optional and never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error. A missing
	// default config is fine, everything has a default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// setup creates the logger and loads the config, exiting on failure like
// every command does.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Debug("starting the matchmaker",
		zap.String("version", version),
		zap.String("config", viper.ConfigFileUsed()),
		zap.String("store", config.Store.Driver),
	)

	return logger, config
}
