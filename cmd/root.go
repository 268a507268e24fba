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

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai/gemini"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/logger"
)

const (
	app       = "devmeet"
	envPrefix = "DEVMEET"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Auth      AuthConfig      `mapstructure:"auth"`
	AI        *AIConfig       `mapstructure:"ai"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Interview InterviewConfig `mapstructure:"interview"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt-secret"`
	JWTSecretFile string        `mapstructure:"jwt-secret-file"`
	TokenTTL      time.Duration `mapstructure:"token-ttl"`
}

type AIConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider"`
	MinimumFitScore float64       `mapstructure:"minimum-fit-score"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`

	Screening gemini.Guidance `mapstructure:"screening"`
}

type GitHubConfig struct {
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token-file"`
	APIURL    string `mapstructure:"api-url"`
}

type InterviewConfig struct {
	TemplatesDir    string `mapstructure:"templates-dir"`
	MaxAnswerLength int    `mapstructure:"max-answer-length"`
	Instructions    string `mapstructure:"instructions"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "devmeet runs AI-assisted technical interviews for hiring teams",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is devmeet.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read-timeout", 15*time.Second)
	v.SetDefault("server.write-timeout", 60*time.Second)
	v.SetDefault("server.shutdown-timeout", 10*time.Second)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "devmeet.db")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ratelimit.limit", 120)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("auth.jwt-secret", "")
	v.SetDefault("auth.jwt-secret-file", "")
	v.SetDefault("auth.token-ttl", 24*time.Hour)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.minimum-fit-score", 0.6)
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 2000)
	for _, key := range []string{"criteria", "deal-breakers", "locations", "tone", "notes"} {
		v.SetDefault("ai.gemini.screening."+key, "")
	}

	v.SetDefault("github.token", "")
	v.SetDefault("github.token-file", "")
	v.SetDefault("github.api-url", "")

	v.SetDefault("interview.templates-dir", "")
	v.SetDefault("interview.max-answer-length", 4000)
	v.SetDefault("interview.instructions", "")
}

// bindEnv maps keys such as ai.gemini.api-key to DEVMEET_AI_GEMINI_API_KEY.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	// .env is optional; values already present in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %s", err)
	}

	setDefaults(viper.GetViper())
	bindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Only an explicitly requested config file is mandatory.
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

// setup builds the logger and reads the config shared by every command.
func setup() (*zap.Logger, *Config) {
	logger := logger.New(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
	})

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Debug("config loaded", zap.String("config_file", viper.ConfigFileUsed()))
	return logger, config
}
