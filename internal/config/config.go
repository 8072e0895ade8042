// Package config defines the configuration contract and handles loading and validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Canonical environment variable keys.
	KeyBotToken      = "BOT_TOKEN"
	KeyWalletTRC20   = "USDT_TRC20"
	KeyWalletBEP20   = "USDT_BEP20"
	KeyMongoURI      = "MONGODB_URI"
	KeyMongoDB       = "MONGO_DB"
	KeyAdminUserID   = "ADMIN_USER_ID"
	KeyPort          = "PORT"
	KeyAppEnv        = "APP_ENV"
	KeyLogLevel      = "LOG_LEVEL"
	KeyImageStore    = "IMAGE_STORE"
	KeyImageFilePath = "IMAGE_FILE_PATH"
	KeyRedisURL      = "REDIS_URL"
	KeyImageCacheTTL = "IMAGE_CACHE_TTL"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Image store backends.
	ImageStoreMongo = "mongo"
	ImageStoreFile  = "file"

	// Defaults for optional settings.
	DefaultAppEnv        = EnvProduction
	DefaultLogLevel      = "info"
	DefaultPort          = 3000
	DefaultMongoDB       = "coffee_bot"
	DefaultImageStore    = ImageStoreMongo
	DefaultImageFilePath = "coffee.jpg"
	DefaultImageCacheTTL = 10 * time.Minute
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyBotToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
	},
	{
		Key:         KeyWalletTRC20,
		Example:     "TXyz...",
		Required:    true,
		Description: "USDT wallet address on the TRC20 network.",
	},
	{
		Key:         KeyWalletBEP20,
		Example:     "0xabc...",
		Required:    true,
		Description: "USDT wallet address on the BEP20 network.",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Required:    true,
		Description: "MongoDB connection string.",
	},
	{
		Key:         KeyMongoDB,
		Example:     DefaultMongoDB,
		Default:     DefaultMongoDB,
		Description: "MongoDB database name.",
	},
	{
		Key:         KeyAdminUserID,
		Example:     "123456789",
		Description: "Telegram user_id allowed to run admin commands and upload the coffee image.",
		Notes:       "Compared as text against the sender id. Admin features are disabled when unset.",
	},
	{
		Key:         KeyPort,
		Example:     strconv.Itoa(DefaultPort),
		Default:     strconv.Itoa(DefaultPort),
		Description: "HTTP health/diagnostics port.",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyImageStore,
		Example:     ImageStoreMongo + " / " + ImageStoreFile,
		Default:     DefaultImageStore,
		Description: "Where the coffee image is kept: reference history in MongoDB or a single local file.",
	},
	{
		Key:         KeyImageFilePath,
		Example:     DefaultImageFilePath,
		Default:     DefaultImageFilePath,
		Description: "Local path of the coffee image when IMAGE_STORE=" + ImageStoreFile + ".",
	},
	{
		Key:         KeyRedisURL,
		Example:     "redis://localhost:6379/0",
		Description: "Optional Redis URL used to cache the latest coffee image lookup.",
	},
	{
		Key:         KeyImageCacheTTL,
		Example:     DefaultImageCacheTTL.String(),
		Default:     DefaultImageCacheTTL.String(),
		Description: "TTL of the cached coffee image lookup.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	BotToken      string
	WalletTRC20   string
	WalletBEP20   string
	MongoURI      string
	MongoDB       string
	AdminUserID   string
	Port          int
	AppEnv        string
	LogLevel      string
	ImageStore    string
	ImageFilePath string
	RedisURL      string
	ImageCacheTTL time.Duration
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:        firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		BotToken:      strings.TrimSpace(os.Getenv(KeyBotToken)),
		WalletTRC20:   strings.TrimSpace(os.Getenv(KeyWalletTRC20)),
		WalletBEP20:   strings.TrimSpace(os.Getenv(KeyWalletBEP20)),
		MongoURI:      strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:       firstNonEmpty(os.Getenv(KeyMongoDB), DefaultMongoDB),
		AdminUserID:   strings.TrimSpace(os.Getenv(KeyAdminUserID)),
		LogLevel:      firstNonEmpty(os.Getenv(KeyLogLevel), DefaultLogLevel),
		ImageStore:    firstNonEmpty(strings.ToLower(os.Getenv(KeyImageStore)), DefaultImageStore),
		ImageFilePath: firstNonEmpty(os.Getenv(KeyImageFilePath), DefaultImageFilePath),
		RedisURL:      strings.TrimSpace(os.Getenv(KeyRedisURL)),
		Port:          DefaultPort,
		ImageCacheTTL: DefaultImageCacheTTL,
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	if missing := missingRequired(); len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	if err := validateMongoURI(cfg.MongoURI); err != nil {
		return Config{}, err
	}

	portRaw := strings.TrimSpace(os.Getenv(KeyPort))
	if portRaw != "" {
		port, parseErr := strconv.Atoi(portRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyPort, parseErr)
		}
		if port <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyPort)
		}
		cfg.Port = port
	}

	if cfg.ImageStore != ImageStoreMongo && cfg.ImageStore != ImageStoreFile {
		return Config{}, fmt.Errorf("invalid %s: must be %q or %q", KeyImageStore, ImageStoreMongo, ImageStoreFile)
	}

	ttlRaw := strings.TrimSpace(os.Getenv(KeyImageCacheTTL))
	if ttlRaw != "" {
		ttl, parseErr := time.ParseDuration(ttlRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyImageCacheTTL, parseErr)
		}
		if ttl <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyImageCacheTTL)
		}
		cfg.ImageCacheTTL = ttl
	}

	return cfg, nil
}

// missingRequired lists the Required keys of Contract that are unset or blank.
func missingRequired() []string {
	var missing []string
	for _, v := range Contract {
		if v.Required && strings.TrimSpace(os.Getenv(v.Key)) == "" {
			missing = append(missing, v.Key)
		}
	}
	return missing
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// AdminEnabled reports whether an admin identity is configured.
func (c Config) AdminEnabled() bool {
	return c.AdminUserID != ""
}

// FormatRedacted renders the configuration with secrets masked, for
// --config-only output.
func FormatRedacted(cfg Config) string {
	lines := []string{
		"bot_token: " + redactToken(cfg.BotToken),
		"usdt_trc20: " + cfg.WalletTRC20,
		"usdt_bep20: " + cfg.WalletBEP20,
		"mongodb_uri: " + redactURI(cfg.MongoURI),
		"mongo_db: " + cfg.MongoDB,
		"admin_user_id: " + firstNonEmpty(cfg.AdminUserID, "(disabled)"),
		"port: " + strconv.Itoa(cfg.Port),
		"app_env: " + cfg.AppEnv,
		"log_level: " + cfg.LogLevel,
		"image_store: " + cfg.ImageStore,
	}

	if cfg.ImageStore == ImageStoreFile {
		lines = append(lines, "image_file_path: "+cfg.ImageFilePath)
	}

	if cfg.RedisURL != "" {
		lines = append(lines,
			"redis_url: "+redactURI(cfg.RedisURL),
			"image_cache_ttl: "+cfg.ImageCacheTTL.String(),
		)
	} else {
		lines = append(lines, "redis_url: (disabled)")
	}

	return strings.Join(lines, "\n")
}

func redactToken(token string) string {
	if len(token) <= 4 {
		return "redacted"
	}
	return token[:4] + "...redacted"
}

// redactURI drops userinfo from connection strings.
func redactURI(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "redacted"
	}
	parsed.User = nil
	return parsed.String()
}

func validateMongoURI(uri string) error {
	if strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://") {
		return nil
	}

	return fmt.Errorf("invalid %s: must start with mongodb:// or mongodb+srv://", KeyMongoURI)
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
