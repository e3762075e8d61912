package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"webdesk/core/database"
	"webdesk/core/loader"
	"webdesk/core/logger"
	"webdesk/core/migrate"
	"webdesk/core/server"
	"webdesk/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Storage holds configuration for backup archiving (S3, MinIO).
	Storage storage.Config `mapstructure:"storage"`
	// Migration holds configuration for the schema migration engine.
	Migration migrate.Config `mapstructure:"migration"`
	// Layers selects the enabled application layers.
	Layers loader.Config `mapstructure:"layers"`
}

// LoadConfig loads configuration from struct defaults, an optional
// config.yaml, a .env file and the environment, in increasing precedence.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}
	// A missing .env is normal outside development.
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Optional config.yaml next to .env; environment variables win.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Map environment variables to nested keys (e.g. DATABASE_DRIVER -> database.driver)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if !c.Database.IsValidDriver() {
		return fmt.Errorf("unsupported database driver %q (use mysql, postgres or sqlite)", c.Database.Driver)
	}
	if !c.Migration.IsValidOrphanPolicy() {
		return fmt.Errorf("unknown migration.orphaned_backups policy %q (use fail, resume or discard)", c.Migration.OrphanedBackups)
	}
	if !c.Server.IsValidPort() {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}
	return nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
