package storage

import "time"

// Config holds configuration for the object storage that receives archived
// migration backups.
type Config struct {
	// Enabled turns backup archiving on. Without it no client is created.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Endpoint is the host (and port) of the storage service.
	Endpoint  string `mapstructure:"endpoint" default:"localhost:9000"`
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	UseSSL    bool   `mapstructure:"use_ssl" default:"false"`
	// Bucket receives objects under migrations/<run id>/.
	Bucket string `mapstructure:"bucket" default:"webdesk-backups"`
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// Timeout returns the connection timeout, 30 seconds when unset.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
