// Package config provides configuration management for webdesk.
//
// It uses Viper to merge struct-tag defaults, an optional config.yaml, a .env
// file and environment variables (DATABASE_DRIVER maps to database.driver).
//
// # Configuration Structure
//
//   - Server: HTTP port, API key, shutdown bound
//   - Database: driver (mysql, postgres, sqlite) and connection details
//   - Log: level and format
//   - Storage: MinIO/S3 settings for backup archiving
//   - Migration: restore chunk size, archiving, orphaned backup policy
//   - Layers: enabled applications, in order
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
