// Package server holds the HTTP server configuration.
//
// The server binds only after the migration engine has finished; this package
// defines the port, the API key protecting /api routes and the graceful
// shutdown bound.
package server
