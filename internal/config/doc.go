// Package config handles configuration loading for recentviews.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file (chosen by the .toml
// extension) with environment variable expansion. Fields a file leaves out
// keep the values from Default, and Validate rejects inconsistent settings.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from RECENTVIEWS_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/recentviews/config.yaml (~/.config when unset)
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${RECENTVIEWS_JWT_SECRET}"
//
// Unset variables expand to an empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	session:
//	  ttl: "24h"
//
// # Example
//
//	server:
//	  http_addr: "localhost:8080"
//	database:
//	  driver: "sqlite"        # or sqlite3 (cgo)
//	  path: "/var/lib/recentviews/recentviews.db"
//	session:
//	  backend: "memory"       # or sqlite
//	  prefix: "recently_viewed"
//	  cookie_name: "recentviews_session"
//	  ttl: "24h"
//	  max_sessions: 10000
//	features:
//	  persist_recent_views: true
//	auth:
//	  jwt_secret: "${RECENTVIEWS_JWT_SECRET}"
//	catalog:
//	  limits:
//	    product: 10
//	    article: 5
//	logging:
//	  level: "info"
//	  format: "text"         # or json
package config
