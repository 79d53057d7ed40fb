// Package config handles configuration loading for feedbackd.
//
// # Overview
//
// Configuration is loaded from YAML (default) or TOML (files ending in .toml)
// with environment variable expansion. Unset optional fields receive defaults
// before validation.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from FEEDBACKD_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/feedbackd/config.yaml
//  3. ~/.config/feedbackd/config.yaml
//
// `feedbackd init` writes a starter file with a random session secret.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	admin:
//	  password_hash: "${FEEDBACKD_ADMIN_HASH}"
//	session:
//	  secret: "${FEEDBACKD_SESSION_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	session:
//	  idle_timeout: "20m"
//	  max_lifetime: "12h"
//	  reap_interval: "5m"
//
// # Configuration Sections
//
//	server:        http_addr, read_timeout, write_timeout
//	database:      path
//	admin:         username, password_hash (bcrypt)
//	session:       secret, backend (sqlite|redis), idle_timeout, max_lifetime,
//	               reap_interval, secure_cookie, redis{addr, password, db, prefix}
//	login_limit:   rate (attempts per minute per IP), burst
//	logging:       level, format (text|json)
//	metrics:       enabled, path
//	export:        dir
//
// # Validation
//
// Load fails if the admin identity is missing, the password hash is not a
// bcrypt hash, the session secret is shorter than 32 characters, or the redis
// backend is selected without an address.
package config
