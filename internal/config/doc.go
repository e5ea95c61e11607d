// Package config loads and validates taskhub's settings from defaults,
// config files, .env files and TASKHUB_* environment variables.
package config
