// Package testdb provides a migrated PostgreSQL database for integration
// tests. Its helpers are compiled only with the integration build tag.
package testdb
