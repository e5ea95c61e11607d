// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, so hierarchy and timestamp rules stay in
// the service layer and never leak into SQL.
package store
