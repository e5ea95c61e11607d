// Package mocks provides shared test doubles for the store, auth and service
// interfaces.
//
// Two styles are available. The Mock* types are hand-written: map-backed
// stores that behave like the real ones, plus function fields and error
// fields for injecting failures. The Testify* types embed testify's
// mock.Mock for tests that assert exact calls.
//
//	tasks := mocks.NewMockTaskStore()
//	tasks.CreateErr = errors.New("disk full")
package mocks
