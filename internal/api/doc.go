// Package api exposes the task and authentication services over HTTP. It
// decodes and validates JSON requests, maps service errors to status codes
// with client-safe messages, and formats responses.
package api
