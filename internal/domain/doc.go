// Package domain contains the core business entities of taskhub: tasks with
// their one-level sub-task hierarchy and the users that own them. It holds
// validation and normalization rules and nothing that depends on storage or
// transport.
package domain
