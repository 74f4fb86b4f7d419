// Package store defines the persistence interfaces consumed by the services:
// courses with their generated subtree, quotas and reservations, sessions,
// users and learner progress. Implementations live under internal/platform.
package store
