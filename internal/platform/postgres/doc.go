// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver. Multi-row writes (publishing a course
// subtree, reserving and releasing quota) run in one transaction with row
// locks so they serialize per course and per user. The schema lives in
// embedded goose migrations applied by Migrate.
package postgres
