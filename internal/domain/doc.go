// Package domain contains the core business entities of the course generation
// pipeline: users and their quotas, courses with their generated subtree, and
// per-lesson learner progress. It is independent of storage and transport.
package domain
