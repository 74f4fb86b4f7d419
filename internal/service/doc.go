// Package service holds the application use cases: drafting courses,
// driving them through generation, recording learner progress and managing
// accounts.
//
// The GenerationOrchestrator owns every course status transition. It gates
// entry to GENERATING with a compare-and-set on the course version, takes a
// quota reservation, calls the generation capability without holding any
// lock, validates the result and publishes the subtree in one transaction.
// Every failure path releases the reservation and records a FAILED status
// with a reason code.
//
// Services depend on the store interfaces and small consumer interfaces
// declared here, never on a concrete database.
package service
