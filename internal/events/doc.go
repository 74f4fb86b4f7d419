// Package events carries in-process notifications between the course
// services and the components that react to them.
//
// Producers build an Event with NewEvent and hand it to an EventEmitter.
// Handlers receive every event and ignore the types they do not care about:
// the task handler turns generation requests into background tasks, and the
// Redis publisher forwards status changes to subscribers.
package events
