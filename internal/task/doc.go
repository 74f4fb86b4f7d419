// Package task runs background work off the request path.
//
// Tasks are persisted before they are queued so a restart can find them
// again. The runner rehydrates stored records through per-type constructors
// registered with RegisterType, and a periodic monitor fails tasks that have
// been processing for too long before handing off to an optional Sweeper.
package task
