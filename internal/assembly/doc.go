// Package assembly validates a generation draft and materializes it into a
// course subtree. Validation is exhaustive and happens before anything is
// built; orders are always renumbered from list position.
package assembly
