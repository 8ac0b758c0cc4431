// Package taskstore provides an ephemeral, thread-safe, in-memory store of
// task instance state.
//
// One store is created per run. It records, for every task instance, its
// lifecycle status, the files it produced and the error it failed with.
// Each task's state is independent of every other task's and is written by
// one worker at a time while the scheduler reads it, so the store is built
// on sync.Map rather than a single lock.
package taskstore
