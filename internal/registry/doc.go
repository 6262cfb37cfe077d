// Package registry is the in-memory conversation registry at the heart of
// parley.
//
// # Overview
//
// The registry owns three pieces of state:
//
//   - conversations: id -> ordered messages plus the per-conversation
//     feedback flag
//   - titles: id -> display title
//   - the active conversation pointer
//
// It mirrors the persistent store and is the only component that writes to
// it. Every mutating operation flushes synchronously before returning, so
// a crash immediately after a successful call never loses that mutation.
//
// # Invariants
//
//   - A newly created conversation has exactly one seed assistant greeting
//     and FeedbackGiven=false.
//   - FeedbackGiven transitions false->true at most once and never resets.
//   - If any conversations exist, the active pointer references one of
//     them; deleting the active conversation re-elects the first remaining
//     conversation in registry order, or clears the pointer.
//
// # Concurrency
//
// All UI-driven operations run on one foreground loop; the mutex exists
// because feedback submissions complete on a background goroutine and
// re-enter through MarkFeedbackGiven. Operations targeting a conversation
// that was deleted in the meantime return ErrNotFound, which asynchronous
// callers treat as a safe no-op.
package registry
