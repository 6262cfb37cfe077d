// Package feedback submits completed conversation transcripts to the
// remote feedback endpoint.
//
// # Overview
//
// A conversation is reported at most once. The automatic path fires when
// the user switches away from a conversation by creating a new one; the
// manual path fires on an explicit thumbs up/down for the active
// conversation. Both share one guard: once FeedbackGiven is set, no further
// submission happens for that conversation.
//
// # Fire-and-forget contract
//
// Submissions run on background goroutines with a detached context. The
// triggering caller (conversation creation, the UI) never waits for the
// request and never observes its failure: a failed submission is logged and
// the flag stays clear, so a later switch can retry naturally. A successful
// submission applies the returned title and sets the flag through the
// registry; if the conversation was deleted in the meantime the completion
// is a safe no-op.
//
// The transcript payload is snapshotted from the stored conversation
// messages before the switch happens, so the submission always reflects the
// conversation as it was when it ended.
package feedback
