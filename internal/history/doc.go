// Package history provides the reversible-mutation ledger for timeline
// edits.
//
// Every durable change to the project is expressed as a Command with
// Execute and Undo methods and routed through a History, which maintains
// bounded undo/redo stacks. Key guarantees, assuming all mutation goes
// through commands:
//
//   - undo() xN restores the exact pre-sequence state
//   - execute; undo; redo reproduces the post-execute state
//   - executing a new command discards the redo stack
//
// Built-in commands cover the timeline operations: AddClip, DeleteClip,
// MoveClip, TrimClip, SplitClip, DuplicateClip, plus Compound for grouping
// several edits into one undo unit.
//
// Commands resolve their targets lazily against the live project, so a
// command built for a clip that has since vanished degrades to a silent
// no-op rather than an error, matching the engine's validation policy.
package history
