// Package timeline interprets editing gestures into time-domain edits of
// the project: move, trim, split, duplicate, delete, snap and drop.
//
// The Engine never mutates the project directly. One-shot operations and
// completed gestures are expressed as history commands, so every durable
// change is undoable. Live gesture feedback comes from a scratch copy of
// the clip geometry held by the Gesture; the store is untouched until the
// pointer is released and the net effect is committed as one command.
//
// All horizontal conversion goes through the zoom factor (pixels per
// second); the snap window is a pixel threshold divided by the zoom, so
// snapping feels constant on screen regardless of scale.
package timeline
