package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/splicekit/splice/internal/event"
	"github.com/splicekit/splice/internal/project"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Command represents one atomic, reversible mutation of the project.
type Command interface {
	// Execute performs the command against the store.
	Execute(s *project.Store) error

	// Undo reverses the command.
	Undo(s *project.Store) error

	// Description returns a human-readable description of the command.
	Description() string
}

// Status describes the ledger for UI consumption. Published on the bus
// under history.changed after every execute/undo/redo/clear.
type Status struct {
	CanUndo         bool
	CanRedo         bool
	UndoDescription string
	RedoDescription string
}

// undoEntry wraps a command with metadata.
type undoEntry struct {
	command   Command
	timestamp time.Time
}

// History manages the undo/redo stacks for one project store.
type History struct {
	mu sync.Mutex

	store *project.Store
	bus   *event.Bus

	undoStack []*undoEntry
	redoStack []*undoEntry

	maxEntries int
}

// New creates a history bound to a store. maxEntries bounds the undo
// stack; values <= 0 fall back to 100.
func New(store *project.Store, bus *event.Bus, maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &History{
		store:      store,
		bus:        bus,
		maxEntries: maxEntries,
	}
}

// Execute runs a command, pushes it onto the undo stack and clears the
// redo stack. A command that panics is converted to an error and kept off
// the stacks so the ledger stays consistent.
func (h *History) Execute(cmd Command) error {
	if err := runGuarded(cmd.Execute, h.store); err != nil {
		return fmt.Errorf("execute %s: %w", cmd.Description(), err)
	}

	h.mu.Lock()
	h.undoStack = append(h.undoStack, &undoEntry{command: cmd, timestamp: time.Now()})
	h.redoStack = nil
	if len(h.undoStack) > h.maxEntries {
		excess := len(h.undoStack) - h.maxEntries
		h.undoStack = h.undoStack[excess:]
	}
	h.mu.Unlock()

	h.publishStatus()
	return nil
}

// Undo reverses the most recent command. Calling with an empty stack is a
// no-op returning ErrNothingToUndo.
func (h *History) Undo() error {
	h.mu.Lock()
	if len(h.undoStack) == 0 {
		h.mu.Unlock()
		return ErrNothingToUndo
	}
	entry := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.mu.Unlock()

	if err := runGuarded(entry.command.Undo, h.store); err != nil {
		// Restore entry on failure
		h.mu.Lock()
		h.undoStack = append(h.undoStack, entry)
		h.mu.Unlock()
		return fmt.Errorf("undo %s: %w", entry.command.Description(), err)
	}

	h.mu.Lock()
	h.redoStack = append(h.redoStack, entry)
	h.mu.Unlock()

	h.publishStatus()
	return nil
}

// Redo re-applies the most recently undone command. Calling with an empty
// stack is a no-op returning ErrNothingToRedo.
func (h *History) Redo() error {
	h.mu.Lock()
	if len(h.redoStack) == 0 {
		h.mu.Unlock()
		return ErrNothingToRedo
	}
	entry := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.mu.Unlock()

	if err := runGuarded(entry.command.Execute, h.store); err != nil {
		h.mu.Lock()
		h.redoStack = append(h.redoStack, entry)
		h.mu.Unlock()
		return fmt.Errorf("redo %s: %w", entry.command.Description(), err)
	}

	h.mu.Lock()
	h.undoStack = append(h.undoStack, entry)
	h.mu.Unlock()

	h.publishStatus()
	return nil
}

// runGuarded invokes a command function, converting panics into errors so
// a misbehaving command cannot leave the stacks half-updated.
func runGuarded(fn func(*project.Store) error, s *project.Store) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command panic: %v", r)
		}
	}()
	return fn(s)
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo operations available.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo operations available.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// Status returns the current ledger status.
func (h *History) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statusLocked()
}

func (h *History) statusLocked() Status {
	st := Status{
		CanUndo: len(h.undoStack) > 0,
		CanRedo: len(h.redoStack) > 0,
	}
	if st.CanUndo {
		st.UndoDescription = h.undoStack[len(h.undoStack)-1].command.Description()
	}
	if st.CanRedo {
		st.RedoDescription = h.redoStack[len(h.redoStack)-1].command.Description()
	}
	return st
}

func (h *History) publishStatus() {
	if h.bus == nil {
		return
	}
	h.mu.Lock()
	st := h.statusLocked()
	h.mu.Unlock()
	h.bus.Publish(event.TopicHistoryChanged, st)
}

// Clear removes all undo/redo history.
func (h *History) Clear() {
	h.mu.Lock()
	h.undoStack = nil
	h.redoStack = nil
	h.mu.Unlock()
	h.publishStatus()
}
