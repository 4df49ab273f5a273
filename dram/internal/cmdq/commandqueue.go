// Package cmdq provides the command queue that decides which DRAM command is
// put on the command bus in each cycle.
package cmdq

import (
	"github.com/sarchlab/dramsim/dram/internal/signal"
)

// A CommandQueue is a queue of commands that need to be executed by a rank
// or a bank.
type CommandQueue interface {
	// Enqueue adds a command. The caller must check HasRoomFor first.
	Enqueue(cmd signal.Command)

	// HasRoomFor returns true if n more commands for the rank and bank fit.
	HasRoomFor(n, rank, bank int) bool

	// Pop returns the command to issue in the current cycle, if any. It must
	// be called exactly once per cycle.
	Pop(now uint64) (signal.Command, bool)

	// IsEmpty returns true if no command is queued for the rank.
	IsEmpty(rank int) bool

	// NeedRefresh asks the queue to refresh the rank as soon as possible.
	NeedRefresh(rank int)

	// RefreshPending returns true if a refresh of the rank is waiting.
	RefreshPending(rank int) bool
}
