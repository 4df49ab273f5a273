// Package signal defines the commands and transactions that flow through a
// memory controller.
package signal

import (
	"fmt"

	"github.com/sarchlab/dramsim/dram/internal/addressmapping"
	"github.com/sarchlab/dramsim/dram/internal/arena"
)

// CommandKind is the kind of a bus command.
type CommandKind int

// A list of supported DRAM command kinds.
const (
	CmdKindActivate CommandKind = iota
	CmdKindRead
	CmdKindReadPrecharge
	CmdKindWrite
	CmdKindWritePrecharge
	CmdKindPrecharge
	CmdKindRefresh
	CmdKindData
	NumCmdKind
)

var cmdKindNames = [NumCmdKind]string{
	"ACT", "READ", "READ_P", "WRITE", "WRITE_P", "PRE", "REF", "DATA",
}

func (k CommandKind) String() string {
	if k < 0 || k >= NumCmdKind {
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}

	return cmdKindNames[k]
}

// IsRead returns true for READ and READ_P.
func (k CommandKind) IsRead() bool {
	return k == CmdKindRead || k == CmdKindReadPrecharge
}

// IsWrite returns true for WRITE and WRITE_P.
func (k CommandKind) IsWrite() bool {
	return k == CmdKindWrite || k == CmdKindWritePrecharge
}

// IsColumn returns true for column access commands.
func (k CommandKind) IsColumn() bool {
	return k.IsRead() || k.IsWrite()
}

// IsAutoPrecharge returns true for READ_P and WRITE_P.
func (k CommandKind) IsAutoPrecharge() bool {
	return k == CmdKindReadPrecharge || k == CmdKindWritePrecharge
}

// A Command is a signal sent over the command bus or, for DATA, over the
// data bus.
type Command struct {
	Kind     CommandKind
	Location addressmapping.Location
	Address  uint64
	Data     []byte
	Len      int

	// Transaction is the transaction that the command was created for. An
	// ACT and the column command that follows it share the same value.
	Transaction arena.Handle
}

func (c Command) String() string {
	return fmt.Sprintf("%s 0x%x c%d r%d b%d row%d col%d",
		c.Kind, c.Address, c.Location.Channel, c.Location.Rank,
		c.Location.Bank, c.Location.Row, c.Location.Column)
}
