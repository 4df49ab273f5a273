// Package org tracks the timing state of the banks of a channel.
package org

import (
	"fmt"

	"github.com/sarchlab/dramsim/dram/internal/signal"
)

// BankCurrentState is the state of the row buffer of a bank.
type BankCurrentState int

// A list of bank states.
const (
	BankStateIdle BankCurrentState = iota
	BankStateRowActive
	BankStatePrecharging
	BankStateRefreshing
	BankStatePowerDown
)

func (s BankCurrentState) String() string {
	switch s {
	case BankStateIdle:
		return "Idle"
	case BankStateRowActive:
		return "RowActive"
	case BankStatePrecharging:
		return "Precharging"
	case BankStateRefreshing:
		return "Refreshing"
	case BankStatePowerDown:
		return "PowerDown"
	}

	return fmt.Sprintf("BankCurrentState(%d)", int(s))
}

// BankState is the controller's view of a bank. The Next* fields are the
// earliest cycles at which a command of that kind may be issued.
type BankState struct {
	CurrentState BankCurrentState
	OpenRow      int
	LastCommand  signal.CommandKind

	NextRead      uint64
	NextWrite     uint64
	NextActivate  uint64
	NextPrecharge uint64
	NextPowerUp   uint64

	StateChangeCountdown int
}

// Reset returns the bank to its power-on state.
func (b *BankState) Reset() {
	*b = BankState{LastCommand: signal.CmdKindRead}
}

func (b BankState) String() string {
	if b.CurrentState == BankStateRowActive {
		return fmt.Sprintf("[%d]", b.OpenRow)
	}

	switch b.CurrentState {
	case BankStateIdle:
		return "[idle]"
	case BankStatePrecharging:
		return "[pre]"
	case BankStateRefreshing:
		return "[ref]"
	case BankStatePowerDown:
		return "[lowp]"
	}

	return "[?]"
}

// After returns now+delay, clamped at zero.
func After(now uint64, delay int) uint64 {
	if delay < 0 && uint64(-delay) > now {
		return 0
	}

	return uint64(int64(now) + int64(delay))
}

// raise moves *t to v if v is later.
func raise(t *uint64, v uint64) {
	if v > *t {
		*t = v
	}
}
