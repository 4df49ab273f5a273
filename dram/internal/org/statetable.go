package org

import (
	"log"

	"github.com/sarchlab/dramsim/config"
	"github.com/sarchlab/dramsim/dram/internal/signal"
)

// StateTable holds the state of every bank of every rank in a channel.
type StateTable struct {
	cfg   *config.Config
	banks [][]BankState
}

// NewStateTable creates a table with all banks idle.
func NewStateTable(cfg *config.Config) *StateTable {
	t := &StateTable{cfg: cfg}

	t.banks = make([][]BankState, cfg.NumRanks)
	for i := range t.banks {
		t.banks[i] = make([]BankState, cfg.NumBanks)
		for j := range t.banks[i] {
			t.banks[i][j].Reset()
		}
	}

	return t
}

// NumRanks returns the number of ranks in the table.
func (t *StateTable) NumRanks() int { return len(t.banks) }

// NumBanks returns the number of banks per rank.
func (t *StateTable) NumBanks() int { return t.cfg.NumBanks }

// Bank returns the state of a bank.
func (t *StateTable) Bank(rank, bank int) *BankState {
	return &t.banks[rank][bank]
}

// Rank returns the states of all banks of a rank.
func (t *StateTable) Rank(rank int) []BankState {
	return t.banks[rank]
}

// Age counts down the implicit state changes by one cycle. An auto-precharge
// turns into a precharge, and a precharge or refresh ends in Idle.
func (t *StateTable) Age() {
	for i := range t.banks {
		for j := range t.banks[i] {
			b := &t.banks[i][j]
			if b.StateChangeCountdown <= 0 {
				continue
			}

			b.StateChangeCountdown--
			if b.StateChangeCountdown > 0 {
				continue
			}

			switch b.LastCommand {
			case signal.CmdKindReadPrecharge, signal.CmdKindWritePrecharge:
				b.CurrentState = BankStatePrecharging
				b.LastCommand = signal.CmdKindPrecharge
				b.StateChangeCountdown = t.cfg.TRP
			case signal.CmdKindRefresh, signal.CmdKindPrecharge:
				b.CurrentState = BankStateIdle
			}
		}
	}
}

// IsIssuable checks the bank state and timing constraints of cmd. Limits
// that live in the command queue, the tFAW window and the row access cap,
// are not checked here.
func (t *StateTable) IsIssuable(cmd *signal.Command, now uint64) bool {
	b := t.Bank(cmd.Location.Rank, cmd.Location.Bank)

	switch cmd.Kind {
	case signal.CmdKindActivate:
		return (b.CurrentState == BankStateIdle ||
			b.CurrentState == BankStateRefreshing) &&
			now >= b.NextActivate
	case signal.CmdKindRead, signal.CmdKindReadPrecharge:
		return b.CurrentState == BankStateRowActive &&
			now >= b.NextRead &&
			cmd.Location.Row == b.OpenRow
	case signal.CmdKindWrite, signal.CmdKindWritePrecharge:
		return b.CurrentState == BankStateRowActive &&
			now >= b.NextWrite &&
			cmd.Location.Row == b.OpenRow
	case signal.CmdKindPrecharge:
		return b.CurrentState == BankStateRowActive &&
			now >= b.NextPrecharge
	case signal.CmdKindRefresh:
		return true
	}

	log.Panicf("cannot check issuability of %s", cmd.Kind)

	return false
}

// Apply updates the table for a command issued at cycle now.
func (t *StateTable) Apply(cmd *signal.Command, now uint64) {
	switch {
	case cmd.Kind.IsRead():
		t.applyRead(cmd, now)
	case cmd.Kind.IsWrite():
		t.applyWrite(cmd, now)
	case cmd.Kind == signal.CmdKindActivate:
		t.applyActivate(cmd, now)
	case cmd.Kind == signal.CmdKindPrecharge:
		t.applyPrecharge(cmd, now)
	case cmd.Kind == signal.CmdKindRefresh:
		t.applyRefresh(cmd, now)
	default:
		log.Panicf("popped a command that cannot be issued: %s", cmd)
	}
}

func (t *StateTable) applyRead(cmd *signal.Command, now uint64) {
	c := t.cfg
	rank := cmd.Location.Rank
	b := t.Bank(rank, cmd.Location.Bank)

	b.LastCommand = cmd.Kind
	if cmd.Kind == signal.CmdKindReadPrecharge {
		raise(&b.NextActivate, After(now, c.ReadAutoPreDelay()))
		b.StateChangeCountdown = c.ReadToPreDelay()
	} else {
		raise(&b.NextPrecharge, After(now, c.ReadToPreDelay()))
	}

	for i := range t.banks {
		for j := range t.banks[i] {
			o := &t.banks[i][j]
			if i != rank {
				if o.CurrentState == BankStateRowActive {
					raise(&o.NextRead, After(now, c.BL/2+c.TRTRS))
					raise(&o.NextWrite, After(now, c.ReadToWriteDelay()))
				}

				continue
			}

			raise(&o.NextRead, After(now, max(c.TCCD, c.BL/2)))
			raise(&o.NextWrite, After(now, c.ReadToWriteDelay()))
		}
	}

	if cmd.Kind == signal.CmdKindReadPrecharge {
		b.NextRead = b.NextActivate
		b.NextWrite = b.NextActivate
	}
}

func (t *StateTable) applyWrite(cmd *signal.Command, now uint64) {
	c := t.cfg
	rank := cmd.Location.Rank
	b := t.Bank(rank, cmd.Location.Bank)

	b.LastCommand = cmd.Kind
	if cmd.Kind == signal.CmdKindWritePrecharge {
		raise(&b.NextActivate, After(now, c.WriteAutoPreDelay()))
		b.StateChangeCountdown = c.WriteToPreDelay()
	} else {
		raise(&b.NextPrecharge, After(now, c.WriteToPreDelay()))
	}

	for i := range t.banks {
		for j := range t.banks[i] {
			o := &t.banks[i][j]
			if i != rank {
				if o.CurrentState == BankStateRowActive {
					raise(&o.NextWrite, After(now, c.BL/2+c.TRTRS))
					raise(&o.NextRead, After(now, c.WriteToReadDelayRank()))
				}

				continue
			}

			raise(&o.NextWrite, After(now, max(c.BL/2, c.TCCD)))
			raise(&o.NextRead, After(now, c.WriteToReadDelayBank()))
		}
	}

	if cmd.Kind == signal.CmdKindWritePrecharge {
		b.NextRead = b.NextActivate
		b.NextWrite = b.NextActivate
	}
}

func (t *StateTable) applyActivate(cmd *signal.Command, now uint64) {
	c := t.cfg
	rank, bank := cmd.Location.Rank, cmd.Location.Bank
	b := t.Bank(rank, bank)

	b.CurrentState = BankStateRowActive
	b.LastCommand = signal.CmdKindActivate
	b.OpenRow = cmd.Location.Row
	raise(&b.NextActivate, After(now, c.TRC))
	raise(&b.NextPrecharge, After(now, c.TRAS))
	raise(&b.NextRead, After(now, c.TRCD-c.AL))
	raise(&b.NextWrite, After(now, c.TRCD-c.AL))

	for j := range t.banks[rank] {
		if j != bank {
			raise(&t.banks[rank][j].NextActivate, After(now, c.TRRD))
		}
	}
}

func (t *StateTable) applyPrecharge(cmd *signal.Command, now uint64) {
	b := t.Bank(cmd.Location.Rank, cmd.Location.Bank)

	b.CurrentState = BankStatePrecharging
	b.LastCommand = signal.CmdKindPrecharge
	b.StateChangeCountdown = t.cfg.TRP
	raise(&b.NextActivate, After(now, t.cfg.TRP))
}

func (t *StateTable) applyRefresh(cmd *signal.Command, now uint64) {
	for j := range t.banks[cmd.Location.Rank] {
		b := &t.banks[cmd.Location.Rank][j]
		b.NextActivate = After(now, t.cfg.TRFC)
		b.CurrentState = BankStateRefreshing
		b.LastCommand = signal.CmdKindRefresh
		b.StateChangeCountdown = t.cfg.TRFC
	}
}

// AllIdle returns true if every bank of the rank is Idle.
func (t *StateTable) AllIdle(rank int) bool {
	for _, b := range t.banks[rank] {
		if b.CurrentState != BankStateIdle {
			return false
		}
	}

	return true
}

// AnyActive returns true if a bank of the rank has an open row or is
// refreshing.
func (t *StateTable) AnyActive(rank int) bool {
	for _, b := range t.banks[rank] {
		if b.CurrentState == BankStateRowActive ||
			b.CurrentState == BankStateRefreshing {
			return true
		}
	}

	return false
}

// PowerDown marks every bank of the rank as powered down.
func (t *StateTable) PowerDown(rank int, now uint64) {
	for j := range t.banks[rank] {
		b := &t.banks[rank][j]
		b.CurrentState = BankStatePowerDown
		b.NextPowerUp = After(now, t.cfg.TCKE)
	}
}

// CanPowerUp returns true if the rank has been powered down for long enough.
func (t *StateTable) CanPowerUp(rank int, now uint64) bool {
	return now >= t.banks[rank][0].NextPowerUp
}

// PowerUp returns every bank of the rank to Idle.
func (t *StateTable) PowerUp(rank int, now uint64) {
	for j := range t.banks[rank] {
		b := &t.banks[rank][j]
		b.CurrentState = BankStateIdle
		b.NextActivate = After(now, t.cfg.TXP)
	}
}
