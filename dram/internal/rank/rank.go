// Package rank models the devices of a rank that sit behind the command and
// data buses of a channel.
package rank

import (
	"log"

	"github.com/sarchlab/dramsim/config"
	"github.com/sarchlab/dramsim/dram/internal/ecc"
	"github.com/sarchlab/dramsim/dram/internal/org"
	"github.com/sarchlab/dramsim/dram/internal/signal"
	"github.com/sarchlab/dramsim/dram/internal/storage"
)

// A DataSink receives the read data a rank drives onto the data bus.
type DataSink interface {
	ReceiveFromBus(cmd signal.Command)
}

// A Rank executes the commands it receives from the bus.
type Rank interface {
	// Receive delivers a command at cycle now. Commands that the rank's
	// own view of its banks does not allow are fatal.
	Receive(cmd signal.Command, now uint64)

	// Tick advances the read return pipeline by one cycle.
	Tick()

	PowerDown(now uint64)
	PowerUp(now uint64)
	IsPoweredDown() bool
}

type pendingReturn struct {
	cmd       signal.Command
	countdown int
}

// RankImpl is the default Rank.
type RankImpl struct {
	ID int

	cfg   *config.Config
	sink  DataSink
	store storage.Store
	codec ecc.Codec
	banks []org.BankState

	isPowerDown bool

	returns        []pendingReturn
	outgoing       *signal.Command
	dataCyclesLeft int

	correctedWords     uint64
	uncorrectableReads uint64
}

// NewRank creates a rank whose storage and check bits follow the modes of
// cfg.
func NewRank(id int, cfg *config.Config, sink DataSink) *RankImpl {
	r := &RankImpl{
		ID:    id,
		cfg:   cfg,
		sink:  sink,
		store: storage.New(cfg),
		codec: ecc.New(cfg),
		banks: make([]org.BankState, cfg.NumBanks),
	}

	for i := range r.banks {
		r.banks[i].Reset()
	}

	return r
}

// Bank returns the rank's own view of a bank.
func (r *RankImpl) Bank(bank int) *org.BankState {
	return &r.banks[bank]
}

// IsPoweredDown returns true between PowerDown and PowerUp.
func (r *RankImpl) IsPoweredDown() bool {
	return r.isPowerDown
}

// ECCStats returns the number of corrected words and the number of reads
// that carried an uncorrectable word.
func (r *RankImpl) ECCStats() (corrected, uncorrectable uint64) {
	return r.correctedWords, r.uncorrectableReads
}

// Receive executes a command.
func (r *RankImpl) Receive(cmd signal.Command, now uint64) {
	switch cmd.Kind {
	case signal.CmdKindRead, signal.CmdKindReadPrecharge:
		r.read(cmd, now)
	case signal.CmdKindWrite, signal.CmdKindWritePrecharge:
		r.write(cmd, now)
	case signal.CmdKindActivate:
		r.activate(cmd, now)
	case signal.CmdKindPrecharge:
		r.precharge(cmd, now)
	case signal.CmdKindRefresh:
		r.refresh(cmd, now)
	case signal.CmdKindData:
		r.storeData(cmd)
	default:
		log.Panicf("rank %d received unknown command %s", r.ID, cmd)
	}
}

func (r *RankImpl) mustBeOpen(cmd signal.Command, now, next uint64) {
	b := &r.banks[cmd.Location.Bank]
	if b.CurrentState != org.BankStateRowActive ||
		now < next ||
		cmd.Location.Row != b.OpenRow {
		log.Panicf("rank %d received %s at cycle %d when not allowed, bank %s",
			r.ID, cmd, now, b)
	}
}

func (r *RankImpl) read(cmd signal.Command, now uint64) {
	c := r.cfg
	b := &r.banks[cmd.Location.Bank]
	r.mustBeOpen(cmd, now, b.NextRead)

	if cmd.Kind == signal.CmdKindReadPrecharge {
		b.CurrentState = org.BankStateIdle
		b.NextActivate = max(b.NextActivate, org.After(now, c.ReadAutoPreDelay()))
	} else {
		b.NextPrecharge = max(b.NextPrecharge, org.After(now, c.ReadToPreDelay()))
	}

	for i := range r.banks {
		o := &r.banks[i]
		o.NextRead = max(o.NextRead, org.After(now, max(c.TCCD, c.BL/2)))
		o.NextWrite = max(o.NextWrite, org.After(now, c.ReadToWriteDelay()))
	}

	ret := cmd
	ret.Kind = signal.CmdKindData
	ret.Data = r.loadData(cmd)

	r.returns = append(r.returns, pendingReturn{cmd: ret, countdown: c.RL()})
}

func (r *RankImpl) loadData(cmd signal.Command) []byte {
	n := r.codec.StoredSize(r.cfg.TransDataBytes())

	stored, err := r.store.Read(cmd.Location, n)
	if err != nil {
		log.Panicf("rank %d cannot read %s: %v", r.ID, cmd, err)
	}

	data, corrected, err := r.codec.Decode(stored)
	r.correctedWords += uint64(corrected)

	if err != nil {
		r.uncorrectableReads++
		log.Printf("rank %d: %v in data read by %s", r.ID, err, cmd)
	}

	return data
}

func (r *RankImpl) write(cmd signal.Command, now uint64) {
	c := r.cfg
	b := &r.banks[cmd.Location.Bank]
	r.mustBeOpen(cmd, now, b.NextWrite)

	if cmd.Kind == signal.CmdKindWritePrecharge {
		b.CurrentState = org.BankStateIdle
		b.NextActivate = max(b.NextActivate, org.After(now, c.WriteAutoPreDelay()))
	} else {
		b.NextPrecharge = max(b.NextPrecharge, org.After(now, c.WriteToPreDelay()))
	}

	for i := range r.banks {
		o := &r.banks[i]
		o.NextRead = max(o.NextRead, org.After(now, c.WriteToReadDelayBank()))
		o.NextWrite = max(o.NextWrite, org.After(now, max(c.TCCD, c.BL/2)))
	}
}

func (r *RankImpl) activate(cmd signal.Command, now uint64) {
	c := r.cfg
	b := &r.banks[cmd.Location.Bank]

	if b.CurrentState != org.BankStateIdle || now < b.NextActivate {
		log.Panicf("rank %d received %s at cycle %d when not allowed, bank %s",
			r.ID, cmd, now, b)
	}

	b.CurrentState = org.BankStateRowActive
	b.OpenRow = cmd.Location.Row
	b.NextActivate = org.After(now, c.TRC)
	b.NextPrecharge = org.After(now, c.TRAS)
	b.NextRead = org.After(now, c.TRCD-c.AL)
	b.NextWrite = org.After(now, c.TRCD-c.AL)

	for i := range r.banks {
		if i != cmd.Location.Bank {
			o := &r.banks[i]
			o.NextActivate = max(o.NextActivate, org.After(now, c.TRRD))
		}
	}
}

func (r *RankImpl) precharge(cmd signal.Command, now uint64) {
	b := &r.banks[cmd.Location.Bank]

	if b.CurrentState != org.BankStateRowActive || now < b.NextPrecharge {
		log.Panicf("rank %d received %s at cycle %d when not allowed, bank %s",
			r.ID, cmd, now, b)
	}

	b.CurrentState = org.BankStateIdle
	b.NextActivate = max(b.NextActivate, org.After(now, r.cfg.TRP))
}

func (r *RankImpl) refresh(cmd signal.Command, now uint64) {
	for i := range r.banks {
		b := &r.banks[i]
		if b.CurrentState != org.BankStateIdle {
			log.Panicf("rank %d received %s at cycle %d while bank %d is %s",
				r.ID, cmd, now, i, b)
		}

		b.NextActivate = org.After(now, r.cfg.TRFC)
	}
}

func (r *RankImpl) storeData(cmd signal.Command) {
	payload := make([]byte, r.cfg.TransDataBytes())
	copy(payload, cmd.Data)

	err := r.store.Write(cmd.Location, r.codec.Encode(payload))
	if err != nil {
		log.Panicf("rank %d cannot write %s: %v", r.ID, cmd, err)
	}
}

// Tick moves read data along. Data is driven onto the bus RL cycles after
// the read and is delivered after occupying the bus for BL/2 cycles.
func (r *RankImpl) Tick() {
	if r.outgoing != nil {
		r.dataCyclesLeft--
		if r.dataCyclesLeft == 0 {
			r.sink.ReceiveFromBus(*r.outgoing)
			r.outgoing = nil
		}
	}

	for i := range r.returns {
		r.returns[i].countdown--
	}

	if len(r.returns) == 0 || r.returns[0].countdown > 0 {
		return
	}

	if r.outgoing != nil {
		log.Panicf("rank %d drives %s while the data bus is busy with %s",
			r.ID, r.returns[0].cmd, r.outgoing)
	}

	cmd := r.returns[0].cmd
	r.outgoing = &cmd
	r.dataCyclesLeft = r.cfg.BL / 2
	r.returns = r.returns[1:]
}

// PowerDown puts every bank to power down. All banks must be idle.
func (r *RankImpl) PowerDown(now uint64) {
	for i := range r.banks {
		b := &r.banks[i]
		if b.CurrentState != org.BankStateIdle {
			log.Panicf("rank %d powers down at cycle %d while bank %d is %s",
				r.ID, now, i, b)
		}

		b.NextPowerUp = org.After(now, r.cfg.TCKE)
		b.CurrentState = org.BankStatePowerDown
	}

	r.isPowerDown = true
}

// PowerUp wakes the rank. It must have been powered down for at least tCKE
// cycles.
func (r *RankImpl) PowerUp(now uint64) {
	if !r.isPowerDown {
		log.Panicf("rank %d powers up at cycle %d while not powered down",
			r.ID, now)
	}

	r.isPowerDown = false

	for i := range r.banks {
		b := &r.banks[i]
		if b.NextPowerUp > now {
			log.Panicf("rank %d powers up at cycle %d, before cycle %d",
				r.ID, now, b.NextPowerUp)
		}

		b.NextActivate = org.After(now, r.cfg.TXP)
		b.CurrentState = org.BankStateIdle
	}
}
