// Package dram provides a cycle-accurate model of a DRAM memory system.
//
// A System is made of one Controller per channel. Each controller owns the
// ranks of its channel and turns read and write transactions into DRAM
// commands that honor the timing of the configured device.
package dram

import (
	"log"

	"github.com/sarchlab/dramsim/config"
	"github.com/sarchlab/dramsim/dram/internal/addressmapping"
	"github.com/sarchlab/dramsim/dram/internal/signal"
)

// System is a memory system with one or more channels.
type System struct {
	name        string
	cfg         *config.Config
	mapper      addressmapping.Mapper
	controllers []*Controller

	// overflow holds, per channel, the transactions that the full channel
	// refused while buffering is enabled, oldest first.
	overflow [][]signal.Transaction

	cycle uint64
}

// Name returns the name of the system.
func (s *System) Name() string {
	return s.name
}

// Config returns the configuration the system was built with.
func (s *System) Config() *config.Config {
	return s.cfg
}

// Controllers returns the controllers, indexed by channel.
func (s *System) Controllers() []*Controller {
	return s.controllers
}

// CurrentCycle returns the number of DRAM cycles simulated.
func (s *System) CurrentCycle() uint64 {
	return s.cycle
}

// NumOverflow returns the number of transactions waiting to enter a full
// channel.
func (s *System) NumOverflow() int {
	n := 0
	for _, waiting := range s.overflow {
		n += len(waiting)
	}

	return n
}

// AddTransaction adds a read or a write without data.
func (s *System) AddTransaction(isWrite bool, addr uint64) bool {
	return s.AddTransactionWithData(isWrite, addr, nil, s.cycle)
}

// AddTransactionWithData adds a transaction that drives every device of a
// rank. The address is aligned down to the transaction size. It returns
// false if the channel cannot take the transaction. With buffering enabled a
// refused transaction is kept in the system and true is returned. A
// transaction never overtakes one that is still waiting for the same
// channel.
func (s *System) AddTransactionWithData(
	isWrite bool,
	addr uint64,
	data []byte,
	traced uint64,
) bool {
	return s.AddSizedTransaction(isWrite, addr, data, 0, traced)
}

// AddSizedTransaction is AddTransactionWithData for a transaction that
// drives length devices of a rank. The burst and activate energy scale with
// the length. A length of zero means all devices.
func (s *System) AddSizedTransaction(
	isWrite bool,
	addr uint64,
	data []byte,
	length int,
	traced uint64,
) bool {
	if length <= 0 {
		length = s.cfg.NumDevices()
	}

	t := signal.Transaction{
		Type:       signal.TransactionTypeRead,
		Address:    signal.AlignAddress(addr, s.cfg.TransDataBytes()),
		Data:       data,
		Len:        length,
		TimeTraced: traced,
	}

	if isWrite {
		t.Type = signal.TransactionTypeWrite
	}

	ch := s.channelOf(t.Address)

	if len(s.overflow[ch]) == 0 && s.controllers[ch].AddTransaction(t) {
		return true
	}

	if s.cfg.MSBuffer {
		s.overflow[ch] = append(s.overflow[ch], t)
		return true
	}

	return false
}

// WillAcceptTransaction checks if the channel of addr can take a
// transaction.
func (s *System) WillAcceptTransaction(addr uint64) bool {
	ch := s.channelOf(addr)

	return len(s.overflow[ch]) == 0 && s.controllers[ch].CanAcceptTransaction()
}

// WillAcceptAny checks if every channel can take a transaction, so that a
// transaction to any address would be accepted.
func (s *System) WillAcceptAny() bool {
	for ch, c := range s.controllers {
		if len(s.overflow[ch]) > 0 || !c.CanAcceptTransaction() {
			return false
		}
	}

	return true
}

// RegisterCallbacks sets the functions called when a read or a write
// completes and when the power of a rank is reported. Any of them can be
// nil.
func (s *System) RegisterCallbacks(
	read, write TransactionCallback,
	power PowerCallback,
) {
	for _, c := range s.controllers {
		c.readDone = read
		c.writeDone = write
		c.reportPower = power
	}
}

// Update runs one DRAM cycle of every channel.
func (s *System) Update() {
	for ch, c := range s.controllers {
		s.drainOverflow(ch)
		c.Tick()
	}

	s.cycle++
}

// drainOverflow moves the refused transactions of channel ch into the
// channel, oldest first, while it has room.
func (s *System) drainOverflow(ch int) {
	waiting := s.overflow[ch]

	for len(waiting) > 0 && s.controllers[ch].AddTransaction(waiting[0]) {
		waiting = waiting[1:]
	}

	s.overflow[ch] = waiting
}

// PrintStats ends the current epoch of every channel. The reports go to the
// epoch end hooks, which print them if a ReportPrinter is attached.
func (s *System) PrintStats(final bool) []EpochReport {
	reports := make([]EpochReport, 0, len(s.controllers))
	for _, c := range s.controllers {
		reports = append(reports, c.report(final))
	}

	return reports
}

func (s *System) channelOf(addr uint64) int {
	ch := s.mapper.Map(addr).Channel
	if ch >= len(s.controllers) {
		log.Panicf("address 0x%x maps to channel %d, but only %d exist",
			addr, ch, len(s.controllers))
	}

	return ch
}
