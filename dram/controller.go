package dram

import (
	"fmt"
	"log"

	"github.com/sarchlab/dramsim/config"
	"github.com/sarchlab/dramsim/dram/internal/addressmapping"
	"github.com/sarchlab/dramsim/dram/internal/arena"
	"github.com/sarchlab/dramsim/dram/internal/cmdq"
	"github.com/sarchlab/dramsim/dram/internal/org"
	"github.com/sarchlab/dramsim/dram/internal/rank"
	"github.com/sarchlab/dramsim/dram/internal/signal"
	"github.com/sarchlab/dramsim/dram/internal/stats"
	"github.com/sarchlab/dramsim/hooking"
	"github.com/sarchlab/dramsim/queueing"
)

// HookPosCommandIssue marks a command being put on the command bus. The
// item is the Command.
var HookPosCommandIssue = &hooking.HookPos{Name: "Command Issue"}

// HookPosTransactionComplete marks the completion of a transaction. The item
// is a Completion.
var HookPosTransactionComplete = &hooking.HookPos{Name: "Transaction Complete"}

// HookPosEpochEnd marks the end of a statistics epoch. The item is an
// EpochReport.
var HookPosEpochEnd = &hooking.HookPos{Name: "Epoch End"}

// TransactionCallback is called when a transaction completes. The cycle is
// the DRAM cycle of the completion.
type TransactionCallback func(channel int, address, cycle uint64)

// PowerCallback receives the average power of a rank at the end of an
// epoch, in watts.
type PowerCallback func(
	channel, rank int,
	background, burst, refresh, actPre float64,
)

// A Completion describes a finished transaction.
type Completion struct {
	Channel int
	Address uint64
	IsWrite bool

	// Data holds the returned bytes of a read.
	Data []byte

	// Latency is the number of DRAM cycles between the arrival of a read at
	// the controller and the return of its data. It is zero for writes.
	Latency uint64
}

type pendingWrite struct {
	cmd       signal.Command
	countdown int
}

// Controller is the memory controller of a channel. It splits transactions
// into DRAM commands, drives the command and data buses of its ranks and
// collects the statistics of the channel.
type Controller struct {
	hooking.HookableBase

	name    string
	channel int
	cfg     *config.Config
	mapper  addressmapping.Mapper

	bankStates *org.StateTable
	cmdQueue   cmdq.CommandQueue
	ranks      []rank.Rank

	transactions *arena.Arena[signal.Transaction]
	transQueue   *queueing.FIFO[arena.Handle]
	pendingReads *queueing.FIFO[arena.Handle]
	returnQueue  *queueing.FIFO[signal.Command]

	outgoingCmd    *signal.Command
	cmdCyclesLeft  int
	outgoingData   *signal.Command
	dataCyclesLeft int
	writeData      []pendingWrite

	refreshCountdown []int
	refreshRank      int
	powerDown        []bool

	counters *stats.Counters

	readDone    TransactionCallback
	writeDone   TransactionCallback
	reportPower PowerCallback

	cycle uint64
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// Channel returns the index of the channel that the controller drives.
func (c *Controller) Channel() int {
	return c.channel
}

// Cycle returns the number of DRAM cycles the controller has run.
func (c *Controller) Cycle() uint64 {
	return c.cycle
}

// CanAcceptTransaction returns true if the transaction queue has room.
func (c *Controller) CanAcceptTransaction() bool {
	return c.transQueue.CanPush()
}

// NumPendingReads returns the number of reads waiting for their data.
func (c *Controller) NumPendingReads() int {
	return c.pendingReads.Size()
}

// Buffers returns the queues of the controller.
func (c *Controller) Buffers() []queueing.Buffer {
	return []queueing.Buffer{c.transQueue, c.pendingReads, c.returnQueue}
}

// ECCStats sums the corrected words and uncorrectable reads of all ranks.
func (c *Controller) ECCStats() (corrected, uncorrectable uint64) {
	for _, r := range c.ranks {
		e, ok := r.(interface{ ECCStats() (uint64, uint64) })
		if !ok {
			continue
		}

		a, b := e.ECCStats()
		corrected += a
		uncorrectable += b
	}

	return corrected, uncorrectable
}

// Snapshot summarizes the current epoch without ending it.
func (c *Controller) Snapshot() EpochReport {
	return c.counters.Report(c.channel, c.cycle, c.pendingReads.Size(), false)
}

// AddTransaction puts a transaction into the transaction queue. It returns
// false if the queue is full.
func (c *Controller) AddTransaction(t signal.Transaction) bool {
	if !c.transQueue.CanPush() {
		return false
	}

	t.TimeAdded = c.cycle
	c.transQueue.Push(c.transactions.Alloc(t))

	return true
}

// ReceiveFromBus accepts the read data that a rank returns.
func (c *Controller) ReceiveFromBus(cmd signal.Command) {
	if cmd.Kind != signal.CmdKindData {
		log.Panicf("%s received a non-data command from a rank: %s",
			c.name, cmd)
	}

	c.returnQueue.Push(cmd)
}

// Tick runs one DRAM cycle. The ranks move first, so that data they return
// in this cycle can be matched in this cycle.
func (c *Controller) Tick() {
	for _, r := range c.ranks {
		r.Tick()
	}

	c.bankStates.Age()
	c.updateBuses()
	c.updateWriteData()
	c.updateRefresh()
	c.issueCommand()
	c.admitTransaction()
	c.returnTransaction()
	c.updatePower()
	c.endEpoch()

	c.cycle++
}

func (c *Controller) updateBuses() {
	if c.outgoingCmd != nil {
		c.cmdCyclesLeft--
		if c.cmdCyclesLeft == 0 {
			cmd := *c.outgoingCmd
			c.outgoingCmd = nil
			c.ranks[cmd.Location.Rank].Receive(cmd, c.cycle)
		}
	}

	if c.outgoingData != nil {
		c.dataCyclesLeft--
		if c.dataCyclesLeft == 0 {
			data := *c.outgoingData
			c.outgoingData = nil
			c.ranks[data.Location.Rank].Receive(data, c.cycle)
			c.completeWrite(data)
		}
	}
}

// updateWriteData sends the data of a write onto the data bus WL cycles
// after the write command.
func (c *Controller) updateWriteData() {
	if len(c.writeData) == 0 {
		return
	}

	for i := range c.writeData {
		c.writeData[i].countdown--
	}

	if c.writeData[0].countdown > 0 {
		return
	}

	data := c.writeData[0].cmd
	if c.outgoingData != nil {
		log.Panicf("%s data bus collision at cycle %d: %s and %s",
			c.name, c.cycle, c.outgoingData, data)
	}

	c.outgoingData = &data
	c.dataCyclesLeft = c.cfg.BL / 2
	c.counters.AddWrite(data.Location.Rank, data.Location.Bank)
	c.writeData = c.writeData[1:]
}

func (c *Controller) updateRefresh() {
	if c.refreshCountdown[c.refreshRank] == 0 {
		c.cmdQueue.NeedRefresh(c.refreshRank)
		c.refreshCountdown[c.refreshRank] = c.cfg.RefreshCycles()
		c.refreshRank = (c.refreshRank + 1) % len(c.refreshCountdown)
	}

	for i := range c.refreshCountdown {
		c.refreshCountdown[i]--
	}
}

func (c *Controller) issueCommand() {
	cmd, ok := c.cmdQueue.Pop(c.cycle)
	if !ok {
		return
	}

	cmd.Location.Channel = c.channel

	if cmd.Kind.IsWrite() {
		data := cmd
		data.Kind = signal.CmdKindData
		c.writeData = append(c.writeData, pendingWrite{
			cmd:       data,
			countdown: c.cfg.WL(),
		})
	}

	c.bankStates.Apply(&cmd, c.cycle)
	c.counters.AddCommand(&cmd)

	if c.outgoingCmd != nil {
		log.Panicf("%s command bus collision at cycle %d: %s and %s",
			c.name, c.cycle, c.outgoingCmd, cmd)
	}

	c.outgoingCmd = &cmd
	c.cmdCyclesLeft = c.cfg.TCMD

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Now:    c.cycle,
		Pos:    HookPosCommandIssue,
		Item:   cmd,
	})
}

// admitTransaction splits the oldest transaction whose bank has room into an
// activate and a column command. At most one transaction is admitted per
// cycle.
func (c *Controller) admitTransaction() {
	for i := 0; i < c.transQueue.Size(); i++ {
		h := c.transQueue.At(i)
		t := c.transactions.Get(h)
		loc := c.mapper.Map(t.Address)

		if !c.cmdQueue.HasRoomFor(2, loc.Rank, loc.Bank) {
			continue
		}

		c.transQueue.RemoveAt(i)

		act := signal.Command{
			Kind:        signal.CmdKindActivate,
			Location:    loc,
			Address:     t.Address,
			Data:        t.Data,
			Len:         t.Len,
			Transaction: h,
		}
		column := act
		column.Kind = c.columnCommandKind(t)

		c.cmdQueue.Enqueue(act)
		c.cmdQueue.Enqueue(column)

		if t.IsRead() {
			c.pendingReads.Push(h)
		} else {
			c.transactions.Free(h)
		}

		return
	}
}

func (c *Controller) columnCommandKind(t *signal.Transaction) signal.CommandKind {
	closePage := c.cfg.RowBufferPolicy == config.ClosePage

	switch {
	case t.IsRead() && closePage:
		return signal.CmdKindReadPrecharge
	case t.IsRead():
		return signal.CmdKindRead
	case t.IsWrite() && closePage:
		return signal.CmdKindWritePrecharge
	case t.IsWrite():
		return signal.CmdKindWrite
	}

	log.Panicf("%s cannot split a %s transaction", c.name, t.Type)

	return 0
}

// returnTransaction matches one returned data with the pending read of the
// same address.
func (c *Controller) returnTransaction() {
	data, ok := c.returnQueue.Pop()
	if !ok {
		return
	}

	for i, h := range c.pendingReads.Elements() {
		t := c.transactions.Get(h)
		if t.Address != data.Address {
			continue
		}

		c.pendingReads.RemoveAt(i)

		latency := c.cycle - t.TimeAdded
		c.counters.AddRead(data.Location.Rank, data.Location.Bank, latency)
		c.transactions.Free(h)

		if c.readDone != nil {
			c.readDone(c.channel, data.Address, c.cycle)
		}

		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Now:    c.cycle,
			Pos:    HookPosTransactionComplete,
			Item: Completion{
				Channel: c.channel,
				Address: data.Address,
				Data:    data.Data,
				Latency: latency,
			},
		})

		return
	}

	log.Panicf("%s cannot find a pending read for 0x%x", c.name, data.Address)
}

func (c *Controller) completeWrite(data signal.Command) {
	if c.writeDone != nil {
		c.writeDone(c.channel, data.Address, c.cycle)
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Now:    c.cycle,
		Pos:    HookPosTransactionComplete,
		Item: Completion{
			Channel: c.channel,
			Address: data.Address,
			IsWrite: true,
		},
	})
}

func (c *Controller) updatePower() {
	for r := range c.ranks {
		if c.cfg.UseLowPower {
			c.manageRankPower(r)
		}

		c.counters.AddBackground(r, c.backgroundCurrent(r))
	}
}

func (c *Controller) manageRankPower(r int) {
	quiet := c.cmdQueue.IsEmpty(r) && !c.cmdQueue.RefreshPending(r)

	switch {
	case quiet && c.bankStates.AllIdle(r):
		c.powerDown[r] = true
		c.ranks[r].PowerDown(c.cycle)
		c.bankStates.PowerDown(r, c.cycle)
	case !quiet && c.powerDown[r] && c.bankStates.CanPowerUp(r, c.cycle):
		c.powerDown[r] = false
		c.ranks[r].PowerUp(c.cycle)
		c.bankStates.PowerUp(r, c.cycle)
	}
}

func (c *Controller) backgroundCurrent(r int) int {
	switch {
	case c.bankStates.AnyActive(r):
		return c.cfg.IDD3N
	case c.powerDown[r]:
		return c.cfg.IDD2P
	default:
		return c.cfg.IDD2N
	}
}

func (c *Controller) endEpoch() {
	epoch := c.cfg.EpochLength
	if epoch == 0 || c.cycle == 0 || c.cycle%epoch != 0 {
		return
	}

	c.report(false)
}

// report ends the current epoch. Power callbacks and epoch hooks receive the
// report before the counters are reset.
func (c *Controller) report(final bool) EpochReport {
	r := c.counters.Report(c.channel, c.cycle, c.pendingReads.Size(), final)

	if c.reportPower != nil {
		for _, rr := range r.Ranks {
			c.reportPower(c.channel, rr.Rank,
				rr.BackgroundPower, rr.BurstPower, rr.RefreshPower, rr.ActPrePower)
		}
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Now:    c.cycle,
		Pos:    HookPosEpochEnd,
		Item:   r,
	})

	c.counters.Reset()

	return r
}

func (c *Controller) String() string {
	return fmt.Sprintf("%s@%d", c.name, c.cycle)
}
