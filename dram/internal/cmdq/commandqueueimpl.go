package cmdq

import (
	"log"

	"github.com/sarchlab/dramsim/config"
	"github.com/sarchlab/dramsim/dram/internal/addressmapping"
	"github.com/sarchlab/dramsim/dram/internal/arena"
	"github.com/sarchlab/dramsim/dram/internal/org"
	"github.com/sarchlab/dramsim/dram/internal/signal"
)

// tFAW allows at most this many activates per rank in a window.
const activatesPerFAWWindow = 4

// Queue is an ordered list of queued commands.
type Queue []arena.Handle

// CommandQueueImpl is the default CommandQueue. It schedules commands with
// a round robin over ranks and banks, following the row buffer policy of the
// configuration.
type CommandQueueImpl struct {
	cfg    *config.Config
	states *org.StateTable
	cmds   *arena.Arena[signal.Command]

	// Queues is indexed by rank and then by bank. With a per-rank
	// structure, each rank has a single queue.
	Queues [][]Queue

	rowAccessCounters [][]int
	fawCountdowns     [][]int

	nextRank, nextBank       int
	nextRankPRE, nextBankPRE int
	refreshRank              int
	refreshWaiting           bool
	sendAct                  bool
}

// NewCommandQueue creates a command queue that checks issuability against
// the given bank states.
func NewCommandQueue(
	cfg *config.Config,
	states *org.StateTable,
) *CommandQueueImpl {
	q := &CommandQueueImpl{
		cfg:     cfg,
		states:  states,
		cmds:    arena.New[signal.Command](),
		sendAct: true,
	}

	queuesPerRank := 1
	if cfg.QueuingStructure == config.PerRankPerBank {
		queuesPerRank = cfg.NumBanks
	}

	q.Queues = make([][]Queue, cfg.NumRanks)
	q.rowAccessCounters = make([][]int, cfg.NumRanks)
	q.fawCountdowns = make([][]int, cfg.NumRanks)

	for r := 0; r < cfg.NumRanks; r++ {
		q.Queues[r] = make([]Queue, queuesPerRank)
		q.rowAccessCounters[r] = make([]int, cfg.NumBanks)
	}

	return q
}

func (q *CommandQueueImpl) queue(rank, bank int) *Queue {
	if q.cfg.QueuingStructure == config.PerRank {
		return &q.Queues[rank][0]
	}

	return &q.Queues[rank][bank]
}

// Enqueue adds a command to the queue of its rank and bank.
func (q *CommandQueueImpl) Enqueue(cmd signal.Command) {
	queue := q.queue(cmd.Location.Rank, cmd.Location.Bank)
	if len(*queue) >= q.cfg.CmdQueueDepth {
		log.Panicf("enqueued more than allowed in command queue; " +
			"call HasRoomFor first")
	}

	*queue = append(*queue, q.cmds.Alloc(cmd))
}

// HasRoomFor checks the free space of the queue of a rank and bank.
func (q *CommandQueueImpl) HasRoomFor(n, rank, bank int) bool {
	return q.cfg.CmdQueueDepth-len(*q.queue(rank, bank)) >= n
}

// IsEmpty returns true if no command for the rank is queued.
func (q *CommandQueueImpl) IsEmpty(rank int) bool {
	for _, queue := range q.Queues[rank] {
		if len(queue) > 0 {
			return false
		}
	}

	return true
}

// NeedRefresh marks the rank as waiting for a refresh.
func (q *CommandQueueImpl) NeedRefresh(rank int) {
	q.refreshWaiting = true
	q.refreshRank = rank
}

// RefreshPending returns true if the rank waits for a refresh.
func (q *CommandQueueImpl) RefreshPending(rank int) bool {
	return q.refreshWaiting && q.refreshRank == rank
}

// Size returns the number of commands queued for the rank and bank.
func (q *CommandQueueImpl) Size(rank, bank int) int {
	return len(*q.queue(rank, bank))
}

// Commands returns a copy of the commands queued for the rank and bank.
func (q *CommandQueueImpl) Commands(rank, bank int) []signal.Command {
	queue := *q.queue(rank, bank)
	cmds := make([]signal.Command, len(queue))

	for i, h := range queue {
		cmds[i] = *q.cmds.Get(h)
	}

	return cmds
}

// RowAccessCount returns the number of column accesses served by the open
// row of a bank without a new activate.
func (q *CommandQueueImpl) RowAccessCount(rank, bank int) int {
	return q.rowAccessCounters[rank][bank]
}

// ActivatesInWindow returns the number of activates issued to the rank in
// the last tFAW cycles.
func (q *CommandQueueImpl) ActivatesInWindow(rank int) int {
	return len(q.fawCountdowns[rank])
}

func (q *CommandQueueImpl) get(h arena.Handle) *signal.Command {
	return q.cmds.Get(h)
}

func (q *CommandQueueImpl) isIssuable(cmd *signal.Command, now uint64) bool {
	rank, bank := cmd.Location.Rank, cmd.Location.Bank

	switch {
	case cmd.Kind == signal.CmdKindActivate:
		if len(q.fawCountdowns[rank]) >= activatesPerFAWWindow {
			return false
		}
	case cmd.Kind.IsColumn():
		if q.rowAccessCounters[rank][bank] >= q.cfg.TotalRowAccesses {
			return false
		}
	}

	return q.states.IsIssuable(cmd, now)
}

// take removes the i-th entry of the queue and returns its command.
func (q *CommandQueueImpl) take(queue *Queue, i int) signal.Command {
	h := (*queue)[i]
	cmd := *q.get(h)

	*queue = append((*queue)[:i], (*queue)[i+1:]...)
	q.cmds.Free(h)

	return cmd
}

// Pop selects the command to issue in the current cycle.
func (q *CommandQueueImpl) Pop(now uint64) (signal.Command, bool) {
	q.ageFAWWindows()

	var (
		cmd   signal.Command
		found bool
	)

	if q.cfg.RowBufferPolicy == config.ClosePage {
		cmd, found = q.popClosePage(now)
	} else {
		cmd, found = q.popOpenPage(now)
	}

	if !found {
		return signal.Command{}, false
	}

	// With posted CAS, the column access paired with an activate is sent
	// from the same queue in the next cycle.
	if q.cfg.AL > 0 && q.sendAct {
		q.sendAct = false
	} else {
		q.sendAct = true
		q.nextRankAndBank(&q.nextRank, &q.nextBank)
	}

	if cmd.Kind == signal.CmdKindActivate {
		q.fawCountdowns[cmd.Location.Rank] = append(
			q.fawCountdowns[cmd.Location.Rank], q.cfg.TFAW)
	}

	return cmd, true
}

func (q *CommandQueueImpl) ageFAWWindows() {
	for r := range q.fawCountdowns {
		window := q.fawCountdowns[r]
		for i := range window {
			window[i]--
		}

		if len(window) > 0 && window[0] <= 0 {
			q.fawCountdowns[r] = window[1:]
		}
	}
}

func (q *CommandQueueImpl) refreshCommand() signal.Command {
	rank := q.refreshRank
	q.refreshWaiting = false
	q.refreshRank = -1

	return signal.Command{
		Kind:     signal.CmdKindRefresh,
		Location: addressmapping.Location{Rank: rank},
	}
}

func (q *CommandQueueImpl) isRefreshBlocked(rank int) bool {
	return q.refreshWaiting && q.refreshRank == rank
}

func (q *CommandQueueImpl) popClosePage(now uint64) (signal.Command, bool) {
	if q.refreshWaiting {
		if cmd, ok := q.prepareRefreshClosePage(now); ok {
			return cmd, true
		}
	}

	startRank, startBank := q.nextRank, q.nextBank

	for {
		queue := q.queue(q.nextRank, q.nextBank)
		if len(*queue) > 0 && !q.isRefreshBlocked(q.nextRank) {
			if i, ok := q.firstIssuableClosePage(*queue, now); ok {
				return q.take(queue, i), true
			}
		}

		if q.advanceRoundRobin(startRank, startBank) {
			return signal.Command{}, false
		}
	}
}

// firstIssuableClosePage finds the first command that is issuable and is
// not preceded by a command to the same bank. With a per-bank queue only
// the head may go.
func (q *CommandQueueImpl) firstIssuableClosePage(
	queue Queue,
	now uint64,
) (int, bool) {
	if q.cfg.QueuingStructure == config.PerRankPerBank {
		return 0, q.isIssuable(q.get(queue[0]), now)
	}

	for i, h := range queue {
		cmd := q.get(h)
		if !q.isIssuable(cmd, now) {
			continue
		}

		blocked := false

		for _, prev := range queue[:i] {
			if q.get(prev).Location.SameBank(cmd.Location) {
				blocked = true
				break
			}
		}

		if !blocked {
			return i, true
		}
	}

	return 0, false
}

// prepareRefreshClosePage lets the open bank of the refreshing rank finish
// its pending access and sends the refresh once all banks are closed.
func (q *CommandQueueImpl) prepareRefreshClosePage(
	now uint64,
) (signal.Command, bool) {
	rank := q.refreshRank

	for b := 0; b < q.cfg.NumBanks; b++ {
		state := q.states.Bank(rank, b)

		if state.CurrentState == org.BankStateRowActive {
			queue := q.queue(rank, b)
			for j, h := range *queue {
				cmd := q.get(h)
				if cmd.Location.Row != state.OpenRow || cmd.Location.Bank != b {
					continue
				}

				if cmd.Kind != signal.CmdKindActivate && q.isIssuable(cmd, now) {
					return q.take(queue, j), true
				}

				break
			}

			return signal.Command{}, false
		}

		if state.NextActivate > now {
			return signal.Command{}, false
		}
	}

	if q.states.Bank(rank, 0).CurrentState == org.BankStatePowerDown {
		return signal.Command{}, false
	}

	return q.refreshCommand(), true
}

func (q *CommandQueueImpl) popOpenPage(now uint64) (signal.Command, bool) {
	if q.refreshWaiting {
		if cmd, ok := q.prepareRefreshOpenPage(now); ok {
			return cmd, true
		}
	}

	startRank, startBank := q.nextRank, q.nextBank

	for {
		queue := q.queue(q.nextRank, q.nextBank)
		if len(*queue) > 0 && !q.isRefreshBlocked(q.nextRank) {
			if cmd, ok := q.popIssuableOpenPage(queue, now); ok {
				return cmd, true
			}
		}

		if q.advanceRoundRobin(startRank, startBank) {
			break
		}
	}

	return q.closeIdleRow(now)
}

// popIssuableOpenPage issues the first issuable command that does not
// overtake an earlier access to the same row. A column access whose paired
// activate is right in front of it hits the open row, so the activate is
// dropped.
func (q *CommandQueueImpl) popIssuableOpenPage(
	queue *Queue,
	now uint64,
) (signal.Command, bool) {
	for i, h := range *queue {
		cmd := q.get(h)
		if !q.isIssuable(cmd, now) || q.hasEarlierRowAccess(*queue, i) {
			continue
		}

		if i > 0 {
			prev := q.get((*queue)[i-1])
			if prev.Kind == signal.CmdKindActivate &&
				prev.Transaction == cmd.Transaction {
				q.rowAccessCounters[cmd.Location.Rank][cmd.Location.Bank]++
				q.take(queue, i-1)

				return q.take(queue, i-1), true
			}
		}

		return q.take(queue, i), true
	}

	return signal.Command{}, false
}

func (q *CommandQueueImpl) hasEarlierRowAccess(queue Queue, i int) bool {
	cmd := q.get(queue[i])

	for _, h := range queue[:i] {
		prev := q.get(h)
		if prev.Kind != signal.CmdKindActivate &&
			prev.Location.Bank == cmd.Location.Bank &&
			prev.Location.Row == cmd.Location.Row {
			return true
		}
	}

	return false
}

// prepareRefreshOpenPage drains or closes the open banks of the refreshing
// rank and sends the refresh once all banks are closed.
func (q *CommandQueueImpl) prepareRefreshOpenPage(
	now uint64,
) (signal.Command, bool) {
	rank := q.refreshRank

	for b := 0; b < q.cfg.NumBanks; b++ {
		state := q.states.Bank(rank, b)

		if state.CurrentState == org.BankStateRowActive {
			closeRow := true
			queue := q.queue(rank, b)

			for j, h := range *queue {
				cmd := q.get(h)
				if cmd.Location.Row != state.OpenRow || cmd.Location.Bank != b {
					continue
				}

				if cmd.Kind != signal.CmdKindActivate {
					closeRow = false
					if q.isIssuable(cmd, now) {
						return q.take(queue, j), true
					}
				}

				break
			}

			if closeRow && now >= state.NextPrecharge {
				q.rowAccessCounters[rank][b] = 0
				return q.prechargeCommand(rank, b), true
			}

			return signal.Command{}, false
		}

		if state.NextActivate > now {
			return signal.Command{}, false
		}
	}

	if q.states.Bank(rank, 0).CurrentState == org.BankStatePowerDown {
		return signal.Command{}, false
	}

	return q.refreshCommand(), true
}

// closeIdleRow precharges an open bank that has no queued access to its
// open row, or that has served too many accesses.
func (q *CommandQueueImpl) closeIdleRow(now uint64) (signal.Command, bool) {
	startRank, startBank := q.nextRankPRE, q.nextBankPRE

	for {
		rank, bank := q.nextRankPRE, q.nextBankPRE
		state := q.states.Bank(rank, bank)

		if state.CurrentState == org.BankStateRowActive {
			found := false

			for _, h := range *q.queue(rank, bank) {
				cmd := q.get(h)
				if cmd.Location.Bank == bank && cmd.Location.Row == state.OpenRow {
					found = true
					break
				}
			}

			if (!found || q.rowAccessCounters[rank][bank] == q.cfg.TotalRowAccesses) &&
				now >= state.NextPrecharge {
				q.rowAccessCounters[rank][bank] = 0
				return q.prechargeCommand(rank, bank), true
			}
		}

		q.nextRankAndBank(&q.nextRankPRE, &q.nextBankPRE)

		if q.nextRankPRE == startRank && q.nextBankPRE == startBank {
			return signal.Command{}, false
		}
	}
}

func (q *CommandQueueImpl) prechargeCommand(rank, bank int) signal.Command {
	return signal.Command{
		Kind:     signal.CmdKindPrecharge,
		Location: addressmapping.Location{Rank: rank, Bank: bank},
	}
}

// advanceRoundRobin moves to the next queue and returns true once every
// queue has been visited.
func (q *CommandQueueImpl) advanceRoundRobin(startRank, startBank int) bool {
	if q.cfg.QueuingStructure == config.PerRank {
		q.nextRank = (q.nextRank + 1) % q.cfg.NumRanks
		return q.nextRank == startRank
	}

	q.nextRankAndBank(&q.nextRank, &q.nextBank)

	return q.nextRank == startRank && q.nextBank == startBank
}

func (q *CommandQueueImpl) nextRankAndBank(rank, bank *int) {
	switch q.cfg.SchedulingPolicy {
	case config.RankThenBankRoundRobin:
		*rank++
		if *rank == q.cfg.NumRanks {
			*rank = 0
			*bank = (*bank + 1) % q.cfg.NumBanks
		}
	case config.BankThenRankRoundRobin:
		*bank++
		if *bank == q.cfg.NumBanks {
			*bank = 0
			*rank = (*rank + 1) % q.cfg.NumRanks
		}
	default:
		log.Panicf("unknown scheduling policy %d", q.cfg.SchedulingPolicy)
	}
}
