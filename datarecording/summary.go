package datarecording

import (
	"context"
)

// ChannelSummary aggregates the recorded epochs of a channel.
type ChannelSummary struct {
	Channel      int
	Epochs       int
	Cycles       uint64
	Transactions uint64
	Bytes        uint64

	// Bandwidth in GB/s and Power in watts are averaged over cycles.
	Bandwidth float64
	Power     float64

	// AverageLatency in ns is averaged over transactions.
	AverageLatency float64
}

type epochKey struct {
	channel, epoch int
}

// Summarize reads the epochs of a recording made by an EpochRecorder and
// aggregates them per channel, ordered by channel.
func Summarize(ctx context.Context, reader *Reader) ([]ChannelSummary, error) {
	epochs, err := reader.Epochs(ctx)
	if err != nil {
		return nil, err
	}

	ranks, err := reader.RankPower(ctx)
	if err != nil {
		return nil, err
	}

	var summaries []ChannelSummary

	index := make(map[int]int)
	cycles := make(map[epochKey]uint64)

	var latencySum []float64

	for _, e := range epochs {
		i, ok := index[e.Channel]
		if !ok {
			i = len(summaries)
			index[e.Channel] = i
			summaries = append(summaries, ChannelSummary{Channel: e.Channel})
			latencySum = append(latencySum, 0)
		}

		s := &summaries[i]
		s.Epochs++
		s.Cycles += e.CyclesElapsed
		s.Transactions += e.Transactions
		s.Bytes += e.BytesTransferred
		s.Bandwidth += e.Bandwidth * float64(e.CyclesElapsed)
		latencySum[i] += e.AverageLatency * float64(e.Transactions)

		cycles[epochKey{e.Channel, e.Epoch}] = e.CyclesElapsed
	}

	for _, r := range ranks {
		i, ok := index[r.Channel]
		if !ok {
			continue
		}

		c := cycles[epochKey{r.Channel, r.Epoch}]
		summaries[i].Power += r.AveragePower * float64(c)
	}

	for i := range summaries {
		s := &summaries[i]

		if s.Cycles > 0 {
			s.Bandwidth /= float64(s.Cycles)
			s.Power /= float64(s.Cycles)
		}

		if s.Transactions > 0 {
			s.AverageLatency = latencySum[i] / float64(s.Transactions)
		}
	}

	return summaries, nil
}
