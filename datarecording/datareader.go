package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/structs"
)

// Reader reads back the tables that an EpochRecorder and the execution
// recorder wrote into a recording.
type Reader struct {
	db *sql.DB
}

// NewReader opens a recording for reading. The file must exist.
func NewReader(dbFilename string) (*Reader, error) {
	_, err := os.Stat(dbFilename)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}

	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}

	return &Reader{db: db}, nil
}

// Close closes the recording.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Epochs returns the epochs of every channel, ordered by channel and epoch.
func (r *Reader) Epochs(ctx context.Context) ([]EpochEntry, error) {
	var epochs []EpochEntry

	err := r.selectRows(ctx, EpochTable, EpochEntry{}, "", "Channel, Epoch",
		func(rows *sql.Rows) error {
			var e EpochEntry

			err := rows.Scan(&e.Channel, &e.Epoch, &e.Cycle, &e.CyclesElapsed,
				&e.Final, &e.Transactions, &e.BytesTransferred, &e.PendingReads,
				&e.Bandwidth, &e.AverageLatency)
			epochs = append(epochs, e)

			return err
		})

	return epochs, err
}

// Banks returns the per-bank statistics of one epoch of a channel, ordered
// by rank and bank.
func (r *Reader) Banks(
	ctx context.Context,
	channel, epoch int,
) ([]BankEntry, error) {
	var banks []BankEntry

	err := r.selectRows(ctx, BankTable, BankEntry{},
		"Channel = ? AND Epoch = ?", "Rank, Bank",
		func(rows *sql.Rows) error {
			var b BankEntry

			err := rows.Scan(&b.Channel, &b.Epoch, &b.Rank, &b.Bank, &b.Reads,
				&b.Writes, &b.GrandTotal, &b.Bandwidth, &b.AverageLatency)
			banks = append(banks, b)

			return err
		}, channel, epoch)

	return banks, err
}

// RankPower returns the power of every rank in every epoch, ordered by
// channel, epoch and rank.
func (r *Reader) RankPower(ctx context.Context) ([]RankEntry, error) {
	var ranks []RankEntry

	err := r.selectRows(ctx, RankTable, RankEntry{},
		"", "Channel, Epoch, Rank",
		func(rows *sql.Rows) error {
			var rk RankEntry

			err := rows.Scan(&rk.Channel, &rk.Epoch, &rk.Rank, &rk.Reads,
				&rk.Writes, &rk.ReadBytes, &rk.WriteBytes, &rk.AveragePower,
				&rk.BackgroundPower, &rk.ActPrePower, &rk.BurstPower,
				&rk.RefreshPower)
			ranks = append(ranks, rk)

			return err
		})

	return ranks, err
}

// CommandCounts sums the issued commands of a channel over all epochs, by
// command kind.
func (r *Reader) CommandCounts(
	ctx context.Context,
	channel int,
) (map[string]uint64, error) {
	counts := make(map[string]uint64)

	rows, err := r.db.QueryContext(ctx,
		"SELECT Kind, SUM(Count) FROM "+CommandTable+
			" WHERE Channel = ? GROUP BY Kind", channel)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", CommandTable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind  string
			count uint64
		)

		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("reading %s: %w", CommandTable, err)
		}

		counts[kind] = count
	}

	return counts, rows.Err()
}

// Histogram returns the latency histogram of a channel at the end of the
// simulation, ordered by bin.
func (r *Reader) Histogram(
	ctx context.Context,
	channel int,
) ([]HistogramEntry, error) {
	var bins []HistogramEntry

	err := r.selectRows(ctx, HistogramTable, HistogramEntry{},
		"Channel = ?", "Start",
		func(rows *sql.Rows) error {
			var h HistogramEntry

			err := rows.Scan(&h.Channel, &h.Start, &h.End, &h.Count)
			bins = append(bins, h)

			return err
		}, channel)

	return bins, err
}

// ExecInfo returns the properties of the execution that made the
// recording, in the order they were recorded.
func (r *Reader) ExecInfo(ctx context.Context) ([][2]string, error) {
	var props [][2]string

	err := r.selectRows(ctx, execTableName, execInfo{}, "", "rowid",
		func(rows *sql.Rows) error {
			var p [2]string

			err := rows.Scan(&p[0], &p[1])
			props = append(props, p)

			return err
		})

	return props, err
}

// selectRows selects the columns of sample, which are named after its
// fields, from the rows of table that match where and calls scan on each of
// them. An empty where selects every row.
func (r *Reader) selectRows(
	ctx context.Context,
	table string,
	sample any,
	where, orderBy string,
	scan func(*sql.Rows) error,
	args ...any,
) error {
	query := "SELECT " + strings.Join(structs.Names(sample), ", ") +
		" FROM " + table

	if where != "" {
		query += " WHERE " + where
	}

	query += " ORDER BY " + orderBy

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reading %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("reading %s: %w", table, err)
		}
	}

	return rows.Err()
}
