// Package storage keeps the bytes written to the banks of a rank.
package storage

import (
	"fmt"

	"github.com/sarchlab/dramsim/config"
	"github.com/sarchlab/dramsim/dram/internal/addressmapping"
)

// A Store keeps the data of the banks of one rank. Reads of locations that
// were never written return zeros.
type Store interface {
	Read(loc addressmapping.Location, n int) ([]byte, error)
	Write(loc addressmapping.Location, data []byte) error
}

// New creates the store selected by the storage mode of cfg.
func New(cfg *config.Config) Store {
	switch cfg.DataStorage {
	case config.StorageRowMap:
		return NewRowStore(cfg)
	default:
		return nullStore{}
	}
}

type nullStore struct{}

func (nullStore) Read(_ addressmapping.Location, n int) ([]byte, error) {
	return make([]byte, n), nil
}

func (nullStore) Write(addressmapping.Location, []byte) error {
	return nil
}

// RowStore manages the data in rows. A row is only allocated when it is
// first touched.
type RowStore struct {
	numRows   int
	rowBytes  int
	slotBytes int
	rows      map[uint64][]byte
}

// NewRowStore creates an empty row store. Each column of a row holds the
// bytes of one transaction, check bits included.
func NewRowStore(cfg *config.Config) *RowStore {
	colLow := cfg.TransDataBytes() / (cfg.JEDECDataBusBits / 8)
	slots := cfg.NumCols / max(colLow, 1)

	return &RowStore{
		numRows:   cfg.NumRows,
		slotBytes: cfg.StoredBytesPerTransaction(),
		rowBytes:  slots * cfg.StoredBytesPerTransaction(),
		rows:      make(map[uint64][]byte),
	}
}

// NumAllocatedRows returns the number of rows that have been touched.
func (s *RowStore) NumAllocatedRows() int {
	return len(s.rows)
}

func (s *RowStore) createOrGetRow(loc addressmapping.Location) []byte {
	key := uint64(loc.Bank)*uint64(s.numRows) + uint64(loc.Row)

	row, ok := s.rows[key]
	if !ok {
		row = make([]byte, s.rowBytes)
		s.rows[key] = row
	}

	return row
}

func (s *RowStore) span(loc addressmapping.Location, n int) (int, error) {
	offset := loc.Column * s.slotBytes
	if offset < 0 || offset+n > s.rowBytes {
		return 0, fmt.Errorf(
			"access of %d bytes at column %d is out of the %d-byte row",
			n, loc.Column, s.rowBytes)
	}

	return offset, nil
}

// Read returns n bytes starting at the column of loc.
func (s *RowStore) Read(loc addressmapping.Location, n int) ([]byte, error) {
	offset, err := s.span(loc, n)
	if err != nil {
		return nil, err
	}

	res := make([]byte, n)

	key := uint64(loc.Bank)*uint64(s.numRows) + uint64(loc.Row)
	if row, ok := s.rows[key]; ok {
		copy(res, row[offset:offset+n])
	}

	return res, nil
}

// Write stores data starting at the column of loc.
func (s *RowStore) Write(loc addressmapping.Location, data []byte) error {
	offset, err := s.span(loc, len(data))
	if err != nil {
		return err
	}

	row := s.createOrGetRow(loc)
	copy(row[offset:offset+len(data)], data)

	return nil
}
