// Package addressmapping decomposes physical addresses into DRAM locations.
package addressmapping

import (
	"log"

	"github.com/sarchlab/dramsim/config"
)

// Location determines where a piece of data is stored in the DRAM.
type Location struct {
	Channel int
	Rank    int
	Bank    int
	Row     int
	Column  int
}

// SameBank returns true if both locations refer to the same bank.
func (l Location) SameBank(o Location) bool {
	return l.Channel == o.Channel && l.Rank == o.Rank && l.Bank == o.Bank
}

// A Mapper converts a physical address to a location.
type Mapper interface {
	Map(addr uint64) Location
}

type field int

const (
	fieldChannel field = iota
	fieldRank
	fieldBank
	fieldRow
	fieldColumn
)

// Field order of each scheme, from the least significant bits up.
var schemeOrders = map[config.AddressMappingScheme][5]field{
	config.Scheme1: {fieldBank, fieldColumn, fieldRow, fieldRank, fieldChannel},
	config.Scheme2: {fieldRank, fieldBank, fieldColumn, fieldRow, fieldChannel},
	config.Scheme3: {fieldRow, fieldColumn, fieldBank, fieldRank, fieldChannel},
	config.Scheme4: {fieldColumn, fieldRow, fieldBank, fieldRank, fieldChannel},
	config.Scheme5: {fieldBank, fieldRank, fieldColumn, fieldRow, fieldChannel},
	config.Scheme6: {fieldColumn, fieldRank, fieldBank, fieldRow, fieldChannel},
	config.Scheme7: {fieldChannel, fieldBank, fieldRank, fieldColumn, fieldRow},
}

// SchemeMapper maps addresses with one of the seven bit orders.
type SchemeMapper struct {
	order     [5]field
	widths    [5]uint
	lowBits   uint
	transMask uint64
	warned    bool
}

// NewMapper creates a mapper for the scheme and geometry of cfg.
func NewMapper(cfg *config.Config) *SchemeMapper {
	order, ok := schemeOrders[cfg.AddressMappingScheme]
	if !ok {
		log.Panicf("unknown address mapping scheme %d", cfg.AddressMappingScheme)
	}

	byteOffsetWidth := Log2(uint64(cfg.JEDECDataBusBits / 8))
	colLowWidth := Log2(uint64(cfg.TransDataBytes())) - byteOffsetWidth
	colWidth := Log2(uint64(cfg.NumCols))

	if colLowWidth > colWidth {
		log.Panicf("%d columns cannot hold a %d-byte transaction",
			cfg.NumCols, cfg.TransDataBytes())
	}

	m := &SchemeMapper{
		order:     order,
		lowBits:   byteOffsetWidth + colLowWidth,
		transMask: uint64(cfg.TransDataBytes()) - 1,
	}

	m.widths[fieldChannel] = Log2(uint64(cfg.NumChans))
	m.widths[fieldRank] = Log2(uint64(cfg.NumRanks))
	m.widths[fieldBank] = Log2(uint64(cfg.NumBanks))
	m.widths[fieldRow] = Log2(uint64(cfg.NumRows))
	m.widths[fieldColumn] = colWidth - colLowWidth

	return m
}

// Map decomposes addr. Addresses that are not aligned to a transaction are
// mapped as if their low bits were zero.
func (m *SchemeMapper) Map(addr uint64) Location {
	if addr&m.transMask != 0 && !m.warned {
		log.Printf("address 0x%x is not aligned to the request size of %d",
			addr, m.transMask+1)
		m.warned = true
	}

	addr >>= m.lowBits

	var values [5]int

	for _, f := range m.order {
		w := m.widths[f]
		rest := addr >> w
		values[f] = int(addr ^ (rest << w))
		addr = rest
	}

	return Location{
		Channel: values[fieldChannel],
		Rank:    values[fieldRank],
		Bank:    values[fieldBank],
		Row:     values[fieldRow],
		Column:  values[fieldColumn],
	}
}

// Address composes the lowest address that maps to loc. It is the inverse of
// Map for aligned addresses.
func (m *SchemeMapper) Address(loc Location) uint64 {
	values := [5]int{
		fieldChannel: loc.Channel,
		fieldRank:    loc.Rank,
		fieldBank:    loc.Bank,
		fieldRow:     loc.Row,
		fieldColumn:  loc.Column,
	}

	var (
		addr  uint64
		shift uint
	)

	for _, f := range m.order {
		w := m.widths[f]
		addr |= (uint64(values[f]) & (1<<w - 1)) << shift
		shift += w
	}

	return addr << m.lowBits
}

// Log2 returns the base-2 logarithm of n, rounded up.
func Log2(n uint64) uint {
	var bits uint

	for v := uint64(1); v < n; v <<= 1 {
		bits++
	}

	return bits
}

// IsPowerOfTwo returns true if n is a power of two.
func IsPowerOfTwo(n uint64) bool {
	return n != 0 && 1<<Log2(n) == n
}
