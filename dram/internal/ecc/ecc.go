// Package ecc protects the payloads stored in the DRAM devices with check
// bits.
package ecc

import (
	"encoding/binary"
	"errors"
	"log"
	"math/bits"

	"github.com/sarchlab/dramsim/config"
)

// ErrUncorrectable is returned when a stored word has more errors than the
// code can correct.
var ErrUncorrectable = errors.New("uncorrectable ECC error")

// A Codec turns transaction payloads into the bytes stored in the devices
// and back.
type Codec interface {
	// StoredSize returns the number of stored bytes for n payload bytes.
	StoredSize(n int) int

	Encode(data []byte) []byte

	// Decode returns the payload and the number of corrected words. The
	// payload is returned even if an error is reported.
	Decode(stored []byte) (data []byte, corrected int, err error)
}

// New creates the codec of the reliability mode of cfg.
func New(cfg *config.Config) Codec {
	switch cfg.Reliability {
	case config.ReliabilityNone:
		return None{}
	case config.ReliabilitySECDED:
		return SECDED{}
	case config.ReliabilityChipkill:
		return Chipkill{}
	default:
		log.Panicf("unknown reliability mode %d", cfg.Reliability)
	}

	return nil
}

// None stores the payload as is.
type None struct{}

// StoredSize returns n.
func (None) StoredSize(n int) int { return n }

// Encode returns a copy of data.
func (None) Encode(data []byte) []byte {
	return append([]byte(nil), data...)
}

// Decode returns a copy of stored.
func (None) Decode(stored []byte) ([]byte, int, error) {
	return append([]byte(nil), stored...), 0, nil
}

const (
	wordBytes     = 8
	codewordBytes = 9
	codewordBits  = codewordBytes * 8
)

var (
	// dataPos holds the Hamming position of each data bit. Positions that
	// are powers of two belong to check bits.
	dataPos [64]uint8

	// posToData maps a Hamming position back to a data bit, or -1.
	posToData [128]int8
)

func init() {
	for i := range posToData {
		posToData[i] = -1
	}

	bit := 0
	for pos := 3; bit < 64; pos++ {
		if pos&(pos-1) == 0 {
			continue
		}

		dataPos[bit] = uint8(pos)
		posToData[pos] = int8(bit)
		bit++
	}
}

func syndrome(word uint64) uint8 {
	var s uint8

	for word != 0 {
		i := bits.TrailingZeros64(word)
		s ^= dataPos[i]
		word &= word - 1
	}

	return s
}

// CheckByte computes the eight check bits of a 64-bit word. The low seven
// bits are the Hamming bits and the top bit is the parity of the whole
// codeword.
func CheckByte(word uint64) byte {
	s := syndrome(word)
	parity := (bits.OnesCount64(word) + bits.OnesCount8(s)) & 1

	return s | byte(parity)<<7
}

// CorrectWord checks a word against its check byte. It fixes a single
// flipped bit and reports whether a fix was needed. Double errors return
// ErrUncorrectable.
func CorrectWord(word uint64, check byte) (uint64, bool, error) {
	s := syndrome(word) ^ (check & 0x7f)
	parity := (bits.OnesCount64(word) + bits.OnesCount8(check)) & 1

	switch {
	case s == 0 && parity == 0:
		return word, false, nil
	case parity == 0:
		return word, false, ErrUncorrectable
	case s == 0 || s&(s-1) == 0:
		return word, true, nil
	}

	i := posToData[s]
	if i < 0 {
		return word, false, ErrUncorrectable
	}

	return word ^ 1<<uint(i), true, nil
}

// SECDED appends a check byte to each 64-bit word of the payload.
type SECDED struct{}

// StoredSize returns the size with one check byte per word.
func (SECDED) StoredSize(n int) int {
	return n / wordBytes * codewordBytes
}

// Encode lays out each word as eight data bytes followed by its check byte.
func (c SECDED) Encode(data []byte) []byte {
	if len(data)%wordBytes != 0 {
		log.Panicf("ECC payload of %d bytes is not made of 64-bit words",
			len(data))
	}

	out := make([]byte, 0, c.StoredSize(len(data)))

	for i := 0; i < len(data); i += wordBytes {
		w := binary.LittleEndian.Uint64(data[i:])
		out = binary.LittleEndian.AppendUint64(out, w)
		out = append(out, CheckByte(w))
	}

	return out
}

// Decode checks and corrects every word.
func (SECDED) Decode(stored []byte) ([]byte, int, error) {
	if len(stored)%codewordBytes != 0 {
		log.Panicf("stored ECC data of %d bytes is not made of codewords",
			len(stored))
	}

	var (
		out       = make([]byte, 0, len(stored)/codewordBytes*wordBytes)
		corrected int
		firstErr  error
	)

	for i := 0; i < len(stored); i += codewordBytes {
		w, fixed, err := CorrectWord(
			binary.LittleEndian.Uint64(stored[i:]), stored[i+wordBytes])
		if fixed {
			corrected++
		}

		if err != nil && firstErr == nil {
			firstErr = err
		}

		out = binary.LittleEndian.AppendUint64(out, w)
	}

	return out, corrected, firstErr
}

// Chipkill spreads the bits of the SECDED codewords across the stored
// bytes, so that one broken device corrupts at most one bit of each
// codeword.
type Chipkill struct {
	SECDED
}

// Encode encodes with SECDED and interleaves the codewords.
func (c Chipkill) Encode(data []byte) []byte {
	return interleave(c.SECDED.Encode(data))
}

// Decode undoes the interleave and decodes with SECDED.
func (c Chipkill) Decode(stored []byte) ([]byte, int, error) {
	return c.SECDED.Decode(deinterleave(stored))
}

// interleave moves bit j of codeword w to bit j*W+w of the output, where W
// is the number of codewords.
func interleave(codewords []byte) []byte {
	n := len(codewords) / codewordBytes
	out := make([]byte, len(codewords))

	for w := 0; w < n; w++ {
		for j := 0; j < codewordBits; j++ {
			if getBit(codewords, w*codewordBits+j) {
				setBit(out, j*n+w)
			}
		}
	}

	return out
}

func deinterleave(stored []byte) []byte {
	n := len(stored) / codewordBytes
	out := make([]byte, len(stored))

	for w := 0; w < n; w++ {
		for j := 0; j < codewordBits; j++ {
			if getBit(stored, j*n+w) {
				setBit(out, w*codewordBits+j)
			}
		}
	}

	return out
}

func getBit(b []byte, i int) bool {
	return b[i/8]&(1<<uint(i%8)) != 0
}

func setBit(b []byte, i int) {
	b[i/8] |= 1 << uint(i%8)
}
