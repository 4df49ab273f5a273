// Package trace reads memory access traces.
//
// A trace is a text file with one access per line:
//
//	0xADDR CMD CYCLE [LEN] [HEXDATA]
//
// The set of commands depends on the format of the trace. The length and
// data fields are only read in the k7 and pin formats.
package trace

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// Format is the dialect of a trace file.
type Format int

// A list of supported trace formats.
const (
	FormatK6 Format = iota
	FormatK7
	FormatPin
	FormatMase
)

var formatNames = map[Format]string{
	FormatK6:   "k6",
	FormatK7:   "k7",
	FormatPin:  "pin",
	FormatMase: "mase",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}

	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat converts a format name into a Format.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if strings.EqualFold(s, name) {
			return f, nil
		}
	}

	return 0, fmt.Errorf("unknown trace format %q", s)
}

// FormatFromFilename infers the format from the prefix of the base name of
// a trace file, as in "k6_aoe_02_short.trc".
func FormatFromFilename(path string) (Format, error) {
	base := strings.ToLower(filepath.Base(path))

	for _, f := range []Format{FormatK6, FormatK7, FormatPin, FormatMase} {
		if strings.HasPrefix(base, formatNames[f]) {
			return f, nil
		}
	}

	return 0, fmt.Errorf("cannot infer the trace format of %s", path)
}

// A Record is one access of a trace.
type Record struct {
	Address uint64
	IsWrite bool

	// Cycle is the CPU cycle at which the access may be issued.
	Cycle uint64

	// Len is the length field of the line. It is zero if absent.
	Len int

	// Data holds the payload of a write, padded to a whole transaction.
	Data []byte
}

// ErrUnknownCommand is returned for a line with a command that the format
// does not define.
var ErrUnknownCommand = errors.New("unknown command")

// Reader reads records from a trace.
type Reader struct {
	// IgnoreCycles makes every record ready at cycle zero.
	IgnoreCycles bool

	// TransDataBytes is the size of a transaction. Write payloads are padded
	// to it and may not exceed it.
	TransDataBytes int

	format  Format
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a reader of a trace of the given format.
func NewReader(r io.Reader, format Format) *Reader {
	return &Reader{
		TransDataBytes: 64,
		format:         format,
		scanner:        bufio.NewScanner(r),
	}
}

// Line returns the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next record. It returns io.EOF at the end of the trace.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++

		fields := strings.Fields(r.scanner.Text())
		if len(fields) == 0 {
			continue
		}

		rec, err := r.parse(fields)
		if err != nil {
			return Record{}, fmt.Errorf("trace line %d: %w", r.line, err)
		}

		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("reading trace: %w", err)
	}

	return Record{}, io.EOF
}

func (r *Reader) parse(fields []string) (Record, error) {
	var rec Record

	if len(fields) < 3 {
		return rec, fmt.Errorf("want at least 3 fields, got %d", len(fields))
	}

	addr, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 64)
	if err != nil {
		return rec, fmt.Errorf("bad address %q: %w", fields[0], err)
	}

	rec.Address = addr

	rec.IsWrite, err = r.isWrite(fields[1])
	if err != nil {
		return rec, err
	}

	if !r.IgnoreCycles {
		rec.Cycle, err = strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return rec, fmt.Errorf("bad cycle %q: %w", fields[2], err)
		}
	}

	if r.format != FormatK7 && r.format != FormatPin {
		return rec, nil
	}

	if len(fields) > 3 {
		rec.Len, err = strconv.Atoi(fields[3])
		if err != nil {
			return rec, fmt.Errorf("bad length %q: %w", fields[3], err)
		}
	}

	if len(fields) > 4 && rec.IsWrite {
		rec.Data, err = r.parseData(fields[4])
		if err != nil {
			return rec, err
		}
	}

	return rec, nil
}

func (r *Reader) isWrite(cmd string) (bool, error) {
	if r.format == FormatMase {
		switch cmd {
		case "IFETCH", "READ":
			return false, nil
		case "WRITE":
			return true, nil
		}

		return false, fmt.Errorf("%w %q", ErrUnknownCommand, cmd)
	}

	switch cmd {
	case "P_MEM_WR", "BOFF":
		return true, nil
	case "P_FETCH", "P_MEM_RD", "P_LOCK_RD", "P_LOCK_WR":
		return false, nil
	}

	return false, fmt.Errorf("%w %q", ErrUnknownCommand, cmd)
}

func (r *Reader) parseData(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("data %q is not made of whole bytes", s)
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad data %q: %w", s, err)
	}

	if len(raw) > r.TransDataBytes {
		return nil, fmt.Errorf("%d bytes do not fit in a %d-byte transaction",
			len(raw), r.TransDataBytes)
	}

	data := make([]byte, r.TransDataBytes)
	copy(data, raw)

	return data, nil
}
