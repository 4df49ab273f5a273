// Package config defines the device and system parameters of a simulated
// memory system.
//
// A Config is built once, from the defaults, parameter files and overrides,
// and is then shared read-only by every component of a memory system. Two
// memory systems may use two different Configs in the same process.
package config

import (
	"errors"
	"fmt"
	"math/bits"
)

// Config holds every parameter of a memory system. Field tags name the
// parameter keys used in device and system files.
type Config struct {
	// Device geometry
	NumBanks    int `param:"NUM_BANKS"`
	NumRows     int `param:"NUM_ROWS"`
	NumCols     int `param:"NUM_COLS"`
	DeviceWidth int `param:"DEVICE_WIDTH"`

	// Device timing, in DRAM clock cycles unless noted.
	RefreshPeriod float64 `param:"REFRESH_PERIOD"` // ns
	TCK           float64 `param:"tCK"`            // ns
	CL            int     `param:"CL"`
	AL            int     `param:"AL"`
	BL            int     `param:"BL"`
	TRAS          int     `param:"tRAS"`
	TRCD          int     `param:"tRCD"`
	TRRD          int     `param:"tRRD"`
	TRC           int     `param:"tRC"`
	TRP           int     `param:"tRP"`
	TCCD          int     `param:"tCCD"`
	TRTP          int     `param:"tRTP"`
	TWTR          int     `param:"tWTR"`
	TWR           int     `param:"tWR"`
	TRTRS         int     `param:"tRTRS"`
	TRFC          int     `param:"tRFC"`
	TFAW          int     `param:"tFAW"`
	TCKE          int     `param:"tCKE"`
	TXP           int     `param:"tXP"`
	TCMD          int     `param:"tCMD"`

	// Device currents, in mA.
	IDD0   int `param:"IDD0"`
	IDD1   int `param:"IDD1"`
	IDD2P  int `param:"IDD2P"`
	IDD2Q  int `param:"IDD2Q"`
	IDD2N  int `param:"IDD2N"`
	IDD3Pf int `param:"IDD3Pf"`
	IDD3Ps int `param:"IDD3Ps"`
	IDD3N  int `param:"IDD3N"`
	IDD4W  int `param:"IDD4W"`
	IDD4R  int `param:"IDD4R"`
	IDD5   int `param:"IDD5"`
	IDD6   int `param:"IDD6"`
	IDD6L  int `param:"IDD6L"`
	IDD7   int `param:"IDD7"`

	Vdd float64 `param:"Vdd"`

	// System organization
	NumChans         int `param:"NUM_CHANS"`
	NumRanks         int `param:"NUM_RANKS"`
	JEDECDataBusBits int `param:"JEDEC_DATA_BUS_BITS"`

	// Controller
	TransQueueDepth  int    `param:"TRANS_QUEUE_DEPTH"`
	CmdQueueDepth    int    `param:"CMD_QUEUE_DEPTH"`
	EpochLength      uint64 `param:"EPOCH_LENGTH"`
	HistogramBinSize int    `param:"HISTOGRAM_BIN_SIZE"`
	TotalRowAccesses int    `param:"TOTAL_ROW_ACCESSES"`
	UseLowPower      bool   `param:"USE_LOW_POWER"`
	MSBuffer         bool   `param:"MS_BUFFER"`

	RowBufferPolicy      RowBufferPolicy      `param:"ROW_BUFFER_POLICY"`
	SchedulingPolicy     SchedulingPolicy     `param:"SCHEDULING_POLICY"`
	AddressMappingScheme AddressMappingScheme `param:"ADDRESS_MAPPING_SCHEME"`
	QueuingStructure     QueuingStructure     `param:"QUEUING_STRUCTURE"`

	DataStorage StorageMode     `param:"DATA_STORAGE"`
	Reliability ReliabilityMode `param:"DATA_RELIABILITY"`
}

// Default returns the parameters of a DDR3 32Mx8 sg15 part organized as a
// single channel with two ranks.
func Default() *Config {
	return &Config{
		NumBanks:    8,
		NumRows:     32768,
		NumCols:     1024,
		DeviceWidth: 8,

		RefreshPeriod: 7800,
		TCK:           1.5,
		CL:            10,
		AL:            0,
		BL:            8,
		TRAS:          24,
		TRCD:          10,
		TRRD:          4,
		TRC:           34,
		TRP:           10,
		TCCD:          4,
		TRTP:          5,
		TWTR:          5,
		TWR:           10,
		TRTRS:         1,
		TRFC:          107,
		TFAW:          20,
		TCKE:          4,
		TXP:           4,
		TCMD:          1,

		IDD0:   130,
		IDD1:   155,
		IDD2P:  10,
		IDD2Q:  70,
		IDD2N:  70,
		IDD3Pf: 60,
		IDD3Ps: 60,
		IDD3N:  90,
		IDD4W:  300,
		IDD4R:  255,
		IDD5:   305,
		IDD6:   9,
		IDD6L:  12,
		IDD7:   460,
		Vdd:    1.5,

		NumChans:         1,
		NumRanks:         2,
		JEDECDataBusBits: 64,

		TransQueueDepth:  32,
		CmdQueueDepth:    32,
		EpochLength:      100000,
		HistogramBinSize: 10,
		TotalRowAccesses: 4,
		UseLowPower:      true,
		MSBuffer:         true,

		RowBufferPolicy:      OpenPage,
		SchedulingPolicy:     RankThenBankRoundRobin,
		AddressMappingScheme: Scheme2,
		QueuingStructure:     PerRank,

		DataStorage: StorageNone,
		Reliability: ReliabilityNone,
	}
}

// Clone returns a copy that can be modified without affecting c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Validate reports parameter combinations the simulator cannot model.
func (c *Config) Validate() error {
	var errs []error

	positive := map[string]int{
		"NUM_BANKS":           c.NumBanks,
		"NUM_ROWS":            c.NumRows,
		"NUM_COLS":            c.NumCols,
		"DEVICE_WIDTH":        c.DeviceWidth,
		"NUM_CHANS":           c.NumChans,
		"NUM_RANKS":           c.NumRanks,
		"JEDEC_DATA_BUS_BITS": c.JEDECDataBusBits,
		"BL":                  c.BL,
		"CL":                  c.CL,
		"TRANS_QUEUE_DEPTH":   c.TransQueueDepth,
		"CMD_QUEUE_DEPTH":     c.CmdQueueDepth,
		"HISTOGRAM_BIN_SIZE":  c.HistogramBinSize,
		"TOTAL_ROW_ACCESSES":  c.TotalRowAccesses,
		"tCMD":                c.TCMD,
	}
	for name, v := range positive {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}

	if c.TCK <= 0 {
		errs = append(errs, fmt.Errorf("tCK must be positive, got %g", c.TCK))
	} else if c.RefreshCycles() <= 0 {
		errs = append(errs, fmt.Errorf(
			"REFRESH_PERIOD must span at least one cycle of %g ns, got %g",
			c.TCK, c.RefreshPeriod))
	}

	if c.NumChans > 1 && !isPowerOfTwo(c.NumChans) {
		errs = append(errs, fmt.Errorf(
			"NUM_CHANS must be a power of two, got %d", c.NumChans))
	}

	if c.CmdQueueDepth < 2 && c.CmdQueueDepth > 0 {
		errs = append(errs, errors.New(
			"CMD_QUEUE_DEPTH must hold an activate and a column command"))
	}

	if c.Reliability != ReliabilityNone && c.JEDECDataBusBits%64 != 0 {
		errs = append(errs, fmt.Errorf(
			"%s needs a data bus that is a multiple of 64 bits, got %d",
			c.Reliability, c.JEDECDataBusBits))
	}

	if c.Reliability == ReliabilityChipkill &&
		c.DeviceWidth > 0 && c.DataBusBits()%c.DeviceWidth != 0 {
		errs = append(errs, fmt.Errorf(
			"chipkill needs DEVICE_WIDTH to divide the %d-bit ECC bus",
			c.DataBusBits()))
	}

	if c.CL > 0 && c.CL+c.AL < 1 {
		errs = append(errs, errors.New("write latency CL+AL-1 must not be negative"))
	}

	return errors.Join(errs...)
}

// RL is the read latency.
func (c *Config) RL() int { return c.CL + c.AL }

// WL is the write latency.
func (c *Config) WL() int { return c.RL() - 1 }

// ReadToPreDelay is the minimum delay from a READ to a PRECHARGE of the same
// bank.
func (c *Config) ReadToPreDelay() int {
	return c.AL + c.BL/2 + max(c.TRTP, 2) - 2
}

// WriteToPreDelay is the minimum delay from a WRITE to a PRECHARGE of the
// same bank.
func (c *Config) WriteToPreDelay() int { return c.WL() + c.BL/2 + c.TWR }

// ReadToWriteDelay is the minimum delay from a READ to a WRITE.
func (c *Config) ReadToWriteDelay() int {
	return c.RL() + c.BL/2 + c.TRTRS - c.WL()
}

// ReadAutoPreDelay is the time a READ_P keeps its bank busy.
func (c *Config) ReadAutoPreDelay() int { return c.AL + c.TRTP + c.TRP }

// WriteAutoPreDelay is the time a WRITE_P keeps its bank busy.
func (c *Config) WriteAutoPreDelay() int {
	return c.WL() + c.BL/2 + c.TWR + c.TRP
}

// WriteToReadDelayBank is the minimum delay from a WRITE to a READ in the
// same rank.
func (c *Config) WriteToReadDelayBank() int { return c.WL() + c.BL/2 + c.TWTR }

// WriteToReadDelayRank is the minimum delay from a WRITE to a READ in a
// different rank.
func (c *Config) WriteToReadDelayRank() int {
	return c.WL() + c.BL/2 + c.TRTRS - c.RL()
}

// DataBusBits is the width of the physical data bus, including check bits
// when a reliability mode is enabled.
func (c *Config) DataBusBits() int {
	if c.Reliability == ReliabilityNone {
		return c.JEDECDataBusBits
	}

	return c.JEDECDataBusBits / 64 * 72
}

// NumDevices is the number of devices that make up one rank.
func (c *Config) NumDevices() int { return c.DataBusBits() / c.DeviceWidth }

// TransDataBytes is the number of user bytes moved by one transaction.
func (c *Config) TransDataBytes() int { return c.JEDECDataBusBits * c.BL / 8 }

// StoredBytesPerTransaction is the number of bytes a transaction occupies
// in the devices, check bits included.
func (c *Config) StoredBytesPerTransaction() int {
	return c.DataBusBits() * c.BL / 8
}

// TotalStorageMB is the capacity of one channel in megabytes.
func (c *Config) TotalStorageMB() uint64 {
	perRank := (uint64(c.DeviceWidth) * uint64(c.NumCols) *
		uint64(c.NumRows) * uint64(c.NumBanks) * uint64(c.NumDevices()) / 8) >> 20

	return uint64(c.NumRanks) * perRank
}

// RefreshCycles is the number of cycles between two refreshes of a rank.
func (c *Config) RefreshCycles() int { return int(c.RefreshPeriod / c.TCK) }

// ClockHz is the DRAM clock frequency.
func (c *Config) ClockHz() uint64 { return uint64(1.0 / (c.TCK * 1e-9)) }

func isPowerOfTwo(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}
