package config

import (
	"fmt"
	"strings"
)

// RowBufferPolicy decides whether a row stays open after a column access.
type RowBufferPolicy int

// Row buffer policies.
const (
	OpenPage RowBufferPolicy = iota
	ClosePage
)

// SchedulingPolicy decides the round-robin order over rank/bank queues.
type SchedulingPolicy int

// Scheduling policies.
const (
	RankThenBankRoundRobin SchedulingPolicy = iota
	BankThenRankRoundRobin
)

// QueuingStructure decides how the command queue is partitioned.
type QueuingStructure int

// Queuing structures.
const (
	PerRank QueuingStructure = iota
	PerRankPerBank
)

// AddressMappingScheme selects the bit order used to decompose an address.
type AddressMappingScheme int

// Address mapping schemes.
const (
	Scheme1 AddressMappingScheme = iota + 1
	Scheme2
	Scheme3
	Scheme4
	Scheme5
	Scheme6
	Scheme7
)

// StorageMode selects whether the ranks keep the written bytes.
type StorageMode int

// Storage modes.
const (
	StorageNone StorageMode = iota
	StorageRowMap
)

// ReliabilityMode selects how payloads are protected before being stored.
type ReliabilityMode int

// Reliability modes.
const (
	ReliabilityNone ReliabilityMode = iota
	ReliabilitySECDED
	ReliabilityChipkill
)

var rowBufferPolicyNames = map[RowBufferPolicy]string{
	OpenPage:  "open_page",
	ClosePage: "close_page",
}

var schedulingPolicyNames = map[SchedulingPolicy]string{
	RankThenBankRoundRobin: "rank_then_bank_round_robin",
	BankThenRankRoundRobin: "bank_then_rank_round_robin",
}

var queuingStructureNames = map[QueuingStructure]string{
	PerRank:        "per_rank",
	PerRankPerBank: "per_rank_per_bank",
}

var storageModeNames = map[StorageMode]string{
	StorageNone:   "none",
	StorageRowMap: "rowmap",
}

var reliabilityModeNames = map[ReliabilityMode]string{
	ReliabilityNone:     "none",
	ReliabilitySECDED:   "secded",
	ReliabilityChipkill: "chipkill",
}

func (p RowBufferPolicy) String() string      { return rowBufferPolicyNames[p] }
func (p SchedulingPolicy) String() string     { return schedulingPolicyNames[p] }
func (s QueuingStructure) String() string     { return queuingStructureNames[s] }
func (m StorageMode) String() string          { return storageModeNames[m] }
func (m ReliabilityMode) String() string      { return reliabilityModeNames[m] }
func (s AddressMappingScheme) String() string { return fmt.Sprintf("scheme%d", int(s)) }

func lookup[T comparable](names map[T]string, kind, s string) (T, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	for k, name := range names {
		if name == s {
			return k, nil
		}
	}

	var zero T

	return zero, fmt.Errorf("unknown %s %q", kind, s)
}

// ParseRowBufferPolicy converts a parameter value into a RowBufferPolicy.
func ParseRowBufferPolicy(s string) (RowBufferPolicy, error) {
	return lookup(rowBufferPolicyNames, "row buffer policy", s)
}

// ParseSchedulingPolicy converts a parameter value into a SchedulingPolicy.
func ParseSchedulingPolicy(s string) (SchedulingPolicy, error) {
	return lookup(schedulingPolicyNames, "scheduling policy", s)
}

// ParseQueuingStructure converts a parameter value into a QueuingStructure.
func ParseQueuingStructure(s string) (QueuingStructure, error) {
	return lookup(queuingStructureNames, "queuing structure", s)
}

// ParseStorageMode converts a parameter value into a StorageMode.
func ParseStorageMode(s string) (StorageMode, error) {
	return lookup(storageModeNames, "storage mode", s)
}

// ParseReliabilityMode converts a parameter value into a ReliabilityMode.
func ParseReliabilityMode(s string) (ReliabilityMode, error) {
	return lookup(reliabilityModeNames, "reliability mode", s)
}

// ParseAddressMappingScheme accepts "scheme1" through "scheme7".
func ParseAddressMappingScheme(s string) (AddressMappingScheme, error) {
	var n int

	s = strings.ToLower(strings.TrimSpace(s))
	if _, err := fmt.Sscanf(s, "scheme%d", &n); err != nil || n < 1 || n > 7 {
		return 0, fmt.Errorf("unknown address mapping scheme %q", s)
	}

	return AddressMappingScheme(n), nil
}
