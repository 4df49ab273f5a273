package signal

// TransactionType tells what a transaction does.
type TransactionType int

// A list of transaction types.
const (
	TransactionTypeRead TransactionType = iota
	TransactionTypeWrite
	TransactionTypeReturnData
)

func (t TransactionType) String() string {
	switch t {
	case TransactionTypeRead:
		return "read"
	case TransactionTypeWrite:
		return "write"
	case TransactionTypeReturnData:
		return "return"
	}

	return "unknown"
}

// Transaction is a request from the outside of the memory system, or the
// data a rank returns for it.
type Transaction struct {
	Type    TransactionType
	Address uint64
	Data    []byte
	Len     int

	TimeTraced   uint64
	TimeAdded    uint64
	TimeReturned uint64
}

// IsRead returns true if the transaction is a read transaction.
func (t *Transaction) IsRead() bool {
	return t.Type == TransactionTypeRead
}

// IsWrite returns true if the transaction is a write transaction.
func (t *Transaction) IsWrite() bool {
	return t.Type == TransactionTypeWrite
}

// AlignAddress clears the bits of addr below the transaction size.
func AlignAddress(addr uint64, transBytes int) uint64 {
	return addr &^ (uint64(transBytes) - 1)
}
