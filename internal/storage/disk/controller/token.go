package controller

// TokenKind identifies what an MFMController decoded from the bit stream
// (§3).
type TokenKind int

const (
	TokenByte TokenKind = iota
	TokenIndex
	TokenID
	TokenData
	TokenDeletedData
	TokenSync
)

func (k TokenKind) String() string {
	switch k {
	case TokenByte:
		return "Byte"
	case TokenIndex:
		return "Index"
	case TokenID:
		return "ID"
	case TokenData:
		return "Data"
	case TokenDeletedData:
		return "DeletedData"
	case TokenSync:
		return "Sync"
	default:
		return "Token(?)"
	}
}

// Token is one decoded unit of the controller's output stream (§3).
type Token struct {
	Kind      TokenKind
	ByteValue uint8
}

// TokenDelegate receives the controller's decoded token stream.
type TokenDelegate interface {
	ProcessToken(Token)
}

// DataMode selects how the shift register's output is interpreted (§4.5).
type DataMode int

const (
	Scanning DataMode = iota
	Reading
	Writing
)

func (m DataMode) String() string {
	switch m {
	case Scanning:
		return "Scanning"
	case Reading:
		return "Reading"
	case Writing:
		return "Writing"
	default:
		return "DataMode(?)"
	}
}
