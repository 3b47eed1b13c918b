package ledger

// Rent parameters match the cluster defaults: every account pays for its data
// plus a fixed per-account overhead, for two years up front.
const (
	DefaultLamportsPerByteYear int64 = 3480
	DefaultExemptionYears      int64 = 2
	AccountStorageOverhead     int64 = 128
)

// Rent computes the rent-exempt minimum balance of an account.
type Rent struct {
	LamportsPerByteYear int64
	ExemptionYears      int64
}

// DefaultRent returns the default rent parameters.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionYears:      DefaultExemptionYears,
	}
}

// MinimumBalance returns the lamports an account of the given data size must
// hold to be exempt from rent.
func (r Rent) MinimumBalance(space int64) int64 {
	return (AccountStorageOverhead + space) * r.LamportsPerByteYear * r.ExemptionYears
}
