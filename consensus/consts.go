package consensus

// Consensus-critical size and value limits. Names and values are carried
// from the reference implementation's btc_tx_* constants.
const (
	MaxBlockSize      = 4_000_000
	MaxMoney          = 21_000_000 * 100_000_000
	CoinbaseMaturity  = 100
	BytesPerSigop     = 20
	MaxTxInSequence   = 0xffffffff
	NullVout          = ^uint32(0)
	LocktimeThreshold = 500_000_000 // below this, Tx.Locktime is a block height; at/above, a unix time.

	SequenceLockDisableFlag = 1 << 31
	SequenceLockTypeFlag    = 1 << 22
	SequenceLockMask        = 0x0000ffff
)

// Sighash type flags (trailing byte appended to every ECDSA signature).
const (
	SighashAll          = 0x01
	SighashNone         = 0x02
	SighashSingle       = 0x03
	SighashAnyoneCanPay = 0x80

	sighashBaseMask = 0x1f
)

// SighashVersion selects between the legacy (v0) and segwit (v1) digest
// algorithms of spec §4.1.3/§4.1.4.
type SighashVersion uint8

const (
	SighashVersion0 SighashVersion = 0
	SighashVersion1 SighashVersion = 1
)
