package consensus

import "fmt"

// ErrorCode names a TxEngine failure mode. Kinds map onto the error-kind
// table of the surrounding design: ErrParse comes from the codecs,
// ErrConsensusReject from the checks, ErrSignDispatch from Sign, and
// ErrSighashInput from the sighash functions; Missing is reported as a bool/ok return
// rather than an error (see View.ResolveCoin).
type ErrorCode string

const (
	ErrParse            ErrorCode = "PARSE"
	ErrConsensusReject  ErrorCode = "CONSENSUS_REJECT"
	ErrSignDispatch     ErrorCode = "SIGN_DISPATCH"
	ErrSighashInput     ErrorCode = "SIGHASH_INPUT_OUT_OF_RANGE"
)

// TxError is a typed TxEngine error. ConsensusReject-kind errors carry a
// BanScore the caller's peer-scoring collaborator may apply; every other
// kind carries BanScore == 0 and is never itself bannable.
type TxError struct {
	Code     ErrorCode
	BanScore int
	Msg      string
	Err      error
}

func (e *TxError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *TxError) Unwrap() error { return e.Err }

func txerr(code ErrorCode, msg string) error {
	return &TxError{Code: code, Msg: msg}
}

func txerrf(code ErrorCode, format string, args ...any) error {
	return &TxError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// reject builds a ConsensusReject error with the ban score the surrounding
// collaborator should apply per spec §4.1.6/§4.1.7.
func reject(score int, format string, args ...any) error {
	return &TxError{Code: ErrConsensusReject, BanScore: score, Msg: fmt.Sprintf(format, args...)}
}
