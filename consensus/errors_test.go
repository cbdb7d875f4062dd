package consensus

import "testing"

// mustTxErrCode extracts the ErrorCode from err, failing the test if err is
// nil or not a *TxError.
func mustTxErrCode(t *testing.T, err error) ErrorCode {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	te, ok := err.(*TxError)
	if !ok {
		t.Fatalf("expected *TxError, got %T: %v", err, err)
	}
	return te.Code
}

func TestTxErrorFormatting(t *testing.T) {
	err := txerr(ErrParse, "bad byte")
	if err.Error() != "PARSE: bad byte" {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	bare := &TxError{Code: ErrParse}
	if bare.Error() != "PARSE" {
		t.Fatalf("unexpected bare message: %q", bare.Error())
	}
}

func TestRejectCarriesBanScore(t *testing.T) {
	err := reject(100, "duplicate outpoint")
	te, ok := err.(*TxError)
	if !ok {
		t.Fatalf("expected *TxError, got %T", err)
	}
	if te.Code != ErrConsensusReject || te.BanScore != 100 {
		t.Fatalf("unexpected error: %+v", te)
	}
}
