package p2p

// Penalty maps a reconstruction or sanity-check outcome to the ban-score
// delta a caller should apply to the offending peer via BanScore.Add.
// Malformed payloads are misbehavior; a SipHash collision and an
// incomplete fill are not (spec §4.2.3, §4.2.5 both treat them as
// ordinary, recoverable outcomes a correct peer can produce).
func Penalty(status ReconstructStatus) int {
	switch status {
	case StatusMalformed:
		return 20
	default:
		return 0
	}
}
