package service

import "price_tracker/internal/domain"

type changeOutcome int

const (
	// changeRejected: the extracted price is unusable and must not
	// replace the last known one.
	changeRejected changeOutcome = iota
	changeUnchanged
	changeChanged
)

// detectChange compares a freshly extracted snapshot against the last
// known price. A price of zero is rejected rather than treated as a
// change: an upstream markup drift must not clobber good data with a
// spurious free listing.
//
// History policy: a sample is appended only on changeChanged. Repeat
// observations of the same price refresh the check timestamp and
// nothing else, so no-op sweeps do not grow the ledger.
func detectChange(lastKnown int64, snap *domain.Snapshot) changeOutcome {
	if snap == nil || snap.CurrentPrice <= 0 {
		return changeRejected
	}
	if snap.CurrentPrice == lastKnown {
		return changeUnchanged
	}
	return changeChanged
}

// shouldAlert decides the alert trigger for a price the detector has
// already confirmed as changed. Unchanged passes never reach this, so
// a price sitting below the threshold fires once per drop instead of
// once per sweep.
func shouldAlert(alertPrice *int64, newPrice int64) bool {
	return alertPrice != nil && newPrice <= *alertPrice
}
