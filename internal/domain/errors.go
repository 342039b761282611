package domain

import (
	"errors"
	"fmt"
)

// ErrProductNotFound is returned when an id (or id/user pair) matches
// no tracked product.
var ErrProductNotFound = errors.New("tracked product not found")

type FetchErrorKind string

const (
	FetchNetwork   FetchErrorKind = "network"
	FetchTimeout   FetchErrorKind = "timeout"
	FetchBadStatus FetchErrorKind = "bad_status"
)

// FetchError is a failed page retrieval. StatusCode is set only for
// FetchBadStatus.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchBadStatus {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type ExtractionErrorKind string

const (
	ExtractionPriceNotFound ExtractionErrorKind = "price_not_found"
	ExtractionMalformed     ExtractionErrorKind = "malformed"
)

// ExtractionError is a page that fetched fine but did not yield a
// usable price record.
type ExtractionError struct {
	Kind   ExtractionErrorKind
	Detail string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract: %s: %s", e.Kind, e.Detail)
}

type ValidationErrorKind string

const (
	InvalidDomain     ValidationErrorKind = "invalid_domain"
	InvalidAlertPrice ValidationErrorKind = "invalid_alert_price"
)

// ValidationError is a user-facing rejection on the on-demand entry
// point, before any network work happens.
type ValidationError struct {
	Kind   ValidationErrorKind
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Kind, e.Detail)
}
