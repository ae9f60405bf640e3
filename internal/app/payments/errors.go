package payments

// Error is an application-layer error that can be mapped to an HTTP response.
//
// Code distinguishes the remediation for the caller: PROCESSOR_* means "your
// payment did not go through" (retry or fix the payment method), while
// CAPACITY_EXHAUSTED means "this trip just filled up" (the hold exists and
// needs reconciliation, but no spot was taken).
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}
