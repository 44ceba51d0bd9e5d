package enums

// PaymentStatus mirrors the processor's intent status after confirmation.
// The flow only distinguishes succeeded from everything else.
type PaymentStatus string

const (
	PaymentStatusRequiresConfirmation PaymentStatus = "requires_confirmation"
	PaymentStatusSucceeded            PaymentStatus = "succeeded"
	PaymentStatusFailed               PaymentStatus = "failed"
)

// String implements fmt.Stringer.
func (s PaymentStatus) String() string {
	return string(s)
}

// Succeeded reports whether the processor confirmed the charge.
func (s PaymentStatus) Succeeded() bool {
	return s == PaymentStatusSucceeded
}
