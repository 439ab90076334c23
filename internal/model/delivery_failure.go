// internal/model/delivery_failure.go
package model

import "time"

// DeliveryFailure is the record published to the failure audit queue when a
// single recipient delivery does not succeed. It exists for diagnostics only:
// a failure never aborts or retries the mailing it belongs to.
type DeliveryFailure struct {
	MailingID  int       `json:"mailing_id"`
	RecipientID int64    `json:"recipient_id"`
	Method     string    `json:"method"`
	StatusCode int       `json:"status_code,omitempty"`
	Response   string    `json:"response,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
