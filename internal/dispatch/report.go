package dispatch

import (
	"fmt"
	"time"
)

// Report accumulates delivery statistics for one mailing during one scan.
// It is created right before the fan-out, updated once per recipient outcome
// and dropped after the rendered text reaches the report recipients.
type Report struct {
	MailingName string

	sent   int
	failed int
	start  time.Time
	stop   time.Time
}

func NewReport(mailingName string) *Report {
	return &Report{MailingName: mailingName}
}

func (r *Report) StartTimer() { r.start = time.Now() }
func (r *Report) StopTimer()  { r.stop = time.Now() }

func (r *Report) AddSent()   { r.sent++ }
func (r *Report) AddFailed() { r.failed++ }

func (r *Report) Sent() int   { return r.sent }
func (r *Report) Failed() int { return r.failed }

// Elapsed is the fan-out wall-clock duration so far.
func (r *Report) Elapsed() time.Duration {
	if !r.stop.IsZero() {
		return r.stop.Sub(r.start)
	}
	return time.Since(r.start)
}

// Text renders the operator-facing summary: sent, failed, duration, in that
// order.
func (r *Report) Text() string {
	return fmt.Sprintf(
		"Mailing report: %s\nSent: %d\nFailed: %d\nCompleted in: %s",
		r.MailingName, r.sent, r.failed, r.Elapsed().Round(time.Millisecond),
	)
}

// Payload returns the method and body that deliver the report itself. The
// report always goes out as a plain text message.
func (r *Report) Payload() (string, SendPayload) {
	return methodSendMessage, SendPayload{Text: r.Text(), ParseMode: "HTML"}
}
