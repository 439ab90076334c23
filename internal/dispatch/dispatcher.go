package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Serenityblood/victory-test/internal/model"
	"github.com/Serenityblood/victory-test/internal/telegram"
)

// Store opens one transaction per scan over persistent storage.
type Store interface {
	BeginScan(ctx context.Context) (ScanTx, error)
}

// ScanTx is the transactional view of one scan: snapshot reads of the
// recipient directory and due mailings, plus the batched status commit.
type ScanTx interface {
	RecipientIDs(ctx context.Context) ([]int64, error)
	ReportRecipientIDs(ctx context.Context, roles []model.Role) ([]int64, error)
	DueMailings(ctx context.Context, now time.Time) ([]*model.Mailing, error)
	MarkDone(ctx context.Context, ids []int) error
	Commit() error
	Rollback() error
}

// Sender issues one outbound push call.
type Sender interface {
	Send(ctx context.Context, method string, payload interface{}) (telegram.Result, error)
	MethodURL(method string) string
}

// FailureSink receives failed recipient deliveries, best effort.
type FailureSink interface {
	Publish(f model.DeliveryFailure) error
}

// Config tunes the dispatch engine.
type Config struct {
	// Interval between scans.
	Interval time.Duration
	// MaxInFlight bounds concurrent deliveries within one mailing's fan-out.
	MaxInFlight int
	// ReportRoles is the set of roles allowed to see mailing reports.
	ReportRoles []model.Role
}

// Dispatcher periodically scans for due mailings, fans each one out to every
// recipient, accounts the outcomes and commits the pending -> done
// transitions once per scan.
type Dispatcher struct {
	store    Store
	sender   Sender
	failures FailureSink
	cfg      Config
	log      zerolog.Logger
}

func NewDispatcher(store Store, sender Sender, failures FailureSink, cfg Config, log zerolog.Logger) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 100
	}
	return &Dispatcher{
		store:    store,
		sender:   sender,
		failures: failures,
		cfg:      cfg,
		log:      log,
	}
}

// Run drives scans on a fixed interval until ctx is cancelled. Scans are
// single-flight: the next tick is only served after the previous scan
// returned. A failed scan is logged and retried on the next tick, which
// re-selects the same due mailings.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	d.scanAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.scanAndLog(ctx)
		}
	}
}

func (d *Dispatcher) scanAndLog(ctx context.Context) {
	if err := d.Scan(ctx); err != nil {
		d.log.Error().Err(err).Msg("mailing scan failed")
	}
}

// Scan performs one pass: select due mailings, deliver each to the full
// recipient snapshot, report to moderators and commit every status change in
// one transaction. Storage errors abort the scan with nothing committed.
func (d *Dispatcher) Scan(ctx context.Context) error {
	scan, err := d.store.BeginScan(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = scan.Rollback()
		}
	}()

	recipients, err := scan.RecipientIDs(ctx)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		d.log.Debug().Msg("no registered recipients, skipping scan")
		return nil
	}

	moderators, err := scan.ReportRecipientIDs(ctx, d.cfg.ReportRoles)
	if err != nil {
		return err
	}

	due, err := scan.DueMailings(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	processed := make([]int, 0, len(due))
	for _, m := range due {
		method, payload, err := Prepare(m)
		if err != nil {
			// A malformed mailing is skipped, not fatal for the scan.
			d.log.Error().Err(err).Int("mailing_id", m.ID).Msg("cannot prepare mailing, skipping")
			continue
		}

		report := d.fanOut(ctx, m, method, payload, recipients)
		d.sendReport(ctx, report, moderators)
		processed = append(processed, m.ID)

		d.log.Info().
			Int("mailing_id", m.ID).
			Str("name", m.Name).
			Int("sent", report.Sent()).
			Int("failed", report.Failed()).
			Dur("took", report.Elapsed()).
			Msg("mailing dispatched")
	}

	if len(processed) == 0 {
		return nil
	}
	if err := scan.MarkDone(ctx, processed); err != nil {
		return err
	}
	if err := scan.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type outcome struct {
	recipient int64
	result    telegram.Result
	err       error
}

// fanOut delivers one mailing to every recipient concurrently, waits for the
// whole batch and folds the outcomes into a fresh report. An individual
// failure never aborts the remaining deliveries.
func (d *Dispatcher) fanOut(ctx context.Context, m *model.Mailing, method string, payload SendPayload, recipients []int64) *Report {
	report := NewReport(m.Name)
	report.StartTimer()
	d.log.Info().Int("mailing_id", m.ID).Int("recipients", len(recipients)).Msg("mailing fan-out started")

	outcomes := make(chan outcome, len(recipients))
	var g errgroup.Group
	g.SetLimit(d.cfg.MaxInFlight)
	for _, id := range recipients {
		recipient := id
		g.Go(func() error {
			body := payload
			body.ChatID = recipient
			res, err := d.sender.Send(ctx, method, body)
			outcomes <- outcome{recipient: recipient, result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)
	report.StopTimer()

	for o := range outcomes {
		if o.err == nil && o.result.Delivered() {
			report.AddSent()
			continue
		}
		report.AddFailed()
		d.logFailure(m.ID, method, o)
		d.publishFailure(m.ID, method, o)
	}
	return report
}

func (d *Dispatcher) logFailure(mailingID int, method string, o outcome) {
	ev := d.log.Error().
		Int("mailing_id", mailingID).
		Int64("recipient", o.recipient).
		Str("url", d.sender.MethodURL(method))
	if o.err != nil {
		ev.Err(o.err).Msg("mailing delivery failed")
		return
	}
	ev.Int("status", o.result.StatusCode).
		Bytes("response", o.result.Body).
		Msg("mailing delivery rejected")
}

func (d *Dispatcher) publishFailure(mailingID int, method string, o outcome) {
	if d.failures == nil {
		return
	}
	f := model.DeliveryFailure{
		MailingID:   mailingID,
		RecipientID: o.recipient,
		Method:      method,
		OccurredAt:  time.Now().UTC(),
	}
	if o.err != nil {
		f.Error = o.err.Error()
	} else {
		f.StatusCode = o.result.StatusCode
		f.Response = string(o.result.Body)
	}
	if err := d.failures.Publish(f); err != nil {
		d.log.Debug().Err(err).Msg("failure audit publish skipped")
	}
}

// sendReport pushes the rendered report to every report-eligible recipient.
// Outcomes are not accounted or retried.
func (d *Dispatcher) sendReport(ctx context.Context, report *Report, moderators []int64) {
	if len(moderators) == 0 {
		return
	}
	method, payload := report.Payload()
	var g errgroup.Group
	g.SetLimit(d.cfg.MaxInFlight)
	for _, id := range moderators {
		recipient := id
		g.Go(func() error {
			body := payload
			body.ChatID = recipient
			if _, err := d.sender.Send(ctx, method, body); err != nil {
				d.log.Debug().Err(err).Int64("recipient", recipient).Msg("report delivery failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}
