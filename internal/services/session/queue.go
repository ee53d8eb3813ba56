package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"statement-ingestion-backend/internal/blobstore"
	"statement-ingestion-backend/internal/extraction"
	"statement-ingestion-backend/internal/models"
	"statement-ingestion-backend/internal/period"
	"statement-ingestion-backend/internal/services/matching"
	"statement-ingestion-backend/internal/services/password"
	"statement-ingestion-backend/internal/services/replication"
	"statement-ingestion-backend/internal/services/validation"

	"github.com/google/uuid"
)

// ProcessAll drives every pending item through extraction, period parsing
// and validation, strictly in queue order and one at a time. Persistence
// happens in Finalize, after cycle confirmation.
func (s *Session) ProcessAll(ctx context.Context) {
	s.procMu.Lock()
	defer s.procMu.Unlock()

	s.mu.Lock()
	indices := append([]int{}, s.queue...)
	s.mu.Unlock()

	for _, index := range indices {
		s.processOne(ctx, index)
	}
}

func (s *Session) processOne(ctx context.Context, index int) {
	s.mu.Lock()
	it := s.items[index]
	if it.Status != StatusPending {
		s.mu.Unlock()
		return
	}
	it.Status = StatusProcessing

	if !it.Match.Matched() {
		it.Status = StatusUnmatched
		s.mu.Unlock()
		s.log.Info().Int("index", index).Msg("no bank match, awaiting manual resolution")
		return
	}

	payload := it.Payload
	req := extraction.Request{Month: s.Target.Month, Year: s.Target.Year}
	candidates := password.Candidates(it.AppliedPassword, it.Match.Account.StoredPassword, it.Hints.Password)
	s.mu.Unlock()

	outcome, err := s.resolver.ResolveAndExtract(ctx, payload, req, candidates)

	s.mu.Lock()
	defer s.mu.Unlock()
	it.Status = StatusMatched

	if err != nil {
		// Extraction failure is non-fatal: the item continues to
		// persistence without extracted fields.
		it.ExtractionWarning = "extraction failed: " + err.Error()
		s.log.Warn().Int("index", index).Err(err).Msg("extraction failed, continuing without fields")
		s.applyExtraction(it, extraction.Result{})
		return
	}

	it.PasswordState = outcome.State
	switch outcome.State {
	case password.StateManualPending:
		s.manual = append(s.manual, index)
		s.log.Info().Int("index", index).Msg("password candidates exhausted, queued for manual entry")
		return
	case password.StateApplied:
		it.AppliedPassword = outcome.Password
	}

	s.applyExtraction(it, outcome.Result)
}

// applyExtraction records the extraction outcome and runs the dependent
// stages: period parsing (with fallback to the session target) and
// advisory validation. Caller holds s.mu.
func (s *Session) applyExtraction(it *Item, result extraction.Result) {
	if result.Success && result.Fields != nil {
		it.Fields = result.Fields
	} else if it.ExtractionWarning == "" {
		it.ExtractionWarning = "extraction returned no fields"
	}

	if it.Fields != nil {
		if r, ok := period.Parse(it.Fields.StatementPeriod); ok {
			it.Period = r
			it.PeriodParsed = true
		}
	}
	if !it.PeriodParsed {
		it.Period = period.Range{
			StartMonth: s.Target.Month, StartYear: s.Target.Year,
			EndMonth: s.Target.Month, EndYear: s.Target.Year,
		}
	}

	it.Validation = validation.Validate(it.Fields, it.Match.Account, primaryMonth(it))
}

// primaryMonth is the month the primary record is filed under: the start
// of the detected range.
func primaryMonth(it *Item) period.MonthYear {
	return period.MonthYear{Month: it.Period.StartMonth, Year: it.Period.StartYear}
}

// Finalize persists every processed item against the confirmed cycle set,
// in queue order, then replicates range statements across their remaining
// months. A persistence error is fatal for that item only.
func (s *Session) Finalize(ctx context.Context) error {
	s.procMu.Lock()
	defer s.procMu.Unlock()

	s.mu.Lock()
	if !s.cyclesConfirmed {
		s.mu.Unlock()
		return ErrCyclesNotConfirmed
	}
	indices := append([]int{}, s.queue...)
	s.mu.Unlock()

	for _, index := range indices {
		s.finalizeOne(ctx, index)
	}

	s.recordAudit(ctx)
	return nil
}

func (s *Session) finalizeOne(ctx context.Context, index int) {
	s.mu.Lock()
	it := s.items[index]
	if it.Status != StatusMatched || it.PasswordState == password.StateManualPending {
		s.mu.Unlock()
		return
	}
	if it.CancelRequested {
		it.fail("canceled by user")
		s.mu.Unlock()
		return
	}

	months := period.Expand(it.Period)
	if len(months) == 0 {
		it.fail("no resolvable period")
		s.mu.Unlock()
		return
	}
	primary := months[0]
	cycle, confirmed := s.confirmed[primary.Key()]
	if !confirmed {
		// Hard exclusion: the covering cycle was deselected during
		// confirmation, so the document is not persisted for it.
		it.fail("cycle " + primary.Key() + " not confirmed")
		s.mu.Unlock()
		s.log.Warn().Int("index", index).Str("cycle", primary.Key()).Msg("skipped: covering cycle deselected")
		return
	}

	account := *it.Match.Account
	rec := s.buildRecord(it, account, cycle, primary)
	payload := it.Payload
	s.mu.Unlock()

	if err := s.deps.Blobs.Put(ctx, rec.DocumentRef, payload); err != nil && !errors.Is(err, blobstore.ErrExists) {
		s.failItem(index, "store document: "+err.Error())
		return
	}
	if err := s.deps.Statements.Upsert(ctx, rec); err != nil {
		s.failItem(index, "persist statement: "+err.Error())
		s.log.Error().Int("index", index).Err(err).Msg("persistence failed, advancing queue")
		return
	}

	s.mu.Lock()
	it.RecordID = &rec.ID
	it.DocumentRef = rec.DocumentRef
	it.Status = StatusUploaded
	s.mu.Unlock()
	s.log.Info().Int("index", index).Str("record_id", rec.ID.String()).Msg("statement persisted")

	if len(months) > 1 {
		s.replicate(ctx, index, rec, months)
	}
}

// buildRecord assembles the primary statement record. Caller holds s.mu.
func (s *Session) buildRecord(it *Item, account models.BankAccount, cycle *models.StatementCycle, primary period.MonthYear) *models.StatementRecord {
	fieldsJSON, _ := json.Marshal(it.Fields)
	mismatchesJSON, _ := json.Marshal(it.Validation.Mismatches)

	return &models.StatementRecord{
		ID:               uuid.New(),
		SessionID:        s.ID,
		BankAccountID:    account.ID,
		CompanyID:        account.CompanyID,
		CycleID:          cycle.ID,
		Month:            primary.Month,
		Year:             primary.Year,
		DocumentRef:      blobstore.Key(account.CompanyID, account.ID, primary.Key(), it.Filename),
		OriginalFilename: it.Filename,
		ExtractedFields:  fieldsJSON,
		IsValid:          it.Validation.IsValid,
		Validated:        it.Fields != nil,
		Mismatches:       mismatchesJSON,
		MatchConfidence:  string(it.Match.Confidence),
		ManualMatch:      it.Match.Confidence == matching.ConfidenceManual,
		CreatedAt:        time.Now(),
	}
}

// replicate creates child records for the non-primary months of a range
// statement. Deselected cycles are excluded; a replication error leaves
// the primary uploaded and is surfaced as a warning.
func (s *Session) replicate(ctx context.Context, index int, parent *models.StatementRecord, months []period.MonthYear) {
	s.mu.Lock()
	allowed := make([]period.MonthYear, 0, len(months)-1)
	for _, my := range months[1:] {
		if _, ok := s.confirmed[my.Key()]; ok {
			allowed = append(allowed, my)
		}
	}
	s.mu.Unlock()
	if len(allowed) == 0 {
		return
	}

	children, err := replication.Replicate(ctx, s.deps.Statements, s.deps.Cycles, parent, allowed)

	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.items[index]
	for _, child := range children {
		it.ChildIDs = append(it.ChildIDs, child.ID)
	}
	if err != nil {
		it.ExtractionWarning = "replication incomplete: " + err.Error()
		s.log.Warn().Int("index", index).Err(err).Msg("range replication incomplete")
		return
	}
	s.log.Info().Int("index", index).Int("children", len(children)).Msg("range statement replicated")
}

func (s *Session) failItem(index int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[index].fail(reason)
}

// recordAudit writes outcome counters to the persisted session row.
func (s *Session) recordAudit(ctx context.Context) {
	if s.deps.Audit == nil {
		return
	}

	s.mu.Lock()
	total := len(s.items)
	uploaded, failed := 0, 0
	for _, it := range s.items {
		switch it.Status {
		case StatusUploaded, StatusVouched:
			uploaded++
		case StatusFailed:
			failed++
		}
	}
	s.mu.Unlock()

	if err := s.deps.Audit.UpdateCounts(ctx, s.ID, total, uploaded, failed); err != nil {
		s.log.Error().Err(err).Msg("failed to update session counts")
	}
	if err := s.deps.Audit.MarkCompleted(ctx, s.ID, "completed"); err != nil {
		s.log.Error().Err(err).Msg("failed to mark session completed")
	}
}
