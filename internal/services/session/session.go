// Package session holds the ephemeral ingestion batch: an arena of
// document items addressed by index, and the single-threaded queue that
// drives each item through extraction, validation and persistence. Nothing
// here outlives the session except the statement records it persists.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"statement-ingestion-backend/internal/blobstore"
	"statement-ingestion-backend/internal/extraction"
	"statement-ingestion-backend/internal/filehints"
	"statement-ingestion-backend/internal/models"
	"statement-ingestion-backend/internal/period"
	"statement-ingestion-backend/internal/services/cycles"
	"statement-ingestion-backend/internal/services/matching"
	"statement-ingestion-backend/internal/services/password"
	"statement-ingestion-backend/internal/services/vouching"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrItemNotFound       = errors.New("session: item not found")
	ErrItemTerminal       = errors.New("session: item is in a terminal state")
	ErrCyclesNotConfirmed = errors.New("session: cycles not confirmed")
	ErrPasswordRejected   = errors.New("session: supplied password did not open the document")
	ErrNotAwaitingManual  = errors.New("session: item is not awaiting manual password entry")
)

// StatementStore is the statement persistence boundary the session needs.
type StatementStore interface {
	FindPrimary(ctx context.Context, bankID uuid.UUID, month, year int) (*models.StatementRecord, error)
	FindChild(ctx context.Context, bankID uuid.UUID, month, year int) (*models.StatementRecord, error)
	Upsert(ctx context.Context, rec *models.StatementRecord) error
}

// AuditStore records batch outcomes on the persisted session row.
type AuditStore interface {
	UpdateCounts(ctx context.Context, id uuid.UUID, total, uploaded, failed int) error
	MarkCompleted(ctx context.Context, id uuid.UUID, status string) error
}

// Deps are the external collaborators a session drives. Audit may be nil.
type Deps struct {
	Extractor  extraction.Client
	Blobs      blobstore.Store
	Statements StatementStore
	Cycles     cycles.Store
	Vouches    vouching.Store
	Audit      AuditStore
	Logger     zerolog.Logger
}

// Session is one ingestion batch. The item arena is the single shared
// mutable resource; every derived view (cycle sets, company groups) is
// recomputed from it.
type Session struct {
	ID              uuid.UUID        `json:"id"`
	TargetCompanyID *uuid.UUID       `json:"target_company_id"`
	Target          period.MonthYear `json:"target"`
	CreatedAt       time.Time        `json:"created_at"`

	mu     sync.Mutex
	items  []*Item
	queue  []int // ordered item indices; processing walks this exactly once per pass
	manual []int // indices awaiting manual password entry

	roster []models.BankAccount

	confirmed       map[string]*models.StatementCycle
	cyclesConfirmed bool

	// procMu serializes ProcessAll and Finalize: the pipeline holds one
	// in-flight document operation at a time.
	procMu sync.Mutex

	deps     Deps
	resolver *password.Resolver
	log      zerolog.Logger
}

// New creates a session over the given roster slice. roster is the target
// company's accounts, or the full roster in auto-detect mode.
func New(deps Deps, roster []models.BankAccount, targetCompanyID *uuid.UUID, target period.MonthYear) *Session {
	id := uuid.New()
	return &Session{
		ID:              id,
		TargetCompanyID: targetCompanyID,
		Target:          target,
		CreatedAt:       time.Now(),
		roster:          roster,
		deps:            deps,
		resolver:        password.NewResolver(deps.Extractor),
		log:             deps.Logger.With().Str("session_id", id.String()).Logger(),
	}
}

// AddDocument appends an uploaded file to the arena. Filename intelligence
// and bank matching run immediately; everything else waits for the queue.
func (s *Session) AddDocument(filename string, payload []byte) Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	hints := filehints.Detect(filename)
	item := &Item{
		Index:         len(s.items),
		Filename:      filename,
		Payload:       payload,
		Hints:         hints,
		Match:         matching.Match(hints, filename, s.roster),
		PasswordState: password.StateUnknown,
		Status:        StatusPending,
	}
	s.items = append(s.items, item)
	s.queue = append(s.queue, item.Index)

	s.log.Info().
		Int("index", item.Index).
		Str("filename", filename).
		Str("confidence", string(item.Match.Confidence)).
		Msg("document added")

	return *item
}

// Items returns a snapshot copy of the arena.
func (s *Session) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = *it
	}
	return out
}

// Item returns a snapshot of one item.
func (s *Session) Item(index int) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return Item{}, ErrItemNotFound
	}
	return *s.items[index], nil
}

// ManualMatch overrides the automatic match with a user-selected account
// and requeues the item for processing.
func (s *Session) ManualMatch(index int, account *models.BankAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return ErrItemNotFound
	}
	it := s.items[index]
	if it.terminal() {
		return ErrItemTerminal
	}
	it.Match = matching.Manual(account)
	it.Status = StatusPending

	s.log.Info().Int("index", index).Str("bank", account.BankName).Msg("manual match applied")
	return nil
}

// Cancel fails the item with reason "canceled by user". Cancellation is
// local: the rest of the batch is unaffected.
func (s *Session) Cancel(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return ErrItemNotFound
	}
	it := s.items[index]
	if it.terminal() {
		return ErrItemTerminal
	}
	it.CancelRequested = true
	if it.Status != StatusProcessing {
		it.fail("canceled by user")
	}
	s.log.Info().Int("index", index).Msg("item canceled")
	return nil
}

// SupplyPassword retries extraction for an item stuck in the manual-entry
// queue using a user-provided password.
func (s *Session) SupplyPassword(ctx context.Context, index int, pw string) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	it := s.items[index]
	if it.PasswordState != password.StateManualPending {
		s.mu.Unlock()
		return ErrNotAwaitingManual
	}
	payload := it.Payload
	req := extraction.Request{Month: s.Target.Month, Year: s.Target.Year, Password: pw}
	s.mu.Unlock()

	result, err := s.deps.Extractor.Extract(ctx, payload, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return err
	}
	if result.RequiresPassword {
		return ErrPasswordRejected
	}
	it.PasswordState = password.StateApplied
	it.AppliedPassword = pw
	s.removeFromManual(index)
	s.applyExtraction(it, result)
	s.log.Info().Int("index", index).Msg("manual password accepted")
	return nil
}

// SkipAllPasswords resolves the manual-entry queue by marking every
// unresolved item failed. Terminal, but never blocks the rest of the
// batch.
func (s *Session) SkipAllPasswords() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	skipped := 0
	for _, index := range s.manual {
		it := s.items[index]
		if it.PasswordState != password.StateManualPending {
			continue
		}
		it.PasswordState = password.StateFailed
		it.fail(password.SkipReason)
		skipped++
	}
	s.manual = nil
	if skipped > 0 {
		s.log.Warn().Int("skipped", skipped).Msg("manual password entry skipped for remaining items")
	}
	return skipped
}

// ManualPasswordQueue returns the indices awaiting manual password entry.
func (s *Session) ManualPasswordQueue() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int{}, s.manual...)
}

// ResolveCycles aggregates every successfully parsed period into the
// needed cycle set and partitions it into existing vs to-create.
func (s *Session) ResolveCycles(ctx context.Context) (cycles.Resolution, error) {
	s.mu.Lock()
	var ranges []period.Range
	for _, it := range s.items {
		if it.PeriodParsed && it.Status != StatusFailed {
			ranges = append(ranges, it.Period)
		}
	}
	fallback := s.Target
	s.mu.Unlock()

	needed := cycles.NeededKeys(ranges, fallback)
	return cycles.Resolve(ctx, s.deps.Cycles, needed)
}

// ConfirmCycles creates the confirmed cycles and fixes the set used at
// persistence. Keys missing from the list are hard exclusions.
func (s *Session) ConfirmCycles(ctx context.Context, keys []string) error {
	confirmed, err := cycles.Confirm(ctx, s.deps.Cycles, keys)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.confirmed = confirmed
	s.cyclesConfirmed = true
	s.mu.Unlock()

	s.log.Info().Int("cycles", len(confirmed)).Msg("cycles confirmed")
	return nil
}

// VouchingGroups projects the persisted items into per-company vouching
// groups. Always recomputed; never cached.
func (s *Session) VouchingGroups() []vouching.Group {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []vouching.Entry
	for _, it := range s.items {
		if (it.Status != StatusUploaded && it.Status != StatusVouched) || it.RecordID == nil || it.Match.Account == nil {
			continue
		}
		entries = append(entries, vouching.Entry{
			ItemIndex:   it.Index,
			CompanyID:   it.Match.Account.CompanyID,
			CompanyName: it.Match.Account.CompanyName,
			RecordID:    *it.RecordID,
			Vouched:     it.Vouched,
		})
	}
	return vouching.Groups(entries)
}

// ToggleVouching writes the vouched flag to every member of a company
// group, all-or-nothing, and mirrors the outcome onto the items.
func (s *Session) ToggleVouching(ctx context.Context, companyID uuid.UUID, vouched bool) (int64, error) {
	affected, err := s.deps.Vouches.SetVouchedForCompany(ctx, s.ID, companyID, vouched)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.Match.Account == nil || it.Match.Account.CompanyID != companyID {
			continue
		}
		if it.Status != StatusUploaded && it.Status != StatusVouched {
			continue
		}
		it.Vouched = vouched
		if vouched {
			it.Status = StatusVouched
		} else {
			it.Status = StatusUploaded
		}
	}

	s.log.Info().Str("company_id", companyID.String()).Bool("vouched", vouched).Msg("vouching toggled")
	return affected, nil
}

func (s *Session) removeFromManual(index int) {
	for i, v := range s.manual {
		if v == index {
			s.manual = append(s.manual[:i], s.manual[i+1:]...)
			return
		}
	}
}
