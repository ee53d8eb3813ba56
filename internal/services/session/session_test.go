package session

import (
	"context"
	"strings"
	"sync"
	"testing"

	"statement-ingestion-backend/internal/blobstore"
	"statement-ingestion-backend/internal/extraction"
	"statement-ingestion-backend/internal/logger"
	"statement-ingestion-backend/internal/models"
	"statement-ingestion-backend/internal/period"
	"statement-ingestion-backend/internal/services/password"

	"github.com/google/uuid"
)

// fakeExtractor serves scripted results keyed by document content.
type fakeExtractor struct {
	fields    map[string]extraction.Fields // content -> fields
	passwords map[string]string            // content -> required password
}

func (f *fakeExtractor) Extract(ctx context.Context, blob []byte, req extraction.Request) (extraction.Result, error) {
	content := string(blob)
	if pw, protected := f.passwords[content]; protected && req.Password != pw {
		return extraction.Result{RequiresPassword: true}, nil
	}
	fields, ok := f.fields[content]
	if !ok {
		return extraction.Result{}, nil
	}
	return extraction.Result{Success: true, Fields: &fields}, nil
}

// fakeStatements is an in-memory statement store.
type fakeStatements struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.StatementRecord
	fail    bool
}

func newFakeStatements() *fakeStatements {
	return &fakeStatements{records: make(map[uuid.UUID]*models.StatementRecord)}
}

func (f *fakeStatements) find(bankID uuid.UUID, month, year int, child bool) *models.StatementRecord {
	for _, rec := range f.records {
		if rec.BankAccountID == bankID && rec.Month == month && rec.Year == year && (rec.ParentID != nil) == child {
			return rec
		}
	}
	return nil
}

func (f *fakeStatements) FindPrimary(ctx context.Context, bankID uuid.UUID, month, year int) (*models.StatementRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(bankID, month, year, false), nil
}

func (f *fakeStatements) FindChild(ctx context.Context, bankID uuid.UUID, month, year int) (*models.StatementRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(bankID, month, year, true), nil
}

func (f *fakeStatements) Upsert(ctx context.Context, rec *models.StatementRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return context.DeadlineExceeded
	}
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeStatements) SetVouchedForCompany(ctx context.Context, sessionID, companyID uuid.UUID, vouched bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, rec := range f.records {
		if rec.SessionID == sessionID && rec.CompanyID == companyID {
			rec.Vouched = vouched
			n++
		}
	}
	return n, nil
}

// fakeCycles is an in-memory cycle store.
type fakeCycles struct {
	mu     sync.Mutex
	cycles map[string]*models.StatementCycle
}

func newFakeCycles() *fakeCycles {
	return &fakeCycles{cycles: make(map[string]*models.StatementCycle)}
}

func (f *fakeCycles) Find(ctx context.Context, monthYear string) (*models.StatementCycle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cycles[monthYear], nil
}

func (f *fakeCycles) Create(ctx context.Context, monthYear string) (*models.StatementCycle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.cycles[monthYear]; ok {
		return existing, nil
	}
	cycle := &models.StatementCycle{ID: uuid.New(), MonthYear: monthYear}
	f.cycles[monthYear] = cycle
	return cycle, nil
}

func testRoster() []models.BankAccount {
	return []models.BankAccount{
		{
			ID:             uuid.New(),
			CompanyID:      uuid.New(),
			CompanyName:    "Acme Traders Ltd",
			BankName:       "Equity Bank",
			AccountNumber:  "0100234567",
			StoredPassword: "stored-pw",
			Currency:       "KES",
		},
		{
			ID:            uuid.New(),
			CompanyID:     uuid.New(),
			CompanyName:   "Globex Ltd",
			BankName:      "KCB",
			AccountNumber: "5500011122",
			Currency:      "KES",
		},
	}
}

func newTestSession(t *testing.T, extractor extraction.Client, statements *fakeStatements, cycleStore *fakeCycles, roster []models.BankAccount) *Session {
	t.Helper()
	deps := Deps{
		Extractor:  extractor,
		Blobs:      blobstore.NewMemoryStore(),
		Statements: statements,
		Cycles:     cycleStore,
		Vouches:    statements,
		Logger:     logger.NewWithWriter(&strings.Builder{}),
	}
	return New(deps, roster, nil, period.MonthYear{Month: 1, Year: 2024})
}

func confirmAll(t *testing.T, s *Session) {
	t.Helper()
	res, err := s.ResolveCycles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ConfirmCycles(context.Background(), res.Needed()); err != nil {
		t.Fatal(err)
	}
}

func TestRangeStatementReplication(t *testing.T) {
	roster := testRoster()
	extractor := &fakeExtractor{fields: map[string]extraction.Fields{
		"doc-range": {
			CompanyName:     "Acme Traders Ltd",
			BankName:        "Equity Bank",
			AccountNumber:   "0100234567",
			Currency:        "KES",
			StatementPeriod: "Jan 2024 - Mar 2024",
		},
	}}
	statements := newFakeStatements()
	s := newTestSession(t, extractor, statements, newFakeCycles(), roster)

	s.AddDocument("equity_0100234567.pdf", []byte("doc-range"))
	s.ProcessAll(context.Background())
	confirmAll(t, s)
	if err := s.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}

	items := s.Items()
	if items[0].Status != StatusUploaded {
		t.Fatalf("item status = %v (%s), want uploaded", items[0].Status, items[0].FailureReason)
	}
	if items[0].RecordID == nil {
		t.Fatal("no primary record id")
	}
	if len(items[0].ChildIDs) != 2 {
		t.Fatalf("got %d children, want 2", len(items[0].ChildIDs))
	}

	parent := statements.records[*items[0].RecordID]
	if parent.Month != 1 || parent.Year != 2024 {
		t.Errorf("primary filed under %d-%d, want 1-2024", parent.Month, parent.Year)
	}
	for _, childID := range items[0].ChildIDs {
		child := statements.records[childID]
		if child.ParentID == nil || *child.ParentID != parent.ID {
			t.Errorf("child %s does not reference parent %s", childID, parent.ID)
		}
		if child.Validated {
			t.Error("children must start unvalidated")
		}
		if child.DocumentRef != parent.DocumentRef {
			t.Error("children must share the parent's document reference")
		}
	}
}

func TestStoredPasswordAvoidsManualQueue(t *testing.T) {
	roster := testRoster()
	extractor := &fakeExtractor{
		fields: map[string]extraction.Fields{
			"doc-protected": {StatementPeriod: "January 2024", Currency: "KES"},
		},
		passwords: map[string]string{"doc-protected": "stored-pw"},
	}
	s := newTestSession(t, extractor, newFakeStatements(), newFakeCycles(), roster)

	s.AddDocument("equity_0100234567.pdf", []byte("doc-protected"))
	s.ProcessAll(context.Background())

	if q := s.ManualPasswordQueue(); len(q) != 0 {
		t.Fatalf("manual queue = %v, want empty when the stored password works", q)
	}
	item, _ := s.Item(0)
	if item.PasswordState != password.StateApplied {
		t.Errorf("password state = %q, want %q", item.PasswordState, password.StateApplied)
	}
}

func TestSkipAllFailsUnresolvedItems(t *testing.T) {
	roster := testRoster()
	extractor := &fakeExtractor{
		fields:    map[string]extraction.Fields{"doc-locked": {StatementPeriod: "January 2024"}},
		passwords: map[string]string{"doc-locked": "nobody-knows"},
	}
	s := newTestSession(t, extractor, newFakeStatements(), newFakeCycles(), roster)

	s.AddDocument("equity_0100234567.pdf", []byte("doc-locked"))
	s.ProcessAll(context.Background())

	if q := s.ManualPasswordQueue(); len(q) != 1 {
		t.Fatalf("manual queue = %v, want one item", q)
	}
	if n := s.SkipAllPasswords(); n != 1 {
		t.Fatalf("skipped %d, want 1", n)
	}
	item, _ := s.Item(0)
	if item.Status != StatusFailed || item.FailureReason != password.SkipReason {
		t.Errorf("item = %v/%q, want failed with skip reason", item.Status, item.FailureReason)
	}
}

func TestManualPasswordEntry(t *testing.T) {
	roster := testRoster()
	extractor := &fakeExtractor{
		fields:    map[string]extraction.Fields{"doc-locked": {StatementPeriod: "January 2024", Currency: "KES"}},
		passwords: map[string]string{"doc-locked": "user-knows"},
	}
	s := newTestSession(t, extractor, newFakeStatements(), newFakeCycles(), roster)

	s.AddDocument("equity_0100234567.pdf", []byte("doc-locked"))
	s.ProcessAll(context.Background())

	if err := s.SupplyPassword(context.Background(), 0, "wrong"); err != ErrPasswordRejected {
		t.Fatalf("wrong password error = %v, want ErrPasswordRejected", err)
	}
	if err := s.SupplyPassword(context.Background(), 0, "user-knows"); err != nil {
		t.Fatal(err)
	}

	item, _ := s.Item(0)
	if item.PasswordState != password.StateApplied || !item.PeriodParsed {
		t.Errorf("item = %+v, want applied password and parsed period", item)
	}
	if len(s.ManualPasswordQueue()) != 0 {
		t.Error("manual queue should be drained after successful entry")
	}
}

func TestUnmatchedThenManualMatch(t *testing.T) {
	roster := testRoster()
	extractor := &fakeExtractor{fields: map[string]extraction.Fields{
		"doc": {StatementPeriod: "January 2024", Currency: "KES"},
	}}
	statements := newFakeStatements()
	s := newTestSession(t, extractor, statements, newFakeCycles(), roster)

	s.AddDocument("scan001.pdf", []byte("doc"))
	s.ProcessAll(context.Background())

	item, _ := s.Item(0)
	if item.Status != StatusUnmatched {
		t.Fatalf("status = %v, want unmatched", item.Status)
	}

	if err := s.ManualMatch(0, &roster[0]); err != nil {
		t.Fatal(err)
	}
	s.ProcessAll(context.Background())
	confirmAll(t, s)
	if err := s.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}

	item, _ = s.Item(0)
	if item.Status != StatusUploaded {
		t.Errorf("status = %v (%s), want uploaded after manual match", item.Status, item.FailureReason)
	}
	if rec := statements.records[*item.RecordID]; !rec.ManualMatch {
		t.Error("record should carry the manual-match audit flag")
	}
}

func TestCancellationAdvancesQueue(t *testing.T) {
	roster := testRoster()
	extractor := &fakeExtractor{fields: map[string]extraction.Fields{
		"doc-a": {StatementPeriod: "January 2024", Currency: "KES"},
		"doc-b": {StatementPeriod: "January 2024", Currency: "KES"},
	}}
	s := newTestSession(t, extractor, newFakeStatements(), newFakeCycles(), roster)

	s.AddDocument("equity_0100234567_a.pdf", []byte("doc-a"))
	s.AddDocument("equity_0100234567_b.pdf", []byte("doc-b"))
	s.ProcessAll(context.Background())

	if err := s.Cancel(0); err != nil {
		t.Fatal(err)
	}
	confirmAll(t, s)
	if err := s.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}

	first, _ := s.Item(0)
	second, _ := s.Item(1)
	if first.Status != StatusFailed || first.FailureReason != "canceled by user" {
		t.Errorf("canceled item = %v/%q", first.Status, first.FailureReason)
	}
	if second.Status != StatusUploaded {
		t.Errorf("later item = %v, cancellation must not block the batch", second.Status)
	}
}

func TestCycleDeselectionExcludesDocument(t *testing.T) {
	roster := testRoster()
	extractor := &fakeExtractor{fields: map[string]extraction.Fields{
		"doc": {StatementPeriod: "February 2024", Currency: "KES"},
	}}
	s := newTestSession(t, extractor, newFakeStatements(), newFakeCycles(), roster)

	s.AddDocument("equity_0100234567.pdf", []byte("doc"))
	s.ProcessAll(context.Background())

	res, err := s.ResolveCycles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.ToCreate) != 1 || res.ToCreate[0] != "2024-02" {
		t.Fatalf("resolution = %+v, want to-create [2024-02]", res)
	}

	// The user deselects the only covering cycle.
	if err := s.ConfirmCycles(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}

	item, _ := s.Item(0)
	if item.Status != StatusFailed {
		t.Errorf("status = %v, want failed: deselection is a hard exclusion", item.Status)
	}
}

func TestFinalizeRequiresConfirmation(t *testing.T) {
	s := newTestSession(t, &fakeExtractor{}, newFakeStatements(), newFakeCycles(), testRoster())
	if err := s.Finalize(context.Background()); err != ErrCyclesNotConfirmed {
		t.Errorf("err = %v, want ErrCyclesNotConfirmed", err)
	}
}

func TestVouchingGroupsAndToggle(t *testing.T) {
	roster := testRoster()
	extractor := &fakeExtractor{fields: map[string]extraction.Fields{
		"doc-acme":   {StatementPeriod: "January 2024", Currency: "KES", AccountNumber: "0100234567"},
		"doc-globex": {StatementPeriod: "January 2024", Currency: "KES", AccountNumber: "5500011122"},
	}}
	statements := newFakeStatements()
	s := newTestSession(t, extractor, statements, newFakeCycles(), roster)

	s.AddDocument("equity_0100234567.pdf", []byte("doc-acme"))
	s.AddDocument("kcb_5500011122.pdf", []byte("doc-globex"))
	s.ProcessAll(context.Background())
	confirmAll(t, s)
	if err := s.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}

	groups := s.VouchingGroups()
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Vouched || groups[1].Vouched {
		t.Error("fresh groups must start unvouched")
	}

	affected, err := s.ToggleVouching(context.Background(), roster[0].CompanyID, true)
	if err != nil {
		t.Fatal(err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1", affected)
	}

	groups = s.VouchingGroups()
	if !groups[0].Vouched {
		t.Error("Acme group should be vouched after toggle")
	}
	if groups[1].Vouched {
		t.Error("Globex group must be untouched")
	}
	item, _ := s.Item(0)
	if item.Status != StatusVouched {
		t.Errorf("vouched item status = %v, want vouched", item.Status)
	}
}

func TestPersistenceErrorIsLocal(t *testing.T) {
	roster := testRoster()
	extractor := &fakeExtractor{fields: map[string]extraction.Fields{
		"doc-a": {StatementPeriod: "January 2024", Currency: "KES"},
	}}
	statements := newFakeStatements()
	s := newTestSession(t, extractor, statements, newFakeCycles(), roster)

	s.AddDocument("equity_0100234567.pdf", []byte("doc-a"))
	s.ProcessAll(context.Background())
	confirmAll(t, s)

	statements.fail = true
	if err := s.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize must not propagate per-item persistence errors, got %v", err)
	}
	item, _ := s.Item(0)
	if item.Status != StatusFailed {
		t.Errorf("status = %v, want failed", item.Status)
	}
}

func TestUploadedDocumentRetrievable(t *testing.T) {
	roster := testRoster()
	extractor := &fakeExtractor{fields: map[string]extraction.Fields{
		"doc-a": {StatementPeriod: "January 2024", Currency: "KES"},
	}}
	statements := newFakeStatements()
	blobs := blobstore.NewMemoryStore()
	deps := Deps{
		Extractor:  extractor,
		Blobs:      blobs,
		Statements: statements,
		Cycles:     newFakeCycles(),
		Vouches:    statements,
		Logger:     logger.NewWithWriter(&strings.Builder{}),
	}
	s := New(deps, roster, nil, period.MonthYear{Month: 1, Year: 2024})

	s.AddDocument("equity_0100234567.pdf", []byte("doc-a"))
	s.ProcessAll(context.Background())
	confirmAll(t, s)
	if err := s.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}

	item, _ := s.Item(0)
	if item.DocumentRef == "" {
		t.Fatal("uploaded item carries no document reference")
	}
	data, err := blobs.Get(context.Background(), item.DocumentRef)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "doc-a" {
		t.Errorf("stored payload = %q, want the uploaded bytes", data)
	}
}

func TestExtractionFailureStillPersists(t *testing.T) {
	roster := testRoster()
	// Extractor knows nothing about this document: no fields at all.
	extractor := &fakeExtractor{}
	statements := newFakeStatements()
	s := newTestSession(t, extractor, statements, newFakeCycles(), roster)

	s.AddDocument("equity_0100234567.pdf", []byte("doc-unknown"))
	s.ProcessAll(context.Background())

	item, _ := s.Item(0)
	if item.ExtractionWarning == "" {
		t.Error("expected an extraction warning")
	}

	confirmAll(t, s)
	if err := s.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}
	item, _ = s.Item(0)
	if item.Status != StatusUploaded {
		t.Errorf("status = %v (%s), want uploaded without extracted fields", item.Status, item.FailureReason)
	}
	rec := statements.records[*item.RecordID]
	if rec.Validated {
		t.Error("record without fields must not be marked validated")
	}
}
