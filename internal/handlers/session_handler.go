package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"statement-ingestion-backend/internal/blobstore"
	"statement-ingestion-backend/internal/logger"
	"statement-ingestion-backend/internal/models"
	"statement-ingestion-backend/internal/period"
	"statement-ingestion-backend/internal/repository"
	"statement-ingestion-backend/internal/services/session"
	"statement-ingestion-backend/internal/services/vouching"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler exposes the ingestion session lifecycle: create, upload,
// process, confirm cycles, vouch.
type SessionHandler struct {
	sessions *session.Registry
	banks    *repository.BankAccountRepository
	audit    *repository.SessionRepository
	deps     session.Deps
}

func NewSessionHandler(sessions *session.Registry, banks *repository.BankAccountRepository, audit *repository.SessionRepository, deps session.Deps) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		banks:    banks,
		audit:    audit,
		deps:     deps,
	}
}

// CreateSession opens a new ingestion batch. With a company id the roster
// is scoped to that company; without one every document is matched against
// the full roster (auto-detect mode).
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var payload struct {
		CompanyID string `json:"company_id"`
		Month     int    `json:"month"`
		Year      int    `json:"year"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.Month < 1 || payload.Month > 12 || payload.Year < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target month/year"})
		return
	}

	var companyID *uuid.UUID
	var roster []models.BankAccount
	var err error
	if payload.CompanyID != "" {
		id, parseErr := uuid.Parse(payload.CompanyID)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company ID"})
			return
		}
		companyID = &id
		roster, err = h.banks.ListByCompany(c.Request.Context(), id)
	} else {
		roster, err = h.banks.ListBanks(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s := session.New(h.deps, roster, companyID, period.MonthYear{Month: payload.Month, Year: payload.Year})
	h.sessions.Add(s)

	audit := &models.IngestionSession{
		ID:              s.ID,
		TargetCompanyID: companyID,
		TargetMonth:     payload.Month,
		TargetYear:      payload.Year,
		Status:          "active",
		StartedAt:       time.Now(),
	}
	if err := h.audit.Create(c.Request.Context(), audit); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id":  s.ID,
		"target":      s.Target.Key(),
		"roster_size": len(roster),
	})
}

// UploadDocuments accepts a multipart batch. Each file gets filename
// intelligence and bank matching immediately; extraction waits for the
// processing queue.
func (h *SessionHandler) UploadDocuments(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
		return
	}

	items := make([]session.Item, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read " + fh.Filename})
			return
		}
		payload, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read " + fh.Filename})
			return
		}
		items = append(items, s.AddDocument(fh.Filename, payload))
	}

	log := logger.FromContext(c.Request.Context())
	log.Info().
		Str("session_id", s.ID.String()).
		Int("documents", len(items)).
		Msg("documents uploaded")

	c.JSON(http.StatusCreated, gin.H{"items": items})
}

// GetSession returns the session header plus a snapshot of every item.
func (h *SessionHandler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":     s.ID,
		"target":         s.Target.Key(),
		"items":          s.Items(),
		"password_queue": s.ManualPasswordQueue(),
	})
}

// CloseSession discards the in-memory arena. Persisted statement records
// are unaffected; only the live session state goes away.
func (h *SessionHandler) CloseSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.sessions.Remove(s.ID)
	log := logger.FromContext(c.Request.Context())
	log.Info().
		Str("session_id", s.ID.String()).
		Msg("session closed")
	c.JSON(http.StatusOK, gin.H{"message": "session closed"})
}

// DownloadDocument streams a persisted statement binary back from the
// blob store.
func (h *SessionHandler) DownloadDocument(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := h.itemIndex(c)
	if !ok {
		return
	}
	item, err := s.Item(index)
	if err != nil {
		h.itemError(c, err)
		return
	}
	if item.DocumentRef == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not persisted yet"})
		return
	}

	data, err := h.deps.Blobs.Get(c.Request.Context(), item.DocumentRef)
	if err == blobstore.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found in store"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(item.Filename))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// Process drives the queue over every pending item, one document at a
// time, and reports the resulting statuses plus the manual password queue.
func (h *SessionHandler) Process(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.ProcessAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"items":          s.Items(),
		"password_queue": s.ManualPasswordQueue(),
	})
}

// ManualMatch assigns a roster account to an unmatched item and requeues
// it.
func (h *SessionHandler) ManualMatch(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := h.itemIndex(c)
	if !ok {
		return
	}

	var payload struct {
		BankAccountID string `json:"bank_account_id"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	bankID, err := uuid.Parse(payload.BankAccountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bank account ID"})
		return
	}

	account, err := h.banks.GetBank(c.Request.Context(), bankID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "bank account not found"})
		return
	}

	if err := s.ManualMatch(index, account); err != nil {
		h.itemError(c, err)
		return
	}
	item, _ := s.Item(index)
	c.JSON(http.StatusOK, gin.H{"message": "manual match applied", "item": item})
}

// SupplyPassword retries extraction for an item waiting on manual password
// entry.
func (h *SessionHandler) SupplyPassword(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := h.itemIndex(c)
	if !ok {
		return
	}

	var payload struct {
		Password string `json:"password"`
	}
	if err := c.BindJSON(&payload); err != nil || payload.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := s.SupplyPassword(c.Request.Context(), index, payload.Password); err != nil {
		switch err {
		case session.ErrPasswordRejected:
			c.JSON(http.StatusBadRequest, gin.H{"error": "password did not open the document"})
		case session.ErrNotAwaitingManual:
			c.JSON(http.StatusConflict, gin.H{"error": "item is not awaiting a password"})
		case session.ErrItemNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	item, _ := s.Item(index)
	c.JSON(http.StatusOK, gin.H{"message": "password accepted", "item": item})
}

// SkipPasswords abandons every item still waiting on manual password
// entry.
func (h *SessionHandler) SkipPasswords(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	skipped := s.SkipAllPasswords()
	c.JSON(http.StatusOK, gin.H{"skipped": skipped})
}

// Cancel fails one item without touching the rest of the batch.
func (h *SessionHandler) Cancel(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := h.itemIndex(c)
	if !ok {
		return
	}
	if err := s.Cancel(index); err != nil {
		h.itemError(c, err)
		return
	}
	item, _ := s.Item(index)
	c.JSON(http.StatusOK, gin.H{"message": "item canceled", "item": item})
}

// GetCycles resolves the needed statement cycles into existing vs
// to-create, for the confirmation dialog.
func (h *SessionHandler) GetCycles(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	res, err := s.ResolveCycles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"existing":  res.Existing,
		"to_create": res.ToCreate,
	})
}

// ConfirmCycles fixes the confirmed cycle set and runs persistence over
// the processed items. Keys the user left out are excluded for good.
func (h *SessionHandler) ConfirmCycles(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var payload struct {
		Confirmed []string `json:"confirmed"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := s.ConfirmCycles(c.Request.Context(), payload.Confirmed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.Finalize(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": s.Items()})
}

// GetVouching returns the per-company vouching groups with the next
// unvouched company for focus control.
func (h *SessionHandler) GetVouching(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	groups := s.VouchingGroups()
	c.JSON(http.StatusOK, gin.H{
		"groups": groups,
		"next":   vouching.NextUnvouched(groups),
	})
}

// ToggleVouching flips the vouched flag for one company's group,
// all-or-nothing.
func (h *SessionHandler) ToggleVouching(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company ID"})
		return
	}

	var payload struct {
		Vouched bool `json:"vouched"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	affected, err := s.ToggleVouching(c.Request.Context(), companyID, payload.Vouched)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"affected": affected,
		"groups":   s.VouchingGroups(),
	})
}

func (h *SessionHandler) session(c *gin.Context) (*session.Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return nil, false
	}
	s, ok := h.sessions.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) itemIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item index"})
		return 0, false
	}
	return index, true
}

func (h *SessionHandler) itemError(c *gin.Context, err error) {
	switch err {
	case session.ErrItemNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
	case session.ErrItemTerminal:
		c.JSON(http.StatusConflict, gin.H{"error": "item is already in a terminal state"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
