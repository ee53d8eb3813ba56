package handler

import (
	"net/http"

	"statement-ingestion-backend/internal/repository"

	"github.com/gin-gonic/gin"
)

// BankHandler serves the read-only bank/company roster.
type BankHandler struct {
	banks *repository.BankAccountRepository
}

func NewBankHandler(banks *repository.BankAccountRepository) *BankHandler {
	return &BankHandler{banks: banks}
}

func (h *BankHandler) ListBanks(c *gin.Context) {
	accounts, err := h.banks.ListBanks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"banks": accounts})
}
