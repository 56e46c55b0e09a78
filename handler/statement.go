package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ledgerlens/statementchat/middleware"
	"github.com/ledgerlens/statementchat/model"
	"github.com/ledgerlens/statementchat/pkg/logger"
	"github.com/ledgerlens/statementchat/service"
)

type StatementHandler struct {
	classifier *service.Classifier
	store      *service.SessionStore
}

func NewStatementHandler(gen service.Generator) *StatementHandler {
	return &StatementHandler{
		classifier: service.NewClassifier(gen),
		store:      service.GetSessionStore(),
	}
}

// Upload handles a statement upload: parse, classify, extract, validate,
// store. The whole round trip is synchronous; the response carries the
// stored record's summary.
func (h *StatementHandler) Upload(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	session := h.store.Get(sessionID)
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return
	}

	// Get file from form
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	// Validate file type - Excel workbooks only
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only XLSX and XLS files are allowed"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	ctx := c.Request.Context()

	csvContent, err := service.ExtractText(data, ext)
	if err != nil {
		logger.Warn(ctx, "statement parse failed", "filename", header.Filename, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read spreadsheet: " + err.Error()})
		return
	}

	ident, err := h.classifier.Identify(ctx, csvContent)
	if err != nil {
		h.renderError(c, err)
		return
	}

	logger.Info(ctx, "statement classified",
		"filename", header.Filename,
		"statement_type", ident.StatementType,
		"confidence", ident.Confidence,
	)

	switch ident.StatementType {
	case model.TypeProfitAndLoss:
		raw, err := h.classifier.ExtractProfitAndLoss(ctx, csvContent)
		if err != nil {
			h.renderError(c, err)
			return
		}
		pl, err := service.ValidateProfitAndLoss(ctx, raw)
		if err != nil {
			h.renderError(c, err)
			return
		}
		if !h.store.PutProfitAndLoss(sessionID, pl) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"statement_type": model.TypeProfitAndLoss,
			"confidence":     ident.Confidence,
			"summary": gin.H{
				"company_name":  pl.CompanyName,
				"period_start":  pl.PeriodStart,
				"period_end":    pl.PeriodEnd,
				"net_income":    pl.NetIncome,
				"income_items":  len(pl.IncomeItems),
				"expense_items": len(pl.ExpenseItems),
			},
		})

	case model.TypeBalanceSheet:
		raw, err := h.classifier.ExtractBalanceSheet(ctx, csvContent)
		if err != nil {
			h.renderError(c, err)
			return
		}
		bs, err := service.ValidateBalanceSheet(ctx, raw)
		if err != nil {
			h.renderError(c, err)
			return
		}
		if !h.store.PutBalanceSheet(sessionID, bs) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"statement_type": model.TypeBalanceSheet,
			"confidence":     ident.Confidence,
			"summary": gin.H{
				"company_name":   bs.CompanyName,
				"as_of_date":     bs.AsOfDate,
				"time_periods":   bs.TimePeriods,
				"asset_accounts": len(bs.Assets),
			},
		})
	}
}

// Delete clears one statement slot
func (h *StatementHandler) Delete(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	typ := model.StatementType(c.Param("type"))
	if !typ.Storable() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown statement type"})
		return
	}

	if h.store.Get(sessionID) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return
	}
	if !h.store.DeleteStatement(sessionID, typ) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No statement of that type stored"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Statement deleted"})
}

// renderError maps the processing error taxonomy to HTTP statuses. The
// session and its stored records are untouched by a failed upload.
func (h *StatementHandler) renderError(c *gin.Context, err error) {
	var classErr *model.ClassificationError
	var valErr *model.ValidationError

	switch {
	case errors.As(err, &classErr):
		if classErr.Err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Statement analysis failed: " + classErr.Reason})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          "Could not identify statement type",
			"statement_type": model.TypeUnknown,
			"reasoning":      classErr.Reason,
		})
	case errors.As(err, &valErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Extracted statement failed validation",
			"field":  valErr.Field,
			"reason": valErr.Reason,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process statement"})
	}
}
