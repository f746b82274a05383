package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goliatone/go-expense-ledger/domain"
	"github.com/goliatone/go-expense-ledger/export"
	"github.com/goliatone/go-expense-ledger/querycache"
	"github.com/goliatone/go-expense-ledger/views"
)

type transactionRequest struct {
	Type domain.TransactionType `json:"type"`
	domain.TransactionInput
}

// SummaryResponse is the dashboard payload.
type SummaryResponse struct {
	Period  views.Period       `json:"period"`
	From    string             `json:"from"`
	FieldID string             `json:"fieldId,omitempty"`
	Summary views.Summary      `json:"summary"`
	ByField []views.FieldTotal `json:"byField"`
}

func canEdit(p domain.Principal, tx domain.Transaction) bool {
	return p.IsAdmin || tx.AuthorID == p.UID
}

// listFor returns the cached list selected by the type query parameter.
func (h *Handler) listFor(c *gin.Context, p domain.Principal) ([]domain.Transaction, error) {
	var q querycache.Query[[]domain.Transaction]
	switch domain.TransactionType(c.Query("type")) {
	case "":
		q = h.queries.Transactions(p)
	case domain.Income:
		q = h.queries.Income(p)
	case domain.Expense:
		q = h.queries.Expense(p)
	default:
		return nil, &domain.ValidationError{Entity: "query", Err: fmt.Errorf("unknown transaction type %q", c.Query("type"))}
	}
	return querycache.Fetch(c.Request.Context(), h.client, q)
}

// filterFor reads the period and fieldId query parameters.
func (h *Handler) filterFor(c *gin.Context) (views.Period, views.Filter, error) {
	period, err := views.ParsePeriod(c.Query("period"))
	if err != nil {
		return "", views.Filter{}, &domain.ValidationError{Entity: "query", Err: err}
	}
	return period, views.FilterFor(period, c.Query("fieldId"), h.now()), nil
}

// ListTransactions serves GET /api/transactions?type=&period=&fieldId=,
// newest first. Without a period every visible transaction is returned.
func (h *Handler) ListTransactions(c *gin.Context) {
	list, err := h.listFor(c, principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if c.Query("period") != "" || c.Query("fieldId") != "" {
		_, f, err := h.filterFor(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		if c.Query("period") == "" {
			f.From = views.All.Cutoff(h.now())
		}
		list = f.Apply(list)
	}
	c.JSON(http.StatusOK, gin.H{"transactions": views.SortByDateDesc(list)})
}

// Summary serves GET /api/transactions/summary?period=&fieldId=.
func (h *Handler) Summary(c *gin.Context) {
	period, f, err := h.filterFor(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	list, err := h.listFor(c, principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	s := views.Summarize(list, f)
	s.Transactions = views.SortByDateDesc(s.Transactions)
	c.JSON(http.StatusOK, SummaryResponse{
		Period:  period,
		From:    f.From.Format("2006-01-02"),
		FieldID: f.FieldID,
		Summary: s,
		ByField: views.GroupByField(s.Transactions),
	})
}

// Export serves GET /api/transactions/export as a CSV download of the
// filtered list.
func (h *Handler) Export(c *gin.Context) {
	_, f, err := h.filterFor(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	list, err := h.listFor(c, principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Header("Content-Type", export.ContentType)
	c.Status(http.StatusOK)
	if err := h.exporter.Write(c.Writer, views.SortByDateDesc(f.Apply(list))); err != nil {
		h.logger.Warn("export interrupted", zap.Error(err))
	}
}

// CreateTransaction serves POST /api/transactions.
func (h *Handler) CreateTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	tx, err := h.transactions.Create(c.Request.Context(), principal(c), req.Type, req.TransactionInput)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.invalidate(c.Request.Context(), querycache.TagTransactions)
	c.JSON(http.StatusCreated, tx)
}

// GetTransaction serves GET /api/transactions/:id.
func (h *Handler) GetTransaction(c *gin.Context) {
	tx, err := h.transactions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !canEdit(principal(c), tx) {
		h.fail(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// authorize loads id and checks that p may change it. A missing id is
// allowed through: updates upsert and deletes are idempotent.
func (h *Handler) authorize(c *gin.Context, id string) (domain.Transaction, bool, error) {
	tx, err := h.transactions.Get(c.Request.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Transaction{}, false, nil
	}
	if err != nil {
		return domain.Transaction{}, false, err
	}
	if !canEdit(principal(c), tx) {
		return domain.Transaction{}, false, domain.ErrForbidden
	}
	return tx, true, nil
}

// UpdateTransaction serves PUT /api/transactions/:id. The type of an
// existing transaction cannot change. An unknown id is created for the
// caller and needs a type.
func (h *Handler) UpdateTransaction(c *gin.Context) {
	id := c.Param("id")
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	existing, found, err := h.authorize(c, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if found && req.Type != "" && req.Type != existing.Type {
		h.fail(c, &domain.ValidationError{Entity: "transaction", Err: fmt.Errorf("type of %s is fixed to %s", id, existing.Type)})
		return
	}

	ctx := c.Request.Context()
	actor := principal(c)
	var tx domain.Transaction
	switch req.Type {
	case "":
		tx, err = h.transactions.Update(ctx, actor, id, req.TransactionInput)
	case domain.Income:
		tx, err = h.transactions.UpdateIncome(ctx, actor, id, req.TransactionInput)
	case domain.Expense:
		tx, err = h.transactions.UpdateExpense(ctx, actor, id, req.TransactionInput)
	default:
		err = &domain.ValidationError{Entity: "transaction", Err: fmt.Errorf("unknown transaction type %q", req.Type)}
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.invalidate(ctx, querycache.TagTransactions)
	c.JSON(http.StatusOK, tx)
}

// DeleteTransaction serves DELETE /api/transactions/:id.
func (h *Handler) DeleteTransaction(c *gin.Context) {
	id := c.Param("id")
	if _, _, err := h.authorize(c, id); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.transactions.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.invalidate(c.Request.Context(), querycache.TagTransactions)
	c.Status(http.StatusNoContent)
}
