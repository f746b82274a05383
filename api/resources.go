package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-expense-ledger/domain"
	"github.com/goliatone/go-expense-ledger/querycache"
	"github.com/goliatone/go-expense-ledger/settings"
)

type sessionRequest struct {
	IDToken string `json:"idToken"`
}

// SignIn serves POST /api/session. The ID token comes from the body or the
// Authorization header.
func (h *Handler) SignIn(c *gin.Context) {
	var req sessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	token := req.IDToken
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		h.fail(c, domain.ErrUnauthenticated)
		return
	}

	p, err := h.auth.SignIn(c.Request.Context(), token)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.invalidate(c.Request.Context(), querycache.TagUsers)
	c.JSON(http.StatusOK, gin.H{"principal": p})
}

// Me serves GET /api/me.
func (h *Handler) Me(c *gin.Context) {
	p := principal(c)
	user, err := querycache.Fetch(c.Request.Context(), h.client, h.queries.User(p.UID))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"principal": p, "user": user})
}

// ListFields serves GET /api/fields.
func (h *Handler) ListFields(c *gin.Context) {
	fields, err := querycache.Fetch(c.Request.Context(), h.client, h.queries.Fields())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

// CreateField serves POST /api/fields.
func (h *Handler) CreateField(c *gin.Context) {
	var in domain.FieldInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}
	field, err := h.fields.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.invalidate(c.Request.Context(), querycache.TagFields)
	c.JSON(http.StatusCreated, field)
}

// UpdateField serves PUT /api/fields/:id.
func (h *Handler) UpdateField(c *gin.Context) {
	var in domain.FieldInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}
	field, err := h.fields.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.invalidate(c.Request.Context(), querycache.TagFields)
	c.JSON(http.StatusOK, field)
}

// DeleteField serves DELETE /api/fields/:id.
func (h *Handler) DeleteField(c *gin.Context) {
	if err := h.fields.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	h.invalidate(c.Request.Context(), querycache.TagFields)
	c.Status(http.StatusNoContent)
}

// ListUsers serves GET /api/users to admins and the owner.
func (h *Handler) ListUsers(c *gin.Context) {
	if p := principal(c); !p.IsAdmin && !p.IsOwner {
		h.fail(c, domain.ErrForbidden)
		return
	}
	users, err := querycache.Fetch(c.Request.Context(), h.client, h.queries.Users())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type adminRequest struct {
	IsAdmin bool `json:"isAdmin"`
}

// SetAdmin serves PUT /api/users/:uid/admin. Only the owner may call it.
func (h *Handler) SetAdmin(c *gin.Context) {
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}
	uid := c.Param("uid")
	if err := h.users.SetAdmin(c.Request.Context(), principal(c), uid, req.IsAdmin); err != nil {
		h.fail(c, err)
		return
	}
	// admin visibility changes the transaction lists too
	h.invalidate(c.Request.Context(), querycache.TagUsers, querycache.TagTransactions)
	c.JSON(http.StatusOK, gin.H{"uid": uid, "isAdmin": req.IsAdmin})
}

// ListAllowedUsers serves GET /api/allowed-users to admins and the owner.
func (h *Handler) ListAllowedUsers(c *gin.Context) {
	if p := principal(c); !p.IsAdmin && !p.IsOwner {
		h.fail(c, domain.ErrForbidden)
		return
	}
	allowed, err := querycache.Fetch(c.Request.Context(), h.client, h.queries.AllowedUsers())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowedUsers": allowed})
}

// AddAllowedUser serves POST /api/allowed-users. Only the owner may call it.
func (h *Handler) AddAllowedUser(c *gin.Context) {
	if !principal(c).IsOwner {
		h.fail(c, domain.ErrForbidden)
		return
	}
	var in domain.AllowedUserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}
	allowed, err := h.allowedUsers.Add(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.invalidate(c.Request.Context(), querycache.TagAllowedUsers)
	c.JSON(http.StatusCreated, allowed)
}

// DeleteAllowedUser serves DELETE /api/allowed-users/:id.
func (h *Handler) DeleteAllowedUser(c *gin.Context) {
	if err := h.allowedUsers.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	h.invalidate(c.Request.Context(), querycache.TagAllowedUsers)
	c.Status(http.StatusNoContent)
}

// GetSettings serves GET /api/settings.
func (h *Handler) GetSettings(c *gin.Context) {
	prefs, err := h.settings.Load(c.Request.Context(), principal(c).UID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// PutSettings serves PUT /api/settings.
func (h *Handler) PutSettings(c *gin.Context) {
	var prefs settings.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}
	saved, err := h.settings.Save(c.Request.Context(), principal(c).UID, prefs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
