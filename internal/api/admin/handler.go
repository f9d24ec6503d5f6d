package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"soapnotes-app/internal/app/http/middleware"
	"soapnotes-app/internal/domain/access"
	"soapnotes-app/internal/domain/plans"
	"soapnotes-app/internal/domain/profiles"
	"soapnotes-app/internal/store"
)

type AdminUser struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Occupation       string    `json:"occupation"`
	Role             string    `json:"role"`
	Plan             string    `json:"plan"`
	AuthProvider     string    `json:"auth_provider"`
	StripeCustomerID *string   `json:"stripe_customer_id,omitempty"`
	NoteCount        int       `json:"note_count"`
	CreatedAt        time.Time `json:"created_at"`
}

type Handler struct {
	profiles store.Profiles
	notes    store.Notes
	log      *zap.Logger
}

func NewHandler(ps store.Profiles, ns store.Notes, log *zap.Logger) *Handler {
	return &Handler{profiles: ps, notes: ns, log: log}
}

// GET /admin/users
func (h *Handler) ListAllUsers(c *gin.Context) {
	ctx := c.Request.Context()
	all, err := h.profiles.ListProfiles(ctx)
	if err != nil {
		h.log.Error("list profiles", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	out := make([]AdminUser, 0, len(all))
	for _, u := range all {
		count, err := h.notes.CountNotes(ctx, u.ID)
		if err != nil {
			h.log.Error("count notes", zap.String("user_id", u.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
			return
		}
		out = append(out, AdminUser{
			ID:               u.ID,
			Email:            u.Email,
			FirstName:        u.FirstName,
			LastName:         u.LastName,
			Occupation:       u.Occupation,
			Role:             string(u.Role),
			Plan:             string(u.Plan),
			AuthProvider:     u.AuthProvider,
			StripeCustomerID: u.StripeCustomerID,
			NoteCount:        count,
			CreatedAt:        u.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) actor(c *gin.Context) (access.Actor, bool) {
	p, err := h.profiles.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return access.Actor{}, false
	}
	return access.UserActor(*p), true
}

func (h *Handler) targetExists(c *gin.Context, id string) bool {
	_, err := h.profiles.GetProfile(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return false
	}
	if err != nil {
		h.log.Error("load target profile", zap.String("user_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return false
	}
	return true
}

// PUT /admin/users/:id/role
func (h *Handler) SetRole(c *gin.Context) {
	var body struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing role"})
		return
	}
	var role profiles.Role
	switch profiles.Role(body.Role) {
	case profiles.RoleUser, profiles.RoleAdmin:
		role = profiles.Role(body.Role)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	actor, ok := h.actor(c)
	if !ok {
		return
	}
	target := c.Param("id")
	if err := access.CheckProfileChange(actor, target, access.FieldRole).Err(); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	if !h.targetExists(c, target) {
		return
	}

	if err := h.profiles.SetRole(c.Request.Context(), target, role); err != nil {
		h.log.Error("set role", zap.String("user_id", target), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}
	h.log.Info("role changed", zap.String("by", actor.UserID), zap.String("user_id", target), zap.String("role", string(role)))
	c.JSON(http.StatusOK, gin.H{"id": target, "role": role})
}

// PUT /admin/users/:id/plan
func (h *Handler) SetPlan(c *gin.Context) {
	var body struct {
		Plan string `json:"plan" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing plan"})
		return
	}
	plan, err := plans.Parse(body.Plan)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := h.actor(c)
	if !ok {
		return
	}
	target := c.Param("id")
	if err := access.CheckProfileChange(actor, target, access.FieldPlan).Err(); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	if !h.targetExists(c, target) {
		return
	}

	if err := h.profiles.SetPlan(c.Request.Context(), target, plan); err != nil {
		h.log.Error("set plan", zap.String("user_id", target), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update plan"})
		return
	}
	h.log.Info("plan changed", zap.String("by", actor.UserID), zap.String("user_id", target), zap.String("plan", string(plan)))
	c.JSON(http.StatusOK, gin.H{"id": target, "plan": plan})
}
