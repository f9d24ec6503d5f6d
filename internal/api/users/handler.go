package users

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"soapnotes-app/internal/app/http/middleware"
	"soapnotes-app/internal/domain/access"
	"soapnotes-app/internal/domain/profiles"
	"soapnotes-app/internal/domain/quota"
	"soapnotes-app/internal/store"
)

type Handler struct {
	profiles  store.Profiles
	notes     store.Notes
	freeLimit int
	log       *zap.Logger
}

func NewHandler(ps store.Profiles, ns store.Notes, freeLimit int, log *zap.Logger) *Handler {
	return &Handler{profiles: ps, notes: ns, freeLimit: freeLimit, log: log}
}

type NoteCounter interface {
	CountNotes(ctx context.Context, ownerID string) (int, error)
}

// Allowance computes the note allowance for a profile. Notes are only
// counted for free plans.
func Allowance(ctx context.Context, ns NoteCounter, p profiles.Profile, limit int) (quota.Allowance, error) {
	if p.Plan.IsPaid() {
		return quota.For(p.Plan, 0, limit), nil
	}
	used, err := ns.CountNotes(ctx, p.ID)
	if err != nil {
		return quota.Allowance{}, err
	}
	return quota.For(p.Plan, used, limit), nil
}

func (h *Handler) loadSelf(c *gin.Context) (*profiles.Profile, bool) {
	uid := middleware.UserID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	p, err := h.profiles.GetProfile(c.Request.Context(), uid)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, false
	}
	if err != nil {
		h.log.Error("load profile", zap.String("user_id", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return nil, false
	}
	return p, true
}

func (h *Handler) respond(c *gin.Context, p *profiles.Profile) {
	a, err := Allowance(c.Request.Context(), h.notes, *p, h.freeLimit)
	if err != nil {
		h.log.Error("compute allowance", zap.String("user_id", p.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load note allowance"})
		return
	}
	c.JSON(http.StatusOK, MeResponse{
		User:      BuildUserDTO(*p),
		Allowance: BuildAllowanceDTO(a),
		Complete:  p.IsComplete(),
	})
}

// GET /me
func (h *Handler) GetCurrentUser(c *gin.Context) {
	p, ok := h.loadSelf(c)
	if !ok {
		return
	}
	h.respond(c, p)
}

type updateProfileRequest struct {
	Occupation    *string `json:"occupation"`
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	PreferredName *string `json:"preferred_name"`
	Address1      *string `json:"address1"`
	Address2      *string `json:"address2"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	ZipCode       *string `json:"zip_code"`

	// Accepted only to be refused; role and plan have their own paths.
	Role *string `json:"role"`
	Plan *string `json:"plan"`
}

func (r updateProfileRequest) fields() []access.Field {
	var fs []access.Field
	if r.Occupation != nil {
		fs = append(fs, access.FieldOccupation)
	}
	if r.FirstName != nil || r.LastName != nil || r.PreferredName != nil {
		fs = append(fs, access.FieldName)
	}
	if r.Address1 != nil || r.Address2 != nil || r.City != nil || r.State != nil || r.ZipCode != nil {
		fs = append(fs, access.FieldAddress)
	}
	if r.Role != nil {
		fs = append(fs, access.FieldRole)
	}
	if r.Plan != nil {
		fs = append(fs, access.FieldPlan)
	}
	return fs
}

func assign(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// PUT /me
func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	p, ok := h.loadSelf(c)
	if !ok {
		return
	}

	// The caller edits their own profile as a plain user even if they are
	// an admin; admin overrides go through /admin.
	actor := access.Actor{UserID: p.ID, Role: profiles.RoleUser}
	if err := access.CheckProfileChange(actor, p.ID, req.fields()...).Err(); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	d := p.Details()
	assign(&d.Occupation, req.Occupation)
	assign(&d.FirstName, req.FirstName)
	assign(&d.LastName, req.LastName)
	assign(&d.PreferredName, req.PreferredName)
	assign(&d.Address1, req.Address1)
	assign(&d.Address2, req.Address2)
	assign(&d.City, req.City)
	assign(&d.State, req.State)
	assign(&d.ZipCode, req.ZipCode)

	ctx := c.Request.Context()
	if err := h.profiles.UpdateDetails(ctx, p.ID, d); err != nil {
		h.log.Error("update profile", zap.String("user_id", p.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	// re-read so the response carries any plan change made meanwhile
	fresh, err := h.profiles.GetProfile(ctx, p.ID)
	if err != nil {
		p.ApplyDetails(d)
		fresh = p
	}
	h.respond(c, fresh)
}
