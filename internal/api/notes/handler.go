package notes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"soapnotes-app/internal/api/users"
	"soapnotes-app/internal/app/http/middleware"
	"soapnotes-app/internal/domain/access"
	dn "soapnotes-app/internal/domain/notes"
	"soapnotes-app/internal/domain/profiles"
	"soapnotes-app/internal/store"
)

type Handler struct {
	profiles  store.Profiles
	notes     store.Notes
	freeLimit int
	pageSize  int
	log       *zap.Logger
}

func NewHandler(ps store.Profiles, ns store.Notes, freeLimit, pageSize int, log *zap.Logger) *Handler {
	if pageSize <= 0 {
		pageSize = dn.DefaultPageSize
	}
	return &Handler{profiles: ps, notes: ns, freeLimit: freeLimit, pageSize: pageSize, log: log}
}

func (h *Handler) caller(c *gin.Context) (*profiles.Profile, bool) {
	uid := middleware.UserID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	p, err := h.profiles.GetProfile(c.Request.Context(), uid)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return nil, false
	}
	if err != nil {
		h.log.Error("load profile", zap.String("user_id", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return nil, false
	}
	return p, true
}

// ownedNote loads a note and answers 404 unless the caller owns it, so the
// existence of other users' notes is not revealed.
func (h *Handler) ownedNote(c *gin.Context) (*dn.Note, bool) {
	uid := middleware.UserID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	n, err := h.notes.GetNote(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
		return nil, false
	}
	if err != nil {
		h.log.Error("load note", zap.String("note_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load note"})
		return nil, false
	}
	if !access.CanAccessNote(access.Actor{UserID: uid}, n.OwnerID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
		return nil, false
	}
	return n, true
}

// POST /notes/format
func (h *Handler) Format(c *gin.Context) {
	var req formatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	p, ok := h.caller(c)
	if !ok {
		return
	}
	formatted, err := dn.Format(req.RawNote, p.Occupation)
	if errors.Is(err, dn.ErrEmptyRawNote) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter some notes to format"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"formatted_note": formatted,
		"template":       dn.TemplateName(p.Occupation),
	})
}

// POST /notes
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	noteType, err := dn.ParseType(req.NoteType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.RawNote) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter some notes to format"})
		return
	}

	p, ok := h.caller(c)
	if !ok {
		return
	}

	formatted := req.FormattedNote
	if strings.TrimSpace(formatted) == "" {
		if formatted, err = dn.Format(req.RawNote, p.Occupation); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	n := dn.Note{
		OwnerID:       p.ID,
		Title:         strings.TrimSpace(req.Title),
		NoteType:      noteType,
		RawNote:       req.RawNote,
		FormattedNote: formatted,
	}
	if err := h.notes.CreateNote(c.Request.Context(), &n); err != nil {
		h.log.Error("create note", zap.String("user_id", p.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save note"})
		return
	}

	resp := gin.H{"note": toDTO(n)}
	if a, err := users.Allowance(c.Request.Context(), h.notes, *p, h.freeLimit); err == nil {
		resp["allowance"] = users.BuildAllowanceDTO(a)
	} else {
		h.log.Warn("compute allowance after create", zap.String("user_id", p.ID), zap.Error(err))
	}
	c.JSON(http.StatusCreated, resp)
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

// GET /notes?type=&q=&sort=&page=&page_size=
func (h *Handler) List(c *gin.Context) {
	filter, err := dn.ParseFilter(c.Query("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sortKey, err := dn.ParseSortKey(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := intQuery(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pageSize, err := intQuery(c, "page_size", h.pageSize)
	if err != nil || pageSize < 1 || pageSize > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page_size"})
		return
	}

	p, ok := h.caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	snapshot, err := h.notes.ListNotes(ctx, p.ID)
	if err != nil {
		h.log.Error("list notes", zap.String("user_id", p.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notes"})
		return
	}

	vm := dn.NewViewModel(snapshot, pageSize)
	vm.SetFilter(filter)
	vm.SetSearch(c.Query("q"))
	vm.SetSort(sortKey)
	vm.GoTo(page)
	cur := vm.Current()

	// the snapshot already holds every note, so the allowance needs no count query
	a, err := users.Allowance(ctx, countOf(len(snapshot)), *p, h.freeLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load note allowance"})
		return
	}

	q := vm.Query()
	c.JSON(http.StatusOK, ListResponse{
		Items:      toDTOs(cur.Items),
		Page:       cur.Page,
		PageSize:   cur.PageSize,
		TotalPages: cur.TotalPages,
		TotalItems: cur.TotalItems,
		Filter:     q.Type,
		Search:     q.Search,
		Sort:       string(q.Sort),
		Allowance:  users.BuildAllowanceDTO(a),
	})
}

// GET /notes/:id
func (h *Handler) Get(c *gin.Context) {
	n, ok := h.ownedNote(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toDTO(*n))
}

// PUT /notes/:id
func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	n, ok := h.ownedNote(c)
	if !ok {
		return
	}

	if req.Title != nil {
		n.Title = strings.TrimSpace(*req.Title)
	}
	if req.NoteType != nil {
		t, err := dn.ParseType(*req.NoteType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		n.NoteType = t
	}
	if req.FormattedNote != nil {
		n.FormattedNote = *req.FormattedNote
	}
	if err := n.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.notes.UpdateNote(c.Request.Context(), n); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
			return
		}
		h.log.Error("update note", zap.String("note_id", n.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update note"})
		return
	}
	c.JSON(http.StatusOK, toDTO(*n))
}

// DELETE /notes/:id
func (h *Handler) Delete(c *gin.Context) {
	n, ok := h.ownedNote(c)
	if !ok {
		return
	}
	if err := h.notes.DeleteNote(c.Request.Context(), n.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		h.log.Error("delete note", zap.String("note_id", n.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete note"})
		return
	}
	c.Status(http.StatusNoContent)
}

type countOf int

func (n countOf) CountNotes(context.Context, string) (int, error) { return int(n), nil }

// ExportFilename is the slugged title with a .txt extension, "note.txt"
// when the title has nothing usable.
func ExportFilename(title string) string {
	s := slug.Make(title)
	if s == "" {
		s = "note"
	}
	return s + ".txt"
}

// GET /notes/:id/export
func (h *Handler) Export(c *gin.Context) {
	n, ok := h.ownedNote(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, ExportFilename(n.Title)))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(n.FormattedNote))
}
