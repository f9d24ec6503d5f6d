package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"soapnotes-app/internal/domain/notes"
	"soapnotes-app/internal/domain/plans"
	"soapnotes-app/internal/domain/profiles"
	"soapnotes-app/internal/store/memstore"
)

func guardedRouter(s *memstore.Store, uid string, limit int) *gin.Engine {
	r := gin.New()
	r.POST("/notes",
		func(c *gin.Context) { c.Set(ctxUserID, uid) },
		RequireNoteAllowance(s, s, limit, zap.NewNop()),
		func(c *gin.Context) { c.Status(http.StatusCreated) },
	)
	return r
}

func seedNotes(t *testing.T, s *memstore.Store, owner string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		note := notes.Note{OwnerID: owner, NoteType: notes.TypeSession, FormattedNote: "x"}
		require.NoError(t, s.CreateNote(context.Background(), &note))
	}
}

func post(r http.Handler) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/notes", nil))
	return w
}

func TestRequireNoteAllowance(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	free := profiles.New("free", "free@b.co", "")
	require.NoError(t, s.CreateProfile(ctx, &free))
	paid := profiles.New("paid", "paid@b.co", "")
	paid.Plan = plans.PlanPaidIndividual
	require.NoError(t, s.CreateProfile(ctx, &paid))

	seedNotes(t, s, "free", 2)
	assert.Equal(t, http.StatusCreated, post(guardedRouter(s, "free", 3)).Code)

	seedNotes(t, s, "free", 1)
	w := post(guardedRouter(s, "free", 3))
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), `"upgrade":true`)

	seedNotes(t, s, "paid", 10)
	assert.Equal(t, http.StatusCreated, post(guardedRouter(s, "paid", 3)).Code)

	assert.Equal(t, http.StatusUnauthorized, post(guardedRouter(s, "ghost", 3)).Code)
}
