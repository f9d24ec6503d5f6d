package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"soapnotes-app/internal/app/http/middleware"
	"soapnotes-app/internal/domain/plans"
	"soapnotes-app/internal/domain/profiles"
	"soapnotes-app/internal/infra/payments"
	"soapnotes-app/internal/store"
	"soapnotes-app/internal/store/memstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGateway struct {
	customers  int
	checkouts  []payments.CheckoutRequest
	fail       bool
	onCustomer func(userID string)
}

func (f *fakeGateway) CreateCustomer(_ context.Context, userID, _ string) (string, error) {
	if f.fail {
		return "", errors.New("stripe down")
	}
	if f.onCustomer != nil {
		f.onCustomer(userID)
	}
	f.customers++
	return "cus_" + userID, nil
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (string, error) {
	if f.fail || req.PriceID == "" {
		return "", errors.New("invalid price")
	}
	f.checkouts = append(f.checkouts, req)
	return "https://checkout.stripe.test/" + req.PriceID, nil
}

func (f *fakeGateway) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	return "https://billing.stripe.test/" + customerID, nil
}

type testApp struct {
	t       *testing.T
	router  *gin.Engine
	store   *memstore.Store
	jwt     *middleware.JWTVerifier
	gateway *fakeGateway
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, nil)
}

// newTestAppWith lets a test wrap the profile store the router sees.
func newTestAppWith(t *testing.T, wrap func(*memstore.Store) store.Profiles) *testApp {
	t.Helper()
	st := memstore.New()
	var ps store.Profiles = st
	if wrap != nil {
		ps = wrap(st)
	}
	jwtVerifier := middleware.NewJWTVerifier("test-secret", time.Hour)
	gw := &fakeGateway{}
	r := NewRouter(Deps{
		Profiles:      ps,
		Notes:         st,
		Verifier:      jwtVerifier,
		Tokens:        jwtVerifier,
		Payments:      gw,
		Prices:        plans.NewPriceTable("", ""),
		WebhookSecret: "whsec_test",
		AppURL:        "https://app.test",
		FreeNoteLimit: 3,
		NotesPageSize: 2,
		Log:           zap.NewNop(),
	})
	return &testApp{t: t, router: r, store: st, jwt: jwtVerifier, gateway: gw}
}

func (a *testApp) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// signup registers through the API and returns the user id and token.
func (a *testApp) signup(email, occupation string) (string, string) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/register", "", gin.H{"email": email, "password": "passw0rd!", "occupation": occupation})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.UserID, resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMethodNotAllowed(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, app.do(http.MethodGet, "/webhook", "", nil).Code)
}

func TestRegisterAndLogin(t *testing.T) {
	app := newTestApp(t)
	app.signup("ana@example.com", "SLP")

	w := app.do(http.MethodPost, "/register", "", gin.H{"email": "ana@example.com", "password": "passw0rd!"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(http.MethodPost, "/register", "", gin.H{"email": "weak@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/login", "", gin.H{"email": "ana@example.com", "password": "wrong-pass1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodPost, "/login", "", gin.H{"email": "ANA@example.com", "password": "passw0rd!"})
	require.Equal(t, http.StatusOK, w.Code)
	tok := decode[map[string]string](t, w)["token"]

	claims, err := app.jwt.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Email)
}

func TestChangePassword(t *testing.T) {
	app := newTestApp(t)
	_, tok := app.signup("ana@example.com", "")

	w := app.do(http.MethodPost, "/change-password", tok, gin.H{"old_password": "nope", "new_password": "newpassw0rd"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodPost, "/change-password", tok, gin.H{"old_password": "passw0rd!", "new_password": "newpassw0rd"})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodPost, "/login", "", gin.H{"email": "ana@example.com", "password": "newpassw0rd"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/me", "/notes", "/admin/users"} {
		assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, path, "", nil).Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodPost, "/create-checkout-session", "", gin.H{"price_id": "x"}).Code)
}

func TestMeAndProfileUpdate(t *testing.T) {
	app := newTestApp(t)
	_, tok := app.signup("ana@example.com", "")

	w := app.do(http.MethodGet, "/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]any](t, w)
	assert.Equal(t, false, me["profile_complete"])
	allowance := me["allowance"].(map[string]any)
	assert.Equal(t, float64(3), allowance["remaining"])
	assert.Equal(t, true, allowance["warning"])

	w = app.do(http.MethodPut, "/me", tok, gin.H{"first_name": "Ana", "occupation": "Speech Therapist", "city": "Austin"})
	require.Equal(t, http.StatusOK, w.Code)
	me = decode[map[string]any](t, w)
	assert.Equal(t, true, me["profile_complete"])
	user := me["user"].(map[string]any)
	assert.Equal(t, "Austin", user["city"])
	assert.Equal(t, "free", user["plan"])

	for _, body := range []gin.H{{"plan": "paid_team"}, {"role": "admin"}, {"first_name": "X", "plan": "pro"}} {
		w = app.do(http.MethodPut, "/me", tok, body)
		assert.Equal(t, http.StatusForbidden, w.Code, body)
	}
	w = app.do(http.MethodGet, "/me", tok, nil)
	assert.Equal(t, "Ana", decode[map[string]any](t, w)["user"].(map[string]any)["first_name"])
}

// upgradeOnRead grants a paid plan right after the first read of a profile,
// the way a webhook landing mid-request would.
type upgradeOnRead struct {
	*memstore.Store
	mu     sync.Mutex
	target string
}

func (s *upgradeOnRead) arm(uid string) {
	s.mu.Lock()
	s.target = uid
	s.mu.Unlock()
}

func (s *upgradeOnRead) GetProfile(ctx context.Context, id string) (*profiles.Profile, error) {
	p, err := s.Store.GetProfile(ctx, id)
	s.mu.Lock()
	fire := err == nil && id == s.target
	if fire {
		s.target = ""
	}
	s.mu.Unlock()
	if fire {
		if err := s.Store.SetPlan(ctx, id, plans.PlanPaidIndividual); err != nil {
			return nil, err
		}
	}
	return p, err
}

func TestProfileUpdateKeepsConcurrentPlanChange(t *testing.T) {
	racer := &upgradeOnRead{}
	app := newTestAppWith(t, func(st *memstore.Store) store.Profiles {
		racer.Store = st
		return racer
	})
	uid, tok := app.signup("ana@example.com", "")

	racer.arm(uid)
	w := app.do(http.MethodPut, "/me", tok, gin.H{"first_name": "Ana", "occupation": "OT"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "paid_individual", decode[map[string]any](t, w)["user"].(map[string]any)["plan"])

	p, err := app.store.GetProfile(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, plans.PlanPaidIndividual, p.Plan)
	assert.Equal(t, "Ana", p.FirstName)
}

func TestPasswordChangeKeepsConcurrentPlanChange(t *testing.T) {
	racer := &upgradeOnRead{}
	app := newTestAppWith(t, func(st *memstore.Store) store.Profiles {
		racer.Store = st
		return racer
	})
	uid, tok := app.signup("ana@example.com", "")

	racer.arm(uid)
	w := app.do(http.MethodPost, "/change-password", tok, gin.H{"old_password": "passw0rd!", "new_password": "n3w-passw0rd!"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p, err := app.store.GetProfile(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, plans.PlanPaidIndividual, p.Plan)
}

func TestNoteLifecycle(t *testing.T) {
	app := newTestApp(t)
	_, tok := app.signup("ana@example.com", "Physical Therapist")

	w := app.do(http.MethodPost, "/notes/format", tok, gin.H{"raw_note": "Knee pain 4/10."})
	require.Equal(t, http.StatusOK, w.Code)
	preview := decode[map[string]string](t, w)
	assert.Equal(t, "mental-health", preview["template"])
	assert.True(t, strings.HasPrefix(preview["formatted_note"], "**S (Subjective):** Knee pain 4/10.\n\n"))

	w = app.do(http.MethodPost, "/notes/format", tok, gin.H{"raw_note": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/notes", tok, gin.H{"title": "Visit 1", "note_type": "progress", "raw_note": "Knee pain 4/10."})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		Note struct {
			ID            string `json:"id"`
			NoteType      string `json:"note_type"`
			FormattedNote string `json:"formatted_note"`
		} `json:"note"`
		Allowance struct {
			Remaining *int `json:"remaining"`
		} `json:"allowance"`
	}](t, w)
	assert.Equal(t, "progress", created.Note.NoteType)
	assert.Equal(t, preview["formatted_note"], created.Note.FormattedNote)
	require.NotNil(t, created.Allowance.Remaining)
	assert.Equal(t, 2, *created.Allowance.Remaining)

	id := created.Note.ID
	w = app.do(http.MethodPut, "/notes/"+id, tok, gin.H{"formatted_note": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPut, "/notes/"+id, tok, gin.H{"title": "Visit #1", "note_type": "discharge", "formatted_note": "edited"})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/notes/"+id, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string]any](t, w)
	assert.Equal(t, "edited", got["formatted_note"])
	assert.Equal(t, "discharge", got["note_type"])

	w = app.do(http.MethodGet, "/notes/"+id+"/export", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="visit-1.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "edited", w.Body.String())

	w = app.do(http.MethodDelete, "/notes/"+id, tok, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/notes/"+id, tok, nil).Code)
}

func TestNotesAreInvisibleToOtherUsers(t *testing.T) {
	app := newTestApp(t)
	_, ana := app.signup("ana@example.com", "")
	_, bob := app.signup("bob@example.com", "")

	w := app.do(http.MethodPost, "/notes", ana, gin.H{"raw_note": "private"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]map[string]any](t, w)["note"]["id"].(string)

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/notes/"+id, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodPut, "/notes/"+id, bob, gin.H{"title": "mine"}).Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodDelete, "/notes/"+id, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/notes/"+id+"/export", bob, nil).Code)

	w = app.do(http.MethodGet, "/notes", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode[map[string]any](t, w)["total_items"])
}

func TestFreeQuotaBlocksCreation(t *testing.T) {
	app := newTestApp(t)
	uid, tok := app.signup("ana@example.com", "")

	for i := 0; i < 3; i++ {
		w := app.do(http.MethodPost, "/notes", tok, gin.H{"raw_note": fmt.Sprintf("note %d", i)})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := app.do(http.MethodPost, "/notes", tok, gin.H{"raw_note": "one too many"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	require.NoError(t, app.store.SetPlan(context.Background(), uid, plans.PlanPaidIndividual))
	w = app.do(http.MethodPost, "/notes", tok, gin.H{"raw_note": "now allowed"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"remaining":null`)
}

func TestListNotesQuery(t *testing.T) {
	app := newTestApp(t)
	uid, tok := app.signup("ana@example.com", "")
	require.NoError(t, app.store.SetPlan(context.Background(), uid, plans.PlanPaidTeam))

	for _, n := range []gin.H{
		{"title": "banana", "note_type": "session", "raw_note": "a"},
		{"title": "Apple", "note_type": "progress", "raw_note": "b"},
		{"title": "cherry", "note_type": "session", "raw_note": "c"},
	} {
		require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/notes", tok, n).Code)
	}

	type listResp struct {
		Items []struct {
			Title string `json:"title"`
		} `json:"items"`
		Page       int `json:"page"`
		TotalPages int `json:"total_pages"`
		TotalItems int `json:"total_items"`
	}
	titles := func(r listResp) []string {
		var out []string
		for _, it := range r.Items {
			out = append(out, it.Title)
		}
		return out
	}

	r := decode[listResp](t, app.do(http.MethodGet, "/notes?sort=title-asc", tok, nil))
	assert.Equal(t, []string{"Apple", "banana"}, titles(r))
	assert.Equal(t, 2, r.TotalPages)

	r = decode[listResp](t, app.do(http.MethodGet, "/notes?sort=title-asc&page=9", tok, nil))
	assert.Equal(t, 2, r.Page)
	assert.Equal(t, []string{"cherry"}, titles(r))

	r = decode[listResp](t, app.do(http.MethodGet, "/notes?type=session&q=CHER", tok, nil))
	assert.Equal(t, []string{"cherry"}, titles(r))

	r = decode[listResp](t, app.do(http.MethodGet, "/notes?page_size=10&sort=title-desc", tok, nil))
	assert.Equal(t, []string{"cherry", "banana", "Apple"}, titles(r))

	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/notes?sort=sideways", tok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/notes?type=intake", tok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/notes?page=two", tok, nil).Code)
}

func TestAdminRoutes(t *testing.T) {
	app := newTestApp(t)
	adminID, adminTok := app.signup("admin@example.com", "")
	userID, userTok := app.signup("ana@example.com", "")

	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/admin/users", userTok, nil).Code)

	require.NoError(t, app.store.SetRole(context.Background(), adminID, profiles.RoleAdmin))

	w := app.do(http.MethodGet, "/admin/users", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 2)

	w = app.do(http.MethodPut, "/admin/users/"+userID+"/plan", adminTok, gin.H{"plan": "group"})
	require.Equal(t, http.StatusOK, w.Code)
	p, err := app.store.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, plans.PlanPaidTeam, p.Plan)

	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPut, "/admin/users/"+userID+"/plan", adminTok, gin.H{"plan": "gold"}).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPut, "/admin/users/"+userID+"/role", adminTok, gin.H{"role": "owner"}).Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodPut, "/admin/users/ghost/role", adminTok, gin.H{"role": "admin"}).Code)

	w = app.do(http.MethodPut, "/admin/users/"+userID+"/role", adminTok, gin.H{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/admin/users", userTok, nil).Code)
}

func TestCheckoutAndPortal(t *testing.T) {
	app := newTestApp(t)
	uid, tok := app.signup("ana@example.com", "")

	w := app.do(http.MethodPost, "/billing-portal", tok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(http.MethodPost, "/create-checkout-session", tok, gin.H{"price_id": plans.DefaultPriceTeam})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "https://checkout.stripe.test/"+plans.DefaultPriceTeam, decode[map[string]string](t, w)["url"])

	require.Len(t, app.gateway.checkouts, 1)
	req := app.gateway.checkouts[0]
	assert.Equal(t, uid, req.UserID)
	assert.Equal(t, "cus_"+uid, req.CustomerID)
	assert.Equal(t, "https://app.test/upgrade-success", req.SuccessURL)
	assert.Equal(t, "https://app.test/upgrade-cancelled", req.CancelURL)

	// legacy field name, and the customer is reused
	w = app.do(http.MethodPost, "/create-checkout-session", tok, gin.H{"priceId": plans.DefaultPriceIndividual})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, app.gateway.customers)

	w = app.do(http.MethodPost, "/create-checkout-session", tok, gin.H{})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = app.do(http.MethodPost, "/billing-portal", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://billing.stripe.test/cus_"+uid, decode[map[string]string](t, w)["url"])
}

func TestCheckoutKeepsPlanGrantedDuringCustomerCreation(t *testing.T) {
	app := newTestApp(t)
	uid, tok := app.signup("ana@example.com", "")
	app.gateway.onCustomer = func(userID string) {
		require.NoError(t, app.store.SetPlan(context.Background(), userID, plans.PlanPaidTeam))
	}

	w := app.do(http.MethodPost, "/create-checkout-session", tok, gin.H{"price_id": plans.DefaultPriceTeam})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p, err := app.store.GetProfile(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, plans.PlanPaidTeam, p.Plan)
	require.NotNil(t, p.StripeCustomerID)
	assert.Equal(t, "cus_"+uid, *p.StripeCustomerID)
}

func TestCheckoutProviderFailure(t *testing.T) {
	app := newTestApp(t)
	_, tok := app.signup("ana@example.com", "")
	app.gateway.fail = true

	w := app.do(http.MethodPost, "/create-checkout-session", tok, gin.H{"price_id": plans.DefaultPriceTeam})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "stripe down")
}

func TestPlansListing(t *testing.T) {
	app := newTestApp(t)
	w := app.do(http.MethodGet, "/plans", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`[{"price_id":%q,"plan":"paid_individual"},{"price_id":%q,"plan":"paid_team"}]`,
		plans.DefaultPriceIndividual, plans.DefaultPriceTeam), w.Body.String())
}

func TestProvisionProfile(t *testing.T) {
	st := memstore.New()
	hook := ProvisionProfile(st, profiles.ProviderFirebase, zap.NewNop())
	claims := &middleware.Claims{UserID: "fb-uid", Email: "fb@example.com"}

	require.NoError(t, hook(context.Background(), claims))
	require.NoError(t, hook(context.Background(), claims))

	p, err := st.GetProfile(context.Background(), "fb-uid")
	require.NoError(t, err)
	assert.Equal(t, profiles.ProviderFirebase, p.AuthProvider)
	assert.Equal(t, plans.PlanFree, p.Plan)
}

func TestProvisionProfileWithoutEmail(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	hook := ProvisionProfile(st, profiles.ProviderFirebase, zap.NewNop())

	require.NoError(t, hook(ctx, &middleware.Claims{UserID: "phone-user-1"}))
	require.NoError(t, hook(ctx, &middleware.Claims{UserID: "phone-user-2"}))

	for _, id := range []string{"phone-user-1", "phone-user-2"} {
		_, err := st.GetProfile(ctx, id)
		assert.NoError(t, err, id)
	}
}

func TestProvisionProfileEmailClash(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	hook := ProvisionProfile(st, profiles.ProviderFirebase, zap.NewNop())

	require.NoError(t, hook(ctx, &middleware.Claims{UserID: "first", Email: "same@example.com"}))
	err := hook(ctx, &middleware.Claims{UserID: "second", Email: "same@example.com"})
	assert.ErrorIs(t, err, store.ErrConflict)
}
