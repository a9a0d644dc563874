package httpcontroller

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fernwick/speciarium/internal/conf"
	"github.com/fernwick/speciarium/internal/datastore"
	"github.com/fernwick/speciarium/internal/notification"
)

// newTestServer builds a Server backed by an in-memory SQLite database
// and a live notification service. The server is constructed directly so
// tests touch neither the filesystem nor the global configuration.
func newTestServer(t *testing.T) (*Server, *datastore.DataStore) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")
	require.NoError(t, db.AutoMigrate(&datastore.Species{}))
	store := &datastore.SQLiteStore{DataStore: datastore.DataStore{DB: db}}

	notificationSvc := notification.NewService(&notification.ServiceConfig{
		MaxNotifications:   100,
		CleanupInterval:    time.Hour,
		RateLimitWindow:    time.Minute,
		RateLimitMaxEvents: 100,
	})
	t.Cleanup(notificationSvc.Stop)

	s := &Server{
		Echo: echo.New(),
		DS:   store,
		Settings: &conf.Settings{
			Catalog: conf.CatalogSettings{
				PageSize:           10,
				DescriptionPreview: 40,
			},
		},
		NotificationSvc: notificationSvc,
	}
	s.Echo.HideBanner = true
	s.initRoutes()

	return s, &store.DataStore
}

func strPtr(s string) *string { return &s }
func popPtr(v int64) *int64   { return &v }

func saveWolf(t *testing.T, store *datastore.DataStore) *datastore.Species {
	t.Helper()

	record := &datastore.Species{
		ScientificName:  "Canis lupus",
		CommonName:      strPtr("Gray wolf"),
		Kingdom:         "Animalia",
		TotalPopulation: popPtr(300000),
		ImageURL:        strPtr("https://example.com/wolf.jpg"),
		Description:     strPtr("A large canine native to Eurasia and North America."),
		OwnerID:         "user-1",
	}
	require.NoError(t, store.Save(record))
	return record
}

func doGet(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func doSubmit(t *testing.T, s *Server, target string, form url.Values, userID string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func validEditForm() url.Values {
	return url.Values{
		"scientificName":  {"Canis lupus"},
		"commonName":      {"Timber wolf"},
		"kingdom":         {"Animalia"},
		"totalPopulation": {"250000"},
		"image":           {"https://example.com/wolf2.jpg"},
		"description":     {"Updated description."},
	}
}

func TestListingPageShowsRecords(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)

	saveWolf(t, store)
	require.NoError(t, store.Save(&datastore.Species{
		ScientificName: "Quercus robur",
		CommonName:     strPtr("English oak"),
		Kingdom:        "Plantae",
		OwnerID:        "user-2",
	}))

	rec := doGet(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Canis lupus")
	assert.Contains(t, body, "Quercus robur")
	assert.Contains(t, body, "2 records")
}

func TestListingSearchFilters(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)

	saveWolf(t, store)
	require.NoError(t, store.Save(&datastore.Species{
		ScientificName: "Quercus robur",
		Kingdom:        "Plantae",
		OwnerID:        "user-2",
	}))

	rec := doGet(t, s, "/?query=wolf")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Canis lupus")
	assert.NotContains(t, body, "Quercus robur")
	assert.Contains(t, body, "1 records")
}

func TestListingPagination(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)

	for i := 0; i < 12; i++ {
		require.NoError(t, store.Save(&datastore.Species{
			ScientificName: fmt.Sprintf("Aves %02d", i),
			Kingdom:        "Animalia",
			OwnerID:        "user-1",
		}))
	}

	first := doGet(t, s, "/")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "Next")
	assert.NotContains(t, first.Body.String(), "Previous")

	second := doGet(t, s, "/?offset=10")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), "Previous")
	assert.NotContains(t, second.Body.String(), "Next")
	assert.Contains(t, second.Body.String(), "Aves 10")
}

func TestListingTruncatesDescription(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)

	require.NoError(t, store.Save(&datastore.Species{
		ScientificName: "Balaenoptera musculus",
		Kingdom:        "Animalia",
		Description:    strPtr(strings.Repeat("very long description ", 20)),
		OwnerID:        "user-1",
	}))

	rec := doGet(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "…")
}

func TestCardPageClosed(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)
	saveWolf(t, store)

	rec := doGet(t, s, "/species/1")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Canis lupus")
	assert.Contains(t, body, "state=viewing")
	assert.NotContains(t, body, `name="scientificName"`, "closed card must not render the edit form")
	assert.NotContains(t, body, "Record details")
}

func TestCardPageViewing(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)
	saveWolf(t, store)

	rec := doGet(t, s, "/species/1?state=viewing")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Record details")
	assert.Contains(t, body, "A large canine native to Eurasia and North America.")
	assert.NotContains(t, body, `name="scientificName"`, "details dialog must not render the edit form")
}

func TestCardPageEditing(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)
	saveWolf(t, store)

	rec := doGet(t, s, "/species/1?state=editing")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `action="/species/1/edit"`)
	assert.Contains(t, body, `value="Canis lupus"`)
	assert.Contains(t, body, `value="Gray wolf"`)
	assert.NotContains(t, body, "Record details", "edit form and details dialog are mutually exclusive")
}

func TestCardPageUnknownState(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)
	saveWolf(t, store)

	rec := doGet(t, s, "/species/1?state=both")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCardPageInvalidID(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doGet(t, s, "/species/not-a-number")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCardPageNotFound(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doGet(t, s, "/species/42")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditSubmitSuccess(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)
	saveWolf(t, store)

	rec := doSubmit(t, s, "/species/1/edit", validEditForm(), "user-1")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	updated, err := store.Get("1")
	require.NoError(t, err)
	require.NotNil(t, updated.CommonName)
	assert.Equal(t, "Timber wolf", *updated.CommonName)
	require.NotNil(t, updated.TotalPopulation)
	assert.Equal(t, int64(250000), *updated.TotalPopulation)
	assert.Equal(t, "user-1", updated.OwnerID, "owner must survive updates")
}

func TestEditSubmitClearsOptionalFields(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)
	saveWolf(t, store)

	form := url.Values{
		"scientificName":  {"Canis lupus"},
		"commonName":      {"   "},
		"kingdom":         {"Animalia"},
		"totalPopulation": {""},
		"image":           {""},
		"description":     {""},
	}

	rec := doSubmit(t, s, "/species/1/edit", form, "user-1")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	updated, err := store.Get("1")
	require.NoError(t, err)
	assert.Nil(t, updated.CommonName)
	assert.Nil(t, updated.TotalPopulation)
	assert.Nil(t, updated.ImageURL)
	assert.Nil(t, updated.Description)
}

func TestEditSubmitEmitsRefreshSignal(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)
	saveWolf(t, store)

	ch, _ := s.NotificationSvc.Subscribe()
	defer s.NotificationSvc.Unsubscribe(ch)

	rec := doSubmit(t, s, "/species/1/edit", validEditForm(), "user-1")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	select {
	case notif := <-ch:
		require.NotNil(t, notif)
		assert.Equal(t, notification.TypeCatalog, notif.Type)
		assert.Equal(t, "updated", notif.Metadata["action"])
	case <-time.After(time.Second):
		t.Fatal("expected a catalog refresh notification")
	}

	select {
	case notif := <-ch:
		t.Fatalf("expected exactly one notification, got a second: %+v", notif)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEditSubmitValidationFailure(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)
	saveWolf(t, store)

	form := validEditForm()
	form.Set("scientificName", "   ")
	form.Set("kingdom", "Middle-earth")
	form.Set("commonName", "Dire wolf")

	rec := doSubmit(t, s, "/species/1/edit", form, "user-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "scientific name is required")
	assert.Contains(t, body, "kingdom must be one of")
	assert.Contains(t, body, `value="Dire wolf"`, "submitted values must survive a failed submission")

	stored, err := store.Get("1")
	require.NoError(t, err)
	require.NotNil(t, stored.CommonName)
	assert.Equal(t, "Gray wolf", *stored.CommonName, "nothing may be persisted on validation failure")
}

func TestEditSubmitNonNumericPopulation(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)
	saveWolf(t, store)

	form := validEditForm()
	form.Set("totalPopulation", "many")

	rec := doSubmit(t, s, "/species/1/edit", form, "user-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "total population must be a whole number")
	assert.Contains(t, rec.Body.String(), `value="many"`)
}

func TestEditSubmitForbiddenForNonOwner(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)
	saveWolf(t, store)

	rec := doSubmit(t, s, "/species/1/edit", validEditForm(), "user-2")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "You do not own this species record")

	stored, err := store.Get("1")
	require.NoError(t, err)
	require.NotNil(t, stored.CommonName)
	assert.Equal(t, "Gray wolf", *stored.CommonName)
}

func TestEditSubmitConflictWhenInFlight(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)
	saveWolf(t, store)

	// Simulate a submit still pending for the same record
	s.inFlight.Store("1", struct{}{})

	rec := doSubmit(t, s, "/species/1/edit", validEditForm(), "user-1")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in progress")

	// The rejected request must not release the active submit's guard
	_, stillHeld := s.inFlight.Load("1")
	assert.True(t, stillHeld)
}

func TestEditSubmitNotFound(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doSubmit(t, s, "/species/42/edit", validEditForm(), "user-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
