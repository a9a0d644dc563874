// species_test.go: tests for the species record handlers
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fernwick/speciarium/internal/datastore"
	"github.com/fernwick/speciarium/internal/notification"
)

func strPtr(s string) *string { return &s }
func popPtr(v int64) *int64   { return &v }

func storedWolf() datastore.Species {
	return datastore.Species{
		ID:              1,
		ScientificName:  "Canis lupus",
		CommonName:      strPtr("Gray wolf"),
		Kingdom:         "Animalia",
		TotalPopulation: popPtr(300000),
		OwnerID:         "user-1",
		UpdatedAt:       time.Now(),
	}
}

// newJSONContext builds an echo context carrying a JSON body
func newJSONContext(e *echo.Echo, method, target, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestGetSpecies(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	mockDS.On("Get", "1").Return(storedWolf(), nil)

	c, rec := newJSONContext(e, http.MethodGet, "/api/v2/species/1", "", "")
	c.SetPath("/api/v2/species/:id")
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, controller.GetSpecies(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp SpeciesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Canis lupus", resp.ScientificName)
	require.NotNil(t, resp.CommonName)
	assert.Equal(t, "Gray wolf", *resp.CommonName)
	assert.Nil(t, resp.Description)
}

func TestGetSpeciesNotFound(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	mockDS.On("Get", "42").Return(datastore.Species{}, gorm.ErrRecordNotFound)

	c, rec := newJSONContext(e, http.MethodGet, "/api/v2/species/42", "", "")
	c.SetPath("/api/v2/species/:id")
	c.SetParamNames("id")
	c.SetParamValues("42")

	require.NoError(t, controller.GetSpecies(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSpeciesInvalidID(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	c, rec := newJSONContext(e, http.MethodGet, "/api/v2/species/abc", "", "")
	c.SetPath("/api/v2/species/:id")
	c.SetParamNames("id")
	c.SetParamValues("abc")

	require.NoError(t, controller.GetSpecies(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSpeciesList(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	mockDS.On("SearchSpecies", "", true, 25, 0).Return([]datastore.Species{storedWolf()}, nil)
	mockDS.On("CountSearchResults", "").Return(int64(1), nil)

	c, rec := newJSONContext(e, http.MethodGet, "/api/v2/species", "", "")
	c.SetPath("/api/v2/species")

	require.NoError(t, controller.GetSpeciesList(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 1, resp["total"], 0.01)
	species, ok := resp["species"].([]any)
	require.True(t, ok)
	assert.Len(t, species, 1)
}

func TestCreateSpecies(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	mockDS.On("Save", mock.MatchedBy(func(record *datastore.Species) bool {
		return record.ScientificName == "Canis lupus" &&
			record.Kingdom == "Animalia" &&
			record.OwnerID == "user-1"
	})).Return(nil)

	body := `{"scientificName": "  Canis lupus  ", "commonName": "", "kingdom": ""}`
	c, rec := newJSONContext(e, http.MethodPost, "/api/v2/species", body, "user-1")
	c.SetPath("/api/v2/species")

	require.NoError(t, controller.CreateSpecies(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp SpeciesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Canis lupus", resp.ScientificName, "name should be stored trimmed")
	assert.Nil(t, resp.CommonName, "blank common name should be stored absent")
	assert.Equal(t, "Animalia", resp.Kingdom, "empty kingdom defaults on create")

	mockDS.AssertExpectations(t)
}

func TestCreateSpeciesValidationFailure(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	body := `{"scientificName": "   ", "kingdom": "Animalia", "totalPopulation": -5, "image": "not-a-url"}`
	c, rec := newJSONContext(e, http.MethodPost, "/api/v2/species", body, "user-1")
	c.SetPath("/api/v2/species")

	require.NoError(t, controller.CreateSpecies(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	fields := make(map[string]string)
	for _, fe := range resp.Fields {
		fields[fe.Field] = fe.Message
	}
	assert.Contains(t, fields, "scientificName")
	assert.Contains(t, fields, "totalPopulation")
	assert.Contains(t, fields, "image")

	// Validation failures must not touch the datastore
	mockDS.AssertNotCalled(t, "Save", mock.Anything)
}

func TestUpdateSpecies(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	mockDS.On("Get", "1").Return(storedWolf(), nil)
	mockDS.On("Update", mock.MatchedBy(func(record *datastore.Species) bool {
		return record.ID == 1 &&
			record.ScientificName == "Canis lupus lupus" &&
			record.CommonName == nil &&
			record.OwnerID == "user-1"
	})).Return(nil)

	// Blank optional fields in a full-record update clear the stored values
	body := `{"scientificName": "Canis lupus lupus", "commonName": "   ", "kingdom": "Animalia"}`
	c, rec := newJSONContext(e, http.MethodPut, "/api/v2/species/1", body, "user-1")
	c.SetPath("/api/v2/species/:id")
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, controller.UpdateSpecies(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp SpeciesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Canis lupus lupus", resp.ScientificName)
	assert.Nil(t, resp.CommonName)

	mockDS.AssertExpectations(t)
}

func TestUpdateSpeciesEmitsOneRefreshSignal(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	ch, _ := controller.NotificationSvc.Subscribe()
	defer controller.NotificationSvc.Unsubscribe(ch)

	mockDS.On("Get", "1").Return(storedWolf(), nil)
	mockDS.On("Update", mock.Anything).Return(nil)

	body := `{"scientificName": "Canis lupus", "kingdom": "Animalia"}`
	c, _ := newJSONContext(e, http.MethodPut, "/api/v2/species/1", body, "user-1")
	c.SetPath("/api/v2/species/:id")
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, controller.UpdateSpecies(c))

	select {
	case notif := <-ch:
		assert.Equal(t, notification.TypeCatalog, notif.Type)
		assert.Equal(t, "updated", notif.Metadata["action"])
	case <-time.After(time.Second):
		t.Fatal("expected a refresh signal after a successful update")
	}

	// Exactly one signal per update
	select {
	case extra := <-ch:
		t.Fatalf("unexpected second broadcast: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUpdateSpeciesForbiddenForNonOwner(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	mockDS.On("Get", "1").Return(storedWolf(), nil)

	body := `{"scientificName": "Canis lupus", "kingdom": "Animalia"}`
	c, rec := newJSONContext(e, http.MethodPut, "/api/v2/species/1", body, "intruder")
	c.SetPath("/api/v2/species/:id")
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, controller.UpdateSpecies(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	mockDS.AssertNotCalled(t, "Update", mock.Anything)
}

func TestUpdateSpeciesNotFound(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	mockDS.On("Get", "42").Return(datastore.Species{}, gorm.ErrRecordNotFound)

	body := `{"scientificName": "Canis lupus", "kingdom": "Animalia"}`
	c, rec := newJSONContext(e, http.MethodPut, "/api/v2/species/42", body, "user-1")
	c.SetPath("/api/v2/species/:id")
	c.SetParamNames("id")
	c.SetParamValues("42")

	require.NoError(t, controller.UpdateSpecies(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateSpeciesPersistenceFailureSendsErrorToast(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	ch, _ := controller.NotificationSvc.Subscribe()
	defer controller.NotificationSvc.Unsubscribe(ch)

	mockDS.On("Get", "1").Return(storedWolf(), nil)
	mockDS.On("Update", mock.Anything).Return(assert.AnError)

	body := `{"scientificName": "Canis lupus", "kingdom": "Animalia"}`
	c, rec := newJSONContext(e, http.MethodPut, "/api/v2/species/1", body, "user-1")
	c.SetPath("/api/v2/species/:id")
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, controller.UpdateSpecies(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// The backend error text rides an error toast, not a persisted notification
	select {
	case notif := <-ch:
		isToast, _ := notif.Metadata[notification.MetadataKeyIsToast].(bool)
		assert.True(t, isToast)
		assert.Contains(t, notif.Message, assert.AnError.Error())
	case <-time.After(time.Second):
		t.Fatal("expected an error toast after a persistence failure")
	}
}

func TestUpdateSpeciesValidationFailure(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	// Updates carry the full record; an empty kingdom is a field error
	body := `{"scientificName": "Canis lupus", "kingdom": "Middle-earth"}`
	c, rec := newJSONContext(e, http.MethodPut, "/api/v2/species/1", body, "user-1")
	c.SetPath("/api/v2/species/:id")
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, controller.UpdateSpecies(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Fields)
	assert.Equal(t, "kingdom", resp.Fields[0].Field)

	mockDS.AssertNotCalled(t, "Get", mock.Anything)
	mockDS.AssertNotCalled(t, "Update", mock.Anything)
}

func TestUpdateSpeciesConflictWhenInFlight(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	// Simulate an update already holding the guard for record 1
	controller.inFlight.Store("1", struct{}{})

	body := `{"scientificName": "Canis lupus", "kingdom": "Animalia"}`
	c, rec := newJSONContext(e, http.MethodPut, "/api/v2/species/1", body, "user-1")
	c.SetPath("/api/v2/species/:id")
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, controller.UpdateSpecies(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The guard belongs to the in-flight update and must survive the rejection
	_, held := controller.inFlight.Load("1")
	assert.True(t, held)
}

func TestHealthCheck(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	mockDS.On("CountSearchResults", "").Return(int64(0), nil)

	c, rec := newJSONContext(e, http.MethodGet, "/api/v2/health", "", "")
	c.SetPath("/api/v2/health")

	require.NoError(t, controller.HealthCheck(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "connected", resp["database_status"])
}
