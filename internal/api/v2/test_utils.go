// test_utils.go: Package api provides shared test utilities for API v2 tests.

package api

import (
	"io"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/fernwick/speciarium/internal/conf"
	"github.com/fernwick/speciarium/internal/datastore"
	"github.com/fernwick/speciarium/internal/notification"
)

// MockDataStore implements the datastore.Interface for testing.
// This is a shared implementation that can be used across all test files.
type MockDataStore struct {
	mock.Mock
}

func (m *MockDataStore) Open() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) Save(record *datastore.Species) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *MockDataStore) Get(id string) (datastore.Species, error) {
	args := m.Called(id)
	return args.Get(0).(datastore.Species), args.Error(1)
}

func (m *MockDataStore) Update(record *datastore.Species) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *MockDataStore) GetAllSpecies() ([]datastore.Species, error) {
	args := m.Called()
	return args.Get(0).([]datastore.Species), args.Error(1)
}

func (m *MockDataStore) SearchSpecies(query string, sortAscending bool, limit, offset int) ([]datastore.Species, error) {
	args := m.Called(query, sortAscending, limit, offset)
	return args.Get(0).([]datastore.Species), args.Error(1)
}

func (m *MockDataStore) CountSearchResults(query string) (int64, error) {
	args := m.Called(query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataStore) GetSpeciesByOwner(ownerID string, limit, offset int) ([]datastore.Species, error) {
	args := m.Called(ownerID, limit, offset)
	return args.Get(0).([]datastore.Species), args.Error(1)
}

// setupTestEnvironment creates an Echo instance, a mock datastore, a live
// notification service and a Controller wired together for handler tests.
// The controller is built directly so tests touch neither the filesystem
// nor the global configuration.
func setupTestEnvironment(t *testing.T) (*echo.Echo, *MockDataStore, *Controller) {
	t.Helper()

	e := echo.New()
	mockDS := new(MockDataStore)

	settings := &conf.Settings{
		WebServer: conf.WebServerSettings{
			Debug: true,
		},
		Catalog: conf.CatalogSettings{
			PageSize: 25,
		},
	}

	logger := log.New(io.Discard, "API TEST: ", log.LstdFlags)

	notificationSvc := notification.NewService(&notification.ServiceConfig{
		MaxNotifications:   100,
		CleanupInterval:    time.Hour,
		RateLimitWindow:    time.Minute,
		RateLimitMaxEvents: 100,
	})
	t.Cleanup(notificationSvc.Stop)

	controller := &Controller{
		Echo:            e,
		DS:              mockDS,
		Settings:        settings,
		NotificationSvc: notificationSvc,
		logger:          logger,
		apiLogger:       slog.New(slog.NewJSONHandler(io.Discard, nil)).With("service", "api"),
		apiLoggerClose:  func() error { return nil },
	}

	return e, mockDS, controller
}
