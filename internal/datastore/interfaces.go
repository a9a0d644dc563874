// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/fernwick/speciarium/internal/conf"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation and defines
// the operations the catalog needs. Records are never deleted through it.
type Interface interface {
	Open() error
	Close() error
	Save(record *Species) error
	Get(id string) (Species, error)
	Update(record *Species) error
	GetAllSpecies() ([]Species, error)
	SearchSpecies(query string, sortAscending bool, limit, offset int) ([]Species, error)
	CountSearchResults(query string) (int64, error)
	GetSpeciesByOwner(ownerID string, limit, offset int) ([]Species, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a datastore instance based on the enabled output in settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		// Settings validation rejects this configuration before we get here
		return nil
	}
}

// Save stores a new species record.
func (ds *DataStore) Save(record *Species) error {
	if ds.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	if err := ds.DB.Create(record).Error; err != nil {
		return fmt.Errorf("saving species record: %w", err)
	}
	return nil
}

// Get retrieves a species record by its ID.
func (ds *DataStore) Get(id string) (Species, error) {
	recordID, err := strconv.Atoi(id)
	if err != nil {
		return Species{}, fmt.Errorf("converting ID to integer: %w", err)
	}

	var record Species
	if err := ds.DB.First(&record, recordID).Error; err != nil {
		return Species{}, fmt.Errorf("getting species with ID %d: %w", recordID, err)
	}
	return record, nil
}

// Update replaces the full mutable field set of an existing record.
// ID and OwnerID are never written; nil optional fields clear their
// columns, so an update always mirrors the submitted record exactly.
func (ds *DataStore) Update(record *Species) error {
	if record.ID == 0 {
		return fmt.Errorf("invalid species ID: must not be zero")
	}

	// Select forces zero/nil values to be written, a bare Updates skips them
	result := ds.DB.Model(&Species{}).
		Where("id = ?", record.ID).
		Select("scientific_name", "common_name", "kingdom", "total_population", "image_url", "description").
		Updates(record)

	if result.Error != nil {
		return fmt.Errorf("updating species with ID %d: %w", record.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("updating species with ID %d: %w", record.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

// GetAllSpecies retrieves all species records.
func (ds *DataStore) GetAllSpecies() ([]Species, error) {
	var records []Species
	if result := ds.DB.Order("scientific_name ASC").Find(&records); result.Error != nil {
		return nil, fmt.Errorf("error getting all species: %w", result.Error)
	}
	return records, nil
}

// SearchSpecies retrieves records whose scientific or common name matches
// the query. An empty query matches everything.
func (ds *DataStore) SearchSpecies(query string, sortAscending bool, limit, offset int) ([]Species, error) {
	var records []Species
	sortOrder := sortAscendingString(sortAscending)

	err := ds.DB.Where("common_name LIKE ? OR scientific_name LIKE ?", "%"+query+"%", "%"+query+"%").
		Order("scientific_name " + sortOrder).
		Limit(limit).
		Offset(offset).
		Find(&records).Error

	if err != nil {
		return nil, fmt.Errorf("error searching species: %w", err)
	}
	return records, nil
}

// CountSearchResults returns the total number of records matching the query.
func (ds *DataStore) CountSearchResults(query string) (int64, error) {
	var count int64
	err := ds.DB.Model(&Species{}).
		Where("common_name LIKE ? OR scientific_name LIKE ?", "%"+query+"%", "%"+query+"%").
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("error counting search results: %w", err)
	}
	return count, nil
}

// GetSpeciesByOwner retrieves records created by the given owner.
func (ds *DataStore) GetSpeciesByOwner(ownerID string, limit, offset int) ([]Species, error) {
	var records []Species
	err := ds.DB.Where("owner_id = ?", ownerID).
		Order("scientific_name ASC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error

	if err != nil {
		return nil, fmt.Errorf("error getting species for owner %s: %w", ownerID, err)
	}
	return records, nil
}

// sortAscendingString returns "ASC" or "DESC" based on the boolean input.
func sortAscendingString(asc bool) string {
	if asc {
		return "ASC"
	}
	return "DESC"
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Species{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}
