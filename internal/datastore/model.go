// model.go this code defines the data model for the application
package datastore

import "time"

// Species represents a single species record in the catalog.
// Optional columns are pointers: nil means absent, never "".
type Species struct {
	ID              uint    `gorm:"primaryKey"`
	ScientificName  string  `gorm:"index:idx_species_sciname;not null"`
	CommonName      *string `gorm:"index:idx_species_comname"`
	Kingdom         string  `gorm:"type:varchar(20);not null"`
	TotalPopulation *int64
	ImageURL        *string
	Description     *string
	OwnerID         string `gorm:"index:idx_species_owner;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName overrides the table name; gorm's pluralizer mangles "species".
func (Species) TableName() string {
	return "species"
}
