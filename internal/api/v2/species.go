// internal/api/v2/species.go - species record CRUD handlers
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/fernwick/speciarium/internal/datastore"
	"github.com/fernwick/speciarium/internal/errors"
	"github.com/fernwick/speciarium/internal/notification"
	"github.com/fernwick/speciarium/internal/species"
)

// userIDHeader carries the requester identity. Records remember their
// creator; an update from a different identity is rejected.
const userIDHeader = "X-User-ID"

// anonymousUser is the fallback identity when no header is supplied
const anonymousUser = "anonymous"

// SpeciesResponse is the JSON representation of a stored record
type SpeciesResponse struct {
	ID              uint    `json:"id"`
	ScientificName  string  `json:"scientificName"`
	CommonName      *string `json:"commonName"`
	Kingdom         string  `json:"kingdom"`
	TotalPopulation *int64  `json:"totalPopulation"`
	ImageURL        *string `json:"image"`
	Description     *string `json:"description"`
	OwnerID         string  `json:"ownerId"`
	UpdatedAt       string  `json:"updatedAt"`
}

// ValidationErrorResponse carries field-level validation messages
type ValidationErrorResponse struct {
	Error  string               `json:"error"`
	Fields []species.FieldError `json:"fields"`
}

// initSpeciesRoutes registers species record endpoints
func (c *Controller) initSpeciesRoutes() {
	c.Group.GET("/species", c.GetSpeciesList)
	c.Group.GET("/species/:id", c.GetSpecies)
	c.Group.POST("/species", c.CreateSpecies)
	c.Group.PUT("/species/:id", c.UpdateSpecies)
}

// speciesResponse maps a stored record to its JSON representation
func speciesResponse(record *datastore.Species) SpeciesResponse {
	return SpeciesResponse{
		ID:              record.ID,
		ScientificName:  record.ScientificName,
		CommonName:      record.CommonName,
		Kingdom:         record.Kingdom,
		TotalPopulation: record.TotalPopulation,
		ImageURL:        record.ImageURL,
		Description:     record.Description,
		OwnerID:         record.OwnerID,
		UpdatedAt:       record.UpdatedAt.Format(time.RFC3339),
	}
}

// requesterID extracts the caller identity from the request
func requesterID(ctx echo.Context) string {
	if id := ctx.Request().Header.Get(userIDHeader); id != "" {
		return id
	}
	return anonymousUser
}

// GetSpeciesList handles GET /api/v2/species with optional search and pagination
func (c *Controller) GetSpeciesList(ctx echo.Context) error {
	query := ctx.QueryParam("query")

	limit := c.Settings.Catalog.PageSize
	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	offset := 0
	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		if parsed, err := strconv.Atoi(offsetParam); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	records, err := c.DS.SearchSpecies(query, true, limit, offset)
	if err != nil {
		c.recordOperation("list", "error")
		return c.HandleError(ctx, err, "Failed to retrieve species records", http.StatusInternalServerError)
	}

	total, err := c.DS.CountSearchResults(query)
	if err != nil {
		c.recordOperation("list", "error")
		return c.HandleError(ctx, err, "Failed to count species records", http.StatusInternalServerError)
	}

	results := make([]SpeciesResponse, 0, len(records))
	for i := range records {
		results = append(results, speciesResponse(&records[i]))
	}

	c.recordOperation("list", "success")
	return ctx.JSON(http.StatusOK, map[string]any{
		"species": results,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetSpecies handles GET /api/v2/species/:id
func (c *Controller) GetSpecies(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := strconv.Atoi(id); err != nil {
		c.recordOperation("get", "validation_error")
		return c.HandleError(ctx, err, "Invalid record ID", http.StatusBadRequest)
	}

	record, err := c.DS.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.recordOperation("get", "not_found")
			return c.HandleError(ctx, err, "Species record not found", http.StatusNotFound)
		}
		c.recordOperation("get", "error")
		return c.HandleError(ctx, err, "Failed to retrieve species record", http.StatusInternalServerError)
	}

	c.recordOperation("get", "success")
	return ctx.JSON(http.StatusOK, speciesResponse(&record))
}

// CreateSpecies handles POST /api/v2/species
func (c *Controller) CreateSpecies(ctx echo.Context) error {
	var input species.Input
	if err := ctx.Bind(&input); err != nil {
		c.recordOperation("create", "validation_error")
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	// New records without a kingdom default to Animalia; updates must
	// always carry one.
	if strings.TrimSpace(input.Kingdom) == "" {
		input.Kingdom = string(species.DefaultKingdom)
	}

	fields, err := species.Normalize(&input)
	if err != nil {
		return c.validationFailure(ctx, "create", err)
	}

	record := &datastore.Species{
		ScientificName:  fields.ScientificName,
		CommonName:      fields.CommonName,
		Kingdom:         string(fields.Kingdom),
		TotalPopulation: fields.TotalPopulation,
		ImageURL:        fields.ImageURL,
		Description:     fields.Description,
		OwnerID:         requesterID(ctx),
	}

	if err := c.DS.Save(record); err != nil {
		c.recordOperation("create", "error")
		c.sendErrorToast(err)
		return c.HandleError(ctx, err, "Failed to save species record", http.StatusInternalServerError)
	}

	c.recordOperation("create", "success")
	c.emitRefreshSignal(record, "created")

	return ctx.JSON(http.StatusCreated, speciesResponse(record))
}

// UpdateSpecies handles PUT /api/v2/species/:id. The request carries the
// full field set; the stored owner is preserved and checked against the
// requester. A second concurrent submit for the same record gets 409.
func (c *Controller) UpdateSpecies(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := strconv.Atoi(id); err != nil {
		c.recordOperation("update", "validation_error")
		return c.HandleError(ctx, err, "Invalid record ID", http.StatusBadRequest)
	}

	// In-flight guard, released when this update completes
	if _, loaded := c.inFlight.LoadOrStore(id, struct{}{}); loaded {
		c.recordOperation("update", "conflict")
		if c.metrics != nil && c.metrics.Catalog != nil {
			c.metrics.Catalog.RecordSubmitConflict()
		}
		return c.HandleError(ctx,
			errors.Newf("update already in progress for record %s", id).
				Component("api").
				Category(errors.CategoryConflict).
				Build(),
			"An update for this record is already in progress", http.StatusConflict)
	}
	defer c.inFlight.Delete(id)

	var input species.Input
	if err := ctx.Bind(&input); err != nil {
		c.recordOperation("update", "validation_error")
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	fields, err := species.Normalize(&input)
	if err != nil {
		return c.validationFailure(ctx, "update", err)
	}

	existing, err := c.DS.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.recordOperation("update", "not_found")
			return c.HandleError(ctx, err, "Species record not found", http.StatusNotFound)
		}
		c.recordOperation("update", "error")
		return c.HandleError(ctx, err, "Failed to retrieve species record", http.StatusInternalServerError)
	}

	if existing.OwnerID != requesterID(ctx) {
		c.recordOperation("update", "forbidden")
		return c.HandleError(ctx,
			errors.Newf("record %s belongs to another user", id).
				Component("api").
				Category(errors.CategoryForbidden).
				Build(),
			"You do not own this species record", http.StatusForbidden)
	}

	record := &datastore.Species{
		ID:              existing.ID,
		ScientificName:  fields.ScientificName,
		CommonName:      fields.CommonName,
		Kingdom:         string(fields.Kingdom),
		TotalPopulation: fields.TotalPopulation,
		ImageURL:        fields.ImageURL,
		Description:     fields.Description,
		OwnerID:         existing.OwnerID,
		CreatedAt:       existing.CreatedAt,
	}

	if err := c.DS.Update(record); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.recordOperation("update", "not_found")
			return c.HandleError(ctx, err, "Species record not found", http.StatusNotFound)
		}
		c.recordOperation("update", "error")
		c.sendErrorToast(err)
		return c.HandleError(ctx, err, "Failed to update species record", http.StatusInternalServerError)
	}

	c.recordOperation("update", "success")
	c.emitRefreshSignal(record, "updated")

	record.UpdatedAt = time.Now()
	return ctx.JSON(http.StatusOK, speciesResponse(record))
}

// validationFailure responds 400 with field-level messages and records metrics
func (c *Controller) validationFailure(ctx echo.Context, operation string, err error) error {
	c.recordOperation(operation, "validation_error")

	var verrs species.ValidationErrors
	if errors.As(err, &verrs) {
		if c.metrics != nil && c.metrics.Catalog != nil {
			for i := range verrs {
				c.metrics.Catalog.RecordValidationFailure(verrs[i].Field)
			}
		}
		return ctx.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: verrs,
		})
	}

	return c.HandleError(ctx, err, "Validation failed", http.StatusBadRequest)
}

// emitRefreshSignal broadcasts exactly one catalog change notification so
// listing views re-fetch. SSE subscribers see it as a "notification" event
// with action metadata.
func (c *Controller) emitRefreshSignal(record *datastore.Species, action string) {
	if c.NotificationSvc == nil {
		return
	}

	notif := notification.NewNotification(
		notification.TypeCatalog,
		notification.PriorityLow,
		"Catalog updated",
		fmt.Sprintf("%s was %s", record.ScientificName, action)).
		WithComponent("species").
		WithMetadata("recordId", record.ID).
		WithMetadata("action", action)

	if err := c.NotificationSvc.Publish(notif); err != nil {
		c.logger.Printf("Failed to broadcast refresh signal: %v", err)
	}
}

// sendErrorToast emits an error toast carrying the backend error text
func (c *Controller) sendErrorToast(err error) {
	if c.NotificationSvc == nil {
		return
	}

	toast := notification.NewToast(err.Error(), notification.ToastTypeError).
		WithComponent("species")

	if toastErr := c.NotificationSvc.SendToast(toast); toastErr != nil {
		c.logger.Printf("Failed to send error toast: %v", toastErr)
	}
}

// recordOperation tracks a record operation outcome in metrics
func (c *Controller) recordOperation(operation, status string) {
	if c.metrics != nil && c.metrics.Catalog != nil {
		c.metrics.Catalog.RecordOperation(operation, status)
	}
}
