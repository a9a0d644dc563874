// internal/httpcontroller/handlers.go - HTML page handlers for the catalog
package httpcontroller

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/fernwick/speciarium/internal/datastore"
	"github.com/fernwick/speciarium/internal/errors"
	"github.com/fernwick/speciarium/internal/notification"
	"github.com/fernwick/speciarium/internal/species"
)

// userIDHeader carries the requester identity. Records remember their
// creator; an edit from a different identity is rejected.
const userIDHeader = "X-User-ID"

// anonymousUser is the fallback identity when no header is supplied
const anonymousUser = "anonymous"

// defaultDescriptionPreview is the card preview length when the catalog
// settings leave it unset
const defaultDescriptionPreview = 160

// cardView is the template-facing shape of a species record. Optional
// fields are flattened to empty strings so templates stay plain.
type cardView struct {
	ID             uint
	ScientificName string
	CommonName     string
	Kingdom        string
	Population     string
	ImageURL       string
	Description    string
	Preview        string
	OwnerID        string
	UpdatedAt      string
}

// editForm holds submitted values as raw strings so a failed submission
// re-renders exactly as the user typed it.
type editForm struct {
	ScientificName  string
	CommonName      string
	Kingdom         string
	TotalPopulation string
	ImageURL        string
	Description     string
}

// listingPage is the data for the catalog listing template.
type listingPage struct {
	Title      string
	Query      string
	Species    []cardView
	Total      int64
	Limit      int
	Offset     int
	PrevOffset int
	NextOffset int
	HasPrev    bool
	HasNext    bool
}

// cardPage is the data for the record card template. State selects which
// dialog is rendered; Form and Errors carry a failed submission back to
// the edit form.
type cardPage struct {
	Title    string
	Record   cardView
	State    CardState
	Form     editForm
	Errors   species.ValidationErrors
	Flash    string
	Kingdoms []species.Kingdom
}

// requesterID extracts the caller identity from the request
func requesterID(ctx echo.Context) string {
	if id := ctx.Request().Header.Get(userIDHeader); id != "" {
		return id
	}
	return anonymousUser
}

// previewLength returns the configured card description preview length
func (s *Server) previewLength() int {
	if s.Settings.Catalog.DescriptionPreview > 0 {
		return s.Settings.Catalog.DescriptionPreview
	}
	return defaultDescriptionPreview
}

// truncateRunes shortens free text to at most limit runes, appending an
// ellipsis when anything was cut.
func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

// cardViewFrom flattens a stored record for template rendering
func cardViewFrom(record *datastore.Species, previewLen int) cardView {
	view := cardView{
		ID:             record.ID,
		ScientificName: record.ScientificName,
		Kingdom:        record.Kingdom,
		OwnerID:        record.OwnerID,
		UpdatedAt:      record.UpdatedAt.Format("2006-01-02 15:04"),
	}
	if record.CommonName != nil {
		view.CommonName = *record.CommonName
	}
	if record.TotalPopulation != nil {
		view.Population = strconv.FormatInt(*record.TotalPopulation, 10)
	}
	if record.ImageURL != nil {
		view.ImageURL = *record.ImageURL
	}
	if record.Description != nil {
		view.Description = *record.Description
		view.Preview = truncateRunes(*record.Description, previewLen)
	}
	return view
}

// formFromRecord prefills the edit form from the stored record
func formFromRecord(record *datastore.Species) editForm {
	form := editForm{
		ScientificName: record.ScientificName,
		Kingdom:        record.Kingdom,
	}
	if record.CommonName != nil {
		form.CommonName = *record.CommonName
	}
	if record.TotalPopulation != nil {
		form.TotalPopulation = strconv.FormatInt(*record.TotalPopulation, 10)
	}
	if record.ImageURL != nil {
		form.ImageURL = *record.ImageURL
	}
	if record.Description != nil {
		form.Description = *record.Description
	}
	return form
}

// cardPageFor assembles the card page for a record in the given state
func (s *Server) cardPageFor(record *datastore.Species, state CardState) cardPage {
	return cardPage{
		Title:    record.ScientificName,
		Record:   cardViewFrom(record, s.previewLength()),
		State:    state,
		Form:     formFromRecord(record),
		Kingdoms: species.Kingdoms(),
	}
}

// renderError renders the error page with the given status code
func (s *Server) renderError(ctx echo.Context, code int, message string) error {
	return ctx.Render(code, "error", map[string]any{
		"Title":   "Error",
		"Code":    code,
		"Message": message,
	})
}

// listingHandler handles GET / with optional search and pagination
func (s *Server) listingHandler(ctx echo.Context) error {
	query := ctx.QueryParam("query")

	limit := s.Settings.Catalog.PageSize
	if limit <= 0 {
		limit = 25
	}

	offset := 0
	if raw := ctx.QueryParam("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	records, err := s.DS.SearchSpecies(query, true, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to load the species catalog")
		return s.renderError(ctx, http.StatusInternalServerError, "Failed to load the species catalog")
	}

	total, err := s.DS.CountSearchResults(query)
	if err != nil {
		s.LogError(ctx, err, "Failed to count species records")
		return s.renderError(ctx, http.StatusInternalServerError, "Failed to load the species catalog")
	}

	previewLen := s.previewLength()
	cards := make([]cardView, 0, len(records))
	for i := range records {
		cards = append(cards, cardViewFrom(&records[i], previewLen))
	}

	page := listingPage{
		Title:      "Species Catalog",
		Query:      query,
		Species:    cards,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		PrevOffset: max(offset-limit, 0),
		NextOffset: offset + limit,
		HasPrev:    offset > 0,
		HasNext:    int64(offset+limit) < total,
	}

	return ctx.Render(http.StatusOK, "listing", page)
}

// speciesCardHandler handles GET /species/:id. The state query parameter
// selects which dialog is open: closed, viewing or editing.
func (s *Server) speciesCardHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := strconv.Atoi(id); err != nil {
		return s.renderError(ctx, http.StatusBadRequest, "Invalid record ID")
	}

	state, err := ParseCardState(ctx.QueryParam("state"))
	if err != nil {
		return s.renderError(ctx, http.StatusBadRequest, "Unknown card state")
	}

	record, err := s.DS.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.renderError(ctx, http.StatusNotFound, "Species record not found")
		}
		s.LogError(ctx, err, "Failed to retrieve species record")
		return s.renderError(ctx, http.StatusInternalServerError, "Failed to retrieve species record")
	}

	return ctx.Render(http.StatusOK, "card", s.cardPageFor(&record, state))
}

// editSubmitHandler handles POST /species/:id/edit. The form carries the
// full field set. On success the browser is redirected back to the
// listing; a failed submission re-renders the edit form with field
// errors and the submitted values. A second concurrent submit for the
// same record gets 409.
func (s *Server) editSubmitHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := strconv.Atoi(id); err != nil {
		return s.renderError(ctx, http.StatusBadRequest, "Invalid record ID")
	}

	// In-flight guard, released when this submit completes
	if _, loaded := s.inFlight.LoadOrStore(id, struct{}{}); loaded {
		if s.metrics != nil && s.metrics.Catalog != nil {
			s.metrics.Catalog.RecordSubmitConflict()
		}
		record, err := s.DS.Get(id)
		if err != nil {
			return s.renderError(ctx, http.StatusConflict, "An update for this record is already in progress")
		}
		page := s.cardPageFor(&record, StateEditing)
		page.Flash = "An update for this record is already in progress"
		return ctx.Render(http.StatusConflict, "card", page)
	}
	defer s.inFlight.Delete(id)

	form, input, parseErrs := parseEditForm(ctx)

	var verrs species.ValidationErrors
	fields, err := species.Normalize(&input)
	if err != nil && !errors.As(err, &verrs) {
		return s.renderError(ctx, http.StatusBadRequest, "Validation failed")
	}
	verrs = append(verrs, parseErrs...)

	existing, err := s.DS.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.renderError(ctx, http.StatusNotFound, "Species record not found")
		}
		s.LogError(ctx, err, "Failed to retrieve species record")
		return s.renderError(ctx, http.StatusInternalServerError, "Failed to retrieve species record")
	}

	if len(verrs) > 0 {
		if s.metrics != nil && s.metrics.Catalog != nil {
			for i := range verrs {
				s.metrics.Catalog.RecordValidationFailure(verrs[i].Field)
			}
		}
		page := s.cardPageFor(&existing, StateEditing)
		page.Form = form
		page.Errors = verrs
		return ctx.Render(http.StatusBadRequest, "card", page)
	}

	if existing.OwnerID != requesterID(ctx) {
		page := s.cardPageFor(&existing, StateViewing)
		page.Flash = "You do not own this species record"
		return ctx.Render(http.StatusForbidden, "card", page)
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

	if err := s.DS.Update(record); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.renderError(ctx, http.StatusNotFound, "Species record not found")
		}
		s.LogError(ctx, err, "Failed to update species record")
		s.sendErrorToast(err)
		if s.metrics != nil && s.metrics.Catalog != nil {
			s.metrics.Catalog.RecordOperation("update", "error")
		}
		page := s.cardPageFor(&existing, StateEditing)
		page.Form = form
		page.Flash = err.Error()
		return ctx.Render(http.StatusInternalServerError, "card", page)
	}

	if s.metrics != nil && s.metrics.Catalog != nil {
		s.metrics.Catalog.RecordOperation("update", "success")
	}
	s.emitRefreshSignal(record, "updated")

	return ctx.Redirect(http.StatusSeeOther, "/")
}

// parseEditForm reads the submitted form values. The raw population
// string is kept for re-rendering; a non-numeric value surfaces as a
// field error since it cannot reach the validator as a number.
func parseEditForm(ctx echo.Context) (editForm, species.Input, species.ValidationErrors) {
	form := editForm{
		ScientificName:  ctx.FormValue("scientificName"),
		CommonName:      ctx.FormValue("commonName"),
		Kingdom:         ctx.FormValue("kingdom"),
		TotalPopulation: ctx.FormValue("totalPopulation"),
		ImageURL:        ctx.FormValue("image"),
		Description:     ctx.FormValue("description"),
	}

	input := species.Input{
		ScientificName: form.ScientificName,
		CommonName:     form.CommonName,
		Kingdom:        form.Kingdom,
		ImageURL:       form.ImageURL,
		Description:    form.Description,
	}

	var errs species.ValidationErrors
	if raw := strings.TrimSpace(form.TotalPopulation); raw != "" {
		population, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs = append(errs, species.FieldError{
				Field:   "totalPopulation",
				Message: "total population must be a whole number",
			})
		} else {
			input.TotalPopulation = &population
		}
	}

	return form, input, errs
}

// emitRefreshSignal broadcasts exactly one catalog change notification so
// listing views re-fetch.
func (s *Server) emitRefreshSignal(record *datastore.Species, action string) {
	if s.NotificationSvc == nil {
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

	if err := s.NotificationSvc.Publish(notif); err != nil {
		log.Printf("Failed to broadcast refresh signal: %v", err)
	}
}

// sendErrorToast emits an error toast carrying the backend error text
func (s *Server) sendErrorToast(err error) {
	if s.NotificationSvc == nil {
		return
	}

	toast := notification.NewToast(err.Error(), notification.ToastTypeError).
		WithComponent("species")

	if toastErr := s.NotificationSvc.SendToast(toast); toastErr != nil {
		log.Printf("Failed to send error toast: %v", toastErr)
	}
}
