package species

import (
	"fmt"
	"net/url"
	"strings"
)

// Input carries the raw field values of an edit or create submission,
// before trimming and validation.
type Input struct {
	ScientificName  string `json:"scientificName"`
	CommonName      string `json:"commonName"`
	Kingdom         string `json:"kingdom"`
	TotalPopulation *int64 `json:"totalPopulation"`
	ImageURL        string `json:"image"`
	Description     string `json:"description"`
}

// FieldError describes a single failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects field errors for one submission.
type ValidationErrors []FieldError

// Error implements the error interface.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ByField returns the message for the named field, or "" if the field passed.
func (ve ValidationErrors) ByField(field string) string {
	for _, fe := range ve {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// Normalize trims and validates a submission. It returns the normalized
// field set on success, or ValidationErrors listing every failed field.
// Nothing may be persisted when an error is returned.
//
// Rules:
//   - scientific_name: trimmed, must remain non-empty
//   - common_name, description: trimmed; empty results become nil
//   - kingdom: must be one of the six enumerated values
//   - total_population: optional, must be >= 1 when present
//   - image: trimmed; empty becomes nil; otherwise must be an absolute
//     http(s) URL with a host
func Normalize(in *Input) (Fields, error) {
	var fields Fields
	var errs ValidationErrors

	fields.ScientificName = strings.TrimSpace(in.ScientificName)
	if fields.ScientificName == "" {
		errs = append(errs, FieldError{Field: "scientificName", Message: "scientific name is required"})
	}

	fields.CommonName = optionalText(in.CommonName)
	fields.Description = optionalText(in.Description)

	kingdom, err := ParseKingdom(strings.TrimSpace(in.Kingdom))
	if err != nil {
		errs = append(errs, FieldError{Field: "kingdom", Message: "kingdom must be one of Animalia, Plantae, Fungi, Protista, Archaea, Bacteria"})
	} else {
		fields.Kingdom = kingdom
	}

	if in.TotalPopulation != nil {
		if *in.TotalPopulation < 1 {
			errs = append(errs, FieldError{Field: "totalPopulation", Message: "total population must be a positive integer"})
		} else {
			population := *in.TotalPopulation
			fields.TotalPopulation = &population
		}
	}

	if imageURL := strings.TrimSpace(in.ImageURL); imageURL != "" {
		if !isWellFormedURL(imageURL) {
			errs = append(errs, FieldError{Field: "image", Message: "image must be a valid http or https URL"})
		} else {
			fields.ImageURL = &imageURL
		}
	}

	if len(errs) > 0 {
		return Fields{}, errs
	}
	return fields, nil
}

// optionalText trims a free-text field, mapping whitespace-only input to
// absent. Stored optional text is never the empty string.
func optionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// isWellFormedURL reports whether the value parses as an absolute
// http(s) URL with a host.
func isWellFormedURL(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
