package errors

import (
	"fmt"
	"testing"
)

func TestFastPathNoReporter(t *testing.T) {
	t.Parallel()

	// With no reporter installed errors take the fast build path:
	// no component detection, generic category.
	err := fmt.Errorf("test error")
	ee := New(err).Build()

	if ee.Err.Error() != "test error" {
		t.Errorf("Expected error message 'test error', got '%s'", ee.Err.Error())
	}

	if ee.GetComponent() != ComponentUnknown {
		t.Errorf("Expected component 'unknown' in fast path, got '%s'", ee.GetComponent())
	}

	if ee.Category != CategoryGeneric {
		t.Errorf("Expected category 'generic' in fast path, got '%s'", ee.Category)
	}
}

func TestBuilderExplicitFields(t *testing.T) {
	t.Parallel()

	ee := Newf("record %d missing", 42).
		Component("datastore").
		Category(CategoryNotFound).
		Priority(PriorityLow).
		Context("record_id", 42).
		Build()

	if ee.GetComponent() != "datastore" {
		t.Errorf("Expected component 'datastore', got '%s'", ee.GetComponent())
	}
	if !IsNotFound(ee) {
		t.Error("Expected IsNotFound to report true")
	}
	if ee.GetPriority() != PriorityLow {
		t.Errorf("Expected priority 'low', got '%s'", ee.GetPriority())
	}
	if ctx := ee.GetContext(); ctx["record_id"] != 42 {
		t.Errorf("Expected record_id 42 in context, got %v", ctx["record_id"])
	}
}

func TestInvalidPriorityFallsBackToMedium(t *testing.T) {
	t.Parallel()

	ee := Newf("boom").Priority("urgent-ish").Build()
	if ee.GetPriority() != PriorityMedium {
		t.Errorf("Expected fallback priority 'medium', got '%s'", ee.GetPriority())
	}
}

func TestUnwrapPreservesOriginal(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("sentinel")
	wrapped := fmt.Errorf("outer: %w", sentinel)
	ee := New(wrapped).Category(CategoryDatabase).Build()

	if !Is(ee, sentinel) {
		t.Error("Expected errors.Is to find the sentinel through the enhanced error")
	}
}

type captureReporter struct {
	captured []*EnhancedError
}

func (c *captureReporter) Report(ee *EnhancedError) {
	c.captured = append(c.captured, ee)
}

func TestReporterReceivesBuiltErrors(t *testing.T) {
	// Not parallel: installs the package-level reporter.
	rep := &captureReporter{}
	SetReporter(rep)
	defer SetReporter(nil)

	ee := Newf("database connection lost").Component("datastore").Build()

	if len(rep.captured) != 1 {
		t.Fatalf("Expected 1 reported error, got %d", len(rep.captured))
	}
	if !ee.IsReported() {
		t.Error("Expected error to be marked as reported")
	}
	if rep.captured[0].GetComponent() != "datastore" {
		t.Errorf("Expected reported component 'datastore', got '%s'", rep.captured[0].GetComponent())
	}
}
