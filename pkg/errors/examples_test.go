package errors_test

import (
	"fmt"

	"github.com/agentstation/skinmap/pkg/errors"
)

// Example demonstrates basic error creation and checking.
func Example() {
	err := &errors.NotFoundError{
		Resource: "product",
		ID:       "9b2c",
	}

	if errors.IsNotFound(err) {
		fmt.Println("Product not found")
	}

	// Output: Product not found
}

// Example_crosswalkConflict shows how a refused crosswalk claim is reported.
func Example_crosswalkConflict() {
	var err error = &errors.CrosswalkConflictError{
		SourceSystem:  "merchant",
		SourceType:    "source_ref_url",
		NormalizedRef: "brand.com/p/1",
		ExistingID:    "A",
		IncomingID:    "B",
	}

	if errors.IsCrosswalkConflict(err) {
		fmt.Println(err)
	}

	// Output: crosswalk merchant/source_ref_url "brand.com/p/1" already maps to A, refusing claim by B
}

// Example_annotationDegrade shows the retry decision for annotation failures.
func Example_annotationDegrade() {
	err := errors.NewAnnotationServiceError("gemini", 503, "overloaded")

	if err.Retryable() {
		fmt.Println("retry with backoff")
	}

	// Output: retry with backoff
}
