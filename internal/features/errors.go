package features

import "fmt"

// SchemaError indicates that no canonical schema could be derived, typically
// because no training record survived cleaning.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s", e.Reason)
}

// EncodingError indicates a query profile lacks a required categorical field.
// Unrecognized values are not errors; they encode to zero indicators.
type EncodingError struct {
	Field string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding: profile is missing required field %s", e.Field)
}
