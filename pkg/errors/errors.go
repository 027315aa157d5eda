// Package errors provides the error taxonomy shared by every pipeline stage.
// Each error type carries structured context and a stack trace so failures
// can be reported at the stage boundary where the precondition was violated.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// SchemaError is returned when an operation references a column that does
// not exist in the table it was given.
type SchemaError struct {
	Op     string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("cupping: %s: column %q not found in table", e.Op, e.Column)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *SchemaError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("column", e.Column).
		Str("type", "SchemaError")
}

// NewSchemaError creates a new SchemaError with a stack trace attached.
func NewSchemaError(op, column string) error {
	err := &SchemaError{Op: op, Column: column}
	return errors.WithStack(err)
}

// ColumnTypeError is returned when a column has the wrong kind for an
// operation, or when a categorical value falls outside the level set that
// was frozen at fit time.
type ColumnTypeError struct {
	Op       string
	Column   string
	Expected string
	Got      string
}

func (e *ColumnTypeError) Error() string {
	return fmt.Sprintf("cupping: %s: column %q must be %s, got %s", e.Op, e.Column, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *ColumnTypeError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("column", e.Column).
		Str("expected", e.Expected).
		Str("got", e.Got).
		Str("type", "ColumnTypeError")
}

// NewColumnTypeError creates a new ColumnTypeError with a stack trace attached.
func NewColumnTypeError(op, column, expected, got string) error {
	err := &ColumnTypeError{Op: op, Column: column, Expected: expected, Got: got}
	return errors.WithStack(err)
}

// ConfigError is returned when a parameter value makes the requested
// computation undefined: a split fraction outside (0,1), fewer than two
// classes for a classifier, mismatched vector lengths.
type ConfigError struct {
	Op     string
	Param  string
	Reason string
	Value  interface{}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cupping: %s: invalid %s: %s (got: %v)", e.Op, e.Param, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *ConfigError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("param", e.Param).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigError")
}

// NewConfigError creates a new ConfigError with a stack trace attached.
func NewConfigError(op, param, reason string, value interface{}) error {
	err := &ConfigError{Op: op, Param: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// SingularMatrixError is returned when a regression design matrix is
// perfectly collinear and the normal equations cannot be solved. It is
// reported instead of silently returning degenerate coefficients.
type SingularMatrixError struct {
	Op   string
	Rows int
	Cols int
}

func (e *SingularMatrixError) Error() string {
	return fmt.Sprintf("cupping: %s: singular matrix (%dx%d): predictors are perfectly collinear", e.Op, e.Rows, e.Cols)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *SingularMatrixError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("rows", e.Rows).
		Int("cols", e.Cols).
		Str("type", "SingularMatrixError")
}

// NewSingularMatrixError creates a new SingularMatrixError with a stack trace attached.
func NewSingularMatrixError(op string, rows, cols int) error {
	err := &SingularMatrixError{Op: op, Rows: rows, Cols: cols}
	return errors.WithStack(err)
}

// NotFittedError is returned when Predict, Summary or a similar method is
// called before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("cupping: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a new NotFittedError with a stack trace attached.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError is returned when the shape of an input does not match what
// the model or metric expects.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("cupping: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a new DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches the target error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As reports whether err can be cast to the target type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an existing error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an existing error with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack attaches a stack trace to an error.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Common sentinel errors
//
// ===========================================================================

var (
	// ErrEmptyData is returned when an empty table or vector is passed in.
	ErrEmptyData = New("empty data")
)
