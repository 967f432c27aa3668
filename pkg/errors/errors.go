// Package errors provides the structured error and warning system used across
// GoBoost. It is inspired by scikit-learn's exception hierarchy: errors carry
// enough context to be logged as structured events, and every constructor
// attaches a stack trace via cockroachdb/errors.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================

var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// Default handler writes to the standard logger.
		log.Printf("GoBoost-Warning: %v\n", w)
	}
	// zerolog hook, lazily injected to avoid an import cycle with pkg/log.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler installs a library-wide warning handler. Callers can use
// it to silence or redirect warnings such as BoostTerminationWarning.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // drop all warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a zerolog-backed warning sink. It exists so the
// logging package can register itself without creating an import cycle.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning through the zerolog sink when one is registered, and
// through the plain handler otherwise.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types
//
// ===========================================================================

// BoostTerminationWarning is emitted when a boosting loop stops before
// reaching its configured number of estimators. The partially built ensemble
// is still usable; the warning only records why the loop stopped.
type BoostTerminationWarning struct {
	Algorithm  string
	Iteration  int
	Reason     string
	NRetained  int
	NRequested int
}

func (w *BoostTerminationWarning) Error() string {
	return fmt.Sprintf("%s stopped at iteration %d (%s): %d of %d estimators retained",
		w.Algorithm, w.Iteration, w.Reason, w.NRetained, w.NRequested)
}

// MarshalZerologObject adds the structured warning fields to a zerolog event.
func (w *BoostTerminationWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iteration", w.Iteration).
		Str("reason", w.Reason).
		Int("n_retained", w.NRetained).
		Int("n_requested", w.NRequested).
		Str("type", "BoostTerminationWarning")
}

// NewBoostTerminationWarning creates a new BoostTerminationWarning.
func NewBoostTerminationWarning(algorithm string, iteration int, reason string, retained, requested int) *BoostTerminationWarning {
	return &BoostTerminationWarning{
		Algorithm:  algorithm,
		Iteration:  iteration,
		Reason:     reason,
		NRetained:  retained,
		NRequested: requested,
	}
}

// UndefinedMetricWarning is emitted when a metric cannot be computed and a
// fallback value is returned instead, e.g. R² on a constant target.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// NewUndefinedMetricWarning creates a new UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// NotFittedError is returned when Predict or a related method is called on a
// model that has not been fitted.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("goboost: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace attached.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// CapabilityError is returned when a weak learner does not provide an
// optional capability that the requested operation needs, e.g. probability
// estimates for SAMME.R or per-feature importances for aggregation.
type CapabilityError struct {
	ModelName  string
	Capability string
	Hint       string
}

func (e *CapabilityError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("goboost: %s: base estimator does not support %s. %s", e.ModelName, e.Capability, e.Hint)
	}
	return fmt.Sprintf("goboost: %s: base estimator does not support %s", e.ModelName, e.Capability)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *CapabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("capability", e.Capability).
		Str("type", "CapabilityError")
}

// NewCapabilityError creates a CapabilityError with a stack trace attached.
func NewCapabilityError(modelName, capability, hint string) error {
	err := &CapabilityError{ModelName: modelName, Capability: capability, Hint: hint}
	return errors.WithStack(err)
}

// DimensionError is returned when input data has a shape different from the
// expected one.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows/samples, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("goboost: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError is returned when a hyperparameter fails validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("goboost: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace attached.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError is returned when an argument value is invalid for the operation,
// e.g. sample weights that sum to zero.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("goboost: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace attached.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError is a general model-level error.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("goboost: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("goboost: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace attached.
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
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
//	Common error variables
//
// ===========================================================================

var (
	// ErrEmptyData is returned when an operation receives no data.
	ErrEmptyData = New("empty data")

	// ErrNoEstimators is returned when a boosting run retains no estimator.
	ErrNoEstimators = New("no estimator retained")
)
