package domain

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

var (
	// ErrConfiguration is returned when a configuration value is invalid or out of range.
	ErrConfiguration = zerr.New("invalid configuration")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConversionFailed is returned when a class entry cannot be converted to DEX.
	ErrConversionFailed = zerr.New("dex conversion failed")

	// ErrMalformedClass is returned when a class file cannot be parsed.
	ErrMalformedClass = zerr.New("malformed class file")

	// ErrUnsupportedConstruct is returned when a class uses bytecode the converter cannot express.
	ErrUnsupportedConstruct = zerr.New("unsupported bytecode construct")

	// ErrDuplicateClass is returned when two input entries define the same binary class name.
	ErrDuplicateClass = zerr.New("duplicate class definition")

	// ErrResourceCleanup is returned when a classpath provider fails to release its resources.
	ErrResourceCleanup = zerr.New("failed to release classpath provider")

	// ErrAmbiguousMarker is returned by the fail-fast match policy when several classes carry the marker.
	ErrAmbiguousMarker = zerr.New("multiple classes carry the marker annotation")

	// ErrPublishFailed is returned when an output file cannot be written or moved into place.
	ErrPublishFailed = zerr.New("failed to publish output")

	// ErrInputReadFailed is returned when an input location cannot be read.
	ErrInputReadFailed = zerr.New("failed to read input")

	// ErrExternalConverterFailed is returned when the external d8 process exits unsuccessfully.
	ErrExternalConverterFailed = zerr.New("external d8 converter failed")

	// ErrStoreReadFailed is returned when the build info cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read build info")

	// ErrStoreWriteFailed is returned when the build info cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write build info")

	// ErrNotADexFile is returned when inspecting a file that is not a DEX file.
	ErrNotADexFile = zerr.New("not a dex file")
)

// ConfigError reports an invalid configuration field. It matches ErrConfiguration with errors.Is.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

// NewConfigError creates a ConfigError for the given field.
func NewConfigError(field string, value any, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap returns the configuration sentinel.
func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// ConversionError identifies the class entry that failed to convert.
// It matches ErrConversionFailed and the underlying cause with errors.Is.
type ConversionError struct {
	// Entry is the path of the offending entry relative to its location.
	Entry string
	// Location is the input location (directory or archive) the entry came from.
	Location string
	// Class is the binary class name, when it could be determined.
	Class string
	// Err is the cause.
	Err error
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	b.WriteString("dex conversion failed")
	if e.Class != "" {
		b.WriteString(" for class ")
		b.WriteString(e.Class)
	}
	if e.Entry != "" {
		b.WriteString(" (entry ")
		b.WriteString(e.Entry)
		if e.Location != "" {
			b.WriteString(" in ")
			b.WriteString(e.Location)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the conversion sentinel and the cause.
func (e *ConversionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConversionFailed}
	}
	return []error{ErrConversionFailed, e.Err}
}

// NewConversionError creates a ConversionError for the given entry.
func NewConversionError(entry ClassEntry, err error) *ConversionError {
	return &ConversionError{
		Entry:    entry.RelPath,
		Location: entry.Location,
		Class:    entry.BinaryName,
		Err:      err,
	}
}
