// Package errors collects render failures and turns them into an HTML
// overlay for the development server.
package errors

import (
	stderrors "errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/pugar/pkg/pug"
)

// RenderError represents a failed render of one source file
type RenderError struct {
	File      string
	Line      int
	Column    int
	Message   string
	Severity  ErrorSeverity
	Timestamp time.Time
}

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error implements the error interface
func (re *RenderError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", re.File, re.Line, re.Column, re.Severity, re.Message)
}

// FromError converts an error returned while rendering file into a
// RenderError. Include failures keep the location of the include line.
func FromError(file string, err error) RenderError {
	re := RenderError{
		File:      file,
		Message:   err.Error(),
		Severity:  ErrorSeverityError,
		Timestamp: time.Now(),
	}

	var includeErr *pug.IncludeError
	if stderrors.As(err, &includeErr) {
		if includeErr.File != "" {
			re.File = includeErr.File
		}
		re.Line = includeErr.Line
		re.Column = 1
		re.Message = fmt.Sprintf("include %q: %v", includeErr.Ref, includeErr.Err)
		if stderrors.Is(err, pug.ErrIncludeCycle) || stderrors.Is(err, pug.ErrIncludeDepth) {
			re.Severity = ErrorSeverityFatal
		}
	}
	return re
}

// ErrorCollector collects and manages render errors
type ErrorCollector struct {
	errors []RenderError
	mutex  sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make([]RenderError, 0),
	}
}

// Add adds a render error to the collector
func (ec *ErrorCollector) Add(err RenderError) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	ec.errors = append(ec.errors, err)
}

// GetErrors returns all collected errors
func (ec *ErrorCollector) GetErrors() []RenderError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	// Return a copy to avoid race conditions
	result := make([]RenderError, len(ec.errors))
	copy(result, ec.errors)
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = ec.errors[:0]
}

// ClearFile drops the errors recorded for file
func (ec *ErrorCollector) ClearFile(file string) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	kept := ec.errors[:0]
	for _, err := range ec.errors {
		if err.File != file {
			kept = append(kept, err)
		}
	}
	ec.errors = kept
}

// GetErrorsByFile returns errors for a specific file
func (ec *ErrorCollector) GetErrorsByFile(file string) []RenderError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var fileErrors []RenderError
	for _, err := range ec.errors {
		if err.File == file {
			fileErrors = append(fileErrors, err)
		}
	}
	return fileErrors
}

// ErrorOverlay generates HTML for error overlay
func (ec *ErrorCollector) ErrorOverlay() string {
	errs := ec.GetErrors()
	if len(errs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`
<div id="pugar-error-overlay" style="
	position: fixed;
	top: 0;
	left: 0;
	width: 100%;
	height: 100%;
	background: rgba(0, 0, 0, 0.8);
	color: white;
	font-family: 'Monaco', 'Menlo', monospace;
	font-size: 14px;
	z-index: 9999;
	padding: 20px;
	box-sizing: border-box;
	overflow: auto;
">
	<div style="max-width: 1000px; margin: 0 auto;">
		<div style="display: flex; justify-content: space-between; align-items: center; margin-bottom: 20px;">
			<h2 style="margin: 0; color: #ff6b6b;">Render Errors</h2>
			<button onclick="document.getElementById('pugar-error-overlay').style.display='none'"
					style="background: none; border: 1px solid #ccc; color: white; padding: 5px 10px; cursor: pointer;">
				Close
			</button>
		</div>
		<div>`)

	for _, err := range errs {
		severityColor := "#ff6b6b"
		switch err.Severity {
		case ErrorSeverityWarning:
			severityColor = "#feca57"
		case ErrorSeverityInfo:
			severityColor = "#48dbfb"
		}

		fmt.Fprintf(&b, `
			<div style="background: #2d3748; padding: 15px; margin-bottom: 15px; border-radius: 4px; border-left: 4px solid %s;">
				<div style="display: flex; justify-content: space-between; margin-bottom: 10px;">
					<span style="color: %s; font-weight: bold;">%s</span>
					<span style="color: #a0aec0; font-size: 12px;">%s</span>
				</div>
				<div style="color: #e2e8f0; margin-bottom: 5px;"><strong>%s</strong></div>
				<div style="color: #a0aec0; font-size: 12px;">%s:%d:%d</div>
			</div>`,
			severityColor, severityColor, err.Severity, err.Timestamp.Format("15:04:05"),
			html.EscapeString(err.Message), html.EscapeString(err.File), err.Line, err.Column)
	}

	b.WriteString(`
		</div>
	</div>
</div>`)
	return b.String()
}
