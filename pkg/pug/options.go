package pug

import "maps"

const (
	// DefaultIndentUnit is the number of source columns per nesting level.
	DefaultIndentUnit = 2

	// DefaultCSRFField is the name of the hidden input injected into forms.
	DefaultCSRFField = "csrf_token"

	// DefaultMaxIncludeDepth bounds include recursion.
	DefaultMaxIncludeDepth = 32
)

// EscapePolicy controls how bound variable values are written into text.
type EscapePolicy string

const (
	// EscapeNone inserts bound values verbatim.
	EscapeNone EscapePolicy = "none"
	// EscapeHTML escapes <, >, &, ' and ".
	EscapeHTML EscapePolicy = "html"
	// EscapeSanitize keeps safe markup and strips the rest.
	EscapeSanitize EscapePolicy = "sanitize"
)

// Valid reports whether p is a known policy. The empty policy is valid and
// behaves like EscapeNone.
func (p EscapePolicy) Valid() bool {
	switch p {
	case "", EscapeNone, EscapeHTML, EscapeSanitize:
		return true
	}
	return false
}

// Options configures a render. Options are passed by value into every
// recursive include and never modified while a document is being parsed.
type Options struct {
	// IndentUnit is the number of source columns per nesting level. It is
	// only used to turn a depth back into output tabs.
	IndentUnit int `yaml:"indent_unit" json:"indent_unit"`

	// AdditionalIndent shifts every depth of the document. Includes set it
	// to the depth of the include line.
	AdditionalIndent int `yaml:"additional_indent" json:"additional_indent"`

	Variables map[string]string `yaml:"variables" json:"variables"`

	// CSRFToken, when set, is injected into every form as a hidden input
	// named CSRFField.
	CSRFToken string `yaml:"csrf_token" json:"csrf_token"`
	CSRFField string `yaml:"csrf_field" json:"csrf_field"`

	Escape EscapePolicy `yaml:"escape" json:"escape"`

	MaxIncludeDepth int `yaml:"max_include_depth" json:"max_include_depth"`
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		IndentUnit:      DefaultIndentUnit,
		CSRFField:       DefaultCSRFField,
		Escape:          EscapeNone,
		MaxIncludeDepth: DefaultMaxIncludeDepth,
	}
}

// withDefaults fills zero fields. The variable map is copied so a caller
// mutating its own map after New cannot change a render in flight.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.IndentUnit <= 0 {
		o.IndentUnit = d.IndentUnit
	}
	if o.CSRFField == "" {
		o.CSRFField = d.CSRFField
	}
	if o.Escape == "" {
		o.Escape = d.Escape
	}
	if o.MaxIncludeDepth <= 0 {
		o.MaxIncludeDepth = d.MaxIncludeDepth
	}
	if o.AdditionalIndent < 0 {
		o.AdditionalIndent = 0
	}
	o.Variables = maps.Clone(o.Variables)
	return o
}

// nested returns the options for an include rendered at depth.
func (o Options) nested(depth int) Options {
	o.AdditionalIndent = depth
	return o
}

// interpolation returns the context used to resolve placeholders.
func (o Options) interpolation() InterpolationContext {
	return InterpolationContext{
		Variables: o.Variables,
		CSRFToken: o.CSRFToken,
		Escape:    o.Escape,
	}
}
