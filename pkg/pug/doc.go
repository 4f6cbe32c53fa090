// Package pug renders a small, whitespace-significant Pug subset to HTML.
//
// A document is a sequence of lines. The leading whitespace of a line decides
// its nesting depth, and a tag stays open until a line at the same or a
// shallower depth arrives. The package supports tags with class and id
// shorthand, parenthesised attribute lists, trailing text, comments, blocking
// comments, doctype declarations, includes and #{name} placeholders.
//
// # Quick Start
//
//	html, err := pug.Render("div.card#main\n  p Hello #{name}", pug.Options{
//		Variables: map[string]string{"name": "Gero"},
//	})
//
// produces
//
//	<div class="card" id="main">
//		<p>Hello Gero</p>
//	</div>
//
// # Directives
//
//   - "// text" emits an HTML comment
//   - "//- text" is dropped from the output
//   - "doctype key" emits a known declaration or <!DOCTYPE key>
//   - "include file" splices the rendered file at the current depth
//   - "| text" renders an implicit paragraph
//
// # Degraded Output
//
// Unbound placeholders render as !!{name}. Attribute lists with an unclosed
// parenthesis are dropped together with the trailing text. Unknown doctype
// keys are emitted literally. None of these produce an error; only failing
// to read a source or an include does.
//
// # Includes
//
// A [Renderer] resolves includes through an [fs.FS]. Paths are relative to
// the including file. Include cycles and chains deeper than
// Options.MaxIncludeDepth are reported as [ErrIncludeCycle] and
// [ErrIncludeDepth].
package pug
