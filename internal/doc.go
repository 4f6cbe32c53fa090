// Package internal contains the packages behind the pugar CLI. The template
// engine itself lives in pkg/pug and has no dependency on anything here.
//
// # Package Organization
//
//   - build: page discovery, the worker pool and build metrics
//   - cache: render cache keyed by options, name and source, with file,
//     SQLite and in-memory backends
//   - config: .pugar.yml, PUGAR_* environment and flag handling via viper
//   - errors: render errors, the error collector and the HTML overlay
//   - htmlcheck: end tag balance checking of rendered output
//   - logging: slog based structured logging
//   - server: development server with live reload over websockets
//   - version: build and VCS information
//   - watcher: fsnotify wrapper with filters and debouncing
//
// # Data Flow
//
// The watcher reports changed templates. The build pipeline, or the server
// on request, renders them through cache.Cached, which consults the store
// before invoking the pug renderer. Failures become errors.RenderError
// values that the CLI prints and the server shows as an overlay.
package internal
