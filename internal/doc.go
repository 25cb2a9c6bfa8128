// Package internal contains the core implementation packages for scriptlet.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the scriptlet CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - token: the lexical model shared by parser and compiler
//   - parser: single-pass template scanning and structural validation
//   - security: the function allow-set and forbidden-pattern policy
//   - compiler: IR construction and host-expression emission
//   - cache: two-tier (memory + disk) content-addressed fragment cache
//   - store: template store backends
//   - runtime: the fail-open orchestrator tying the pipeline together
//   - watcher: store monitoring with debouncing
//   - server: preview HTTP server with websocket live reload
//   - config, logging, errors, version: ambient concerns
//
// # Inter-Package Communication
//
// Packages communicate through well-defined interfaces:
//
//   - Runtime drives parser, compiler, and cache; it never fails a render
//   - Compiler validates every expression through the security policy
//   - Watcher feeds invalidation events to the runtime and the server
//   - Store is the single source of template text for all consumers
package internal
