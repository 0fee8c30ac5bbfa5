// Package extractor turns source files into raw code entities.
//
// Extractors implement a small interface and are dispatched by file path
// through a Registry. The built-in GoExtractor uses go/parser and go/ast to
// report every function and method with its signature, parameters, doc
// comment, cyclomatic complexity, outgoing calls and import usage.
//
// Calls to plain functions declared in the same file are reported as
// file-scoped targets ("path#Name"); every other call is reported by bare
// name ("Name") or package selector ("pkg.Name") and resolved later by the
// graph engine.
package extractor
