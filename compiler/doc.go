// Package compiler turns dialogue scripts into bytecode programs plus a
// string table of localizable text.
//
// Compilation is a fixed sequence of passes over shared state: string
// registration, declaration gathering, type checking, visit-tracking
// analysis and instrumentation, code generation, and initial-value
// registration. Script problems never abort the pipeline; they accumulate
// as diagnostics, and code generation is skipped when any of them is an
// error.
package compiler
