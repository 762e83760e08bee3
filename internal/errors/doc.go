// Package errors provides structured, coded errors for sockline.
//
// Errors carry a code, a category, a short message, and optional detail
// and suggestion text. Codes are registered in registry.go so the CLI can
// render consistent, actionable output.
package errors
