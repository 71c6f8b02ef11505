// Package html provides a Normaliser implementation for HTML documents.
// It walks the parsed DOM with goquery, dropping scripts, styles and
// navigation chrome, and keeps block structure as line breaks.
package html
