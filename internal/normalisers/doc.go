// Package normalisers provides implementations of the Normaliser interface
// for the document formats WikiRag can acquire. Each normaliser knows how to
// extract text content from a specific MIME type.
//
// Normalisers are collected in a Registry, which itself satisfies
// driven.Normaliser and dispatches by MIME type and priority.
package normalisers
