// Package domain holds the WikiRag entities shared by every layer: source
// pages and their normalised documents, embedded chunks, the vector
// collection they live in, the context assembled for a question and the
// answer produced from it. Settings and the error taxonomy live here too.
//
// Nothing in this package imports another internal package or a third-party
// module.
package domain
