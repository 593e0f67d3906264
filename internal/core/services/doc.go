// Package services implements the driving port interfaces.
// Services contain the core business logic: they validate the collection,
// fan retrieval out to the knowledge base and the web, render prompts and
// drive the ingestion stages. All I/O goes through driven ports.
package services
