// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under the wikirag home directory.
//
// Adapters:
//   - ConfigStore: TOML settings at ~/.wikirag/config.toml
//   - PromptStore: editable answer templates under ~/.wikirag/prompts/
package file
