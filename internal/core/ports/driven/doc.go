// Package driven declares what the core needs from the outside world:
// embedding and generation providers, the vector index, record and
// configuration storage, prompt templates and the optional web searcher.
//
// A nil WebSearcher, TextCleaner or ProviderProbe is valid. Services then
// skip web context, store text as fetched, or accept every provider.
package driven
