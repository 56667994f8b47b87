// Package config loads, normalizes, and validates notesmith configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LLM_API_KEY and OPENAI_API_KEY. Provider credentials live on the Config
// value and are handed to each provider at construction time.
package config
