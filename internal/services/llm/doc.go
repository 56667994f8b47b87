// Package llm provides an OpenAI-compatible chat client used by the
// synthesize stage to turn transcripts into study notes.
//
// Generate is a single attempt. The caller's retry policy decides whether a
// failure is worth another try, using the typed errors this package returns:
//
//   - ErrBlocked: explicit refusal, content filter, or prompt block.
//   - ErrEmptyResponse: no usable text (empty content, length cut-off).
//   - *services.ProviderError: non-2xx status with any Retry-After hint.
//
// Requires api_key and model; base_url defaults to OpenRouter.
package llm
