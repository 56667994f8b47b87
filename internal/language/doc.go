// Package language normalizes the transcription language setting.
//
// Speech-to-text endpoints accept ISO 639-1 codes only, while operators tend
// to write "english", "eng", or "en-US". ToISO2 folds those forms into the
// two-letter code and DisplayName renders it back for status output.
package language
