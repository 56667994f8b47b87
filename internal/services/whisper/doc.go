// Package whisper is the transcription provider client. It targets any
// OpenAI-compatible /audio/transcriptions endpoint (faster-whisper-server,
// speaches, OpenAI) and requests verbose_json with segment timestamps.
package whisper
