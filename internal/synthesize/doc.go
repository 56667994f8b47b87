// Package synthesize implements the note-generation stage: it rebuilds timed
// segments from the stored transcript, prompts the LLM for XML study notes,
// and links every timestamp marker back into the source.
package synthesize
