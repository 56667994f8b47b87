// Package notes builds the note-synthesis prompt and post-processes the
// generated notes: timestamp markers become seek links into the source, and
// Parse recovers the summary and sections for display.
package notes
