// Package feeds reads RSS, Atom, and JSON podcast feeds and turns each item
// into a submittable source reference.
package feeds
