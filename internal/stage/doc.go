// Package stage defines the contract between the pipeline coordinator and the
// three stage executors (acquire, transcribe, synthesize), along with the
// typed Result and Failure values that drive retry decisions.
package stage
