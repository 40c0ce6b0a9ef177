// Package stream carries step lifecycle events to a UI backend.
//
// The engine emits an append-only sequence of [Event] values: a step opens,
// produces log lines and presentation changes, and closes with a status;
// the run ends with a final [KindRecipeEnded] event. Step names form a tree
// via the "|" separator, and every event refers to a step by its full
// hierarchical name.
//
// Two emitters consume the same sequence. [Annotator] interleaves
// "@@@...@@@" sentinel commands with captured output, the textual protocol
// understood by annotation-based UIs. [Structured] maintains an in-memory
// build presentation and replicates JSON snapshots of it to a writer as
// steps close. Both observe identical semantic content; tests assert on the
// normalized event sequence captured by a [Recorder].
package stream
