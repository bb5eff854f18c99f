// Package engine defines the transcoding engine contract and Handle, the
// single owned instance of it shared by every conversion.
//
// Engines are crash-prone black boxes: a run may never return after the
// engine dies. Handle therefore recovers panics around every engine call,
// forwards abrupt terminations to per-session failure hooks registered
// with OnFailure, and makes Dispose safe to call at any time.
package engine
