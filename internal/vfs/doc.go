// Package vfs provides the transcoding engine's private workspace: a flat,
// directory-backed store of named byte buffers.
//
// Names are single path elements and may not start with a dash, so an
// entry name can always be passed to the engine as a plain argument.
// Operations are reported to an optional Observer for metrics.
package vfs
