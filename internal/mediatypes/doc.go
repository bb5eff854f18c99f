// Package mediatypes classifies selected input files by extension and
// provides MIME helpers for labelling them.
//
// It has no dependencies beyond the standard library so the pipeline,
// the HTTP handlers and the CLI can all import it without cycles.
//
//	if !mediatypes.IsLikelyConvertible(name) {
//	    logging.Warn("%s does not look like a video", name)
//	}
//
// Classification is advisory. Every selected file is handed to the
// engine regardless of its kind.
package mediatypes
