// Package logclass turns transcoding engine log lines into conversion events.
//
// The engine has no structured way to report that a run finished or that
// it crashed from memory exhaustion; both facts only show up as text on
// its output channels. Every literal the rest of the application relies
// on lives in Vocabulary so an engine upgrade that changes its wording is
// a one-line change here.
package logclass
