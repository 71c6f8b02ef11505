// Package chunkers builds chunking strategies from configuration and picks
// the strategy for each extracted content: timed segments go to the
// time-window chunker, everything else to the sentence chunker.
package chunkers
