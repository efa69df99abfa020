// SPDX-License-Identifier: MIT
package analysis

// StreamProcessor consumes one block of captured audio and produces the
// matching block of processed output. Implementations are called from the
// real-time audio callback and must be allocation-free and non-blocking.
type StreamProcessor interface {
	Process(in []int32, out []int32)
}

// ClosableProcessor is a StreamProcessor with resources to release.
type ClosableProcessor interface {
	StreamProcessor
	Close() error
}
