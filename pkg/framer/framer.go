// Package framer extracts complete Modbus frames from a byte stream that
// may deliver partial frames, multiple frames per chunk, or (on RTU)
// interleaved noise. A Framer is a pure, synchronous transformer over
// (prior buffer, new chunk) -> (remaining buffer, frames); it holds no I/O
// and no locks.
package framer

import "modbus-host/pkg/pdu"

// Framer accumulates inbound bytes for one connection and extracts
// complete PDUs in arrival order.
type Framer interface {
	// Feed appends chunk to the internal buffer and returns every complete
	// PDU that can now be extracted, in the order they appear on the wire.
	Feed(chunk []byte) []pdu.Response
}

// New returns the Framer appropriate for connectionType.
func New(connectionType pdu.ConnectionType) Framer {
	if connectionType == pdu.Tcp {
		return &TCPFramer{}
	}
	return &RTUFramer{}
}
