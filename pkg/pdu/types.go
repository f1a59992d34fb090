// Package pdu implements the Modbus wire codec: building request frames
// for the TCP (MBAP) and RTU (CRC-trailed) transports, and decoding response
// PDUs back into typed values. It holds no I/O and no locks.
package pdu

import "fmt"

// FunctionCode is one of the four 16-bit register functions this host
// supports. Bit-oriented functions (coils, discrete inputs) are not modeled.
type FunctionCode byte

const (
	ReadHolding   FunctionCode = 0x03
	ReadInput     FunctionCode = 0x04
	WriteSingle   FunctionCode = 0x06
	WriteMultiple FunctionCode = 0x10
)

// String renders the function code the way the JSON-RPC layer names it.
func (f FunctionCode) String() string {
	switch f {
	case ReadHolding:
		return "read_holding"
	case ReadInput:
		return "read_input"
	case WriteSingle:
		return "write_single"
	case WriteMultiple:
		return "write_multiple"
	default:
		return fmt.Sprintf("unknown(0x%02X)", byte(f))
	}
}

// IsRead reports whether f is one of the two read functions.
func (f FunctionCode) IsRead() bool {
	return f == ReadHolding || f == ReadInput
}

// ConnectionType distinguishes the two wire wrappers a Request can be
// encoded for.
type ConnectionType int

const (
	Tcp ConnectionType = iota
	Rtu
)

// Request is a request descriptor: the logical content of a read or write
// independent of how it is wrapped on the wire.
type Request struct {
	SlaveID      uint8
	Function     FunctionCode
	StartAddress uint16
	Count        uint16
	Values       []uint16
}

// Response is a decoded response PDU, stripped of its transport wrapper.
type Response struct {
	SlaveID       uint8
	Function      FunctionCode
	Values        []uint16
	IsException   bool
	ExceptionCode byte
}

// ErrPduTooShort is returned by Decode when fewer than two bytes are given.
var ErrPduTooShort = fmt.Errorf("pdu: too short")
