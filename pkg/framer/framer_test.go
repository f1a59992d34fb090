package framer

import (
	"bytes"
	"testing"

	"modbus-host/pkg/pdu"
)

func TestTCPStreamingSplitChunks(t *testing.T) {
	// Response to scenario A's read-holding request: slave=1, func=0x03,
	// byteCount=4, values=[10,11], wrapped in MBAP with length=7.
	full := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x07, 0x01, 0x03, 0x04, 0x00, 0x0A, 0x00, 0x0B}
	chunks := [][]byte{
		full[0:3],
		full[3:8],
		full[8:],
	}

	f := New(pdu.Tcp)
	var got []pdu.Response
	for i, c := range chunks {
		out := f.Feed(c)
		if i < len(chunks)-1 && len(out) != 0 {
			t.Fatalf("emitted a PDU before the frame was complete: %+v", out)
		}
		got = append(got, out...)
	}

	if len(got) != 1 {
		t.Fatalf("got %d responses, want 1", len(got))
	}
	if !bytes.Equal(valueBytes(got[0].Values), []byte{0, 10, 0, 11}) {
		t.Fatalf("values = %v", got[0].Values)
	}
}

func TestTCPChunkingInvariant(t *testing.T) {
	full := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x07, 0x01, 0x03, 0x04, 0x00, 0x0A, 0x00, 0x0B}
	full = append(full, full...) // two frames back to back

	whole := New(pdu.Tcp).Feed(full)

	splits := [][]int{{1, 5, 100}, {3, 7, 2}, {26}, {1, 1, 1, 1, 1, 1}}
	for _, split := range splits {
		f := New(pdu.Tcp)
		var chunked []pdu.Response
		pos := 0
		for _, n := range split {
			end := pos + n
			if end > len(full) {
				end = len(full)
			}
			chunked = append(chunked, f.Feed(full[pos:end])...)
			pos = end
		}
		if pos < len(full) {
			chunked = append(chunked, f.Feed(full[pos:])...)
		}

		if len(chunked) != len(whole) {
			t.Fatalf("split %v: got %d responses, want %d", split, len(chunked), len(whole))
		}
	}
}

func TestRTUGarbageResistance(t *testing.T) {
	// Read-holding response: slave=1, func=0x03, byteCount=2, value=0x002A
	frameBody := []byte{0x01, 0x03, 0x02, 0x00, 0x2A}
	frame := pdu.AppendCRC(frameBody)

	stream := append([]byte{0xFF, 0xFE, 0xFD}, frame...)
	stream = append(stream, []byte{0x00, 0x00}...)
	stream = append(stream, frame...)

	f := New(pdu.Rtu)
	got := f.Feed(stream)

	if len(got) != 2 {
		t.Fatalf("got %d PDUs, want 2 (garbage-resistant)", len(got))
	}
	for _, r := range got {
		if r.Values[0] != 0x002A {
			t.Fatalf("value = %#x, want 0x2A", r.Values[0])
		}
	}
}

func TestRTUCRCMismatchResyncsOneByteAtATime(t *testing.T) {
	frame := pdu.AppendCRC([]byte{0x01, 0x06, 0x00, 0x01, 0x00, 0x03})
	corrupted := append([]byte{}, frame...)
	corrupted[len(corrupted)-1] ^= 0xFF

	f := &RTUFramer{}
	out := f.Feed(corrupted)
	if len(out) != 0 {
		t.Fatalf("corrupted frame should not decode, got %+v", out)
	}
	// Every byte should eventually resync away except what's left waiting
	// for more data (fewer than 5 bytes or an incomplete read-frame tail).
	if len(f.buf) >= len(corrupted) {
		t.Fatalf("buffer was not advanced on CRC mismatch: len=%d", len(f.buf))
	}
}

func valueBytes(values []uint16) []byte {
	b := make([]byte, len(values)*2)
	for i, v := range values {
		b[i*2] = byte(v >> 8)
		b[i*2+1] = byte(v)
	}
	return b
}
