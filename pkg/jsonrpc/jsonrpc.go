// Package jsonrpc dispatches JSON-RPC 2.0 requests onto a host.Host facade.
// It understands a single method table (ping, transport.*, modbus.*) and
// produces envelopes shaped like the protocol's error/result convention:
// {"jsonrpc":"2.0","id":..., "result":...} or {..., "error":{"code",...}}.
package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"modbus-host/pkg/correlator"
	"modbus-host/pkg/datatype"
	hosterrors "modbus-host/pkg/errors"
	"modbus-host/pkg/host"
	"modbus-host/pkg/logger"
	"modbus-host/pkg/metrics"
	"modbus-host/pkg/pdu"
)

// Error codes, matching the protocol's convention.
const (
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeParseError     = -32700
	CodeTransportOpen  = -32001
	CodeReadFailed     = -32002
	CodeWriteFailed    = -32003
)

// Request is a single JSON-RPC 2.0 call.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Error is the JSON-RPC error object. Data carries the host's own
// diagnostic code (see pkg/errors), distinct from the JSON-RPC Code above.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    int    `json:"data,omitempty"`
}

// Response is a single JSON-RPC 2.0 reply. Result and Error are mutually
// exclusive, matching the wire convention.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Dispatcher routes JSON-RPC requests onto a host.Host.
type Dispatcher struct {
	h       *host.Host
	metrics metrics.MetricsCollector
	errs    *hosterrors.ErrorHandler
	perf    *metrics.PerformanceTracker
}

// performanceSummaryInterval is how often the dispatcher logs a rolling
// success/error-rate summary of modbus.read* calls.
const performanceSummaryInterval = 5 * time.Minute

// New creates a Dispatcher backed by h. m may be nil if metrics are
// disabled upstream, in which case metrics.NewNullMetrics should be
// passed instead of nil.
func New(h *host.Host, m metrics.MetricsCollector) *Dispatcher {
	return &Dispatcher{
		h:       h,
		metrics: m,
		errs:    hosterrors.NewErrorHandler(logDiagnosticPublisher{}),
		perf:    metrics.NewPerformanceTracker(performanceSummaryInterval),
	}
}

// logDiagnosticPublisher routes pkg/errors diagnostics through the same
// global logger the rest of the process uses, rather than a network sink.
type logDiagnosticPublisher struct{}

func (logDiagnosticPublisher) PublishDiagnostic(_ context.Context, code int, message string) error {
	logger.LogDebug("diagnostic %d: %s", code, message)
	return nil
}

// HandleRaw parses raw as either a single request object or a batch array
// and returns the serialized response (object or array). A malformed
// top-level payload is reported as a single error response with nil id.
func (d *Dispatcher) HandleRaw(raw []byte) []byte {
	var probe json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return mustMarshal(errorResponse(nil, CodeParseError, "Parse error: invalid JSON"))
	}

	trimmed := firstNonSpace(raw)
	if trimmed == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return mustMarshal(errorResponse(nil, CodeInvalidRequest, "Invalid JSON-RPC payload"))
		}
		responses := make([]Response, 0, len(items))
		for _, item := range items {
			responses = append(responses, d.handleSingle(item))
		}
		return mustMarshal(responses)
	}

	return mustMarshal(d.handleSingle(raw))
}

func firstNonSpace(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return c
		}
	}
	return 0
}

func (d *Dispatcher) handleSingle(raw json.RawMessage) Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, CodeInvalidRequest, "Batch item must be object")
	}
	if req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "Missing method")
	}

	var params map[string]interface{}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			params = map[string]interface{}{}
		}
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	switch req.Method {
	case "ping":
		return okResponse(req.ID, map[string]interface{}{"status": "ok", "service": "modbus-host"})
	case "transport.serial_ports":
		return d.handleSerialPorts(req.ID)
	case "transport.status":
		return d.handleStatus(req.ID)
	case "transport.close":
		return d.handleClose(req.ID)
	case "transport.open", "transport.switch":
		return d.handleOpenOrSwitch(req.ID, req.Method, params)
	case "modbus.read":
		return d.handleRead(req.ID, params)
	case "modbus.read_group":
		return d.handleReadGroup(req.ID, params)
	case "modbus.write":
		return d.handleWrite(req.ID, params)
	case "modbus.write_group":
		return d.handleWriteGroup(req.ID, params)
	default:
		return errorResponse(req.ID, CodeMethodNotFound, "Method not found")
	}
}

func (d *Dispatcher) handleSerialPorts(id json.RawMessage) Response {
	return okResponse(id, map[string]interface{}{"ports": d.h.ListSerialPorts()})
}

func (d *Dispatcher) handleStatus(id json.RawMessage) Response {
	status := d.h.Status()
	result := transportConfigToJSON(status)
	result["circuit_breaker"] = d.h.BreakerState().String()
	return okResponse(id, result)
}

func (d *Dispatcher) handleClose(id json.RawMessage) Response {
	closed, ok := d.h.CloseActive()
	if d.metrics != nil {
		d.metrics.SetTransportStatus(false)
	}
	result := map[string]interface{}{"closed": ok}
	if ok {
		result["details"] = transportConfigToJSON(closed)
	} else {
		result["details"] = map[string]interface{}{}
	}
	return okResponse(id, result)
}

func (d *Dispatcher) handleOpenOrSwitch(id json.RawMessage, method string, params map[string]interface{}) Response {
	transportType, _ := params["type"].(string)
	if transportType == "" {
		return errorResponse(id, CodeInvalidParams, "type is required")
	}

	var target host.TransportConfig
	switch transportType {
	case "tcp":
		hostAddr, _ := params["host"].(string)
		port, portOK := toInt(params["port"])
		if hostAddr == "" || !portOK {
			return errorResponse(id, CodeInvalidParams, "host and port are required for tcp")
		}
		target = host.TransportConfig{Type: host.KindTCP, Host: hostAddr, Port: port}
	case "rtu":
		serialPort, _ := params["serial_port"].(string)
		baud, baudOK := toInt(params["baud_rate"])
		if serialPort == "" || !baudOK {
			return errorResponse(id, CodeInvalidParams, "serial_port and baud_rate are required for rtu")
		}
		stopBits := 1
		if v, ok := toInt(params["stop_bits"]); ok {
			stopBits = v
		}
		target = host.TransportConfig{Type: host.KindRTU, SerialPort: serialPort, BaudRate: baud, StopBits: stopBits}
	default:
		return errorResponse(id, CodeInvalidParams, "Unknown transport type")
	}

	var (
		err      error
		closed   host.TransportConfig
		closedOK bool
	)

	if method == "transport.switch" {
		closed, closedOK, err = d.h.Switch(target)
	} else {
		if target.Type == host.KindTCP {
			err = d.h.OpenTCP(target.Host, target.Port)
		} else {
			err = d.h.OpenRTU(target.SerialPort, target.BaudRate, target.StopBits)
		}
	}

	if err != nil {
		d.errs.Handle(context.Background(), err)
		d.noteUnrecoverable(err)
		return hostErrorResponse(id, CodeTransportOpen, err)
	}

	if d.metrics != nil {
		d.metrics.SetTransportStatus(true)
	}

	result := map[string]interface{}{"opened": true, "type": transportType}
	if closedOK {
		result["closed_previous"] = transportConfigToJSON(closed)
	} else {
		result["closed_previous"] = map[string]interface{}{}
	}
	return okResponse(id, result)
}

func (d *Dispatcher) handleRead(id json.RawMessage, params map[string]interface{}) Response {
	slaveID, address, count, err := parseReadFields(params)
	if err != nil {
		return errorResponse(id, CodeInvalidParams, err.Error())
	}

	input, _ := params["input"].(bool)
	timeout := timeoutFromParams(params)

	res, err := d.h.Read(slaveID, address, count, input, timeout)
	if err != nil {
		d.recordReadFailure(err)
		d.errs.Handle(context.Background(), err)
		d.noteUnrecoverable(err)
		return hostErrorResponse(id, CodeReadFailed, err)
	}
	d.recordReadSuccess()

	payload := readResultToJSON(res)
	if err := enrichWithType(payload, params, res.Values); err != nil {
		return errorResponse(id, CodeInvalidParams, err.Error())
	}
	return okResponse(id, payload)
}

func (d *Dispatcher) handleReadGroup(id json.RawMessage, params map[string]interface{}) Response {
	rawRequests, ok := params["requests"].([]interface{})
	if !ok {
		return errorResponse(id, CodeInvalidParams, "requests array is required")
	}

	requests := make([]pdu.Request, 0, len(rawRequests))
	itemParams := make([]map[string]interface{}, 0, len(rawRequests))
	for _, item := range rawRequests {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return errorResponse(id, CodeInvalidParams, "requests[] item must be object")
		}
		slaveID, address, count, err := parseReadFields(obj)
		if err != nil {
			return errorResponse(id, CodeInvalidParams, "Invalid group read item format")
		}
		function := pdu.ReadHolding
		if input, _ := obj["input"].(bool); input {
			function = pdu.ReadInput
		}
		requests = append(requests, pdu.Request{SlaveID: slaveID, Function: function, StartAddress: address, Count: count})
		itemParams = append(itemParams, obj)
	}

	timeout := timeoutFromParams(params)
	results, err := d.h.ReadGroup(requests, timeout)
	if err != nil {
		d.recordReadFailure(err)
		d.errs.Handle(context.Background(), err)
		d.noteUnrecoverable(err)
		return hostErrorResponse(id, CodeReadFailed, err)
	}
	d.recordReadSuccessN(len(results))

	groupResults := make([]map[string]interface{}, 0, len(results))
	for i, res := range results {
		payload := readResultToJSON(res)
		if err := enrichWithType(payload, itemParams[i], res.Values); err != nil {
			return errorResponse(id, CodeInvalidParams, fmt.Sprintf("requests[%d]: %v", i, err))
		}
		groupResults = append(groupResults, payload)
	}

	return okResponse(id, map[string]interface{}{
		"ok":      true,
		"count":   len(requests),
		"results": groupResults,
	})
}

func (d *Dispatcher) handleWrite(id json.RawMessage, params map[string]interface{}) Response {
	slaveID, address, err := parseSlaveAndAddress(params)
	if err != nil {
		return errorResponse(id, CodeInvalidParams, err.Error())
	}

	registers, err := registersFromWriteParams(params)
	if err != nil {
		return errorResponse(id, CodeInvalidParams, err.Error())
	}

	var writeErr error
	if len(registers) == 1 {
		writeErr = d.h.WriteSingle(slaveID, address, registers[0])
	} else {
		writeErr = d.h.WriteMultiple(slaveID, address, registers)
	}

	if writeErr != nil {
		d.errs.Handle(context.Background(), writeErr)
		d.noteUnrecoverable(writeErr)
		return hostErrorResponse(id, CodeWriteFailed, writeErr)
	}
	if d.metrics != nil {
		d.metrics.IncrementWrites()
	}
	return okResponse(id, map[string]interface{}{"accepted": true})
}

func (d *Dispatcher) handleWriteGroup(id json.RawMessage, params map[string]interface{}) Response {
	rawRequests, ok := params["requests"].([]interface{})
	if !ok {
		return errorResponse(id, CodeInvalidParams, "requests array is required")
	}

	requests := make([]pdu.Request, 0, len(rawRequests))
	for _, item := range rawRequests {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return errorResponse(id, CodeInvalidParams, "requests[] item must be object")
		}
		slaveID, address, err := parseSlaveAndAddress(obj)
		if err != nil {
			return errorResponse(id, CodeInvalidParams, "Invalid group write item format")
		}

		registers, err := registersFromWriteParams(obj)
		if err != nil {
			return errorResponse(id, CodeInvalidParams, fmt.Sprintf("requests[%d]: %v", len(requests), err))
		}

		var req pdu.Request
		if len(registers) == 1 {
			req = pdu.Request{SlaveID: slaveID, Function: pdu.WriteSingle, StartAddress: address, Values: registers}
		} else {
			req = pdu.Request{SlaveID: slaveID, Function: pdu.WriteMultiple, StartAddress: address, Count: uint16(len(registers)), Values: registers}
		}
		requests = append(requests, req)
	}

	if err := d.h.WriteGroup(requests); err != nil {
		d.errs.Handle(context.Background(), err)
		d.noteUnrecoverable(err)
		return hostErrorResponse(id, CodeWriteFailed, err)
	}
	if d.metrics != nil {
		for i := 0; i < len(requests); i++ {
			d.metrics.IncrementWrites()
		}
	}
	return okResponse(id, map[string]interface{}{"accepted": true, "count": len(requests)})
}

func (d *Dispatcher) recordReadSuccess() {
	d.perf.RecordSuccess()
	d.perf.PrintSummaryIfNeeded()
	if d.metrics != nil {
		d.metrics.IncrementReads()
	}
}

func (d *Dispatcher) recordReadSuccessN(n int) {
	d.perf.RecordSuccessBatch(n)
	d.perf.PrintSummaryIfNeeded()
	if d.metrics == nil {
		return
	}
	for i := 0; i < n; i++ {
		d.metrics.IncrementReads()
	}
}

func (d *Dispatcher) recordReadFailure(err error) {
	d.perf.RecordError()
	d.perf.PrintSummaryIfNeeded()
	if d.metrics == nil {
		return
	}
	if _, ok := err.(*hosterrors.ModbusError); ok {
		d.metrics.IncrementExceptions()
		return
	}
	if _, ok := err.(*hosterrors.TimeoutError); ok {
		d.metrics.IncrementTimeouts()
	}
}

// registersFromWriteParams converts a write request's value(s) into raw
// registers ready for WriteSingle/WriteMultiple, consulting data_type and
// string_length the same way enrichWithType does on the read path. Word
// (the default when data_type is absent) keeps the legacy raw value/values
// behavior so existing Word callers are unaffected.
func registersFromWriteParams(params map[string]interface{}) ([]uint16, error) {
	requested, _ := params["data_type"].(string)
	if requested == "" {
		requested = "Word"
	}
	canonical := datatype.Canonical(requested)
	if canonical == "" {
		return nil, fmt.Errorf("Unsupported data_type")
	}

	if canonical == datatype.Word {
		if rawValues, ok := params["values"].([]interface{}); ok {
			return toUint16Slice(rawValues)
		}
		if rawValue, ok := params["value"]; ok {
			value, ok := toInt(rawValue)
			if !ok {
				return nil, fmt.Errorf("value or values required")
			}
			return []uint16{uint16(value)}, nil
		}
		return nil, fmt.Errorf("value or values required")
	}

	stringLength := 0
	if v, ok := toInt(params["string_length"]); ok {
		stringLength = v
	}

	value, err := valueForDataType(canonical, params)
	if err != nil {
		return nil, err
	}
	return datatype.Encode(value, canonical, stringLength)
}

// valueForDataType pulls the logical Go value datatype.Encode expects out
// of a write request's JSON params, based on the requested type.
func valueForDataType(canonical datatype.Type, params map[string]interface{}) (any, error) {
	switch canonical {
	case datatype.Array:
		rawValues, ok := params["values"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("values array is required for data_type %s", canonical)
		}
		return toUint16Slice(rawValues)

	case datatype.Byte, datatype.Int8, datatype.Int16:
		rawValues, ok := params["values"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("values array is required for data_type %s", canonical)
		}
		out := make([]int, 0, len(rawValues))
		for _, v := range rawValues {
			n, ok := toInt(v)
			if !ok {
				return nil, fmt.Errorf("values must be int array")
			}
			out = append(out, n)
		}
		return out, nil

	case datatype.Int32:
		n, ok := toInt(params["value"])
		if !ok {
			return nil, fmt.Errorf("value is required for data_type %s", canonical)
		}
		return int64(n), nil

	case datatype.Float:
		f, ok := toFloat(params["value"])
		if !ok {
			return nil, fmt.Errorf("value is required for data_type %s", canonical)
		}
		return f, nil

	case datatype.String:
		s, ok := params["value"].(string)
		if !ok {
			return nil, fmt.Errorf("value must be a string for data_type String")
		}
		return s, nil

	case datatype.TCP56:
		obj, ok := params["value"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("value must be an object for data_type TCP56")
		}
		ms, _ := toInt(obj["milliseconds"])
		minute, _ := toInt(obj["minute"])
		hour, _ := toInt(obj["hour"])
		day, _ := toInt(obj["day"])
		month, _ := toInt(obj["month"])
		year, _ := toInt(obj["year"])
		return datatype.Timestamp{
			Milliseconds: uint16(ms),
			Minute:       uint8(minute),
			Hour:         uint8(hour),
			Day:          uint8(day),
			Month:        uint8(month),
			Year:         year,
		}, nil

	default:
		return nil, fmt.Errorf("Unsupported data_type")
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func enrichWithType(payload map[string]interface{}, params map[string]interface{}, values []uint16) error {
	requested, _ := params["data_type"].(string)
	if requested == "" {
		requested = "Word"
	}
	canonical := datatype.Canonical(requested)
	if canonical == "" {
		return fmt.Errorf("Unsupported data_type")
	}

	stringLength := 0
	if v, ok := toInt(params["string_length"]); ok {
		stringLength = v
	}

	decoded, err := datatype.Decode(values, canonical, stringLength)
	if err != nil {
		return err
	}

	payload["data_type"] = string(canonical)
	payload["decoded"] = decoded
	return nil
}

func readResultToJSON(res correlator.Result) map[string]interface{} {
	return map[string]interface{}{
		"slave_id": res.SlaveID,
		"address":  res.Address,
		"count":    res.Count,
		"function": res.Function.String(),
		"values":   res.Values,
	}
}

func transportConfigToJSON(cfg host.TransportConfig) map[string]interface{} {
	transportType := "tcp"
	if cfg.Type == host.KindRTU {
		transportType = "rtu"
	}
	return map[string]interface{}{
		"active":      cfg.Active,
		"type":        transportType,
		"host":        cfg.Host,
		"port":        cfg.Port,
		"serial_port": cfg.SerialPort,
		"baud_rate":   cfg.BaudRate,
		"stop_bits":   cfg.StopBits,
	}
}

func parseReadFields(params map[string]interface{}) (slaveID uint8, address uint16, count uint16, err error) {
	slaveIDVal, slaveOK := toInt(params["slave_id"])
	addressVal, addrOK := addressFromParams(params)
	countVal, countOK := toInt(params["count"])
	if !slaveOK || !addrOK || !countOK {
		return 0, 0, 0, fmt.Errorf("slave_id, address, count are required")
	}
	if slaveIDVal < 0 || slaveIDVal > 255 {
		return 0, 0, 0, fmt.Errorf("Invalid slave_id/address/count format")
	}
	return uint8(slaveIDVal), uint16(addressVal), uint16(countVal), nil
}

func parseSlaveAndAddress(params map[string]interface{}) (slaveID uint8, address uint16, err error) {
	slaveIDVal, slaveOK := toInt(params["slave_id"])
	addressVal, addrOK := addressFromParams(params)
	if !slaveOK || !addrOK {
		return 0, 0, fmt.Errorf("slave_id and address are required")
	}
	if slaveIDVal < 0 || slaveIDVal > 255 {
		return 0, 0, fmt.Errorf("Invalid slave_id/address format")
	}
	return uint8(slaveIDVal), uint16(addressVal), nil
}

// addressFromParams accepts either "address" or legacy "register" keys.
func addressFromParams(params map[string]interface{}) (int, bool) {
	if v, ok := toInt(params["address"]); ok {
		return v, true
	}
	return toInt(params["register"])
}

func timeoutFromParams(params map[string]interface{}) time.Duration {
	if v, ok := toInt(params["timeout_ms"]); ok && v > 0 {
		return time.Duration(v) * time.Millisecond
	}
	return 0
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func toUint16Slice(raw []interface{}) ([]uint16, error) {
	out := make([]uint16, 0, len(raw))
	for _, v := range raw {
		n, ok := toInt(v)
		if !ok {
			return nil, fmt.Errorf("values must be int array")
		}
		out = append(out, uint16(n))
	}
	return out, nil
}

func errorResponse(id json.RawMessage, code int, message string) Response {
	return Response{JSONRPC: "2.0", ID: nullIfEmpty(id), Error: &Error{Code: code, Message: message}}
}

// hostErrorResponse builds an error response whose Data field carries the
// diagnostic code attached to a host.Host-layer error.
func hostErrorResponse(id json.RawMessage, code int, err error) Response {
	return Response{JSONRPC: "2.0", ID: nullIfEmpty(id), Error: &Error{
		Code:    code,
		Message: err.Error(),
		Data:    hosterrors.GetDiagnosticCode(err),
	}}
}

// noteUnrecoverable flags the transport as down in metrics when err is
// severe enough that the caller shouldn't expect the next call to
// succeed either, mirroring the teacher's severity-driven reconnection
// decisions.
func (d *Dispatcher) noteUnrecoverable(err error) {
	if d.metrics != nil && !hosterrors.IsRecoverable(err) {
		d.metrics.SetTransportStatus(false)
	}
}

func okResponse(id json.RawMessage, result interface{}) Response {
	return Response{JSONRPC: "2.0", ID: nullIfEmpty(id), Result: result}
}

func nullIfEmpty(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal marshal error"}}`)
	}
	return b
}
