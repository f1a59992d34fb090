package errors

import (
	"context"
	"fmt"
	"modbus-host/pkg/logger"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	diagnosticPublisher DiagnosticPublisher
}

// DiagnosticPublisher reports diagnostics to whatever sink the caller
// wired in (metrics counter, health monitor, log aggregator).
type DiagnosticPublisher interface {
	PublishDiagnostic(ctx context.Context, code int, message string) error
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(publisher DiagnosticPublisher) *ErrorHandler {
	return &ErrorHandler{
		diagnosticPublisher: publisher,
	}
}

// Handle processes an error with appropriate logging and diagnostics
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	switch e := err.(type) {
	case *TransportError:
		h.handleTransportError(ctx, e)
	case *ModbusError:
		h.handleModbusError(ctx, e)
	case *TimeoutError:
		h.handleTimeoutError(ctx, e)
	case *ConfigError:
		h.handleConfigError(ctx, e)
	case *ValidationError:
		h.handleValidationError(ctx, e)
	case *HostError:
		h.handleHostError(ctx, e)
	default:
		h.handleGenericError(ctx, err)
	}
}

// handleTransportError handles transport-level errors
func (h *ErrorHandler) handleTransportError(ctx context.Context, err *TransportError) {
	switch err.Severity {
	case SeverityCritical:
		logger.LogError("🔴 CRITICAL Transport Error: %s", err.Error())
	case SeverityError:
		logger.LogError("❌ Transport Error: %s", err.Error())
	case SeverityWarning:
		logger.LogWarn("⚠️ Transport Warning: %s", err.Error())
	default:
		logger.LogInfo("ℹ️ Transport Info: %s", err.Error())
	}

	if h.diagnosticPublisher != nil {
		message := fmt.Sprintf("%s transport %s: %s", err.ConnectionType, err.Endpoint, err.Op)
		if publishErr := h.diagnosticPublisher.PublishDiagnostic(ctx, err.Code, message); publishErr != nil {
			logger.LogDebug("Failed to publish transport error diagnostic: %v", publishErr)
		}
	}
}

// handleModbusError handles Modbus-specific errors
func (h *ErrorHandler) handleModbusError(ctx context.Context, err *ModbusError) {
	switch err.Severity {
	case SeverityCritical:
		logger.LogError("🔴 CRITICAL Modbus Error: %s", err.Error())
	case SeverityError:
		logger.LogError("❌ Modbus Error: %s", err.Error())
	case SeverityWarning:
		logger.LogWarn("⚠️ Modbus Warning: %s", err.Error())
	default:
		logger.LogInfo("ℹ️ Modbus Info: %s", err.Error())
	}

	if h.diagnosticPublisher != nil {
		message := fmt.Sprintf("slave %d, function 0x%02x: %s", err.SlaveID, err.FunctionCode, err.Op)
		if publishErr := h.diagnosticPublisher.PublishDiagnostic(ctx, err.Code, message); publishErr != nil {
			logger.LogDebug("Failed to publish Modbus error diagnostic: %v", publishErr)
		}
	}
}

// handleTimeoutError handles read timeouts
func (h *ErrorHandler) handleTimeoutError(ctx context.Context, err *TimeoutError) {
	logger.LogWarn("⚠️ Timeout: %s", err.Error())

	if h.diagnosticPublisher != nil {
		message := fmt.Sprintf("timeout: slave %d, address %d", err.SlaveID, err.Address)
		if publishErr := h.diagnosticPublisher.PublishDiagnostic(ctx, err.Code, message); publishErr != nil {
			logger.LogDebug("Failed to publish timeout diagnostic: %v", publishErr)
		}
	}
}

// handleConfigError handles configuration errors
func (h *ErrorHandler) handleConfigError(ctx context.Context, err *ConfigError) {
	// Config errors are always critical
	logger.LogError("🔴 CRITICAL Configuration Error: %s", err.Error())

	if h.diagnosticPublisher != nil {
		message := fmt.Sprintf("Config field '%s': %s", err.Field, err.Op)
		if publishErr := h.diagnosticPublisher.PublishDiagnostic(ctx, err.Code, message); publishErr != nil {
			logger.LogDebug("Failed to publish config error diagnostic: %v", publishErr)
		}
	}
}

// handleValidationError handles validation errors
func (h *ErrorHandler) handleValidationError(ctx context.Context, err *ValidationError) {
	logger.LogWarn("⚠️ Validation Error: %s", err.Error())

	if h.diagnosticPublisher != nil {
		message := fmt.Sprintf("Validation failed for '%s'", err.Field)
		if publishErr := h.diagnosticPublisher.PublishDiagnostic(ctx, err.Code, message); publishErr != nil {
			logger.LogDebug("Failed to publish validation error diagnostic: %v", publishErr)
		}
	}
}

// handleHostError handles generic host errors not covered by a more
// specific case.
func (h *ErrorHandler) handleHostError(ctx context.Context, err *HostError) {
	switch err.Severity {
	case SeverityCritical:
		logger.LogError("🔴 CRITICAL Error: %s", err.Error())
	case SeverityError:
		logger.LogError("❌ Error: %s", err.Error())
	case SeverityWarning:
		logger.LogWarn("⚠️ Warning: %s", err.Error())
	default:
		logger.LogInfo("ℹ️ Info: %s", err.Error())
	}

	if h.diagnosticPublisher != nil {
		if publishErr := h.diagnosticPublisher.PublishDiagnostic(ctx, err.Code, err.Op); publishErr != nil {
			logger.LogDebug("Failed to publish error diagnostic: %v", publishErr)
		}
	}
}

// handleGenericError handles non-typed errors
func (h *ErrorHandler) handleGenericError(ctx context.Context, err error) {
	logger.LogError("❌ Untyped Error: %v", err)

	if h.diagnosticPublisher != nil {
		if publishErr := h.diagnosticPublisher.PublishDiagnostic(ctx, 99, err.Error()); publishErr != nil {
			logger.LogDebug("Failed to publish generic error diagnostic: %v", publishErr)
		}
	}
}

// IsRecoverable returns true if the error is recoverable
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}

	switch e := err.(type) {
	case *ConfigError:
		return false // Config errors are not recoverable
	case *HostError:
		return e.Severity != SeverityCritical
	case *TransportError:
		return e.Severity != SeverityCritical
	case *ModbusError:
		return e.Severity != SeverityCritical
	case *TimeoutError:
		return true // timeouts are expected to be retried by the caller
	default:
		return true // Unknown errors are assumed recoverable
	}
}

// GetDiagnosticCode extracts the diagnostic code from an error
func GetDiagnosticCode(err error) int {
	if err == nil {
		return 0
	}

	switch e := err.(type) {
	case *TransportError:
		return e.Code
	case *ModbusError:
		return e.Code
	case *TimeoutError:
		return e.Code
	case *ConfigError:
		return e.Code
	case *ValidationError:
		return e.Code
	case *HostError:
		return e.Code
	default:
		return 99 // Generic error code
	}
}
