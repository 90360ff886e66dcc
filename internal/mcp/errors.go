// Package mcp exposes the linkmap operations as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
)

// Custom MCP error codes for linkmap.
const (
	// ErrCodeStoreFailed indicates the page store could not be read or written.
	ErrCodeStoreFailed = -32001

	// ErrCodeEmbeddingFailed indicates embedding generation failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out or the backend was unreachable.
	ErrCodeTimeout = -32003

	// ErrCodeDomainBusy indicates another writer holds the domain lock.
	ErrCodeDomainBusy = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

var (
	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates the arguments could not be decoded.
	ErrInvalidParams = errors.New("invalid parameters")
)

// MCPError is a protocol error with a JSON-RPC code.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors. MCPErrors pass through.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}
	var le *lmerrors.LinkmapError
	if errors.As(err, &le) {
		return mapLinkmapError(le)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: err.Error()}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for an unknown tool.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapLinkmapError(le *lmerrors.LinkmapError) *MCPError {
	message := le.Message
	if le.Suggestion != "" {
		message = fmt.Sprintf("%s %s", le.Message, le.Suggestion)
	}

	switch le.Category {
	case lmerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case lmerrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case lmerrors.CategoryIO:
		switch le.Code {
		case lmerrors.ErrCodeLockFailed:
			return &MCPError{Code: ErrCodeDomainBusy, Message: message}
		case lmerrors.ErrCodeInputMalformed:
			return &MCPError{Code: ErrCodeInvalidParams, Message: message}
		default:
			return &MCPError{Code: ErrCodeStoreFailed, Message: message}
		}
	}
	if le.Code == lmerrors.ErrCodeEmbeddingFailed {
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	}
	return &MCPError{Code: ErrCodeInternalError, Message: message}
}
