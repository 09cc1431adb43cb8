package events

import (
	"fmt"
	"strings"
)

// Category tags a change notification.
type Category int

const (
	CategoryDebug Category = iota
	CategoryInfo
	CategoryProcessStart
	CategoryProcessComplete
	CategoryWarning
	CategoryException
)

var categoryNames = map[Category]string{
	CategoryDebug:           "DEBUG",
	CategoryInfo:            "INFO",
	CategoryProcessStart:    "PROCESS_START",
	CategoryProcessComplete: "PROCESS_COMPLETE",
	CategoryWarning:         "WARNING",
	CategoryException:       "EXCEPTION",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// ResultCode is the outcome carried by a completion notification.
type ResultCode int

const (
	ResultSuccess ResultCode = iota
	ResultGeneralFailure
	ResultProcessTimeout
	ResultUnexpectedShutdown
	ResultLicenseCheckoutError
)

var resultNames = map[ResultCode]string{
	ResultSuccess:              "SUCCESS",
	ResultGeneralFailure:       "GENERAL_FAILURE",
	ResultProcessTimeout:       "PROCESS_TIMEOUT",
	ResultUnexpectedShutdown:   "UNEXPECTED_SHUTDOWN",
	ResultLicenseCheckoutError: "LICENSE_CHECKOUT_ERROR",
}

func (r ResultCode) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("ResultCode(%d)", int(r))
}

// Success reports whether the result lets the queue advance.
func (r ResultCode) Success() bool {
	return r == ResultSuccess
}

// ParseResultCode resolves a result code from its canonical name.
func ParseResultCode(value string) (ResultCode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for code, name := range resultNames {
		if name == normalized {
			return code, nil
		}
	}
	return ResultGeneralFailure, fmt.Errorf("unknown result code %q", value)
}

// Change is a progress, log or debug message emitted while a process runs.
type Change struct {
	Category Category
	Message  string
}

// NewChange builds a change notification.
func NewChange(category Category, message string) Change {
	return Change{Category: category, Message: message}
}

// Completion signals the end of a run.
type Completion struct {
	Result  ResultCode
	Message string
}

// NewCompletion builds a completion notification. The message may be empty.
func NewCompletion(result ResultCode, message string) Completion {
	return Completion{Result: result, Message: message}
}

// ChangeHandler receives change notifications from the named sender.
type ChangeHandler func(sender string, change Change)

// CompletionHandler receives the completion notification of the named sender.
type CompletionHandler func(sender string, completion Completion)

// ExceptionHandler receives faults raised by the named sender.
type ExceptionHandler func(sender string, err error)
