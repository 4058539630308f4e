// Package retry wraps ledger calls with bounded, classified retry.
//
// Errors fall into two buckets. Transient failures (stale blockhash, timeout,
// rate limiting, generic network trouble) are retried with a linear-capped
// delay. Protocol rejections (owner still active, already claimed,
// unauthorized signer, insufficient on-chain funds, malformed account) are
// fatal and never retried.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Class categorizes a failed ledger operation
type Class int

const (
	ClassTransient Class = iota // retry possible
	ClassFatal                  // protocol rejection, never retried
	ClassExhausted              // transient, but attempts ran out
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassFatal:
		return "fatal"
	case ClassExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// LedgerError wraps a failed ledger operation with its classification so
// callers can alert differently on exhausted-transient vs protocol-fatal.
type LedgerError struct {
	Class    Class
	Op       string // "list_records", "submit_tx", "confirm_tx", ...
	Attempts int
	Err      error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s failed (%s after %d attempt(s)): %v", e.Op, e.Class, e.Attempts, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a fatal (never-retry) classification
func IsFatal(err error) bool {
	var le *LedgerError
	return errors.As(err, &le) && le.Class == ClassFatal
}

// IsExhausted reports whether err is a transient failure that ran out of attempts
func IsExhausted(err error) bool {
	var le *LedgerError
	return errors.As(err, &le) && le.Class == ClassExhausted
}

// Patterns matched case-insensitively against error text. The ledger RPC
// surface reports most failures as strings, so classification is
// pattern-based rather than type-based.
var retryablePatterns = []string{
	"blockhash not found",
	"blockhash expired",
	"invalid blockhash",
	"blockhash",
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"temporary failure",
	"network",
	"rate limit",
	"too many requests",
	"429",
	"502",
	"503",
	"eof",
	"broken pipe",
}

var fatalPatterns = []string{
	"ownerstillactive",
	"owner still active",
	"alreadyclaimed",
	"already claimed",
	"alreadyexecuted",
	"already executed",
	"unauthorized",
	"missing required signature",
	"signature verification failure",
	"insufficient funds",
	"insufficient lamports",
	"accountdidnotdeserialize",
	"invalid account data",
	"malformed",
}

// Classify buckets an error. Fatal patterns win over retryable ones: a
// protocol rejection that happens to mention the word "network" must still
// never be retried.
func Classify(err error) Class {
	if err == nil {
		return ClassTransient
	}
	msg := strings.ToLower(err.Error())

	for _, pattern := range fatalPatterns {
		if strings.Contains(msg, pattern) {
			return ClassFatal
		}
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return ClassTransient
		}
	}
	// Unrecognized errors are treated as transient: the next cycle
	// re-derives truth from the ledger either way.
	return ClassTransient
}

// Config holds retry policy
type Config struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay grows linearly with the attempt number
	MaxDelay    time.Duration // cap on the computed delay
}

// DefaultConfig returns the keeper's standard policy
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 4,
		BaseDelay:   2 * time.Second,
		MaxDelay:    15 * time.Second,
	}
}

// Delay computes the wait before the given retry (1-based attempt number):
// min(base * attempt, cap). Linear-capped, not exponential.
func (c Config) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := c.BaseDelay * time.Duration(attempt)
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Do executes op until it succeeds, fails fatally, or attempts run out.
// The returned error, if any, is always a *LedgerError.
func Do(ctx context.Context, config Config, opName string, op func() error) error {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return &LedgerError{Class: ClassExhausted, Op: opName, Attempts: attempt - 1, Err: err}
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if Classify(err) == ClassFatal {
			return &LedgerError{Class: ClassFatal, Op: opName, Attempts: attempt, Err: err}
		}
		if attempt == config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return &LedgerError{Class: ClassExhausted, Op: opName, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(config.Delay(attempt)):
		}
	}

	return &LedgerError{Class: ClassExhausted, Op: opName, Attempts: config.MaxAttempts, Err: lastErr}
}
