// Package dispatch defines the contract action nodes are delivered
// through and the error taxonomy the engine retries against.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hookline/hookline/pkg/models"
)

// Outcome is the result of a single delivery attempt.
type Outcome struct {
	Detail   string
	Duration time.Duration
}

// Dispatcher delivers one action node using a resolved credential.
// Implementations are safe for concurrent use.
type Dispatcher interface {
	// Kind reports the node kind this dispatcher serves.
	Kind() models.NodeKind

	// CredentialKind reports the credential kind Dispatch requires.
	CredentialKind() models.CredentialKind

	// Dispatch performs one delivery attempt. A ConfigError means the
	// node or credential is malformed and retrying cannot help; a
	// TransportError means the remote side or the network failed.
	Dispatch(ctx context.Context, node *models.Node, credential *models.Credential) (*Outcome, error)
}

// ConfigError reports malformed node metadata or credential content
// detected at dispatch time. Never retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// TransportError reports a delivery failure outside the node's own
// configuration. Eligible for retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsConfigError checks whether an error is a non-retryable configuration failure.
func IsConfigError(err error) bool {
	var configErr *ConfigError

	return errors.As(err, &configErr)
}

// IsTransportError checks whether an error is a retryable transport failure.
func IsTransportError(err error) bool {
	var transportErr *TransportError

	return errors.As(err, &transportErr)
}

// Safe wraps a dispatcher so a panicking implementation surfaces as a
// transport failure instead of tearing down the run's worker.
func Safe(dispatcher Dispatcher) Dispatcher {
	return &safeDispatcher{inner: dispatcher}
}

type safeDispatcher struct {
	inner Dispatcher
}

func (d *safeDispatcher) Kind() models.NodeKind {
	return d.inner.Kind()
}

func (d *safeDispatcher) CredentialKind() models.CredentialKind {
	return d.inner.CredentialKind()
}

func (d *safeDispatcher) Dispatch(ctx context.Context, node *models.Node, credential *models.Credential) (outcome *Outcome, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			outcome = nil
			err = &TransportError{
				Op:  "dispatch",
				Err: fmt.Errorf("dispatcher panic: %v", recovered),
			}
		}
	}()

	return d.inner.Dispatch(ctx, node, credential)
}
