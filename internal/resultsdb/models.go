package resultsdb

import (
	"errors"
	"fmt"
)

// Testcase identifies what was checked. Legacy producers submit bare
// test case names, so Result.Testcase also accepts a plain string.
type Testcase struct {
	Name   string `json:"name"`
	RefURL string `json:"ref_url"`
}

// Group is a collection of related results sharing one run context.
// New-style messages reference the run by "url", the legacy single-result
// path by "ref_url" plus a "description" used for idempotent lookup.
type Group struct {
	UUID        string `json:"uuid"`
	RefURL      string `json:"ref_url,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// Result is the canonical record submitted to the store.
type Result struct {
	Testcase interface{}            `json:"testcase"`
	Groups   []Group                `json:"groups"`
	Outcome  string                 `json:"outcome"`
	RefURL   string                 `json:"ref_url"`
	Note     string                 `json:"note"`
	Data     map[string]interface{} `json:"data"`
}

// CreateResultError reports a well-formed submission the store rejected
// with HTTP 400. Retrying would repeat the same rejection.
type CreateResultError struct {
	Message string
	Payload string
}

func (e *CreateResultError) Error() string {
	return fmt.Sprintf("Failed to create result: %s; Payload: %s", e.Message, e.Payload)
}

func (e *CreateResultError) IsFatal() bool { return true }

func IsCreateResultError(err error) bool {
	var cre *CreateResultError
	return errors.As(err, &cre)
}

// TransportError wraps connection, timeout and exhausted-retry failures.
// The bus collaborator treats them as redeliverable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("results store request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
