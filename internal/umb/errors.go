package umb

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidMessageError marks a message as structurally or semantically
// unacceptable. Such failures are permanent: the message is logged and
// dropped, never redelivered.
type InvalidMessageError interface {
	error
	invalidMessage()
}

// IsInvalidMessage reports whether err (or anything it wraps) marks the
// message itself as bad.
func IsInvalidMessage(err error) bool {
	var invalid InvalidMessageError
	return errors.As(err, &invalid)
}

// MessageError is a generic invalid-message failure.
type MessageError struct {
	Reason string
}

func Invalidf(format string, args ...interface{}) *MessageError {
	return &MessageError{Reason: fmt.Sprintf(format, args...)}
}

func (e *MessageError) Error() string   { return e.Reason }
func (e *MessageError) invalidMessage() {}
func (e *MessageError) IsFatal() bool   { return true }

// MissingFieldError reports an absent required field by its dotted path.
type MissingFieldError struct {
	Path []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Missing field %q", strings.Join(e.Path, "."))
}

func (e *MissingFieldError) invalidMessage() {}
func (e *MissingFieldError) IsFatal() bool   { return true }

// MissingTopicError reports a topic in the old scheme without a
// namespace component. Callers may tolerate it for producers not yet
// migrated.
type MissingTopicError struct {
	Topic        string
	TestcaseName string
}

func (e *MissingTopicError) Error() string {
	return fmt.Sprintf(
		"The message topic %q uses old scheme not containing namespace from test case name %q",
		e.Topic, e.TestcaseName)
}

func (e *MissingTopicError) invalidMessage() {}
func (e *MissingTopicError) IsFatal() bool   { return true }

// TopicMismatchError reports disagreement between the topic namespace
// and the test case namespace.
type TopicMismatchError struct {
	TestcaseName      string
	TestcaseNamespace string
	Topic             string
	TopicNamespace    string
}

func (e *TopicMismatchError) Error() string {
	return fmt.Sprintf(
		"Test case %q namespace %q does not match message topic %q namespace %q",
		e.TestcaseName, e.TestcaseNamespace, e.Topic, e.TopicNamespace)
}

func (e *TopicMismatchError) invalidMessage() {}
func (e *TopicMismatchError) IsFatal() bool   { return true }

// PrivateTestCaseMismatchError reports a publisher not allowed to submit
// results for a private test case.
type PrivateTestCaseMismatchError struct {
	PublisherID    string
	MsgPublisherID string
	TestcaseGlob   string
	TestcaseName   string
}

func (e *PrivateTestCaseMismatchError) Error() string {
	return fmt.Sprintf(
		"Test case %q is private (matches %q) but message JMSXUserID %q does not match %q",
		e.TestcaseName, e.TestcaseGlob, e.MsgPublisherID, e.PublisherID)
}

func (e *PrivateTestCaseMismatchError) invalidMessage() {}
func (e *PrivateTestCaseMismatchError) IsFatal() bool   { return true }
