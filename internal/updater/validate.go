package updater

import (
	"strings"

	"resultsink/internal/constants"
	"resultsink/internal/umb"
)

// NamespaceFromTopic extracts the namespace component from a new-scheme
// topic:
//
//	/topic/VirtualTopic.eng.ci.<namespace>.<artifact>.<event>.{queued,running,complete,error}
//
// It returns "" for topics that do not have this shape.
func NamespaceFromTopic(topic string) string {
	if !strings.HasPrefix(topic, constants.TopicCIPrefix) {
		return ""
	}

	components := strings.Split(topic, ".")
	if len(components) != 7 {
		return ""
	}

	return components[3]
}

// NamespaceFromTestcaseName returns the component before the first dot.
func NamespaceFromTestcaseName(testcaseName string) string {
	namespace, _, _ := strings.Cut(testcaseName, ".")
	return namespace
}

// VerifyTopicAndTestcaseName checks that the topic namespace agrees with
// the test case namespace.
//
// If the "namespace" field in the message contains ".", only the
// component before the first "." is expected to be in the topic:
// test case "baseos-ci.redhat-module.tier1.functional" matches topic
// /topic/VirtualTopic.eng.ci.baseos-ci.redhat-module.test.complete.
//
// Old-scheme topics yield a MissingTopicError which callers may tolerate
// for producers not yet migrated; a namespace disagreement yields a hard
// TopicMismatchError.
func VerifyTopicAndTestcaseName(topic, testcaseName string) error {
	topicNamespace := NamespaceFromTopic(topic)
	if topicNamespace == "" {
		return &umb.MissingTopicError{
			Topic:        topic,
			TestcaseName: testcaseName,
		}
	}

	testcaseNamespace := NamespaceFromTestcaseName(testcaseName)
	if testcaseNamespace != topicNamespace {
		return &umb.TopicMismatchError{
			TestcaseName:      testcaseName,
			TestcaseNamespace: testcaseNamespace,
			Topic:             topic,
			TopicNamespace:    topicNamespace,
		}
	}

	return nil
}
