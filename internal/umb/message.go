package umb

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"resultsink/internal/logger"
)

// Schema version families of the Fedora CI message format. The version
// decides where contact, recipients and result data live in the body.
type Version int

const (
	V1 Version = iota
	V2
	V2_1
)

func (v Version) String() string {
	switch v {
	case V2:
		return "V2"
	case V2_1:
		return "V2.1"
	default:
		return "V1"
	}
}

const defaultVersion = "0.1.0"

var (
	rangeV1 = mustConstraint("< 0.2.0")
	rangeV2 = mustConstraint("< 0.2.1")
)

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Message wraps a RawMessage with version-aware field access. It is
// created once per message and never mutated.
type Message struct {
	Raw RawMessage

	version    Version
	versionStr string
	body       map[string]interface{}
	log        logger.Logger
}

// Parse selects the accessor variant from the "version" field in the
// body. An unparseable version falls back to V1 and is logged;
// processing must not abort solely because of a bad version string.
func Parse(raw RawMessage, log logger.Logger) *Message {
	msg := &Message{
		Raw:        raw,
		version:    V1,
		versionStr: defaultVersion,
		body:       raw.Msg(),
		log:        log,
	}

	declared, ok := msg.body["version"].(string)
	if ok && declared != "" {
		msg.versionStr = declared
	}

	parsed, err := semver.NewVersion(msg.versionStr)
	if err != nil {
		log.Warnw("Failed to parse message version, using V1 accessor",
			"message_id", raw.ID(),
			"version", msg.versionStr,
			"error", err,
		)
		return msg
	}

	switch {
	case rangeV1.Check(parsed):
		msg.version = V1
	case rangeV2.Check(parsed):
		msg.version = V2
	default:
		msg.version = V2_1
	}

	return msg
}

func (m *Message) Version() Version {
	return m.version
}

// VersionString returns the version declared in the body, or the default
// when none was declared.
func (m *Message) VersionString() string {
	return m.versionStr
}

func (m *Message) Topic() string {
	return m.Raw.Topic
}

func (m *Message) Header(name string) string {
	return m.Raw.Header(name)
}

func (m *Message) ID() string {
	return m.Raw.ID()
}

func (m *Message) Log() logger.Logger {
	return m.log
}

// HasVersionField reports whether the producer declared a version at
// all.
func (m *Message) HasVersionField() bool {
	_, ok := m.body["version"]
	return ok
}

func lookup(value interface{}, path ...string) (interface{}, bool) {
	for _, key := range path {
		obj, ok := value.(map[string]interface{})
		if !ok {
			return nil, false
		}
		value, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return value, true
}

// Get walks nested object keys in the message payload. A missing or
// non-object intermediate yields a MissingFieldError naming the dotted
// path.
func (m *Message) Get(path ...string) (interface{}, error) {
	value, ok := lookup(interface{}(m.body), path...)
	if !ok {
		return nil, &MissingFieldError{Path: path}
	}
	return value, nil
}

// GetDefault is Get with an explicit fallback instead of an error.
func (m *Message) GetDefault(def interface{}, path ...string) interface{} {
	value, ok := lookup(interface{}(m.body), path...)
	if !ok {
		return def
	}
	return value
}

func (m *Message) normalizedSystem() interface{} {
	system := m.GetDefault(map[string]interface{}{}, "system")

	// Some producers send a system dict, others send a list of one
	// system dict.
	if list, ok := system.([]interface{}); ok {
		if len(list) == 0 {
			return map[string]interface{}{}
		}
		return list[0]
	}

	return system
}

// System reads a field of the "system" object.
func (m *Message) System(field string) (interface{}, error) {
	value, ok := lookup(m.normalizedSystem(), field)
	if !ok {
		return nil, &MissingFieldError{Path: []string{"system", field}}
	}
	return value, nil
}

func (m *Message) SystemDefault(def interface{}, field string) interface{} {
	value, ok := lookup(m.normalizedSystem(), field)
	if !ok {
		return def
	}
	return value
}

func (m *Message) contactPath(field string) []string {
	if m.version == V2_1 {
		return []string{"contact", field}
	}
	return []string{"ci", field}
}

func (m *Message) Contact(field string) (interface{}, error) {
	return m.Get(m.contactPath(field)...)
}

func (m *Message) ContactDefault(def interface{}, field string) interface{} {
	return m.GetDefault(def, m.contactPath(field)...)
}

// ContactDict returns the contact fields merged into every submitted
// result.
func (m *Message) ContactDict() (map[string]interface{}, error) {
	name, err := m.Contact("name")
	if err != nil {
		return nil, err
	}
	team, err := m.Contact("team")
	if err != nil {
		return nil, err
	}
	email, err := m.Contact("email")
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"ci_name":  name,
		"ci_team":  team,
		"ci_url":   m.ContactDefault("not available", "url"),
		"ci_irc":   m.ContactDefault("not available", "irc"),
		"ci_email": email,
	}, nil
}

func (m *Message) Recipients() interface{} {
	if m.version == V1 {
		return m.GetDefault([]interface{}{}, "recipients")
	}
	return m.GetDefault([]interface{}{}, "notification", "recipients")
}

func (m *Message) ErrorReason() (interface{}, error) {
	if m.version == V1 {
		return m.Get("reason")
	}
	return m.Get("error", "reason")
}

func (m *Message) resultPath(path ...string) []string {
	if m.version == V1 {
		return path
	}
	return append([]string{"test"}, path...)
}

func (m *Message) resultGet(path ...string) (interface{}, error) {
	return m.Get(m.resultPath(path...)...)
}

func (m *Message) resultGetDefault(def interface{}, path ...string) interface{} {
	return m.GetDefault(def, m.resultPath(path...)...)
}

func (m *Message) ResultCategory() (interface{}, error) {
	return m.resultGet("category")
}

func (m *Message) ResultNamespace() (interface{}, error) {
	return m.resultGet("namespace")
}

func (m *Message) ResultType() (interface{}, error) {
	return m.resultGet("type")
}

func (m *Message) ResultNote() interface{} {
	return m.resultGetDefault(nil, "note")
}

func (m *Message) ResultScenario() interface{} {
	return m.resultGetDefault(nil, "scenario")
}

func (m *Message) ResultXunit() interface{} {
	return m.resultGetDefault(nil, "xunit")
}

// ResultOutcome returns the raw result status. For V2 and later the
// result field is required only for complete messages; queued, running
// and error states carry none.
func (m *Message) ResultOutcome() (interface{}, error) {
	if m.version == V1 {
		return m.GetDefault(nil, "status"), nil
	}

	if strings.HasSuffix(m.Topic(), ".complete") {
		return m.resultGet("result")
	}
	return nil, nil
}

// TestcaseName composes the dotted {namespace}.{type}.{category} name.
func (m *Message) TestcaseName() (string, error) {
	namespace, err := m.ResultNamespace()
	if err != nil {
		return "", err
	}
	typ, err := m.ResultType()
	if err != nil {
		return "", err
	}
	category, err := m.ResultCategory()
	if err != nil {
		return "", err
	}

	ns, okNS := namespace.(string)
	t, okT := typ.(string)
	c, okC := category.(string)
	if !okNS || !okT || !okC {
		return "", Invalidf(
			"Expected strings for namespace/type/category, got: %v, %v, %v",
			namespace, typ, category)
	}

	return ns + "." + t + "." + c, nil
}
