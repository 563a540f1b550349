package updater

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"resultsink/internal/constants"
	"resultsink/internal/resultsdb"
	"resultsink/internal/umb"
)

// handleCIUMB processes messages in the Fedora CI messages format.
//
// https://pagure.io/fedora-ci/messages
func (s *Service) handleCIUMB(ctx context.Context, msg *umb.Message) error {
	if !msg.HasVersionField() {
		s.log.WarnwCtx(ctx, "Missing required version information, using default version",
			"version", msg.VersionString(),
		)
	}

	if version := msg.VersionString(); version != "" && !strings.HasPrefix(version, "0.") {
		return umb.Invalidf(
			"Unsupported version: %s (supported are only versions less than 1.0.0)", version)
	}

	rawItemType, err := msg.Get("artifact", "type")
	if err != nil {
		return err
	}
	itemType, ok := rawItemType.(string)
	if !ok {
		return umb.Invalidf("Unknown artifact type %q", rawItemType)
	}

	rawRunURL, err := msg.Get("run", "url")
	if err != nil {
		return err
	}
	testRunURL, ok := rawRunURL.(string)
	if !ok {
		return umb.Invalidf("Expected a string run URL, got: %v", rawRunURL)
	}

	rawOutcome, err := msg.ResultOutcome()
	if err != nil {
		return err
	}
	outcome, err := ResolveOutcome(msg.Topic(), rawOutcome)
	if err != nil {
		return err
	}

	groups := []resultsdb.Group{{
		UUID: uuid.NewString(),
		URL:  testRunURL,
	}}

	resultData, err := buildArtifactData(msg, itemType)
	if err != nil {
		return err
	}

	contact, err := msg.ContactDict()
	if err != nil {
		return err
	}
	for key, value := range contact {
		resultData[key] = value
	}
	resultData["recipients"] = msg.Recipients()

	updatePublisherID(resultData, msg)

	if scenario := msg.ResultScenario(); scenario != nil {
		resultData["scenario"] = scenario
	}

	testcaseName, err := msg.TestcaseName()
	if err != nil {
		return err
	}
	testcase := resultsdb.Testcase{
		Name:   testcaseName,
		RefURL: testRunURL,
	}

	if err := VerifyTopicAndTestcaseName(msg.Topic(), testcaseName); err != nil {
		var missingTopic *umb.MissingTopicError
		if !errors.As(err, &missingTopic) {
			return err
		}
		// Old topics are allowed for now.
		s.log.WarnwCtx(ctx, missingTopic.Error())
	}

	if outcome == OutcomeError {
		reason, err := msg.ErrorReason()
		if err != nil {
			return err
		}
		resultData["error_reason"] = truncated(stringify(reason), constants.MaxErrorReasonSize)

		if issueURL := msg.GetDefault(nil, "error", "issue_url"); issueURL != nil {
			resultData["issue_url"] = issueURL
		}
	}

	note := stringify(msg.ResultNote())

	return s.createResult(ctx, msg, testcase, outcome, testRunURL, resultData, groups, note)
}
