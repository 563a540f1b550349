package updater

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"resultsink/internal/resultsdb"
	"resultsink/internal/umb"
)

// handleCIMetrics processes the legacy CI metrics format: one result
// per test entry plus an overall summary result, all attached to a
// single fresh group.
func (s *Service) handleCIMetrics(ctx context.Context, msg *umb.Message) error {
	team := msg.GetDefault("unassigned", "team")
	if team == "unassigned" {
		s.log.WarnwCtx(ctx,
			`Missing "team". Using "unassigned" as the team namespace section of the Test Case`)
	}

	testName := msg.GetDefault(nil, "job_name") // new format
	if testName == nil {
		// This should eventually be deprecated and removed.
		var err error
		testName, err = msg.Get("job_names") // old format
		if err != nil {
			return err
		}
		s.log.WarnwCtx(ctx, `Using with "job_names" field.`)
	}

	testcaseURL, err := msg.Get("jenkins_job_url")
	if err != nil {
		return err
	}
	rawGroupRefURL, err := msg.Get("jenkins_build_url")
	if err != nil {
		return err
	}
	groupRefURL, ok := rawGroupRefURL.(string)
	if !ok {
		return umb.Invalidf("Expected a string jenkins_build_url, got: %v", rawGroupRefURL)
	}

	buildType := msg.GetDefault("unknown", "build_type")
	artifact := msg.GetDefault("unknown", "artifact")
	brewTaskID := msg.GetDefault("unknown", "brew_task_id")
	rawTests, err := msg.Get("tests")
	if err != nil {
		return err
	}
	component := msg.GetDefault("unknown", "component")
	ciTier := msg.GetDefault([]interface{}{"unknown"}, "CI_tier")

	// Recipients come as one comma separated string.
	recipients := strings.Split(stringifyDefault(msg.GetDefault("unknown", "recipients"), "unknown"), ",")

	groupTestsRefURL := strings.TrimRight(groupRefURL, "/") + "/console"

	testType := "unknown"
	if brewTaskID != "unknown" {
		testType = "koji_build"
	}
	if buildType == "scratch" {
		testType += "_scratch"
	}

	tests, ok := rawTests.([]interface{})
	if !ok {
		return umb.Invalidf("Expected a list of tests, got: %v", rawTests)
	}

	groups := []resultsdb.Group{{
		UUID:   uuid.NewString(),
		RefURL: groupRefURL,
	}}
	overallOutcome := OutcomePassed

	for _, rawTest := range tests {
		test, ok := rawTest.(map[string]interface{})
		if !ok {
			return umb.Invalidf("Expected a test object, got: %v", rawTest)
		}

		outcome := OutcomeFailed
		if failed, ok := test["failed"]; ok {
			count, err := intValue(failed)
			if err != nil {
				return umb.Invalidf("Unexpected failed count: %v", failed)
			}
			if count == 0 {
				outcome = OutcomePassed
			}
		}
		if outcome == OutcomeFailed {
			overallOutcome = OutcomeFailed
		}

		executor := "unknown"
		if e, ok := test["executor"].(string); ok {
			executor = e
		}

		testcase := resultsdb.Testcase{
			Name:   fmt.Sprintf("%v.%v.%v", team, testName, executor),
			RefURL: stringify(testcaseURL),
		}

		test["item"] = component
		test["type"] = testType
		test["recipients"] = recipients
		test["CI_tier"] = ciTier
		test["job_name"] = testName
		test["artifact"] = artifact
		test["brew_task_id"] = brewTaskID

		updatePublisherID(test, msg)
		if err := s.createResult(ctx, msg, testcase, outcome, groupTestsRefURL, test, groups, ""); err != nil {
			return err
		}
	}

	// The overall test result sums up the whole run.
	testcase := resultsdb.Testcase{
		Name:   fmt.Sprintf("%v.%v", team, testName),
		RefURL: stringify(testcaseURL),
	}
	resultData := map[string]interface{}{
		"item":         component,
		"type":         testType,
		"recipients":   recipients,
		"CI_tier":      ciTier,
		"job_name":     testName,
		"artifact":     artifact,
		"brew_task_id": brewTaskID,
	}

	updatePublisherID(resultData, msg)
	return s.createResult(ctx, msg, testcase, overallOutcome, groupTestsRefURL, resultData, groups, "")
}

func intValue(v interface{}) (int, error) {
	switch value := v.(type) {
	case float64:
		return int(value), nil
	case int:
		return value, nil
	case string:
		return strconv.Atoi(value)
	}
	return 0, fmt.Errorf("not a number: %v", v)
}

func stringifyDefault(v interface{}, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}
