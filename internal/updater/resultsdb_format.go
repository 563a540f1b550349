package updater

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"resultsink/internal/resultsdb"
	"resultsink/internal/umb"
)

// rpmdiff run URLs point at an individual result; the group tracks the
// whole run, so the trailing result ID is stripped.
var rpmdiffURLRegexp = regexp.MustCompile(`^(http.+/run/)(\d+)(?:/)?(\d+)?$`)

// handleResultsDBFormat processes messages that already speak the store
// schema, either one result at a time or in bulk.
func (s *Service) handleResultsDBFormat(ctx context.Context, msg *umb.Message) error {
	rawGroupRefURL, err := msg.Get("ref_url")
	if err != nil {
		return err
	}
	groupRefURL, ok := rawGroupRefURL.(string)
	if !ok {
		return umb.Invalidf("Expected a string ref_url, got: %v", rawGroupRefURL)
	}

	if name, ok := msg.GetDefault("", "testcase", "name").(string); ok && strings.HasPrefix(name, "dist.rpmdiff") {
		match := rpmdiffURLRegexp.FindStringSubmatch(groupRefURL)
		if match == nil {
			return umb.Invalidf(
				`The ref_url "%s" did not match the rpmdiff URL scheme`, groupRefURL)
		}
		groupRefURL = match[1] + match[2]
	}

	if results, ok := msg.GetDefault(nil, "results").(map[string]interface{}); ok && len(results) > 0 {
		return s.handleBulkResults(ctx, msg, groupRefURL, results)
	}

	groupUUID := uuid.NewString()
	if group, found, err := s.client.GetFirstGroup(ctx, groupRefURL); err != nil {
		return err
	} else if found && group.UUID != "" {
		groupUUID = group.UUID
	}
	groups := []resultsdb.Group{{
		UUID:   groupUUID,
		RefURL: groupRefURL,
		// The description doubles as the lookup key for reusing the
		// group on the next message of the run.
		Description: groupRefURL,
	}}

	rawData, err := msg.Get("data")
	if err != nil {
		return err
	}
	resultData, ok := rawData.(map[string]interface{})
	if !ok {
		return umb.Invalidf("Expected a data object, got: %v", rawData)
	}
	updatePublisherID(resultData, msg)

	testcase, err := msg.Get("testcase")
	if err != nil {
		return err
	}
	rawOutcome, err := msg.Get("outcome")
	if err != nil {
		return err
	}
	outcome, ok := rawOutcome.(string)
	if !ok {
		return umb.Invalidf("Expected a string outcome, got: %v", rawOutcome)
	}
	refURL, err := msg.Get("ref_url")
	if err != nil {
		return err
	}
	note := stringify(msg.GetDefault("", "note"))

	return s.createResult(ctx, msg, testcase, outcome, stringify(refURL), resultData, groups, note)
}

// handleBulkResults submits every result of a run under one fresh group.
func (s *Service) handleBulkResults(ctx context.Context, msg *umb.Message, groupRefURL string, results map[string]interface{}) error {
	groups := []resultsdb.Group{{
		UUID:   uuid.NewString(),
		RefURL: groupRefURL,
	}}

	testcases := make([]string, 0, len(results))
	for testcase := range results {
		testcases = append(testcases, testcase)
	}
	sort.Strings(testcases)

	for _, testcase := range testcases {
		result, ok := results[testcase].(map[string]interface{})
		if !ok {
			return umb.Invalidf("Expected a result object for %q, got: %v", testcase, results[testcase])
		}
		outcome, ok := result["outcome"].(string)
		if !ok {
			return umb.Invalidf("Expected a string outcome for %q, got: %v", testcase, result["outcome"])
		}

		resultData, ok := result["data"].(map[string]interface{})
		if !ok {
			resultData = map[string]interface{}{}
		}
		updatePublisherID(resultData, msg)

		refURL := stringify(result["ref_url"])
		note := stringify(result["note"])
		if err := s.createResult(ctx, msg, testcase, outcome, refURL, resultData, groups, note); err != nil {
			return err
		}
	}
	return nil
}
