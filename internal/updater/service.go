package updater

import (
	"context"

	"github.com/gobwas/glob"

	"resultsink/internal/config"
	"resultsink/internal/constants"
	"resultsink/internal/logger"
	"resultsink/internal/resultsdb"
	"resultsink/internal/umb"
	"resultsink/pkg/cel"
)

// Format families a message can be classified into.
const (
	formatCIMetrics = "ci-metrics"
	formatCIUMB     = "ci-umb"
	formatResultsDB = "resultsdb"
	formatUnknown   = "unknown"
)

type privateRule struct {
	pattern     glob.Glob
	rawPattern  string
	publisherID string
}

// Service is the message normalization engine: it classifies inbound
// bus messages, extracts canonical results and submits them to the
// results store. Processing is strictly sequential per message; the
// service keeps no state between messages.
type Service struct {
	client       *resultsdb.Client
	cfg          config.UpdaterConfig
	log          logger.Logger
	privateRules []privateRule
	filter       *cel.Filter
}

func NewService(client *resultsdb.Client, cfg config.UpdaterConfig, log logger.Logger) (*Service, error) {
	s := &Service{
		client: client,
		cfg:    cfg,
		log:    log,
	}

	for _, rule := range cfg.PrivateTestcasePublisherMap {
		pattern, err := glob.Compile(rule.TestcaseGlob)
		if err != nil {
			return nil, err
		}
		s.privateRules = append(s.privateRules, privateRule{
			pattern:     pattern,
			rawPattern:  rule.TestcaseGlob,
			publisherID: rule.PublisherID,
		})
	}

	if cfg.FilterExpression != "" {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return nil, err
		}
		filter, err := evaluator.CompileFilter(cfg.FilterExpression)
		if err != nil {
			return nil, err
		}
		s.filter = filter
	}

	return s, nil
}

// Process classifies one bus message and runs the matching handler.
// Unhandled messages are dropped without error; classification itself
// never contacts the network.
func (s *Service) Process(ctx context.Context, raw umb.RawMessage) error {
	body := raw.Msg()
	if body == nil {
		s.log.DebugwCtx(ctx, "Dropping message without a JSON object body")
		return nil
	}

	if s.filter != nil {
		matched, err := s.filter.Match(ctx, raw)
		if err != nil {
			// A broken filter must not stall the stream.
			s.log.WarnwCtx(ctx, "Message filter evaluation failed, processing anyway",
				"error", err,
			)
		} else if !matched {
			s.log.DebugwCtx(ctx, "Message filtered out")
			return nil
		}
	}

	msg := umb.Parse(raw, s.log)

	switch {
	case raw.Topic == constants.TopicCIMetrics:
		return s.handleCIMetrics(ctx, msg)

	case hasKeys(body, "run", "artifact") && hasAnyKey(body, "ci", "contact"):
		return s.handleCIUMB(ctx, msg)

	case hasKeys(body, "data", "outcome", "ref_url", "testcase") || hasKeys(body, "results", "ref_url"):
		return s.handleResultsDBFormat(ctx, msg)
	}

	// The Jenkins QE topic carries many irrelevant messages by design.
	if raw.Topic != constants.TopicJenkinsQE {
		s.log.WarnwCtx(ctx, "Received unhandled message")
	}
	return nil
}

// Classify returns the format family a message would be routed to;
// exposed for the monitoring API and tests.
func (s *Service) Classify(raw umb.RawMessage) string {
	body := raw.Msg()
	if body == nil {
		return formatUnknown
	}

	switch {
	case raw.Topic == constants.TopicCIMetrics:
		return formatCIMetrics
	case hasKeys(body, "run", "artifact") && hasAnyKey(body, "ci", "contact"):
		return formatCIUMB
	case hasKeys(body, "data", "outcome", "ref_url", "testcase") || hasKeys(body, "results", "ref_url"):
		return formatResultsDB
	}
	return formatUnknown
}

func hasKeys(body map[string]interface{}, keys ...string) bool {
	for _, key := range keys {
		if _, ok := body[key]; !ok {
			return false
		}
	}
	return true
}

func hasAnyKey(body map[string]interface{}, keys ...string) bool {
	for _, key := range keys {
		if _, ok := body[key]; ok {
			return true
		}
	}
	return false
}

func (s *Service) verifyPrivateTestcase(msgPublisherID, testcaseName string) error {
	for _, rule := range s.privateRules {
		if rule.pattern.Match(testcaseName) && rule.publisherID != msgPublisherID {
			return &umb.PrivateTestCaseMismatchError{
				PublisherID:    rule.publisherID,
				MsgPublisherID: msgPublisherID,
				TestcaseGlob:   rule.rawPattern,
				TestcaseName:   testcaseName,
			}
		}
	}
	return nil
}

// createResult runs the consistency checks shared by every handler and
// submits one result to the store.
func (s *Service) createResult(ctx context.Context, msg *umb.Message, testcase interface{}, outcome, refURL string, data map[string]interface{}, groups []resultsdb.Group, note string) error {
	testcaseName := testcase
	switch tc := testcase.(type) {
	case resultsdb.Testcase:
		testcaseName = tc.Name
	case map[string]interface{}:
		testcaseName = tc["name"]
	}

	if name, ok := testcaseName.(string); ok {
		if err := s.verifyPrivateTestcase(msg.Header("JMSXUserID"), name); err != nil {
			return err
		}
	}

	data = serializeData(data)
	if err := cropData(ctx, s.log, data); err != nil {
		return err
	}

	return s.client.CreateResult(ctx, resultsdb.Result{
		Testcase: testcase,
		Groups:   groups,
		Outcome:  outcome,
		RefURL:   refURL,
		Note:     note,
		Data:     data,
	})
}

// updatePublisherID records the bus publisher (JMSXUserID) as an audit
// trail when the header is present.
func updatePublisherID(data map[string]interface{}, msg *umb.Message) {
	if publisherID := msg.Header("JMSXUserID"); publisherID != "" {
		data["publisher_id"] = publisherID
	}
}
