// Package classify tags log messages by asking an OpenAI-compatible model
// whether each configured condition holds. All rules are evaluated in one
// completion per message; verdicts are cached by message content.
package classify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/telemetryforge/agent/config"
	"github.com/telemetryforge/agent/internal/api"
	"github.com/telemetryforge/agent/internal/defs"
)

// CompletionClient is the completion exchange the ruleset evaluates
// against.
type CompletionClient interface {
	ChatCompletionSimple(ctx context.Context, modelID, systemPrompt, userMessage string, timeout time.Duration) (*api.ChatResponse, error)
}

// Ruleset evaluates the configured classification rules. Safe for
// concurrent use; the counters are atomic.
type Ruleset struct {
	rules   []config.Rule
	modelID string
	timeout time.Duration
	client  CompletionClient
	cache   VerdictCache
	log     *zap.SugaredLogger

	requestsTotal  uint64
	requestsFailed uint64
}

// NewRuleset validates the rule list and returns a ready evaluator.
func NewRuleset(cfg *config.Classification, client CompletionClient, cache VerdictCache, log *zap.SugaredLogger) (*Ruleset, error) {
	if len(cfg.Rules) == 0 {
		return nil, defs.ErrConfig().WithDetail("classification enabled with no rules")
	}
	for i, rule := range cfg.Rules {
		if rule.Tag == defs.EmptyString {
			return nil, defs.ErrConfig().WithDetail(fmt.Sprintf("rule %d is missing its tag", i+1))
		}
		if rule.Prompt == defs.EmptyString {
			return nil, defs.ErrConfig().WithDetail(fmt.Sprintf("rule %d is missing its prompt", i+1))
		}
	}

	return &Ruleset{
		rules:   cfg.Rules,
		modelID: cfg.ModelID,
		timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		client:  client,
		cache:   cache,
		log:     log,
	}, nil
}

// Evaluate returns the tags of every rule whose condition holds for the
// message. A cached verdict short-circuits the completion call.
func (r *Ruleset) Evaluate(ctx context.Context, message string) ([]string, error) {
	if tags, ok := r.cache.GetVerdict(message); ok {
		r.log.Debugf("classify: cache hit for message, %d tags", len(tags))
		return tags, nil
	}

	atomic.AddUint64(&r.requestsTotal, 1)
	start := time.Now()

	resp, err := r.client.ChatCompletionSimple(ctx, r.modelID,
		r.systemPrompt(), r.userPrompt(message), r.timeout)
	if err != nil {
		atomic.AddUint64(&r.requestsFailed, 1)
		r.log.Infof("classify: completion request failed after %s", time.Since(start))
		return nil, err
	}
	r.log.Infof("classify: completion request completed in %s", time.Since(start))

	answers := parseAnswers(resp.Content, len(r.rules))
	tags := make([]string, 0, len(r.rules))
	for i, rule := range r.rules {
		if answers[i] == answerYes {
			tags = append(tags, rule.Tag)
		}
	}

	r.cache.PutVerdict(message, tags)
	return tags, nil
}

// Counters reports how many completion requests were issued and how many
// of them failed.
func (r *Ruleset) Counters() (total, failed uint64) {
	return atomic.LoadUint64(&r.requestsTotal), atomic.LoadUint64(&r.requestsFailed)
}

func (r *Ruleset) systemPrompt() string {
	return fmt.Sprintf("Answer EXACTLY %d times. Use format '1: yes' or '1: no', "+
		"'2: yes' or '2: no', etc. Example for 2 conditions: '1: yes\\n2: no'. No other text.",
		len(r.rules))
}

func (r *Ruleset) userPrompt(message string) string {
	var conditions strings.Builder
	for i, rule := range r.rules {
		fmt.Fprintf(&conditions, "%d. %s\n", i+1, rule.Prompt)
	}

	return fmt.Sprintf("Log message: %s\n\n"+
		"Conditions:\n%s\n"+
		"Answer with exactly %d lines (one per condition).\n"+
		"Use this exact format:\n"+
		"1: yes\n"+
		"2: no\n"+
		"(and so on for each condition number)",
		message, conditions.String(), len(r.rules))
}

const (
	answerUnknown = iota
	answerNo
	answerYes
)

// parseAnswers reads the model's reply leniently. Lines look like "N: yes"
// but models drift, so any line starting with a valid condition number
// counts, and yes/no may appear anywhere after it. Unanswered conditions
// stay unknown, which never matches a rule.
func parseAnswers(content string, n int) []int {
	answers := make([]int, n)

	// Some models emit the two-character sequence backslash-n instead of
	// a newline.
	content = strings.ReplaceAll(content, `\n`, "\n")

	for _, line := range strings.Split(content, "\n") {
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSpace(line[:colon]))
		if err != nil || num < 1 || num > n {
			continue
		}
		rest := strings.ToLower(line[colon+1:])
		if strings.Contains(rest, "yes") {
			answers[num-1] = answerYes
		} else if strings.Contains(rest, "no") {
			answers[num-1] = answerNo
		}
	}
	return answers
}
