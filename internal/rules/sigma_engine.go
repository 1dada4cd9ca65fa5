package rules

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
	sigmaevaluator "github.com/bradleyjkemp/sigma-go/evaluator"

	"socdash/pkg/models"
)

var mobileProducts = map[string]struct{}{
	"":        {},
	"android": {},
	"ios":     {},
	"mobile":  {},
}

// SigmaLoadStats tracks the number of loaded and skipped rules.
type SigmaLoadStats struct {
	TotalFiles        int
	Loaded            int
	SkippedComplex    int
	SkippedDatasource int
	SkippedInvalid    int
}

type compiledSigmaRule struct {
	eval  *sigmaevaluator.RuleEvaluator
	label string
}

// SigmaEngine evaluates single-event Sigma rules against scored telemetry.
// Rules with a timeframe or an aggregation are left to the rolling alert
// detector and skipped here.
type SigmaEngine struct {
	rules []compiledSigmaRule
	ctx   context.Context
}

// NewSigmaEngine loads Sigma rules from a .yml/.yaml file or a directory
// tree of them.
func NewSigmaEngine(path string) (*SigmaEngine, SigmaLoadStats, error) {
	var stats SigmaLoadStats

	files, err := ruleFiles(path)
	if err != nil {
		return nil, stats, err
	}
	stats.TotalFiles = len(files)

	engine := &SigmaEngine{ctx: context.Background()}
	for _, file := range files {
		rule, err := parseSigmaRuleFile(file)
		switch {
		case err != nil:
			stats.SkippedInvalid++
		case !isMobileCompatible(rule):
			stats.SkippedDatasource++
		case !isSingleEventRule(rule):
			stats.SkippedComplex++
		default:
			engine.rules = append(engine.rules, compiledSigmaRule{
				eval:  sigmaevaluator.ForRule(rule),
				label: labelFromRule(rule),
			})
			stats.Loaded++
		}
	}
	return engine, stats, nil
}

func ruleFiles(path string) ([]string, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve rule path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat rule path: %w", err)
	}
	if !info.IsDir() {
		if !isYAMLFile(root) {
			return nil, fmt.Errorf("rule file must end with .yml or .yaml: %s", root)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() && isYAMLFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk rule directory: %w", err)
	}
	return files, nil
}

// Len returns the number of compiled rules.
func (e *SigmaEngine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// Apply evaluates all loaded Sigma rules and returns the labels of the
// rules that matched.
func (e *SigmaEngine) Apply(event *models.ScoredEvent) []string {
	if e == nil || event == nil || len(e.rules) == 0 {
		return nil
	}

	eventMap := sigmaEventFrom(event)
	out := make([]string, 0, 4)
	for _, rule := range e.rules {
		res, err := rule.eval.Matches(e.ctx, eventMap)
		if err != nil {
			continue
		}
		if res.Match {
			out = append(out, rule.label)
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func parseSigmaRuleFile(path string) (sigma.Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sigma.Rule{}, fmt.Errorf("read sigma rule %s: %w", path, err)
	}
	rule, err := sigma.ParseRule(raw)
	if err != nil {
		return sigma.Rule{}, fmt.Errorf("parse sigma rule %s: %w", path, err)
	}
	return rule, nil
}

func isYAMLFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml")
}

func isMobileCompatible(rule sigma.Rule) bool {
	product := strings.ToLower(strings.TrimSpace(rule.Logsource.Product))
	_, ok := mobileProducts[product]
	return ok
}

func isSingleEventRule(rule sigma.Rule) bool {
	if rule.Detection.Timeframe > 0 {
		return false
	}
	for _, cond := range rule.Detection.Conditions {
		if cond.Aggregation != nil || !isPlainSearch(cond.Search) {
			return false
		}
	}
	for _, search := range rule.Detection.Searches {
		if len(search.Keywords) > 0 || len(search.EventMatchers) == 0 {
			return false
		}
	}
	return true
}

func isPlainSearch(expr sigma.SearchExpr) bool {
	switch e := expr.(type) {
	case sigma.SearchIdentifier:
		return true
	case sigma.Not:
		return isPlainSearch(e.Expr)
	case sigma.And:
		return allPlain(e)
	case sigma.Or:
		return allPlain(e)
	}
	return false
}

func allPlain(exprs []sigma.SearchExpr) bool {
	for _, child := range exprs {
		if !isPlainSearch(child) {
			return false
		}
	}
	return true
}

func sigmaEventFrom(event *models.ScoredEvent) map[string]interface{} {
	buf := map[string]interface{}{
		models.FieldTimestamp: event.Timestamp.Format("2006-01-02T15:04:05"),
		models.FieldRiskScore: strconv.Itoa(event.RiskScore),
		models.FieldRiskLevel: string(event.RiskLevel),
	}
	for _, field := range []string{
		models.FieldEvent,
		models.FieldCountry,
		models.FieldDevice,
		models.FieldPackage,
		models.FieldAppVersion,
		models.FieldBuildNumber,
		models.FieldEnvironment,
		models.FieldSessionID,
	} {
		if v := event.Field(field); v != "" {
			buf[field] = v
		}
	}
	return buf
}

func labelFromRule(rule sigma.Rule) string {
	if title := strings.TrimSpace(rule.Title); title != "" {
		return title
	}
	return strings.TrimSpace(rule.ID)
}
