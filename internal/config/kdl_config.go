package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from a .polyscan.kdl file.
// A nil, nil return means no KDL config exists.
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, ".polyscan.kdl")

	content, err := os.ReadFile(kdlPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read .polyscan.kdl: %w", err)
	}

	return parseKDL(string(content))
}

func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "engine":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "query_timeout_micros":
					if v, ok := firstIntArg(cn); ok {
						cfg.Engine.QueryTimeoutMicros = int64(v)
					}
				case "query_match_limit":
					if v, ok := firstIntArg(cn); ok {
						cfg.Engine.QueryMatchLimit = v
					}
				case "regex_cache_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Engine.RegexCacheSize = v
					}
				case "regex_timeout_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Engine.RegexTimeoutMs = v
					}
				case "cache_ttl_minutes":
					if v, ok := firstIntArg(cn); ok {
						cfg.Engine.CacheTTLMinutes = v
					}
				case "cache_max_entries":
					if v, ok := firstIntArg(cn); ok {
						cfg.Engine.CacheMaxEntries = v
					}
				case "max_file_size_kb":
					if v, ok := firstIntArg(cn); ok {
						cfg.Engine.MaxFileSizeKB = int64(v)
					}
				}
			}
		case "learner":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "sample_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Learner.SampleSize = v
					}
				case "max_file_size_kb":
					if v, ok := firstIntArg(cn); ok {
						cfg.Learner.MaxFileSizeKB = int64(v)
					}
				case "project_budget_sec":
					if v, ok := firstIntArg(cn); ok {
						cfg.Learner.ProjectBudgetSec = v
					}
				case "parallelism":
					if v, ok := firstIntArg(cn); ok {
						cfg.Learner.Parallelism = v
					}
				case "insights_dir":
					if s, ok := firstStringArg(cn); ok {
						cfg.Learner.InsightsDir = s
					}
				case "min_confidence":
					if f, ok := firstFloatArg(cn); ok {
						cfg.Learner.MinConfidence = f
					}
				}
			}
		case "patterns":
			for _, cn := range n.Children {
				assignSimpleString(cn, "dir", func(v string) { cfg.Patterns.Dir = v })
				if nodeName(cn) == "watch" {
					if b, ok := firstBoolArg(cn); ok {
						cfg.Patterns.WatchMode = b
					}
				}
			}
		case "include":
			cfg.Include = collectStringArgs(n)
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, collectStringArgs(n)...)
		}
	}

	return cfg, nil
}

// Helpers over the kdl-go document model.
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
