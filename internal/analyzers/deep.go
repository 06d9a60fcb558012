// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package analyzers

import (
	"sort"
	"strings"
)

// DeepResult is the technical-layer analysis of a query.
type DeepResult struct {
	Base

	// PrimaryAction is the dominant technical verb, if any.
	PrimaryAction string `json:"primary_action,omitempty"`
	// PrimaryObject is the dominant technical noun, if any.
	PrimaryObject string `json:"primary_object,omitempty"`
	// ImplementationHints are concrete technologies mentioned.
	ImplementationHints []string `json:"implementation_hints,omitempty"`
	// DomainExpertise tags the areas of expertise the query touches.
	DomainExpertise []string `json:"domain_expertise,omitempty"`
}

// actionVerbs ranks technical verbs; earlier entries win PrimaryAction
// ties.
var actionVerbs = []string{
	"debug", "fix", "implement", "refactor", "optimize", "deploy",
	"migrate", "configure", "install", "test", "build", "write",
	"parse", "render", "integrate", "profile", "cache", "validate",
}

// objectNouns ranks technical nouns for PrimaryObject.
var objectNouns = []string{
	"error", "function", "component", "api", "endpoint", "database",
	"server", "query", "class", "module", "test", "interface",
	"middleware", "schema", "pipeline", "container", "bug", "dependency",
}

// domainTags maps technology keywords to expertise domains.
var domainTags = map[string]string{
	"react": "frontend", "css": "frontend", "html": "frontend",
	"dom": "frontend", "typescript": "frontend", "javascript": "frontend",
	"vue": "frontend", "angular": "frontend",
	"sql": "backend", "database": "backend", "api": "backend",
	"server": "backend", "endpoint": "backend", "middleware": "backend",
	"postgres": "backend", "redis": "backend",
	"docker": "devops", "kubernetes": "devops", "deploy": "devops",
	"pipeline": "devops", "terraform": "devops", "ci": "devops",
	"goroutine": "concurrency", "thread": "concurrency", "mutex": "concurrency",
	"race": "concurrency", "deadlock": "concurrency",
	"auth": "security", "oauth": "security", "jwt": "security",
	"encryption": "security", "xss": "security",
}

// DeepAnalyzer infers technical action, object and domain expertise from
// verb/noun co-occurrence.
type DeepAnalyzer struct{}

func NewDeepAnalyzer() *DeepAnalyzer { return &DeepAnalyzer{} }

// Analyze computes the technical reading of a query.
func (*DeepAnalyzer) Analyze(query string) *DeepResult {
	normalized := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(normalized)
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[strings.Trim(w, ".,!?;:()[]{}\"'`")] = true
	}

	res := &DeepResult{Base: Base{Type: LayerDeep}}

	for _, v := range actionVerbs {
		if wordSet[v] {
			res.PrimaryAction = v
			res.Indicators = append(res.Indicators, Indicator{Type: "action", Signal: v, Weight: 0.3})
			break
		}
	}
	for _, n := range objectNouns {
		if wordSet[n] {
			res.PrimaryObject = n
			res.Indicators = append(res.Indicators, Indicator{Type: "object", Signal: n, Weight: 0.3})
			break
		}
	}

	seen := map[string]bool{}
	for keyword, domain := range domainTags {
		if wordSet[keyword] {
			res.ImplementationHints = append(res.ImplementationHints, keyword)
			if !seen[domain] {
				seen[domain] = true
				res.DomainExpertise = append(res.DomainExpertise, domain)
				res.Indicators = append(res.Indicators, Indicator{Type: "domain", Signal: domain, Weight: 0.2})
			}
		}
	}
	// Map iteration order is random; keep output deterministic.
	sort.Strings(res.ImplementationHints)
	sort.Strings(res.DomainExpertise)

	// Confidence: action+object co-occurrence is the strongest signal.
	switch {
	case res.PrimaryAction != "" && res.PrimaryObject != "":
		res.Confidence = 0.85
	case res.PrimaryAction != "" || res.PrimaryObject != "":
		res.Confidence = 0.55
	case len(res.DomainExpertise) > 0:
		res.Confidence = 0.45
	default:
		res.Confidence = 0.1
	}
	if len(res.DomainExpertise) > 0 && res.Confidence < 0.85 {
		res.Confidence += 0.1
	}
	res.Confidence = clamp01(res.Confidence)
	return res
}
