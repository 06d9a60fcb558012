// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package classifier

import "regexp"

// Technical vocabulary. Verbs and nouns are scored separately so verb-noun
// proximity can earn a bonus.
var technicalVerbs = map[string]bool{
	"implement": true, "fix": true, "debug": true, "refactor": true,
	"optimize": true, "deploy": true, "install": true, "configure": true,
	"compile": true, "build": true, "test": true, "parse": true,
	"render": true, "migrate": true, "integrate": true, "serialize": true,
	"mock": true, "profile": true, "benchmark": true, "lint": true,
	"throttle": true, "cache": true, "paginate": true, "validate": true,
}

var technicalNouns = map[string]bool{
	"function": true, "method": true, "class": true, "variable": true,
	"array": true, "api": true, "endpoint": true, "database": true,
	"server": true, "client": true, "component": true, "module": true,
	"dependency": true, "package": true, "interface": true, "struct": true,
	"error": true, "exception": true, "bug": true, "test": true,
	"query": true, "schema": true, "middleware": true, "route": true,
	"loop": true, "pointer": true, "goroutine": true, "thread": true,
	"callback": true, "promise": true, "closure": true, "regex": true,
	"container": true, "pipeline": true, "compiler": true, "runtime": true,
	"react": true, "typescript": true, "javascript": true, "python": true,
	"golang": true, "docker": true, "kubernetes": true, "sql": true,
	"json": true, "yaml": true, "html": true, "css": true, "git": true,
}

var creationVerbs = map[string]bool{
	"create": true, "build": true, "write": true, "generate": true,
	"make": true, "scaffold": true, "add": true, "design": true,
}

// Social pattern families.
var (
	greetingRe       = regexp.MustCompile(`\b(hi|hello|hey|howdy|good (morning|afternoon|evening))\b`)
	politenessRe     = regexp.MustCompile(`\b(please|thanks|thank you|appreciate|sorry|excuse me|no worries)\b`)
	acknowledgmentRe = regexp.MustCompile(`\b(ok|okay|got it|sounds good|great|perfect|awesome|cool|nice|sure)\b`)
	farewellRe       = regexp.MustCompile(`\b(bye|goodbye|see you|good night|later)\b`)
)

// Complexity vocabulary: architecture, security, scalability, plus
// multi-file phrasing.
var (
	architectureRe = regexp.MustCompile(`\b(architecture|architect|design pattern|microservice|monolith|event[- ]driven|distributed|scalab\w+|high[- ]availability|load balanc\w+|sharding|replication|consistency|migration|infrastructure)\b`)
	securityRe     = regexp.MustCompile(`\b(security|vulnerabilit\w+|authenticat\w+|authoriz\w+|encrypt\w+|xss|csrf|injection|oauth|jwt|cve)\b`)
	multiFileRe    = regexp.MustCompile(`\b(across (multiple |the )?(files|modules|services)|multiple files|entire (codebase|project|repo)|whole (codebase|project|repo)|end[- ]to[- ]end|system[- ]wide)\b`)
	multiStepRe    = regexp.MustCompile(`\b(step[- ]by[- ]step|first\b.*\bthen\b|plan out|roadmap|in stages|phase\w*)\b`)
)

// Error pattern families: exception names, stack traces, HTTP statuses,
// failure vocabulary.
var (
	exceptionRe  = regexp.MustCompile(`\b\w+(Error|Exception)\b|\b(panic|segfault|core dump)\b`)
	stackTraceRe = regexp.MustCompile(`(?m)(\bat .+:\d+|goroutine \d+|Traceback \(most recent call last\)|stack trace)`)
	httpStatusRe = regexp.MustCompile(`\b(4\d{2}|5\d{2})\b`)
	failureRe    = regexp.MustCompile(`\b(error|exception|crash\w*|fail\w*|broken|undefined|null pointer|nil pointer|not working|doesn'?t work|stack overflow)\b`)
)

// Context-dependency vocabulary.
var (
	pronounRe      = regexp.MustCompile(`\b(it|that|this|these|those|them|one)\b`)
	continuationRe = regexp.MustCompile(`\b(also|again|instead|another|too|as well|what about|and then|next)\b`)
	followupRe     = regexp.MustCompile(`^(why|how come|what if|but )`)
)
