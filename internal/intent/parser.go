// Package intent extracts a credential request from free-form text. It is a
// deterministic pattern matcher, not an NLU layer: the grammar is small and
// resource types are tried in a fixed priority order so the same sentence
// always parses the same way.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultDurationMinutes applies when the text names no duration.
	DefaultDurationMinutes = 5
	// MaxDurationMinutes caps any requested duration.
	MaxDurationMinutes = 15
)

// Intent is the structured reading of a natural-language request.
// ResourceName is empty when no name could be extracted; ResourceType is
// always set, falling back to "generic".
type Intent struct {
	ResourceType    string
	ResourceName    string
	DurationMinutes int
	OriginalText    string
}

// Matching runs against lowercased text, so the patterns are lowercase only.
// Order matters twice: database beats api beats ssh, and within a type the
// first matching pattern wins.
var typePatterns = []struct {
	resourceType string
	patterns     []*regexp.Regexp
}{
	{"database", compileAll(
		`database\s+(?:credentials?|creds?|access)\s+for\s+(\S+)`,
		`db\s+(?:credentials?|creds?|access)\s+for\s+(\S+)`,
		`(?:credentials?|creds?|access)\s+for\s+(?:database|db)\s+(\S+)`,
		`need\s+(\S+)\s+database`,
		`(\S+)\s+database\s+(?:credentials?|creds?)`,
	)},
	{"api", compileAll(
		`api\s+(?:credentials?|creds?|access|token)\s+for\s+(\S+)`,
		`(?:credentials?|creds?|access|token)\s+for\s+api\s+(\S+)`,
		`need\s+(\S+)\s+api`,
		`(\S+)\s+api\s+(?:credentials?|creds?|token)`,
	)},
	{"ssh", compileAll(
		`ssh\s+(?:credentials?|creds?|keys?|access)\s+for\s+(\S+)`,
		`(?:credentials?|creds?|keys?|access)\s+for\s+ssh\s+(\S+)`,
		`need\s+(\S+)\s+ssh`,
		`(\S+)\s+ssh\s+(?:credentials?|creds?|keys?)`,
	)},
}

// genericPatterns salvage a resource name when no type matched.
var genericPatterns = compileAll(
	`credentials?\s+for\s+(\S+)`,
	`creds?\s+for\s+(\S+)`,
	`access\s+to\s+(\S+)`,
	`secret\s+for\s+(\S+)`,
)

var durationPattern = regexp.MustCompile(`(\d+)\s*(?:minutes|minute|mins|min)`)

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

// Parse extracts the credential request intent from text.
func Parse(text string) Intent {
	lower := strings.ToLower(text)

	result := Intent{
		DurationMinutes: DefaultDurationMinutes,
		OriginalText:    text,
	}

	for _, entry := range typePatterns {
		for _, pattern := range entry.patterns {
			if m := pattern.FindStringSubmatch(lower); m != nil {
				result.ResourceType = entry.resourceType
				result.ResourceName = m[1]
				break
			}
		}
		if result.ResourceType != "" {
			break
		}
	}

	if result.ResourceType == "" {
		result.ResourceType = "generic"
		for _, pattern := range genericPatterns {
			if m := pattern.FindStringSubmatch(lower); m != nil {
				result.ResourceName = m[1]
				break
			}
		}
	}

	if m := durationPattern.FindStringSubmatch(lower); m != nil {
		minutes, err := strconv.Atoi(m[1])
		if err == nil {
			result.DurationMinutes = clampDuration(minutes)
		}
	}

	return result
}

func clampDuration(minutes int) int {
	if minutes < 1 {
		return 1
	}
	if minutes > MaxDurationMinutes {
		return MaxDurationMinutes
	}
	return minutes
}
