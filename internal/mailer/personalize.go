package mailer

import (
	"regexp"
	"strings"
)

// tokenAliases are the recognized spellings of the recipient-name token
var tokenAliases = []string{"name", "first_name", "firstname", "lead_name"}

var tokenPattern = regexp.MustCompile(`(?i)\{\{\s*(name|first_name|firstname|lead_name)\s*\}\}`)

// PersonalizeContent replaces every recognized name token in the template
// with the given value, case-insensitively. Tokens without a value and
// unrecognized tokens are left unexpanded so missing data stays visible.
func PersonalizeContent(template, value string) string {
	if value == "" {
		return template
	}
	return tokenPattern.ReplaceAllLiteralString(template, value)
}

// ContainsToken reports whether the content holds a token-opening sequence,
// independent of any explicit personalization flag
func ContainsToken(content string) bool {
	return strings.Contains(content, "{{")
}

// SubstitutionMap builds the provider-side substitution table expanding all
// name token spellings to the given value
func SubstitutionMap(value string) map[string]string {
	subs := make(map[string]string, len(tokenAliases))
	for _, alias := range tokenAliases {
		subs["{{"+alias+"}}"] = value
	}
	return subs
}
