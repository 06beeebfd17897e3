package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/giygas/spl-labels-api/splparser/entities"
)

var (
	// identifiers: UUIDs, OIDs, UNII and NDC codes
	identifierRegex = regexp.MustCompile(`^[A-Za-z0-9\-\.]+$`)

	dangerousPatterns = []string{
		"<script", "javascript:", "../", "..\\", "%2e%2e", "file://",
		"' or ", "\" or ", "union select", "drop table", "--", "/*",
		"$(", "${", "`",
	}
)

// ValidateInput checks an identifier received from a client
func (v *DocumentValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}
	if len(input) > 64 {
		return fmt.Errorf("input too long: maximum 64 characters")
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !identifierRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters: only letters, digits, hyphens and periods are allowed")
	}
	return nil
}

// ValidateSectionType accepts a section type name in any case, with hyphens or underscores
func (v *DocumentValidatorImpl) ValidateSectionType(input string) (entities.SectionType, error) {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(input), "-", "_"))
	t := entities.SectionType(name)
	if !t.Valid() {
		return "", fmt.Errorf("unknown section type %q", input)
	}
	return t, nil
}
