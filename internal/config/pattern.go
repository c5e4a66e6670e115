package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// tokenPattern matches every bracketed placeholder, known or not
	tokenPattern = regexp.MustCompile(`\[([a-z]+)(?::([0-9]+))?\]`)

	knownTokens = map[string]bool{
		"hash":        true,
		"contenthash": true,
		"name":        true,
		"id":          true,
		"ext":         true,
	}
)

// PatternVars holds the values substituted into a filename pattern.
type PatternVars struct {
	Hash        string
	ContentHash string
	Name        string
	ID          string
	// Ext without the leading dot
	Ext string
}

// HasUniqueToken reports whether the pattern embeds a build or content hash.
func HasUniqueToken(pattern string) bool {
	for _, m := range tokenPattern.FindAllStringSubmatch(pattern, -1) {
		if m[1] == "hash" || m[1] == "contenthash" {
			return true
		}
	}
	return false
}

// CheckPattern verifies every placeholder is known and the pattern names a plain file.
func CheckPattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrBadPattern)
	}
	if strings.ContainsAny(pattern, `/\`) {
		return fmt.Errorf("%w: %q must not contain a directory", ErrBadPattern, pattern)
	}
	for _, m := range tokenPattern.FindAllStringSubmatch(pattern, -1) {
		if !knownTokens[m[1]] {
			return fmt.Errorf("%w: unknown placeholder [%s] in %q", ErrBadPattern, m[1], pattern)
		}
	}
	return nil
}

// ExpandPattern substitutes vars into pattern. A ":N" suffix truncates hashes to N characters.
func ExpandPattern(pattern string, vars PatternVars) string {
	return tokenPattern.ReplaceAllStringFunc(pattern, func(tok string) string {
		m := tokenPattern.FindStringSubmatch(tok)

		var value string
		switch m[1] {
		case "hash":
			value = vars.Hash
		case "contenthash":
			value = vars.ContentHash
		case "name":
			value = vars.Name
		case "id":
			value = vars.ID
		case "ext":
			value = vars.Ext
		default:
			return tok
		}

		if m[2] != "" {
			if n, err := strconv.Atoi(m[2]); err == nil && n < len(value) {
				value = value[:n]
			}
		}
		return value
	})
}
