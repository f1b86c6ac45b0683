package core

import (
	"strings"

	"github.com/gosimple/slug"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Slugify returns `s` if it is set (cleaned and lowered), or a slug generated from `from` otherwise.
func Slugify(s, from string) string {
	if s = CleanString(s, true /* lower */); s != "" {
		return s
	}
	return slug.Make(from)
}
