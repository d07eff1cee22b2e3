package model

import (
	"sort"
	"strings"
	"unicode"
)

const (
	maxIDLength     = 128
	reservedIDChars = `<>:"|?*`
)

// ValidateID checks that id is usable as a record key on every backend.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return validationErrorf("session id cannot be empty")
	}
	if len(id) > maxIDLength {
		return validationErrorf("session id exceeds %d bytes", maxIDLength)
	}
	if strings.Contains(id, "..") {
		return validationErrorf("session id cannot contain '..'")
	}
	if strings.ContainsAny(id, "/\\") {
		return validationErrorf("session id cannot contain path separators")
	}
	// File backends treat dot-prefixed names as temporaries and never scan them.
	if strings.HasPrefix(id, ".") {
		return validationErrorf("session id cannot start with '.'")
	}
	if strings.ContainsAny(id, reservedIDChars) {
		return validationErrorf("session id cannot contain any of %q", reservedIDChars)
	}
	for _, r := range id {
		if r == 0 || unicode.IsControl(r) {
			return validationErrorf("session id cannot contain control characters")
		}
	}
	return nil
}

// NormalizeTag trims a tag and rejects empty or multi-line values.
func NormalizeTag(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", validationErrorf("tag cannot be empty")
	}
	if strings.ContainsAny(tag, "\r\n\x00") {
		return "", validationErrorf("tag cannot contain line breaks")
	}
	return tag, nil
}

// NormalizeTags returns a non-nil, sorted set of tags. Invalid entries are dropped and
// duplicates are collapsed case-insensitively, keeping the first spelling seen.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		tag, err := NormalizeTag(raw)
		if err != nil {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	sortTags(out)
	return out
}

// HasTag reports whether tags contains tag, ignoring case.
func HasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func sortTags(tags []string) {
	sort.Slice(tags, func(i, j int) bool {
		li, lj := strings.ToLower(tags[i]), strings.ToLower(tags[j])
		if li != lj {
			return li < lj
		}
		return tags[i] < tags[j]
	})
}
