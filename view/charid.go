package view

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// DefaultCharacterID is used when a request names no character.
const DefaultCharacterID = "1"

// ExtractCharacterID picks the character for a panel request. In order: a
// last path segment longer than ten characters containing '-'; the last
// path segment of the URL base64-encoded in the obrref query parameter; the
// text after the last space of that decoded value when longer than ten
// characters. Otherwise def is returned.
func ExtractCharacterID(path string, query url.Values, def string) string {
	if seg := lastSegment(path); len(seg) > 10 && strings.Contains(seg, "-") {
		return seg
	}
	if ref := query.Get("obrref"); ref != "" {
		if id, ok := fromObrref(ref); ok {
			return id
		}
	}
	return def
}

func fromObrref(ref string) (string, bool) {
	decoded, ok := decodeBase64(ref)
	if !ok {
		return "", false
	}
	if u, err := url.Parse(decoded); err == nil && u.Scheme != "" {
		if id := lastSegment(u.Path); id != "" && id != "character" {
			return id, true
		}
	}
	if i := strings.LastIndex(decoded, " "); i > 0 {
		if id := decoded[i+1:]; len(id) > 10 {
			return id, true
		}
	}
	return "", false
}

func decodeBase64(s string) (string, bool) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return string(b), true
		}
	}
	return "", false
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
