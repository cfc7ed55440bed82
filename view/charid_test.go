package view

import (
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCharacterID(t *testing.T) {
	b64 := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }
	tests := []struct {
		name  string
		path  string
		query url.Values
		want  string
	}{
		{"uuid path", "/character/3f2a-41bc-9d0e", nil, "3f2a-41bc-9d0e"},
		{"short path", "/character/abc-1", nil, "1"},
		{"long path without dash", "/character/abcdefghijklmnop", nil, "1"},
		{"obrref url", "/", url.Values{"obrref": {b64("https://sheets.example/character/77")}}, "77"},
		{"obrref url ends in character", "/", url.Values{"obrref": {b64("https://sheets.example/character")}}, "1"},
		{"obrref trailing text", "/", url.Values{"obrref": {b64("Sheet for 0123456789ab")}}, "0123456789ab"},
		{"obrref short trailing text", "/", url.Values{"obrref": {b64("Sheet for bob")}}, "1"},
		{"obrref unpadded", "/", url.Values{"obrref": {base64.RawStdEncoding.EncodeToString([]byte("https://x.example/c/ab"))}}, "ab"},
		{"obrref garbage", "/", url.Values{"obrref": {"%%%"}}, "1"},
		{"path wins", "/character/3f2a-41bc-9d0e", url.Values{"obrref": {b64("https://x.example/c/9")}}, "3f2a-41bc-9d0e"},
		{"nothing", "/", nil, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCharacterID(tt.path, tt.query, DefaultCharacterID))
		})
	}
}
