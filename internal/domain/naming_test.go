package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayNameFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "strips extension", url: "https://example.com/files/report.pdf", want: "report"},
		{name: "upper case extension", url: "https://example.com/files/REPORT.PDF", want: "REPORT"},
		{name: "percent decoding", url: "https://example.com/a/My%20Paper.pdf", want: "My Paper"},
		{name: "unicode escape", url: "https://example.com/%E6%96%87%E6%A1%A3.pdf", want: "文档"},
		{name: "keeps inner dots", url: "https://example.com/v1.2.notes.pdf", want: "v1.2.notes"},
		{name: "no extension", url: "https://example.com/download/handbook", want: "handbook"},
		{name: "query ignored", url: "https://example.com/doc.pdf?raw=1", want: "doc"},
		{name: "trailing slash", url: "https://example.com/docs/", want: UntitledName},
		{name: "bare host", url: "https://example.com", want: UntitledName},
		{name: "not a url", url: "definitely not a url", want: ""},
		{name: "empty", url: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayNameFromURL(tt.url))
		})
	}
}

func TestHostLabel(t *testing.T) {
	assert.Equal(t, "files.example.org", HostLabel("https://files.example.org:8443/a.pdf"))
	assert.Equal(t, "nope", HostLabel("nope"))
}
