package domain

import (
	"net/url"
	"path"
	"strings"
)

// UntitledName is used when a URL carries no usable file name.
const UntitledName = "Untitled Document"

// DisplayNameFromURL derives a display name from the last path segment of rawURL.
// The extension is stripped and percent-encoding decoded.
// Unparseable URLs yield "" and a trailing "/" yields UntitledName.
// Examples:
//   - "https://x.org/docs/My%20Paper.pdf" -> "My Paper"
//   - "https://x.org/docs/" -> "Untitled Document"
func DisplayNameFromURL(rawURL string) string {
	u, err := ParseLinkURL(rawURL)
	if err != nil {
		return ""
	}

	escaped := u.EscapedPath()
	segment := escaped[strings.LastIndex(escaped, "/")+1:]
	segment = strings.TrimSuffix(segment, path.Ext(segment))

	name, err := url.PathUnescape(segment)
	if err != nil {
		return ""
	}
	if strings.TrimSpace(name) == "" {
		return UntitledName
	}
	return name
}

// HostLabel returns the host of rawURL, or rawURL itself when it can't be parsed.
func HostLabel(rawURL string) string {
	u, err := ParseLinkURL(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
