package exporter

import (
	"encoding/base64"
	"path"
	"strings"
)

// Artifact is a finished export held in memory.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
	// Pages is zero for formats without pages.
	Pages int
}

// Base64 returns the content in the form email functions expect.
func (a *Artifact) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

func (a *Artifact) Size() int {
	return len(a.Data)
}

// withExt replaces the extension of name.
func withExt(name, format string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + "." + format
}
