package utils

import (
	"path"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var IDSize = 32

func NanoID() string {
	return gonanoid.MustGenerate(idAlphabet, IDSize)
}

// ObjectKey builds a blob key namespaced by the owning user so bucket
// policies can authorize on the first path segment.
func ObjectKey(ownerID, fileName string) string {
	name := sanitizeFileName(fileName)
	if name == "" {
		name = "file"
	}
	return ownerID + "/" + gonanoid.MustGenerate(idAlphabet, 12) + "-" + name
}

func sanitizeFileName(fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
