package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// BuildFunctionID creates a deterministic function ID.
// The ID is derived from the module path, the name and a canonical signature
// hash, so overloads of one name get distinct IDs that survive line moves.
func BuildFunctionID(language, path string, fn Function) string {
	lang := strings.TrimSpace(language)
	if lang == "" {
		lang = "unknown"
	}

	module := ModuleName(path)
	if module == "" {
		module = "_"
	}

	name := strings.TrimSpace(fn.Name)
	if name == "" {
		name = "_"
	}

	fingerprint := strings.Join([]string{
		lang,
		module,
		name,
		canonicalize(strings.Join(fn.Decorators, " ")),
		canonicalize(fn.Signature),
	}, "|")

	sum := sha256.Sum256([]byte(fingerprint))
	short := hex.EncodeToString(sum[:8])
	return fmt.Sprintf("%s/%s:%s:%s", lang, module, name, short)
}

// ModuleName turns a source path into a dotted module name,
// e.g. "pkg/sub/mod.py" -> "pkg.sub.mod".
func ModuleName(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	p = strings.TrimLeft(strings.TrimPrefix(p, "./"), "/")
	p = strings.TrimSuffix(p, filepath.Ext(p))
	p = strings.TrimSuffix(p, "/__init__")
	if p == "." {
		return ""
	}
	return strings.ReplaceAll(p, "/", ".")
}

func canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}
