package attach

import (
	"fmt"
	"math/rand"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename reduces a client-supplied filename to a safe basename.
// Path components are stripped, the name is NFC-normalized, and characters
// that are unsafe in a POSIX path are replaced.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = path.Base(name)
	name = norm.NFC.String(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20, r == '/', r == 0x7f:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	name = strings.TrimSpace(b.String())
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

// UniqueName generates a collision-free filename from a prefix and
// extension, in the form prefix-<millis>-<random>.ext.
func UniqueName(prefix, ext string) string {
	if prefix == "" {
		prefix = "file"
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s-%d-%d%s", prefix, time.Now().UnixMilli(), rand.Int63n(1_000_000_000), ext)
}
