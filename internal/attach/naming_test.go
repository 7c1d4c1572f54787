package attach

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilenameStripsPathComponents(t *testing.T) {
	assert.Equal(t, "report.pdf", SanitizeFilename("../../etc/report.pdf"))
	assert.Equal(t, "notes.txt", SanitizeFilename(`C:\Users\x\notes.txt`))
	assert.Equal(t, "a.png", SanitizeFilename("/uploads/a.png"))
}

func TestSanitizeFilenameFallsBack(t *testing.T) {
	assert.Equal(t, "file", SanitizeFilename(""))
	assert.Equal(t, "file", SanitizeFilename(".."))
	assert.Equal(t, "file", SanitizeFilename("   "))
}

func TestSanitizeFilenameReplacesControlChars(t *testing.T) {
	assert.Equal(t, "a_b.png", SanitizeFilename("a\x00b.png"))
}

func TestUniqueNameShape(t *testing.T) {
	name := UniqueName("files", ".png")
	assert.True(t, strings.HasPrefix(name, "files-"))
	assert.True(t, strings.HasSuffix(name, ".png"))

	other := UniqueName("files", "png")
	assert.True(t, strings.HasSuffix(other, ".png"))
	assert.NotEqual(t, name, other)
}
