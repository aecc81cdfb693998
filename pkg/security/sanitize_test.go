package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTMLTags(t *testing.T) {
	assert.Equal(t, "hello world", StripHTMLTags("<b>hello</b> <i>world</i>"))
	assert.Equal(t, "alert(1)", StripHTMLTags("<script>alert(1)</script>"))
	assert.Equal(t, "plain text", StripHTMLTags("plain text"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abc\x00  "))
}

func TestSanitizeInput(t *testing.T) {
	out := SanitizeInput("<script>alert(1)</script> hello", 100)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "hello")
}
