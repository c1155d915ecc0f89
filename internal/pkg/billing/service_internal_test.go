package billing

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc", truncate("abcdef", 3))

	// "é" is two bytes; cutting inside it drops the whole rune.
	msg := "aaa" + "é" + "b"
	got := truncate(msg, 4)
	assert.Equal(t, "aaa", got)
	assert.True(t, utf8.ValidString(got))

	long := strings.Repeat("ã", maxStoredErrorLength)
	got = truncate(long, maxStoredErrorLength)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxStoredErrorLength)
}
