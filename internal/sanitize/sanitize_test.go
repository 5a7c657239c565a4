package sanitize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/salavathhari/devcollab/internal/sanitize"
)

func TestPlain_StripsMarkup(t *testing.T) {
	assert.Equal(t, "hello world", sanitize.Plain("hello world"))
	assert.Equal(t, "alert(1)", sanitize.Plain("<script>alert(1)</script>"))
	assert.Equal(t, "bold", sanitize.Plain("<b>bold</b>"))
	assert.Equal(t, "spaced", sanitize.Plain("  spaced \n"))
}

func TestRich_KeepsSafeMarkup(t *testing.T) {
	assert.Equal(t, "<b>bold</b>", sanitize.Rich("<b>bold</b>"))
	assert.NotContains(t, sanitize.Rich(`<a href="javascript:alert(1)">x</a>`), "javascript:")
}

func TestMentions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "hello there", nil},
		{"single", "ping bob@example.com please", []string{"bob@example.com"}},
		{"dedup and case", "Bob@Example.com and bob@example.com", []string{"bob@example.com"}},
		{"multiple ordered", "cc alice@dev.io and bob@example.com", []string{"alice@dev.io", "bob@example.com"}},
		{"not an email", "meet @standup", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sanitize.Mentions(tc.text))
		})
	}
}
