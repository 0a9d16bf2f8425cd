package moderation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eminence/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_Check(t *testing.T) {
	c := NewChecker(DefaultRules())

	tests := []struct {
		name   string
		text   string
		reason string
	}{
		{"plain quote", "継続は力なり", ""},
		{"forbidden word", "お前はバカだ", ReasonInappropriate},
		{"forbidden word any case", "line@で連絡", ReasonInappropriate},
		{"ten repeats allowed", strings.Repeat("あ", 10) + "い", ""},
		{"eleven repeats", strings.Repeat("あ", 11), ReasonSpam},
		{"url", "見て https://example.com", ReasonURL},
		{"phone", "電話は 090-1234-5678", ReasonPhone},
		{"email", "連絡は a.b@example.jp", ReasonEmail},
		{"too short", " あ ", ReasonTooShort},
		{"too long", strings.Repeat("あい", 251), ReasonTooLong},
		{"exactly max", strings.Repeat("あい", 250), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Check(tt.text)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, models.HasCode(err, models.CodeValidation))
			assert.Equal(t, tt.reason, err.Error())
		})
	}
}

func TestChecker_CheckReplyAllowsOneRune(t *testing.T) {
	c := NewChecker(DefaultRules())
	assert.NoError(t, c.CheckReply("!"))
	assert.Error(t, c.CheckReply("   "))
}

func TestChecker_NeedsReview(t *testing.T) {
	c := NewChecker(DefaultRules())
	assert.True(t, c.NeedsReview("お金は大事"))
	assert.False(t, c.NeedsReview("継続は力なり"))
}

func TestLoadRules_MergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moderation.yml")
	require.NoError(t, os.WriteFile(path, []byte("forbidden_words:\n  - 禁句\nallow_urls: true\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Error(t, c.Check("これは禁句です"))
	// the file replaced the default list
	assert.NoError(t, c.Check("バカと天才は紙一重"))
	assert.NoError(t, c.Check("参考 https://example.com"))
	assert.True(t, c.NeedsReview("口座を教えて"))
	assert.Error(t, c.Check(strings.Repeat("ん", 11)))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("forbidden_words: [unclosed"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	c, err := Load("")
	require.NoError(t, err)
	assert.NotNil(t, c)
}
