// Package moderation screens user-submitted text before it is stored.
package moderation

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"eminence/internal/models"

	"gopkg.in/yaml.v3"
)

// Rejection reasons shown to the poster.
const (
	ReasonInappropriate = "不適切な表現が含まれています"
	ReasonSpam          = "スパムの可能性があります"
	ReasonURL           = "URLの投稿は現在許可されていません"
	ReasonPhone         = "個人情報（電話番号）が含まれています"
	ReasonEmail         = "個人情報（メールアドレス）が含まれています"
	ReasonTooShort      = "投稿内容が短すぎます"
	ReasonTooLong       = "投稿内容が長すぎます（500文字以内）"
)

var (
	urlPattern   = regexp.MustCompile(`https?://[^\s]+`)
	phonePattern = regexp.MustCompile(`(\d{2,4}-?\d{2,4}-?\d{3,4})|(\d{10,11})`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

// Rules is the moderation word list file format.
type Rules struct {
	ForbiddenWords []string `yaml:"forbidden_words"`
	ReviewWords    []string `yaml:"review_words"`
	MaxRepeat      int      `yaml:"max_repeat"`
	AllowURLs      bool     `yaml:"allow_urls"`
}

// DefaultRules is used when no rules file is configured.
func DefaultRules() Rules {
	return Rules{
		ForbiddenWords: []string{
			"殺", "死ね", "ぶっ殺", "自殺",
			"ブス", "デブ", "ハゲ", "キモい",
			"セックス", "エロ", "風俗",
			"バカ", "アホ", "クソ", "うざい", "きもい",
			"儲かる", "稼げる", "副業", "投資", "ビットコイン",
			"LINE@", "詳細はプロフ", "DMください",
		},
		ReviewWords: []string{
			"金", "お金", "現金", "振込", "口座",
			"出会", "会いましょう", "連絡先",
			"薬", "ドラッグ",
		},
		MaxRepeat: 10,
	}
}

// LoadRules reads a YAML rules file. Lists the file leaves out fall back to
// the defaults.
func LoadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read moderation rules: %w", err)
	}
	var rules Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse moderation rules %s: %w", path, err)
	}
	def := DefaultRules()
	if rules.ForbiddenWords == nil {
		rules.ForbiddenWords = def.ForbiddenWords
	}
	if rules.ReviewWords == nil {
		rules.ReviewWords = def.ReviewWords
	}
	if rules.MaxRepeat <= 0 {
		rules.MaxRepeat = def.MaxRepeat
	}
	return rules, nil
}

// Checker applies a rule set. It is safe for concurrent use.
type Checker struct {
	forbidden []string
	review    []string
	maxRepeat int
	allowURLs bool
}

// NewChecker builds a checker from rules.
func NewChecker(rules Rules) *Checker {
	return &Checker{
		forbidden: lowerAll(rules.ForbiddenWords),
		review:    lowerAll(rules.ReviewWords),
		maxRepeat: rules.MaxRepeat,
		allowURLs: rules.AllowURLs,
	}
}

// Load builds a checker from path, or from DefaultRules when path is empty.
func Load(path string) (*Checker, error) {
	if path == "" {
		return NewChecker(DefaultRules()), nil
	}
	rules, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	return NewChecker(rules), nil
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, strings.ToLower(w))
		}
	}
	return out
}

// Check returns a validation error naming the first rule text breaks.
func (c *Checker) Check(text string) error {
	if reason := c.reason(text, models.QuoteTextMinLength, models.QuoteTextMaxLength); reason != "" {
		return models.NewValidationError(reason)
	}
	return nil
}

// CheckReply applies the same rules with the reply length limit.
func (c *Checker) CheckReply(text string) error {
	if reason := c.reason(text, 1, models.ReplyTextMaxLength); reason != "" {
		return models.NewValidationError(reason)
	}
	return nil
}

func (c *Checker) reason(text string, minLen, maxLen int) string {
	lowered := strings.ToLower(text)
	for _, w := range c.forbidden {
		if strings.Contains(lowered, w) {
			return ReasonInappropriate
		}
	}
	if repeatsMoreThan(text, c.maxRepeat) {
		return ReasonSpam
	}
	if !c.allowURLs && urlPattern.MatchString(text) {
		return ReasonURL
	}
	if phonePattern.MatchString(text) {
		return ReasonPhone
	}
	if emailPattern.MatchString(text) {
		return ReasonEmail
	}
	n := models.RuneLen(text)
	if n < minLen {
		return ReasonTooShort
	}
	if n > maxLen {
		return ReasonTooLong
	}
	return ""
}

// NeedsReview reports whether text contains words that warrant a manual look.
// Flagged text is still accepted.
func (c *Checker) NeedsReview(text string) bool {
	lowered := strings.ToLower(text)
	for _, w := range c.review {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}

func repeatsMoreThan(text string, limit int) bool {
	if limit <= 0 {
		return false
	}
	var prev rune
	run := 0
	for i, r := range []rune(text) {
		if i > 0 && r == prev {
			run++
			if run > limit {
				return true
			}
			continue
		}
		prev = r
		run = 1
	}
	return false
}
