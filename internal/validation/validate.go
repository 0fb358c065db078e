package validation

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/jobs"
	"github.com/MimeLyc/job-board-moderator/internal/posts"
)

// History answers "when did this author last post this kind of job".
type History interface {
	LastPost(authorID string, tag posts.Tag, excludeMessageID string) (*jobs.Record, bool)
}

// Rules holds the limits applied to each post.
type Rules struct {
	PostWindow time.Duration

	MaxEmojis int
	// Limits for FOR HIRE posts; HIRING posts get the larger Hiring* limits.
	ForHireMaxLength int
	ForHireMaxLines  int
	HiringMaxLength  int
	HiringMaxLines   int
	MaxGaps          int

	RequireEnglish bool
	// MinLanguageSample is the shortest text the language check trusts.
	MinLanguageSample int
}

func DefaultRules() Rules {
	return Rules{
		PostWindow:        162 * time.Hour,
		MaxEmojis:         4,
		ForHireMaxLength:  1000,
		ForHireMaxLines:   18,
		HiringMaxLength:   2500,
		HiringMaxLines:    35,
		MaxGaps:           10,
		MinLanguageSample: 120,
	}
}

type Validator struct {
	rules   Rules
	history History
	now     func() time.Time
}

type Option func(*Validator)

func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

func New(rules Rules, history History, opts ...Option) *Validator {
	v := &Validator{
		rules:   rules,
		history: history,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var _ posts.Validator = (*Validator)(nil)

func (v *Validator) Parse(content string) []posts.Candidate {
	return Parse(content)
}

// Validate returns every rule the message breaks. An empty result means the post may stand.
func (v *Validator) Validate(candidates []posts.Candidate, msg *chat.Message) []posts.Failure {
	var failures []posts.Failure

	if msg.IsReply || msg.MentionsEveryone || len(msg.MentionedUsers) > 0 || len(msg.MentionedRoles) > 0 {
		failures = append(failures, posts.ReplyOrMention{})
	}

	tags := posts.Tags(candidates)
	if len(tags) == 0 {
		failures = append(failures, posts.MissingType{})
	}
	for _, c := range candidates {
		if c.HasTag(posts.TagHiring) && c.HasTag(posts.TagForHire) {
			failures = append(failures, posts.InconsistentType{})
			break
		}
	}

	if n := countEmojis(msg.Content); v.rules.MaxEmojis > 0 && n > v.rules.MaxEmojis {
		failures = append(failures, posts.TooManyEmojis{Count: n, Limit: v.rules.MaxEmojis})
	}

	for _, c := range candidates {
		failures = append(failures, v.checkSize(c)...)
	}

	if gaps := countGaps(msg.Content); v.rules.MaxGaps > 0 && gaps > v.rules.MaxGaps {
		failures = append(failures, posts.TooManyGaps{Gaps: gaps, Limit: v.rules.MaxGaps})
	}

	if f, ok := v.checkLanguage(msg.Content); ok {
		failures = append(failures, f)
	}

	failures = append(failures, v.checkFrequency(tags, msg)...)
	return failures
}

func (v *Validator) checkSize(c posts.Candidate) []posts.Failure {
	var failures []posts.Failure
	tag, maxLength, maxLines := posts.TagHiring, v.rules.HiringMaxLength, v.rules.HiringMaxLines
	if c.HasTag(posts.TagForHire) {
		tag, maxLength, maxLines = posts.TagForHire, v.rules.ForHireMaxLength, v.rules.ForHireMaxLines
	}
	if n := utf8.RuneCountInString(c.Description); maxLength > 0 && n > maxLength {
		failures = append(failures, posts.TooLong{Tag: tag, Length: n, Limit: maxLength})
	}
	if n := countLines(c.Description); maxLines > 0 && n > maxLines {
		failures = append(failures, posts.TooManyLines{Tag: tag, Lines: n, Limit: maxLines})
	}
	return failures
}

func (v *Validator) checkLanguage(content string) (posts.Failure, bool) {
	if !v.rules.RequireEnglish || utf8.RuneCountInString(content) < v.rules.MinLanguageSample {
		return nil, false
	}
	info := whatlanggo.Detect(content)
	if !info.IsReliable() || info.Lang == whatlanggo.Eng {
		return nil, false
	}
	return posts.UnsupportedLanguage{Language: info.Lang.String()}, true
}

func (v *Validator) checkFrequency(tags []posts.Tag, msg *chat.Message) []posts.Failure {
	if v.history == nil || v.rules.PostWindow <= 0 || msg.Author == nil {
		return nil
	}
	now := v.now()
	var failures []posts.Failure
	for _, tag := range tags {
		last, ok := v.history.LastPost(msg.Author.ID, tag, msg.ID)
		if !ok {
			continue
		}
		if now.Sub(last.CreatedAt) < v.rules.PostWindow {
			failures = append(failures, posts.TooFrequent{
				Tag:      tag,
				LastSent: last.CreatedAt,
				Window:   v.rules.PostWindow,
			})
		}
	}
	return failures
}

func countLines(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return strings.Count(strings.TrimSpace(text), "\n") + 1
}

// countGaps counts runs of blank lines between text.
func countGaps(text string) int {
	gaps := 0
	inGap := false
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if strings.TrimSpace(line) == "" {
			if !inGap {
				gaps++
				inGap = true
			}
			continue
		}
		inGap = false
	}
	return gaps
}

func countEmojis(text string) int {
	n := 0
	for _, r := range text {
		if isEmoji(r) {
			n++
		}
	}
	return n
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		// skin tone modifiers ride along with the emoji they modify
		return false
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF:
		return true
	}
	return false
}
