package posts

import (
	"strings"
	"time"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
)

type Tag string

const (
	TagHiring  Tag = "hiring"
	TagForHire Tag = "forhire"
)

// Candidate is one job post parsed out of a message. A single message may hold several.
type Candidate struct {
	Tags        []Tag
	Description string
}

func (c Candidate) HasTag(tag Tag) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AnyHasTag reports whether any candidate carries tag.
func AnyHasTag(candidates []Candidate, tag Tag) bool {
	for _, c := range candidates {
		if c.HasTag(tag) {
			return true
		}
	}
	return false
}

// Tags returns the distinct tags across all candidates in first-seen order.
func Tags(candidates []Candidate) []Tag {
	seen := make(map[Tag]bool)
	ret := make([]Tag, 0, 2)
	for _, c := range candidates {
		for _, t := range c.Tags {
			if !seen[t] {
				seen[t] = true
				ret = append(ret, t)
			}
		}
	}
	return ret
}

// Validator parses message text into candidates, checks them against the posting rules and
// renders failures for humans.
type Validator interface {
	Parse(content string) []Candidate
	Validate(candidates []Candidate, msg *chat.Message) []Failure
	Render(f Failure) string
}

type FailureKind string

const (
	KindTooFrequent         FailureKind = "tooFrequent"
	KindMissingType         FailureKind = "missingType"
	KindInconsistentType    FailureKind = "inconsistentType"
	KindTooManyEmojis       FailureKind = "tooManyEmojis"
	KindTooLong             FailureKind = "tooLong"
	KindTooManyLines        FailureKind = "tooManyLines"
	KindTooManyGaps         FailureKind = "tooManyGaps"
	KindReplyOrMention      FailureKind = "replyOrMention"
	KindUnsupportedLanguage FailureKind = "unsupportedLanguage"
	KindCircumvented        FailureKind = "circumventedRules"
)

// Failure is one broken rule. Concrete types below are the only implementations.
type Failure interface {
	Kind() FailureKind
}

type TooFrequent struct {
	Tag      Tag
	LastSent time.Time
	Window   time.Duration
}

type MissingType struct{}

type InconsistentType struct{}

type TooManyEmojis struct {
	Count int
	Limit int
}

type TooLong struct {
	Tag    Tag
	Length int
	Limit  int
}

type TooManyLines struct {
	Tag   Tag
	Lines int
	Limit int
}

type TooManyGaps struct {
	Gaps  int
	Limit int
}

type ReplyOrMention struct{}

type UnsupportedLanguage struct {
	Language string
}

// Circumvented is prepended by the engine when an edit breaks the rules.
type Circumvented struct {
	RecentEdit bool
}

func (TooFrequent) Kind() FailureKind         { return KindTooFrequent }
func (MissingType) Kind() FailureKind         { return KindMissingType }
func (InconsistentType) Kind() FailureKind    { return KindInconsistentType }
func (TooManyEmojis) Kind() FailureKind       { return KindTooManyEmojis }
func (TooLong) Kind() FailureKind             { return KindTooLong }
func (TooManyLines) Kind() FailureKind        { return KindTooManyLines }
func (TooManyGaps) Kind() FailureKind         { return KindTooManyGaps }
func (ReplyOrMention) Kind() FailureKind      { return KindReplyOrMention }
func (UnsupportedLanguage) Kind() FailureKind { return KindUnsupportedLanguage }
func (Circumvented) Kind() FailureKind        { return KindCircumvented }

// WithoutKind drops every failure of the given kind.
func WithoutKind(failures []Failure, kind FailureKind) []Failure {
	ret := make([]Failure, 0, len(failures))
	for _, f := range failures {
		if f.Kind() != kind {
			ret = append(ret, f)
		}
	}
	return ret
}

// FindTooFrequent returns the first frequency failure, if any.
func FindTooFrequent(failures []Failure) (TooFrequent, bool) {
	for _, f := range failures {
		if tf, ok := f.(TooFrequent); ok {
			return tf, true
		}
	}
	return TooFrequent{}, false
}

// RenderList formats failures as a bulleted list, one rendered failure per line.
func RenderList(v Validator, failures []Failure) string {
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		lines = append(lines, "- "+v.Render(f))
	}
	return strings.Join(lines, "\n")
}
