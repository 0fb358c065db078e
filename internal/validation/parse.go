package validation

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/MimeLyc/job-board-moderator/internal/posts"
)

var (
	forHirePattern = regexp.MustCompile(`\bFOR[\s-]*HIRE\b`)
	hiringPattern  = regexp.MustCompile(`\bHIRING\b`)
	upper          = cases.Upper(language.English)
)

// Parse splits a message into post candidates. Each non-empty block whose first line carries a
// job tag starts a new candidate; text before the first tagged block belongs to an untagged one.
func Parse(content string) []posts.Candidate {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if content == "" {
		return nil
	}

	var ret []posts.Candidate
	var current *posts.Candidate
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Description = strings.TrimSpace(strings.Join(body, "\n"))
		ret = append(ret, *current)
		current = nil
		body = nil
	}

	for _, block := range splitBlocks(content) {
		header, rest, _ := strings.Cut(block, "\n")
		tags := headerTags(header)
		if len(tags) > 0 || current == nil {
			flush()
			current = &posts.Candidate{Tags: tags}
			if len(tags) > 0 {
				body = append(body, rest)
				continue
			}
		}
		body = append(body, block)
	}
	flush()
	return ret
}

func headerTags(header string) []posts.Tag {
	normalized := upper.String(header)
	var tags []posts.Tag
	if hiringPattern.MatchString(normalized) {
		tags = append(tags, posts.TagHiring)
	}
	if forHirePattern.MatchString(normalized) {
		tags = append(tags, posts.TagForHire)
	}
	return tags
}

// splitBlocks breaks text on blank lines.
func splitBlocks(content string) []string {
	var blocks []string
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(lines) > 0 {
				blocks = append(blocks, strings.Join(lines, "\n"))
				lines = nil
			}
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 {
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return blocks
}

// Tags is a shortcut for the distinct tags in content.
func Tags(content string) []posts.Tag {
	return posts.Tags(Parse(content))
}
