package validation

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MimeLyc/job-board-moderator/internal/posts"
)

func (v *Validator) Render(f posts.Failure) string {
	return RenderAt(f, v.now())
}

// RenderAt formats a failure for the author, relative to now.
func RenderAt(f posts.Failure, now time.Time) string {
	switch f := f.(type) {
	case posts.TooFrequent:
		next := f.LastSent.Add(f.Window)
		return fmt.Sprintf(
			"You’re posting too frequently. You last posted a %s message %s, please wait until %s to post again.",
			tagLabel(f.Tag),
			humanize.RelTime(f.LastSent, now, "ago", "from now"),
			next.UTC().Format("Jan 2 15:04 MST"),
		)
	case posts.MissingType:
		return "Your post does not include our required `HIRING` or `FOR HIRE` tag. Make sure the first line of your post includes `HIRING` if you’re looking to pay someone for their work, and `FOR HIRE` if you’re offering your services."
	case posts.InconsistentType:
		return "Your message has multiple job types. Please make a separate post for each type of job."
	case posts.TooManyEmojis:
		return fmt.Sprintf("Your post has too many emojis (%d). Please remove some, the limit is %d.", f.Count, f.Limit)
	case posts.TooLong:
		return fmt.Sprintf("Your %s post is too long (%d characters). Please shorten it to %d characters or less.", tagLabel(f.Tag), f.Length, f.Limit)
	case posts.TooManyLines:
		return fmt.Sprintf("Your %s post has too many lines (%d). Please shorten it to %d lines or less.", tagLabel(f.Tag), f.Lines, f.Limit)
	case posts.TooManyGaps:
		return fmt.Sprintf("Your post has too many blank sections (%d, limit %d). Please condense it.", f.Gaps, f.Limit)
	case posts.ReplyOrMention:
		return "Messages in this channel may not be replies or include @-mentions, so the channel isn’t used to discuss postings."
	case posts.UnsupportedLanguage:
		return fmt.Sprintf("Posts must be written in English (this looks like %s).", f.Language)
	case posts.Circumvented:
		if f.RecentEdit {
			return "Your post was edited shortly after posting in a way that breaks our rules. Please don’t delete or edit posts to get around our rules."
		}
		return "Your post was edited in a way that breaks our rules. Edited posts are held to the same rules as new ones."
	default:
		return fmt.Sprintf("Your post broke a rule (%s).", f.Kind())
	}
}

func tagLabel(tag posts.Tag) string {
	switch tag {
	case posts.TagForHire:
		return "FOR HIRE"
	case posts.TagHiring:
		return "HIRING"
	default:
		return string(tag)
	}
}
