package modlog

import (
	"github.com/MimeLyc/job-board-moderator/internal/chat"
)

type Reason string

const (
	ReasonJobCircumvent            Reason = "jobCircumvent"
	ReasonJobRemoved               Reason = "jobRemoved"
	ReasonJobFrequency             Reason = "jobFrequency"
	ReasonUserWarn                 Reason = "userWarn"
	ReasonUserDelete               Reason = "userDelete"
	ReasonLowEffortQuestionRemoved Reason = "lowEffortQuestionRemoved"
)

// Report is one moderation event destined for the mod log.
type Report struct {
	Reason  Reason
	Message *chat.Message
	Staff   []*chat.Member
	Members []*chat.Member
	Extra   string
}

// Reporter delivers reports. Report must not block on delivery.
type Reporter interface {
	Report(r Report)
}

// Nop discards every report.
type Nop struct{}

func (Nop) Report(Report) {}

func (r Reason) Title() string {
	switch r {
	case ReasonJobCircumvent:
		return "Job post edited to circumvent rules"
	case ReasonJobRemoved:
		return "Job post deleted"
	case ReasonJobFrequency:
		return "Job post rejected for posting too often"
	case ReasonUserWarn:
		return "Message flagged by members"
	case ReasonUserDelete:
		return "Message deleted by member votes"
	case ReasonLowEffortQuestionRemoved:
		return "Low-effort question moved to a private thread"
	default:
		return string(r)
	}
}
