package posts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithoutKind_DropsOnlyMatchingKind(t *testing.T) {
	failures := []Failure{
		TooFrequent{Tag: TagHiring, LastSent: time.Now()},
		TooLong{Tag: TagForHire, Length: 900, Limit: 600},
		TooFrequent{Tag: TagForHire},
		ReplyOrMention{},
	}

	got := WithoutKind(failures, KindTooFrequent)
	require.Len(t, got, 2)
	assert.Equal(t, KindTooLong, got[0].Kind())
	assert.Equal(t, KindReplyOrMention, got[1].Kind())
	assert.Len(t, failures, 4, "input must not be mutated")
}

func TestFindTooFrequent(t *testing.T) {
	_, ok := FindTooFrequent([]Failure{MissingType{}})
	assert.False(t, ok)

	tf, ok := FindTooFrequent([]Failure{MissingType{}, TooFrequent{Tag: TagHiring}})
	require.True(t, ok)
	assert.Equal(t, TagHiring, tf.Tag)
}

func TestTagsAndAnyHasTag(t *testing.T) {
	candidates := []Candidate{
		{Tags: []Tag{TagHiring}},
		{Tags: []Tag{TagForHire, TagHiring}},
	}
	assert.Equal(t, []Tag{TagHiring, TagForHire}, Tags(candidates))
	assert.True(t, AnyHasTag(candidates, TagForHire))
	assert.False(t, AnyHasTag(candidates[:1], TagForHire))
}
