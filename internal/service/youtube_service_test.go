package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestShortsTitle(t *testing.T) {
	assert.Equal(t, "Keep going #Shorts", ShortsTitle("Keep going #Motivation #Mindset\nsecond line"))
	assert.Equal(t, "#Shorts", ShortsTitle("#Motivation"))
	assert.Equal(t, "#Shorts", ShortsTitle(""))

	long := ShortsTitle(strings.Repeat("word ", 40))
	assert.True(t, strings.HasSuffix(long, "... #Shorts"), long)
	assert.LessOrEqual(t, utf8.RuneCountInString(strings.TrimSuffix(long, " #Shorts")), maxShortsTitle)
}

func TestHashtags(t *testing.T) {
	assert.Equal(t, []string{"Motivation", "Mindset"}, hashtags("Keep going #Motivation # #Mindset"))
	assert.Empty(t, hashtags("no tags here"))
}
