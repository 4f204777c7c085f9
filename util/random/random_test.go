package random

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeq(t *testing.T) {
	s := Seq(32)
	assert.Len(t, s, 32)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-Za-z]+$`), s)
	assert.NotEqual(t, s, Seq(32))
	assert.Empty(t, Seq(0))
}
