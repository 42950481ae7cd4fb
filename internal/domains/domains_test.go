package domains

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestDomain(t *testing.T) {
	assert.Equal(t, "gmail.com", Domain("Jane.Doe@GMAIL.com"))
	assert.Equal(t, "acme.io", Domain("Recruiting <jobs@acme.io>"))
	assert.Equal(t, "", Domain("no-domain@"))
	assert.Equal(t, "", Domain("plainstring"))
}

func TestChecker_Contains(t *testing.T) {
	c := NewChecker([]string{" @Example.COM ", "gmail.com", ""}, zaptest.NewLogger(t))

	assert.True(t, c.Contains("a@example.com"))
	assert.True(t, c.Contains("a@mail.example.com"))
	assert.True(t, c.Contains("Jane <jane@gmail.com>"))
	assert.False(t, c.Contains("a@notexample.com"))
	assert.False(t, c.Contains("nobody"))
}

func TestChecker_Empty(t *testing.T) {
	c := NewChecker(nil, nil)
	assert.False(t, c.Contains("a@gmail.com"))
}
