package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "0105551234567", DigitsOnly("0-1055-51234-56-7"))
	assert.Equal(t, "", DigitsOnly("no digits"))
	assert.Equal(t, "๑๒3", DigitsOnly("a๑b๒ 3"))
}

func TestZeroPad(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"1", 5, "00001"},
		{"12345", 5, "12345"},
		{"123456", 5, "123456"},
		{"", 3, "000"},
		{"7", 0, "7"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ZeroPad(tt.in, tt.width), "ZeroPad(%q, %d)", tt.in, tt.width)
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "123", TruncateRunes("12345", 3))
	assert.Equal(t, "12345", TruncateRunes("12345", 0))
	assert.Equal(t, "สา", TruncateRunes("สาขา", 2))
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseSpace("  a\t\tb \n c  "))
	assert.True(t, IsDigits("00001"))
	assert.False(t, IsDigits("0001a"))
	assert.False(t, IsDigits(""))
}
