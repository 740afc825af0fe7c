package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockDay(t *testing.T) {
	assert.Equal(t, 1, Clock{Hours: 0}.Day())
	assert.Equal(t, 1, Clock{Hours: 23.5}.Day())
	assert.Equal(t, 2, Clock{Hours: 24}.Day())
	assert.Equal(t, 4, Clock{Hours: 80}.Day())
}

func TestClockTimeOfDay(t *testing.T) {
	cases := []struct {
		hours float64
		want  string
	}{
		{0, "night"},
		{5.9, "night"},
		{6, "morning"},
		{11.5, "morning"},
		{12, "afternoon"},
		{16.9, "afternoon"},
		{17, "evening"},
		{20.5, "evening"},
		{21, "night"},
		{30, "morning"}, // 06:00 on day 2
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Clock{Hours: tc.hours}.TimeOfDay(), "hours=%v", tc.hours)
	}
}
