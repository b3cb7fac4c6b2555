package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackLaptopEscalationExact(t *testing.T) {
	f := NewFallback()
	for i := 0; i < 3; i++ {
		assert.Equal(t, LaptopEscalationReply, f.Reply("my laptop is not working"))
		assert.Equal(t, LaptopEscalationReply, f.Reply("My Laptop Is Not Working"))
	}
}

func TestFallbackRules(t *testing.T) {
	f := NewFallback()
	cases := []struct {
		in   string
		want string
	}{
		{"hello", GreetingReply},
		{"Hey team", GreetingReply},
		{"where is my jira board", TrackerFAQReply},
		{"new project", TrackerFAQReply},
		{"help", HelpReply},
		{"thank you", ThanksReply},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, f.Reply(tc.in), "input %q", tc.in)
	}
}

func TestFallbackLongInputBecomesTriage(t *testing.T) {
	f := NewFallback()
	in := "The build server keeps failing every night around 2am with OOM errors"
	got := f.Reply(in)

	assert.True(t, strings.HasPrefix(got, "Issue Summary: The build server keeps failing every night around ...\n"), got)
	assert.Contains(t, got, "Next Steps: "+genericNextSteps)
	assert.Equal(t, got, f.Reply(in))
}

func TestFallbackSmallTalkUsesPicker(t *testing.T) {
	f := &Fallback{pick: func(n int) int { return n - 1 }}
	assert.Equal(t, smallTalkReplies[len(smallTalkReplies)-1], f.Reply("ok"))

	f = NewFallback()
	for i := 0; i < 20; i++ {
		assert.Contains(t, smallTalkReplies, f.Reply("cool"))
	}
}

func TestFallbackIsTotal(t *testing.T) {
	f := NewFallback()
	for _, in := range []string{"", " ", "?", strings.Repeat("z", 500)} {
		assert.NotEmpty(t, f.Reply(in), "input %q", in)
	}
}
