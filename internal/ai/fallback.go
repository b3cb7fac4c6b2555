package ai

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/kbtriage/backend/internal/utils"
)

const (
	LaptopEscalationReply = "Issue Summary: User is experiencing issues with their laptop not functioning properly.\n" +
		"Next Steps: This issue will be navigated to the IT Support team for resolution."
	GreetingReply   = "Hello there! How can I assist you today?"
	TrackerFAQReply = "I can help you with Jira-related queries. You can ask me about issues, projects, or workflows!"
	HelpReply       = "I'm here to help! You can ask me about Jira, project management, or anything else you need assistance with."
	ThanksReply     = "You're welcome! Is there anything else I can help you with?"

	genericNextSteps = "This issue has been categorized and will be navigated to the appropriate team for resolution."
	summaryRunes     = 50
	longInputRunes   = 20
)

var smallTalkReplies = []string{
	"That's interesting! Tell me more about that.",
	"I understand. How else can I assist you?",
	"Thanks for sharing that with me. Do you have any other questions?",
	"I'm still learning, but I'll do my best to help. Can you rephrase that?",
	"That's a great question! Let me think about how I can help with that.",
}

// Fallback is the deterministic rule-based responder used whenever the
// provider is missing or fails. Only the small-talk bucket is random.
type Fallback struct {
	pick func(n int) int
}

func NewFallback() *Fallback {
	return &Fallback{pick: rand.IntN}
}

// Reply always returns a non-empty string.
func (f *Fallback) Reply(input string) string {
	lower := strings.ToLower(input)

	if lower == "my laptop is not working" {
		return LaptopEscalationReply
	}
	if containsAny(lower, "hello", "hi", "hey") {
		return GreetingReply
	}
	if containsAny(lower, "jira", "issue", "project") {
		return TrackerFAQReply
	}
	if strings.Contains(lower, "help") {
		return HelpReply
	}
	if strings.Contains(lower, "thank") {
		return ThanksReply
	}
	if len([]rune(lower)) > longInputRunes {
		return fmt.Sprintf("Issue Summary: %s...\nNext Steps: %s", utils.Truncate(input, summaryRunes), genericNextSteps)
	}

	pick := f.pick
	if pick == nil {
		pick = rand.IntN
	}
	return smallTalkReplies[pick(len(smallTalkReplies))]
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
