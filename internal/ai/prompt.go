package ai

import "fmt"

const promptTemplate = `You are an AI assistant helping with Jira issue summarization.
The user has provided the following input: %q

Please respond in a helpful and professional manner. If the input is small talk or a question,
answer conversationally in one or two sentences. If it appears to be an issue report,
summarize it and say which team it will be navigated to.

For issue reports, format your response exactly like this:
Issue Summary: [brief summary of the issue]
Next Steps: This issue will be navigated to [appropriate team] for resolution.`

// BuildPrompt fills the fixed template with the user's text.
func BuildPrompt(input string) string {
	return fmt.Sprintf(promptTemplate, input)
}
