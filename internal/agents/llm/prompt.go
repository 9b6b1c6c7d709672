package llm

import (
	"fmt"
	"strings"
)

func reviewPrompt(path, code string) string {
	var b strings.Builder
	b.WriteString("You are a STRICT code reviewer. Analyze this code.\n\n")
	fmt.Fprintf(&b, "File: %s\n\n", path)
	b.WriteString("Code:\n")
	b.WriteString(code)
	b.WriteString("\n\n")
	b.WriteString("Find every error: syntax errors, undefined names, division by zero, missing imports, logic bugs, exception handling.\n")
	b.WriteString(`Respond ONLY with JSON: {"issues": ["error 1", "error 2"], "decision": "REQUIRES_FIX"}` + "\n")
	b.WriteString(`Use "ACCEPTED" with an empty issues list only if the code has no problems at all.` + "\n")
	return b.String()
}

func fixPrompt(path, code string, issues []string) string {
	var b strings.Builder
	b.WriteString("Fix the following code based on the identified issues.\n\n")
	fmt.Fprintf(&b, "File: %s\n\n", path)
	b.WriteString("Issues to fix:\n")
	for _, issue := range issues {
		fmt.Fprintf(&b, "- %s\n", issue)
	}
	b.WriteString("\nOriginal code:\n")
	b.WriteString(code)
	b.WriteString("\n\nProvide ONLY the fixed code, without explanations or markdown.\n")
	return b.String()
}
