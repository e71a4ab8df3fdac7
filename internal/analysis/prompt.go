package analysis

import (
	"bytes"
	"fmt"
	"strings"

	"zipsight/internal/llm"
	"zipsight/internal/selector"
)

// taskText is the fixed instruction sent with every analysis request.
const taskText = `Analyze the project files below and explain what this codebase does.
Identify the main purpose, how execution flows through the code, where
execution starts, what the project depends on, and what could be improved.`

var responseRules = []string{
	"Respond with a single JSON object and nothing else.",
	"Every field in the response schema is required.",
	"summary: a concise description of what the project does.",
	"entryPoint: the file or function where execution starts.",
	"dependencies: external libraries and services the project relies on.",
	"executionSimulation: a step-by-step walkthrough of a typical run.",
	"suggestions: concrete improvements to the codebase.",
}

// ResultSchema declares the response contract enforced by parseResult.
func ResultSchema() llm.Schema {
	return llm.Schema{Fields: []llm.Field{
		{Name: "summary", Type: llm.TypeString, Required: true, Description: "concise description of what the project does"},
		{Name: "entryPoint", Type: llm.TypeString, Required: true, Description: "file or function where execution starts"},
		{Name: "dependencies", Type: llm.TypeStringArray, Required: true, Description: "external libraries and services the project relies on"},
		{Name: "executionSimulation", Type: llm.TypeString, Required: true, Description: "step-by-step walkthrough of a typical run"},
		{Name: "suggestions", Type: llm.TypeStringArray, Required: true, Description: "concrete improvements to the codebase"},
	}}
}

func buildPrompt(sctx selector.Context) string {
	var buf bytes.Buffer
	writeSection(&buf, "TASK", taskText)
	writeSection(&buf, "RESPONSE RULES", formatList(responseRules))
	writeSection(&buf, "PROJECT FILES", sctx.Text)
	return strings.TrimSpace(buf.String()) + "\n"
}

func formatList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
