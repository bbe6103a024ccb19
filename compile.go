package ope

import (
	"fmt"
	"strings"
)

// CompiledPrompt is the final system/user text plus decoding parameters.
type CompiledPrompt struct {
	System   string   `json:"system"`
	User     string   `json:"user"`
	Decoding Decoding `json:"decoding"`
}

// Text returns the system/user pair without decoding parameters.
func (c CompiledPrompt) Text() CompiledText {
	return CompiledText{System: c.System, User: c.User}
}

// TaskMarker introduces the request text in the compiled user message.
const TaskMarker = "TASK:"

// OutputInstruction is appended to every user message.
const OutputInstruction = `Respond with a single JSON object with exactly these fields:
- answer: string
- citations: string[] (URLs or source identifiers; use [] or ['unknown'] if none)
Return only the JSON object, without surrounding prose or code fences.`

// Compile renders the IR into system and user text.
func Compile(ir PromptIR, enhanced string, overlay *ContextOverlay) CompiledPrompt {
	return CompiledPrompt{
		System:   compileSystem(ir, overlay),
		User:     compileUser(enhanced, overlay),
		Decoding: resolveDecoding(overlay),
	}
}

func compileSystem(ir PromptIR, overlay *ContextOverlay) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ROLE: %s\n", ir.Role)
	fmt.Fprintf(&b, "OBJECTIVE: %s\n", ir.Objective)
	fmt.Fprintf(&b, "CONSTRAINTS: %s\n", strings.Join(ir.Constraints, "; "))
	fmt.Fprintf(&b, "STYLE: %s\n", strings.Join(ir.Style, "; "))
	fmt.Fprintf(&b, "STEPS: %s", strings.Join(ir.Steps, " -> "))

	if len(ir.Examples) > 0 {
		b.WriteString("\n\nEXAMPLES:")
		for i, ex := range ir.Examples {
			fmt.Fprintf(&b, "\nExample %d:\nUser: %s\nAssistant: %s", i+1, ex.User, ex.Assistant)
		}
	}
	if overlay != nil && overlay.SystemSuffix != "" {
		b.WriteString("\n\n")
		b.WriteString(overlay.SystemSuffix)
	}
	return b.String()
}

func compileUser(enhanced string, overlay *ContextOverlay) string {
	user := TaskMarker + " " + enhanced + "\n\n" + OutputInstruction
	if overlay != nil && overlay.UserPrefix != "" {
		user = overlay.UserPrefix + "\n\n" + user
	}
	return user
}

// TaskText extracts the request text from a compiled user message: everything
// after the task marker up to the output instruction.
func TaskText(user string) string {
	idx := strings.Index(user, TaskMarker)
	if idx < 0 {
		return strings.TrimSpace(user)
	}
	rest := user[idx+len(TaskMarker):]
	if end := strings.LastIndex(rest, "\n\n"+OutputInstruction); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
