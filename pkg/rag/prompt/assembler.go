package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"citizen-portal-be/internal/entity"
	"citizen-portal-be/pkg/rag/selector"
)

// DefaultMaxChars bounds the assembled prompt when no explicit budget is configured.
const DefaultMaxChars = 12000

// Assembler builds the single text prompt sent to the language model.
// Section order is fixed: role, department information, conversation, question.
type Assembler struct {
	portalName string
	maxChars   int
}

// NewAssembler creates an assembler for the named portal.
// A non-positive maxChars falls back to DefaultMaxChars.
func NewAssembler(portalName string, maxChars int) *Assembler {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Assembler{
		portalName: portalName,
		maxChars:   maxChars,
	}
}

// Assemble renders the prompt. When it would exceed the character budget the oldest
// conversation lines are dropped first, then departments from the end of the selection.
// The role section and the question are always kept.
func (a *Assembler) Assemble(query string, selection selector.Selection, history []entity.ConversationMessage) string {
	departments := selection.Departments
	lines := historyLines(history)

	out := a.render(query, selection.Kind, departments, lines)
	for utf8.RuneCountInString(out) > a.maxChars && len(lines) > 0 {
		lines = lines[1:]
		out = a.render(query, selection.Kind, departments, lines)
	}
	for utf8.RuneCountInString(out) > a.maxChars && len(departments) > 0 {
		departments = departments[:len(departments)-1]
		out = a.render(query, selection.Kind, departments, lines)
	}
	return out
}

func (a *Assembler) render(query string, kind selector.SelectionKind, departments []entity.DepartmentRecord, lines []string) string {
	var prompt strings.Builder

	a.writeRole(&prompt)
	writeDepartments(&prompt, kind, departments)
	writeConversation(&prompt, lines)
	writeQuestion(&prompt, query)

	return prompt.String()
}

func (a *Assembler) writeRole(prompt *strings.Builder) {
	prompt.WriteString("<role>\n")
	fmt.Fprintf(prompt, "You are the virtual assistant of the %s, helping citizens find the right government department and service.\n", a.portalName)
	prompt.WriteString("Follow these rules:\n")
	prompt.WriteString("1. Keep every answer under 150 words.\n")
	prompt.WriteString("2. Cite specific department names, links and contact details when they are relevant.\n")
	prompt.WriteString("3. Never fabricate information. Only use facts present in the department information below; if the answer is not there, say so and point to the most relevant department.\n")
	prompt.WriteString("4. For emergencies tell the citizen to call the local emergency number immediately. Politely redirect questions unrelated to government services.\n")
	prompt.WriteString("5. Maintain a professional, courteous tone.\n")
	prompt.WriteString("</role>\n\n")
}

func writeDepartments(prompt *strings.Builder, kind selector.SelectionKind, departments []entity.DepartmentRecord) {
	prompt.WriteString("<departments>\n")
	switch {
	case len(departments) == 0:
		prompt.WriteString("No department information was provided.\n")
	case kind == selector.SelectionUnranked:
		prompt.WriteString("Summary of all departments (no specific match for this question):\n")
		writeJSON(prompt, departments)
	default:
		prompt.WriteString("Most relevant departments for this question:\n")
		writeJSON(prompt, departments)
	}
	prompt.WriteString("</departments>\n\n")
}

func writeJSON(prompt *strings.Builder, departments []entity.DepartmentRecord) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(departments); err != nil {
		for _, d := range departments {
			prompt.WriteString("- " + d.Name + "\n")
		}
		return
	}
	prompt.Write(buf.Bytes())
}

func writeConversation(prompt *strings.Builder, lines []string) {
	prompt.WriteString("<conversation>\n")
	if len(lines) == 0 {
		prompt.WriteString("(no previous messages)\n")
	}
	for _, line := range lines {
		prompt.WriteString(line)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</conversation>\n\n")
}

func writeQuestion(prompt *strings.Builder, query string) {
	prompt.WriteString("<citizen_question>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</citizen_question>\n\n")
	prompt.WriteString("Answer the citizen's question following the rules above:")
}

func historyLines(history []entity.ConversationMessage) []string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		speaker := "Assistant"
		if msg.Sender == entity.SenderUser {
			speaker = "User"
		}
		lines = append(lines, speaker+": "+msg.Text)
	}
	return lines
}
