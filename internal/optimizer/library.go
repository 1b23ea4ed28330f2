package optimizer

import (
	"fmt"
	"strings"
)

// genericPromptMaxLen is the length below which a prompt is judged too
// generic to be worth iterating from.
const genericPromptMaxLen = 150

// IsGenericPrompt reports whether a prompt is too thin to test: shorter than
// the generic threshold or a bare "extract the X" template.
func IsGenericPrompt(prompt string) bool {
	p := strings.TrimSpace(prompt)
	if p == "" {
		return true
	}
	if len(p) < genericPromptMaxLen {
		return true
	}
	return strings.HasPrefix(strings.ToLower(p), "extract the ") && len(p) < 2*genericPromptMaxLen
}

// libraryTemplates maps field types to example instruction templates. The
// %s verbs take the field name.
var libraryTemplates = map[string]string{
	"text": "Extract the %[1]s from the document. Look for it near headings, labeled clauses, or summary tables where the field or a close synonym appears. Return the value exactly as written, trimmed of surrounding punctuation. If the document does not state the %[1]s anywhere, return \"Not Present\". Do not substitute a related but different field.",
	"number": "Extract the %[1]s as a number. It usually appears next to its label or a synonym of it, possibly with a currency symbol, percent sign, or thousands separators. Return only the numeric value without symbols or separators. If the document does not state the %[1]s, return \"Not Present\". Do not return a different numeric field that happens to be nearby.",
	"date": "Extract the %[1]s from the document. Dates may be written numerically or spelled out; search near the field's label and in dated headers or signature blocks. Return the date in YYYY-MM-DD format. If the document does not state the %[1]s, return \"Not Present\". Do not return a different date such as a signing or amendment date unless that is the field asked for.",
	"boolean": "Determine whether the document states the %[1]s. Look for an explicit yes/no statement under the field's label or a variant of it, a checked or unchecked box, or clause language that affirms or denies it. Return the single word \"Yes\" or \"No\". If the document is silent on the %[1]s, return \"Not Present\". Do not infer the answer from unrelated clauses.",
	"list": "Extract all values of the %[1]s from the document as a list. Items may appear in a bulleted list, a table column, or an enumerated clause, under the field's label or a variant of it; collect every distinct item. Return the items separated by \" | \". If the document lists none, return \"Not Present\". Do not merge distinct items or split a single item into several.",
}

const defaultLibraryTemplate = "Extract the %[1]s from the document. State where the field typically appears, check labeled sections and tables, and accept common synonyms of the field name. Return the value exactly as the document states it. If the document does not contain the %[1]s, return \"Not Present\". Do not return a similar but different field."

// LibraryPrompt returns the example instruction for a field type, or ok=false
// when the type has no library entry.
func LibraryPrompt(fieldType, fieldName string) (string, bool) {
	tmpl, ok := libraryTemplates[strings.ToLower(strings.TrimSpace(fieldType))]
	if !ok {
		return "", false
	}
	return fmt.Sprintf(tmpl, fieldName), true
}

// FallbackPrompt always returns a usable instruction, falling back to a
// type-agnostic template for unknown field types.
func FallbackPrompt(fieldType, fieldName string) string {
	if p, ok := LibraryPrompt(fieldType, fieldName); ok {
		return p
	}
	return fmt.Sprintf(defaultLibraryTemplate, fieldName)
}
