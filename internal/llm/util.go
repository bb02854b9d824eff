package llm

import "strings"

const codeFence = "```"

// CleanJSONBlock reduces a model reply to the JSON it carries. Models wrap
// the object in a markdown fence or put a sentence before it ("Here is the
// evaluation:") even in JSON mode; both are dropped.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if start := strings.Index(text, codeFence); start >= 0 {
		body := text[start+len(codeFence):]
		if end := strings.LastIndex(body, codeFence); end >= 0 {
			body = body[:end]
		}
		text = dropLanguageTag(body)
	}

	return trimToObject(strings.TrimSpace(text))
}

// dropLanguageTag removes a fence info string such as "json" on the first line
func dropLanguageTag(body string) string {
	idx := strings.Index(body, "\n")
	if idx < 0 {
		return body
	}
	tag := strings.TrimSpace(body[:idx])
	if len(tag) < 20 && !strings.ContainsAny(tag, " {[") {
		return body[idx+1:]
	}
	return body
}

// trimToObject cuts prose around a JSON object. Arrays pass through.
func trimToObject(text string) string {
	if strings.HasPrefix(text, "[") {
		return text
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
