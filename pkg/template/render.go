package template

import "strings"

// Render substitutes {name} placeholders in text with values from vars.
// Unknown placeholders are left in place so a bad template is visible in the
// output rather than silently blanked.
func Render(text string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(text, "{") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	for {
		open := strings.IndexByte(text, '{')
		if open < 0 {
			b.WriteString(text)
			break
		}
		close := strings.IndexByte(text[open:], '}')
		if close < 0 {
			b.WriteString(text)
			break
		}
		close += open

		b.WriteString(text[:open])
		name := text[open+1 : close]
		if value, ok := vars[name]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(text[open : close+1])
		}
		text = text[close+1:]
	}

	return b.String()
}
