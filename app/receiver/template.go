package receiver

import "regexp"

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Render substitutes {name} placeholders in the template from the item's
// variable map. A referenced variable that is absent from the map fails the
// render; placeholders are never left in the output silently.
func Render(template string, vars map[string]string) (string, error) {
	var missing string

	out := placeholderRe.ReplaceAllStringFunc(template, func(placeholder string) string {
		name := placeholder[1 : len(placeholder)-1]
		value, ok := vars[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return placeholder
		}
		return value
	})

	if missing != "" {
		return "", &RenderError{Template: template, Variable: missing}
	}

	return out, nil
}
