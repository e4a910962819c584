package protocol

import "strings"

// HasCapability reports whether the capability string caps contains the
// capability name. Capabilities are separated by whitespace or commas; a
// leading '+' marks a mandatory capability and is ignored here.
func HasCapability(name, caps string) bool {
	for _, token := range splitCapabilities(caps) {
		if strings.TrimPrefix(token, "+") == name {
			return true
		}
	}

	return false
}

func splitCapabilities(caps string) []string {
	return strings.FieldsFunc(caps, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// CommonCapabilities returns the capabilities of local that remote also
// lists, in the order of local and separated by single spaces.
func CommonCapabilities(local, remote string) string {
	var common []string

	for _, token := range splitCapabilities(local) {
		name := strings.TrimPrefix(token, "+")
		if HasCapability(name, remote) {
			common = append(common, name)
		}
	}

	return strings.Join(common, " ")
}
