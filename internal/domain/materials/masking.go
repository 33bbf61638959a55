package materials

import "unicode/utf8"

const maskToken = "****"

// MaskIdentifier keeps the first and last two runes and replaces the middle with a
// fixed token. Identifiers of four runes or fewer keep every rune and get the token appended.
func MaskIdentifier(identifier string) string {
	if utf8.RuneCountInString(identifier) <= 4 {
		return identifier + maskToken
	}
	runes := []rune(identifier)
	return string(runes[:2]) + maskToken + string(runes[len(runes)-2:])
}

// Presented returns the copy of m a viewer is shown: idle identifiers are masked.
func Presented(m Material) Material {
	if m.Status == StatusIdle {
		m.Identifier = MaskIdentifier(m.Identifier)
	}
	return m
}

func PresentAll(items []Material) []Material {
	out := make([]Material, len(items))
	for i, m := range items {
		out[i] = Presented(m)
	}
	return out
}

// Visible reports whether viewer may see m at all.
func Visible(m Material, viewer *Viewer) bool {
	if viewer == nil || viewer.Admin {
		return true
	}
	return m.Status == StatusIdle || m.Holder == viewer.Username
}
