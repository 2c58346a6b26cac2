package usecase

import (
	"fmt"
	"strings"
)

// ReplaceCommand builds a perl in-place substitution of oldURL by newURL in
// path. The old URL is matched literally: ordinary runs sit inside \Q...\E and
// the characters perl would interpolate or treat as the delimiter are
// backslash-escaped outside of it.
func ReplaceCommand(path, oldURL, newURL string) string {
	if newURL == "" {
		return ""
	}
	script := fmt.Sprintf(`s#%s#%s#g`, literalPattern(oldURL), replacementEscaper.Replace(newURL))
	return fmt.Sprintf(`perl -pe '%s' -i '%s'`,
		shellQuoteEscaper.Replace(script), shellQuoteEscaper.Replace(path))
}

// interpolated lists what \Q cannot protect: perl expands $ and @ before
// quoting, \ escapes survive as literal backslashes, and # ends the pattern.
const interpolated = `\$@#`

func literalPattern(s string) string {
	var b strings.Builder
	for s != "" {
		i := strings.IndexAny(s, interpolated)
		if i < 0 {
			i = len(s)
		}
		if i > 0 {
			b.WriteString(`\Q`)
			b.WriteString(s[:i])
			b.WriteString(`\E`)
		}
		if i < len(s) {
			b.WriteByte('\\')
			b.WriteByte(s[i])
			i++
		}
		s = s[i:]
	}
	return b.String()
}

var (
	replacementEscaper = strings.NewReplacer(`\`, `\\`, `#`, `\#`, `$`, `\$`, `@`, `\@`)
	shellQuoteEscaper  = strings.NewReplacer(`'`, `'\''`)
)
