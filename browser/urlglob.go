package browser

import (
	"regexp"
	"strings"
)

// CompileURLGlob turns a URL glob into an anchored regexp.
//
//	**      any characters, including "/"
//	*       any characters except "/"
//	{a,b}   either alternative
//
// Everything else matches literally.
func CompileURLGlob(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	inGroup := false
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch {
		case c == '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case c == '{' && !inGroup:
			inGroup = true
			b.WriteString("(?:")
		case c == '}' && inGroup:
			inGroup = false
			b.WriteString(")")
		case c == ',' && inGroup:
			b.WriteString("|")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// MatchURL reports whether url matches the glob pattern.
func MatchURL(pattern, url string) (bool, error) {
	re, err := CompileURLGlob(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(url), nil
}
