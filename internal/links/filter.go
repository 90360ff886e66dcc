package links

import (
	"net/url"
	"regexp"
	"strings"

	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
)

// targetFilter decides which pages may be proposed as link targets.
type targetFilter struct {
	exclude      *regexp.Regexp
	skipHomepage bool
	skipSamePath bool
}

func newTargetFilter(opts Options) (*targetFilter, error) {
	f := &targetFilter{skipHomepage: opts.SkipHomepage, skipSamePath: opts.SkipSamePath}
	if opts.ExcludeRegex != "" {
		re, err := regexp.Compile(opts.ExcludeRegex)
		if err != nil {
			return nil, lmerrors.InvalidPattern(opts.ExcludeRegex, err)
		}
		f.exclude = re
	}
	return f, nil
}

// excluded reports whether a target is never a candidate, for any source.
func (f *targetFilter) excluded(target page) bool {
	if f.exclude != nil && f.exclude.MatchString(target.url) {
		return true
	}
	return f.skipHomepage && target.path == "/"
}

// allowed reports whether target may be proposed for source.
func (f *targetFilter) allowed(source, target page) bool {
	if source.id == target.id {
		return false
	}
	if f.skipSamePath && source.path != "" && source.path == target.path {
		return false
	}
	return true
}

// urlPath returns the path of raw with the trailing slash stripped, "/" for
// the root, and "" when raw has no usable path.
func urlPath(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	p := u.Path
	if p == "" && u.Host != "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
