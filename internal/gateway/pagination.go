package gateway

import (
	"net/url"
	"strconv"
	"strings"
)

// parseLastPage extracts the page number of the rel="last" entry of a Link
// header, e.g.
//
//	<https://api.github.com/repositories/1/commits?per_page=1&page=7>; rel="last"
//
// It reports false when there is no such entry or its URL carries no usable page.
func parseLastPage(linkHeader string) (int, bool) {
	for _, link := range strings.Split(linkHeader, ",") {
		segments := strings.Split(strings.TrimSpace(link), ";")
		if len(segments) < 2 || !hasRel(segments[1:], "last") {
			continue
		}

		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			return 0, false
		}
		u, err := url.Parse(target[1 : len(target)-1])
		if err != nil {
			return 0, false
		}
		page, err := strconv.Atoi(u.Query().Get("page"))
		if err != nil || page < 0 {
			return 0, false
		}
		return page, true
	}
	return 0, false
}

func hasRel(params []string, rel string) bool {
	for _, param := range params {
		key, value, found := strings.Cut(strings.TrimSpace(param), "=")
		if !found || !strings.EqualFold(strings.TrimSpace(key), "rel") {
			continue
		}
		for _, r := range strings.Fields(strings.Trim(strings.TrimSpace(value), `"`)) {
			if r == rel {
				return true
			}
		}
	}
	return false
}
