package canonical

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	asinExpr = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})(?:[/?]|$)`)
	pidExpr  = regexp.MustCompile(`^[A-Z0-9]{10,}$`)
)

var trackingParams = map[string]struct{}{
	"ref": {}, "ref_": {}, "ref_src": {}, "qid": {}, "sr": {}, "keywords": {}, "dib": {}, "dib_tag": {},
	"crid": {}, "sprefix": {}, "psc": {}, "smid": {}, "linkcode": {}, "tag": {}, "ascsubtag": {},
	"pf_rd_r": {}, "pf_rd_p": {}, "pd_rd_r": {}, "pd_rd_w": {}, "pd_rd_wg": {}, "clnoe": {},
	"fbclid": {}, "gclid": {}, "mc_cid": {}, "mc_eid": {},
}

// CanonicalizeURL reduces a listing link to a stable form and returns the
// retailer product identifier when one is recognized. Amazon and Flipkart links
// collapse to their product id; other links keep their path with tracking
// parameters removed. Relative links stay relative. Malformed input never
// panics: the best-effort stripped string is returned.
func CanonicalizeURL(raw string) (string, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ""
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Opaque != "" {
		return canonicalizeRaw(trimmed)
	}

	host := strings.ToLower(u.Host)
	scheme := strings.ToLower(u.Scheme)
	if host != "" && scheme == "" {
		scheme = "https"
	}

	if host != "" {
		name := strings.ToLower(u.Hostname())
		switch {
		case isAmazon(name):
			if m := asinExpr.FindStringSubmatch(u.Path); m != nil {
				return scheme + "://" + host + "/dp/" + m[1], m[1]
			}
		case strings.Contains(name, "flipkart"):
			if pid := u.Query().Get("pid"); pidExpr.MatchString(pid) {
				path := u.EscapedPath()
				if !strings.Contains(path, "/p/") {
					path = "/product/p/itme"
				}
				return scheme + "://" + host + path + "?pid=" + pid, pid
			}
		}
	}

	var b strings.Builder
	if host != "" {
		b.WriteString(scheme)
		b.WriteString("://")
		b.WriteString(host)
	}
	b.WriteString(u.EscapedPath())
	if q := filterQuery(u.RawQuery); q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	return strings.TrimSpace(b.String()), ""
}

func isAmazon(host string) bool {
	return strings.Contains(host, "amazon.") || strings.Contains(host, "amzn.")
}

// canonicalizeRaw strips text net/url rejects. Stripping may leave a string
// that parses, so any change is fed back until the output is a fixed point.
func canonicalizeRaw(s string) (string, string) {
	stripped := strings.TrimSpace(stripRaw(s))
	if stripped != s {
		return CanonicalizeURL(stripped)
	}
	return stripped, ""
}

// stripRaw handles strings net/url rejects by operating on the text directly.
func stripRaw(s string) string {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	base, query, found := strings.Cut(s, "?")
	if !found {
		return base
	}
	if q := filterQuery(query); q != "" {
		return base + "?" + q
	}
	return base
}

// filterQuery drops tracking parameters while keeping the remaining pairs in
// their original order and encoding.
func filterQuery(raw string) string {
	if raw == "" {
		return ""
	}
	kept := make([]string, 0, 4)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if isTracking(key) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

func isTracking(key string) bool {
	key = strings.ToLower(key)
	if _, ok := trackingParams[key]; ok {
		return true
	}
	return strings.HasPrefix(key, "utm_") || strings.HasPrefix(key, "pf_rd_") || strings.HasPrefix(key, "pd_rd_")
}
