package aggregate

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"

	"PriceRadar/internal/canonical"
)

// variantWords distinguish models that otherwise share a name. Two titles
// that disagree on any of them never describe the same product.
var variantWords = map[string]struct{}{
	"pro": {}, "max": {}, "plus": {}, "ultra": {}, "mini": {}, "lite": {},
	"slim": {}, "digital": {}, "disc": {}, "oled": {}, "se": {}, "air": {},
	"neo": {}, "fe": {}, "5g": {}, "4g": {},
}

var sizeToken = regexp.MustCompile(`^\d+(?:gb|tb|mb)$`)

// Similarity scores two titles in [0,1]: 0.7 of the token Jaccard index plus
// 0.3 of the Jaro-Winkler similarity of their sorted token keys.
func Similarity(a, b string) float64 {
	return tokenSimilarity(canonical.Tokens(a), canonical.Tokens(b))
}

func tokenSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA, setB := toSet(a), toSet(b)
	if variantMismatch(setA, setB) {
		return 0
	}

	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	jaccard := float64(inter) / float64(union)

	jw := matchr.JaroWinkler(canonical.TokenKey(a), canonical.TokenKey(b), false)
	return 0.7*jaccard + 0.3*jw
}

func variantMismatch(a, b map[string]struct{}) bool {
	for t := range variantWords {
		_, inA := a[t]
		_, inB := b[t]
		if inA != inB {
			return true
		}
	}
	return sizeConflict(sizes(a), sizes(b))
}

// sizes collects storage and memory tokens such as "128gb".
func sizes(set map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for t := range set {
		if sizeToken.MatchString(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

// sizeConflict holds when neither title's sizes contain the other's. A title
// that names no size, or only some of them, does not conflict.
func sizeConflict(a, b map[string]struct{}) bool {
	return !subset(a, b) && !subset(b, a)
}

func subset(a, b map[string]struct{}) bool {
	for t := range a {
		if _, ok := b[t]; !ok {
			return false
		}
	}
	return true
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// accessoryWords match whole tokens (or a plural "s"); multi-word entries
// match consecutive tokens.
var accessoryWords = []string{
	"case", "cover", "back cover", "tempered glass", "screen protector",
	"pouch", "wallet", "strap", "wristband", "charger cable", "usb cable",
	"protector", "skin", "sticker", "mount", "holder", "stand", "stylus pen",
	"screen guard",
}

// IsAccessory reports whether title looks like an accessory for the product
// searched by query. Queries that themselves ask for an accessory disable it.
func IsAccessory(title, query string) bool {
	if containsAccessory(query) {
		return false
	}
	return containsAccessory(title)
}

func containsAccessory(text string) bool {
	tokens := toSet(canonical.Tokens(text))
	joined := " " + strings.Join(canonical.Tokens(text), " ") + " "
	for _, w := range accessoryWords {
		if strings.Contains(w, " ") {
			if strings.Contains(joined, " "+w+" ") {
				return true
			}
			continue
		}
		if _, ok := tokens[w]; ok {
			return true
		}
		if _, ok := tokens[w+"s"]; ok {
			return true
		}
	}
	return false
}
