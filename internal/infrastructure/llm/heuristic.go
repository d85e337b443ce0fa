package llm

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"PriceRadar/internal/domain"
	"PriceRadar/internal/ports"
)

var (
	ramExpr     = regexp.MustCompile(`(\d+)\s?(gb|mb)\s?(ram)?`)
	storageExpr = regexp.MustCompile(`(\d+)\s?(gb|tb)\s?(rom|storage|ssd|hdd)?`)
	inchExpr    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s?(?:-| )?(?:inch|")`)
	panelExpr   = regexp.MustCompile(`(dynamic amoled|super retina|amoled|oled|lcd|retina)`)
	refreshExpr = regexp.MustCompile(`(\d+)\s?hz`)
	batteryExpr = regexp.MustCompile(`(\d{3,5})\s?mah`)
	cameraExpr  = regexp.MustCompile(`(\d{2,3})\s?mp`)
)

// processors are checked in order; more specific names come first.
var processors = []string{
	"snapdragon 8 gen 3", "snapdragon 8 gen 2", "snapdragon",
	"dimensity 9300", "dimensity 9000", "dimensity",
	"a17 pro", "a16 bionic", "a15",
	"tensor g3", "tensor g2",
	"helio", "exynos",
}

// Heuristic extracts specs from titles with regular expressions. It never
// fails and needs no network, so it backs the chat client.
type Heuristic struct{}

var _ ports.SpecsClient = Heuristic{}

func (Heuristic) ExtractSpecs(_ context.Context, title string) (domain.AttributeMap, error) {
	return extractSpecs(title), nil
}

func (h Heuristic) Compare(ctx context.Context, left, right domain.CanonicalListing) (domain.ComparisonResult, error) {
	l, _ := h.ExtractSpecs(ctx, left.DisplayTitle())
	r, _ := h.ExtractSpecs(ctx, right.DisplayTitle())
	diffs := Diff(l, r)
	return domain.ComparisonResult{
		Left:        l,
		Right:       r,
		Differences: diffs,
		Summary:     summarize(left, right, diffs),
	}, nil
}

func extractSpecs(title string) domain.AttributeMap {
	t := strings.ToLower(title)
	specs := domain.AttributeMap{}

	if m := ramExpr.FindStringSubmatch(t); m != nil {
		if n, _ := strconv.Atoi(m[1]); n <= 32 || m[3] != "" {
			specs["ram"] = m[1] + " GB RAM"
		}
	}

	for _, loc := range storageExpr.FindAllStringSubmatchIndex(t, -1) {
		if strings.HasPrefix(strings.TrimSpace(t[loc[1]:]), "ram") {
			continue
		}
		num, unit := t[loc[2]:loc[3]], t[loc[4]:loc[5]]
		if unit == "tb" {
			specs["storage"] = num + " TB Storage"
			break
		}
		if n, _ := strconv.Atoi(num); n >= 32 {
			specs["storage"] = num + " GB Storage"
			break
		}
	}

	var display []string
	if m := inchExpr.FindStringSubmatch(t); m != nil {
		display = append(display, m[1]+`"`)
	}
	if m := panelExpr.FindStringSubmatch(t); m != nil {
		display = append(display, titleCase(m[1]))
	}
	if m := refreshExpr.FindStringSubmatch(t); m != nil {
		display = append(display, m[1]+"Hz")
	}
	if len(display) > 0 {
		specs["display"] = strings.Join(display, " ")
	}

	for _, p := range processors {
		if strings.Contains(t, p) {
			specs["processor"] = titleCase(p)
			break
		}
	}
	if _, ok := specs["processor"]; !ok && strings.Contains(t, "5g") {
		specs["processor"] = "5G Supported"
	}

	if m := batteryExpr.FindStringSubmatch(t); m != nil {
		specs["battery"] = m[1] + " mAh"
	}
	if m := cameraExpr.FindStringSubmatch(t); m != nil {
		specs["camera"] = m[1] + " MP Main Camera"
	}
	return specs
}

// Diff lists attributes whose values differ, including ones only one side has.
func Diff(left, right domain.AttributeMap) []domain.AttributeDiff {
	names := make(map[string]struct{}, len(left)+len(right))
	for k := range left {
		names[k] = struct{}{}
	}
	for k := range right {
		names[k] = struct{}{}
	}

	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var diffs []domain.AttributeDiff
	for _, k := range keys {
		if left[k] != right[k] {
			diffs = append(diffs, domain.AttributeDiff{Name: k, Left: left[k], Right: right[k]})
		}
	}
	return diffs
}

func summarize(left, right domain.CanonicalListing, diffs []domain.AttributeDiff) string {
	var b strings.Builder
	switch {
	case left.PriceMinor > 0 && right.PriceMinor > 0 && left.PriceMinor < right.PriceMinor:
		fmt.Fprintf(&b, "%s is cheaper.", left.DisplayTitle())
	case left.PriceMinor > 0 && right.PriceMinor > 0 && right.PriceMinor < left.PriceMinor:
		fmt.Fprintf(&b, "%s is cheaper.", right.DisplayTitle())
	}
	if len(diffs) == 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("No specification differences found in the titles.")
		return b.String()
	}
	names := make([]string, 0, len(diffs))
	for _, d := range diffs {
		names = append(names, d.Name)
	}
	if b.Len() > 0 {
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "They differ on %s.", strings.Join(names, ", "))
	return b.String()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
