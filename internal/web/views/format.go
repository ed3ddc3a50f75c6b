// Package views holds the templ components for every page. The *_templ.go
// files are generated from the .templ sources with `templ generate`.
package views

//go:generate templ generate

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FileSize formats a byte count with up to two decimals: 0 Bytes, 1.5 KB, 5 MB.
func FileSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	i = min(i, len(sizeUnits)-1)
	v := float64(n) / math.Pow(1024, float64(i))
	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
	return s + " " + sizeUnits[i]
}

// DocumentHref resolves a stored document URL against the API base. Absolute
// URLs are returned unchanged; anything that is not http(s) is dropped.
func DocumentHref(apiBase, stored string) string {
	if stored == "" {
		return ""
	}
	ref, err := url.Parse(stored)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		if ref.Scheme == "http" || ref.Scheme == "https" {
			return ref.String()
		}
		return ""
	}
	base, err := url.Parse(strings.TrimSuffix(apiBase, "/") + "/")
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
