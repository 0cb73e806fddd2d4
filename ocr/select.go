package ocr

import (
	"sort"
	"strings"

	"github.com/KPoloska/dac-agent/document"
)

// Page selection sources recorded in metadata.
const (
	SourceUser      = "user"
	SourceAnchors   = "auto_from_text"
	SourceFirstPage = "fallback_first_pages"
)

// ShouldOCRDocument reports whether the primary document needs OCR: the
// feature is on and either its native text is below minChars or the caller
// named explicit pages.
func ShouldOCRDocument(enabled bool, nativeChars, minChars int, explicitPages []int) bool {
	return enabled && (nativeChars < minChars || len(explicitPages) > 0)
}

// IsScanned reports whether an evidence PDF looks image-based: too little text
// and at least imageThreshold images. Negative limits count as zero.
func IsScanned(textChars, minChars, imageCount, imageThreshold int) bool {
	return textChars < max(0, minChars) && imageCount >= max(0, imageThreshold)
}

// Selection is the set of pages chosen for OCR and how they were chosen.
type Selection struct {
	Pages      []int  `json:"pages"`
	Source     string `json:"source"`
	Candidates []int  `json:"candidates,omitempty"`
}

// SelectPages picks the pages to OCR. Explicit pages win (deduplicated,
// sorted, negatives dropped). Otherwise, when the document has any native
// text, pages mentioning one of the anchors are used, capped at
// max(1, maxPages). Failing both, the first maxPages pages are used.
func SelectPages(doc document.Document, anchors []string, maxPages int, explicit []int) Selection {
	if len(explicit) > 0 {
		seen := map[int]bool{}
		var pages []int
		for _, p := range explicit {
			if p >= 0 && !seen[p] {
				seen[p] = true
				pages = append(pages, p)
			}
		}
		sort.Ints(pages)
		if len(pages) > 0 {
			return Selection{Pages: pages, Source: SourceUser}
		}
	}
	if strings.TrimSpace(doc.AllText()) != "" {
		seen := map[int]bool{}
		var cand []int
		for _, a := range anchors {
			for _, p := range doc.FindPagesContaining(a, true) {
				if !seen[p] {
					seen[p] = true
					cand = append(cand, p)
				}
			}
		}
		sort.Ints(cand)
		if len(cand) > 0 {
			limit := max(1, maxPages)
			chosen := append([]int(nil), cand[:min(limit, len(cand))]...)
			return Selection{Pages: chosen, Source: SourceAnchors, Candidates: cand}
		}
	}
	return Selection{Pages: FirstPages(maxPages, doc.PageCount()), Source: SourceFirstPage}
}

// FirstPages returns 0..min(n, pageCount)-1.
func FirstPages(n, pageCount int) []int {
	n = min(n, pageCount)
	out := make([]int, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, i)
	}
	return out
}
