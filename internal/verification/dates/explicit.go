package dates

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/internal/verification/sanitize"
)

var explicitLayouts = []string{
	"2006.1.2",
	"2006-1-2",
	"2006/1/2",
	"06.1.2",
}

var koreanDateMarkers = strings.NewReplacer("년", ".", "월", ".", "일", "")

// ParseExplicit reads a caller-supplied due date such as "2026-05-17",
// "2026/5/17", "26.5.17" or "2026년 5월 17일". Years are returned as written;
// misread thousands are corrected by the pregnancy policy, not here.
func ParseExplicit(s string) (domain.DateCandidate, bool) {
	s = sanitize.StripSpace(norm.NFKC.String(s))
	if s == "" {
		return domain.DateCandidate{}, false
	}
	s = strings.TrimSuffix(koreanDateMarkers.Replace(s), ".")

	for _, layout := range explicitLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return domain.CandidateFromTime(t, -1), true
		}
	}
	return domain.DateCandidate{}, false
}
