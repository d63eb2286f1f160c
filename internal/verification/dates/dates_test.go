package dates

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetag/safetag-backend/internal/verification/domain"
)

func TestNormalizeYear(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{3026, 2026},
		{3999, 2999},
		{2026, 2026},
		{5, 2005},
		{49, 2049},
		{50, 1950},
		{87, 1987},
		{999, 999},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeYear(tt.in), "year %d", tt.in)
	}
}

func TestFirst(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		offset int
		wantOK bool
	}{
		{"dotted", "발급일 2025.11.03", "2025-11-03", 4, true},
		{"korean markers", "2026년 5월 17일", "2026-05-17", 0, true},
		{"slashes", "due 2026/05/17", "2026-05-17", 4, true},
		{"compact", "예정일 20260517", "2026-05-17", 4, true},
		{"two digit year", "26.5.17", "2026-05-17", 0, true},
		{"misread thousand", "3026.05.17", "2026-05-17", 0, true},
		{"invalid skipped", "2026.13.45 2027.01.02", "2027-01-02", 11, true},
		{"no date", "장애인 복지카드", "", 0, false},
		{"empty", "", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := First(tt.text)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.offset, got.Offset)
		})
	}
}

func TestCompactAt_RequiresExactlyEightDigits(t *testing.T) {
	text := "a20260517b 202605170 2026051"
	locs := digitRunPattern.FindAllStringIndex(text, -1)
	require.Len(t, locs, 3)

	c, ok := compactAt(text, locs[0], 0)
	require.True(t, ok)
	assert.Equal(t, "2026-05-17", c.String())
	assert.Equal(t, 1, c.Offset)

	_, ok = compactAt(text, locs[1], 0)
	assert.False(t, ok)
	_, ok = compactAt(text, locs[2], 0)
	assert.False(t, ok)
}

func TestWindow_CountsRunes(t *testing.T) {
	s := "가나다라마"
	start, end := window(s, len("가나"), len("가나다"), 1)
	assert.Equal(t, "나다라", s[start:end])

	start, end = window(s, 0, len(s), 10)
	assert.Equal(t, s, s[start:end])
}

func TestAll(t *testing.T) {
	got := All("2025.12.01 / 2026.02.30 / 2026.03.01")
	require.Len(t, got, 2)
	assert.Equal(t, "2025-12-01", got[0].String())
	assert.Equal(t, "2026-03-01", got[1].String())
}

func TestAnchored(t *testing.T) {
	strategy := Anchored(80, Spaced("분만예정일"), Spaced("출산예정일"), Spaced("예정일"))

	t.Run("split keyword", func(t *testing.T) {
		text := "발급일 2025.11.03" + strings.Repeat("가", 100) + " 분 만 예 정 일 : 2026 년 5 월 17 일"
		got, ok := strategy(text)
		require.True(t, ok)
		assert.Equal(t, "2026-05-17", got.String())
	})

	t.Run("offset in whole text", func(t *testing.T) {
		got, ok := strategy("메모 분만예정일 2026.05.17")
		require.True(t, ok)
		assert.Equal(t, 9, got.Offset)
	})

	t.Run("date outside window", func(t *testing.T) {
		_, ok := strategy("분만예정일" + strings.Repeat("가", 100) + "2026.05.17")
		assert.False(t, ok)
	})

	t.Run("later keyword occurrence", func(t *testing.T) {
		text := "예정일 미정" + strings.Repeat("가", 100) + "예정일 2026.06.01"
		got, ok := strategy(text)
		require.True(t, ok)
		assert.Equal(t, "2026-06-01", got.String())
	})
}

func TestKeywordPresent(t *testing.T) {
	strategy := KeywordPresent(Literals("분만예정일", "예정일")...)
	far := strings.Repeat("가", 200)

	got, ok := strategy("예정일 확인 요망" + far + "2026.05.17")
	require.True(t, ok)
	assert.Equal(t, "2026-05-17", got.String())

	got, ok = strategy("분 만 예 정 일" + far + "2026.05.17")
	require.True(t, ok)
	assert.Equal(t, "2026-05-17", got.String())

	_, ok = strategy("발급일" + far + "2026.05.17")
	assert.False(t, ok)
}

func TestUnanchored(t *testing.T) {
	got, ok := Unanchored()("유효기간 2O27.l2.3l")
	require.True(t, ok)
	assert.Equal(t, "2027-12-31", got.String())
}

func TestFuturePicker(t *testing.T) {
	today := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	strategy := FuturePicker(today, 540)

	got, ok := strategy("2025.12.01 2027.12.01 2026.03.01 2026.02.01")
	require.True(t, ok)
	assert.Equal(t, "2026-02-01", got.String())

	got, ok = strategy("2026.01.10 2026.01.11")
	require.True(t, ok)
	assert.Equal(t, "2026-01-10", got.String())

	_, ok = strategy("2025.12.01 2027.12.01")
	assert.False(t, ok)
}

func TestFirstOf(t *testing.T) {
	never := func(string) (domain.DateCandidate, bool) { return domain.DateCandidate{}, false }

	c, path, trace, ok := FirstOf("2026.05.17",
		Step{Path: domain.SourceKeywordAnchored, Find: never},
		Step{Path: domain.SourceUnanchored, Find: Unanchored()},
		Step{Path: domain.SourceFuturePick, Find: never},
	)
	require.True(t, ok)
	assert.Equal(t, "2026-05-17", c.String())
	assert.Equal(t, domain.SourceUnanchored, path)
	assert.Equal(t, []string{"keyword_anchored", "unanchored"}, trace)

	_, _, trace, ok = FirstOf("none", Step{Path: domain.SourceKeywordAnchored, Find: never})
	assert.False(t, ok)
	assert.Equal(t, []string{"keyword_anchored"}, trace)
}

func TestParseExplicit(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"2026-05-17", "2026-05-17", true},
		{"2026/5/17", "2026-05-17", true},
		{"2026.05.17", "2026-05-17", true},
		{"26.5.17", "2026-05-17", true},
		{"2026년 5월 17일", "2026-05-17", true},
		{" 2026. 5. 17. ", "2026-05-17", true},
		{"３０２６－０５－１７", "3026-05-17", true},
		{"2026-02-30", "", false},
		{"next spring", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseExplicit(tt.in)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got.String())
				assert.Equal(t, -1, got.Offset)
			}
		})
	}
}
