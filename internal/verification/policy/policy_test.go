package policy_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/internal/verification/policy"
)

var today = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return today.AddDate(0, 0, offset)
}

func dotted(offset int) string {
	return day(offset).Format("2006.01.02")
}

func TestPregnant(t *testing.T) {
	p := policy.NewPregnant(policy.DefaultConfig())
	far := strings.Repeat("가", 100)

	tests := []struct {
		name     string
		text     string
		dueDate  string
		want     int
		wantPath domain.SourcePath
		wantDate string
	}{
		{"anchored due date", "임산부 분만예정일 " + dotted(200), "", 380, domain.SourceKeywordAnchored, dotted(200)},
		{"due tomorrow", "출 산 예 정 일: " + dotted(1), "", 181, domain.SourceKeywordAnchored, dotted(1)},
		{"keyword far from date", "출산 예정일 확인" + far + dotted(60), "", 240, domain.SourceKeywordPresent, dotted(60)},
		{"future pick", "산모수첩 발급 2025.06.01 검진 " + dotted(50), "", 230, domain.SourceFuturePick, dotted(50)},
		{"explicit due date wins", "분만예정일 " + dotted(10), day(200).Format("2006-01-02"), 380, domain.SourceExplicitDueDate, dotted(200)},
		{"lower clamp boundary", "", day(-150).Format("2006-01-02"), 30, domain.SourceExplicitDueDate, dotted(-150)},
		{"below lower clamp", "", day(-151).Format("2006-01-02"), 30, domain.SourceExplicitDueDate, dotted(-151)},
		{"upper clamp boundary", "", day(550).Format("2006-01-02"), 730, domain.SourceExplicitDueDate, dotted(550)},
		{"above upper clamp", "", day(551).Format("2006-01-02"), 730, domain.SourceExplicitDueDate, dotted(551)},
		{"no date", "임산부 확인서", "", 730, domain.SourceDefault, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := p.Resolve(policy.Input{Text: tt.text, DueDate: tt.dueDate, Today: today})

			assert.Equal(t, domain.DocumentTypePregnant, dec.DocumentType)
			assert.Equal(t, tt.want, dec.ValidDays)
			assert.Equal(t, tt.wantPath, dec.SourcePath)
			if tt.wantDate == "" {
				assert.Nil(t, dec.ResolvedDate)
				return
			}
			require.NotNil(t, dec.ResolvedDate)
			assert.Equal(t, strings.ReplaceAll(tt.wantDate, ".", "-"), dec.ResolvedDate.String())
		})
	}
}

func TestPregnant_CorrectsMisreadThousand(t *testing.T) {
	p := policy.NewPregnant(policy.DefaultConfig())

	dec := p.Resolve(policy.Input{DueDate: "3026-03-01", Today: today})

	require.NotNil(t, dec.ResolvedDate)
	assert.Equal(t, "2026-03-01", dec.ResolvedDate.String())
	assert.Equal(t, 230, dec.ValidDays)
	assert.Contains(t, dec.Trace, "year_corrected")
}

func TestPregnant_InvalidDueDateFallsBackToText(t *testing.T) {
	p := policy.NewPregnant(policy.DefaultConfig())

	dec := p.Resolve(policy.Input{Text: "분만예정일 " + dotted(100), DueDate: "soon", Today: today})

	assert.Equal(t, domain.SourceKeywordAnchored, dec.SourcePath)
	assert.Equal(t, 280, dec.ValidDays)
	assert.Equal(t, []string{"explicit_due_date", "keyword_anchored"}, dec.Trace)
}

func TestDisabled(t *testing.T) {
	p := policy.NewDisabled(policy.DefaultConfig())

	tests := []struct {
		name     string
		text     string
		want     int
		wantPath domain.SourcePath
	}{
		{"stale expiry", "장애인 복지카드 유효기간 " + dotted(40), 1825, domain.SourceStaleDate},
		{"stale boundary", "장애인 유효기간 " + dotted(59), 1825, domain.SourceStaleDate},
		{"at threshold", "장애인 유효기간 " + dotted(60), 60, domain.SourceKeywordAnchored},
		{"far expiry", "장애인 만료일: " + dotted(400), 400, domain.SourceKeywordAnchored},
		{"past date", "장애인 종료일 " + dotted(-10), 1825, domain.SourceStaleDate},
		{"unanchored date", "장애인등록증 " + dotted(900), 900, domain.SourceUnanchored},
		{"no date", "장애인 복지카드", 1825, domain.SourceDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := p.Resolve(policy.Input{Text: tt.text, Today: today})
			assert.Equal(t, domain.DocumentTypeDisabled, dec.DocumentType)
			assert.Equal(t, tt.want, dec.ValidDays)
			assert.Equal(t, tt.wantPath, dec.SourcePath)
		})
	}
}

func TestResident(t *testing.T) {
	p := policy.NewResident(policy.DefaultConfig())

	tests := []struct {
		name     string
		text     string
		want     int
		wantPath domain.SourcePath
	}{
		{"no date", "래미안 아파트 입주민", 730, domain.SourceDefault},
		{"lease end soon", "계약만료 " + dotted(10), 30, domain.SourceKeywordAnchored},
		{"lease end", "임대차 계약기간 종료일 " + dotted(365), 365, domain.SourceKeywordAnchored},
		{"any date", "아파트 입주 확인 " + dotted(365), 365, domain.SourceUnanchored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := p.Resolve(policy.Input{Text: tt.text, Today: today})
			assert.Equal(t, domain.DocumentTypeResident, dec.DocumentType)
			assert.Equal(t, tt.want, dec.ValidDays)
			assert.Equal(t, tt.wantPath, dec.SourcePath)
		})
	}
}

func TestConfigIsHonored(t *testing.T) {
	cfg := policy.DefaultConfig()
	cfg.ResidentDefaultDays = 365
	cfg.PregnantFallbackDays = 100

	assert.Equal(t, 365, policy.NewResident(cfg).Resolve(policy.Input{Today: today}).ValidDays)
	assert.Equal(t, 100, policy.NewPregnant(cfg).Resolve(policy.Input{Today: today}).ValidDays)
}

func TestEngine_Decide(t *testing.T) {
	engine := policy.NewEngine(policy.DefaultRegistry(policy.DefaultConfig()))
	fourteen, zero := 14, 0

	t.Run("override for unknown", func(t *testing.T) {
		dec := engine.Decide(domain.DocumentTypeUnknown, domain.ClassifyInput{
			OCRText:   "nothing useful",
			Overrides: domain.Overrides{ValidDays: &fourteen},
		})
		assert.Equal(t, 14, dec.ValidDays)
		assert.Equal(t, domain.SourceOverride, dec.SourcePath)
		assert.Equal(t, domain.DocumentTypeUnknown, dec.DocumentType)
	})

	t.Run("override beats document", func(t *testing.T) {
		dec := engine.Decide(domain.DocumentTypeDisabled, domain.ClassifyInput{
			OCRText:   "장애인 유효기간 " + dotted(400),
			Overrides: domain.Overrides{ValidDays: &fourteen},
			Today:     today,
		})
		assert.Equal(t, 14, dec.ValidDays)
		assert.Nil(t, dec.ResolvedDate)
	})

	t.Run("unknown without override", func(t *testing.T) {
		dec := engine.Decide(domain.DocumentTypeUnknown, domain.ClassifyInput{OCRText: "영수증"})
		assert.Equal(t, 0, dec.ValidDays)
		assert.Equal(t, domain.SourceUnclassified, dec.SourcePath)
		assert.False(t, dec.Classified())
	})

	t.Run("zero override ignored", func(t *testing.T) {
		dec := engine.Decide(domain.DocumentTypeResident, domain.ClassifyInput{
			OCRText:   "아파트",
			Overrides: domain.Overrides{ValidDays: &zero},
			Today:     today,
		})
		assert.Equal(t, 730, dec.ValidDays)
	})

	t.Run("days measured from the input date", func(t *testing.T) {
		text := "아파트 " + dotted(100)
		now := engine.Decide(domain.DocumentTypeResident, domain.ClassifyInput{OCRText: text, Today: today.Add(15 * time.Hour)})
		later := engine.Decide(domain.DocumentTypeResident, domain.ClassifyInput{OCRText: text, Today: today.AddDate(0, 0, 40)})
		assert.Equal(t, 100, now.ValidDays)
		assert.Equal(t, 60, later.ValidDays)
	})

	t.Run("due date override reaches pregnant policy", func(t *testing.T) {
		dec := engine.Decide(domain.DocumentTypePregnant, domain.ClassifyInput{
			Overrides: domain.Overrides{DueDate: day(200).Format("2006/01/02")},
			Today:     today,
		})
		assert.Equal(t, 380, dec.ValidDays)
		assert.Equal(t, domain.SourceExplicitDueDate, dec.SourcePath)
	})
}

func TestParseValidDays(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"14", 14, true},
		{" 365 ", 365, true},
		{"0", 0, false},
		{"-5", 0, false},
		{"14.5", 0, false},
		{"two weeks", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := policy.ParseValidDays(tt.in)
		assert.Equal(t, tt.wantOK, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestRegistry_Find(t *testing.T) {
	r := policy.DefaultRegistry(policy.DefaultConfig())

	assert.Equal(t, domain.DocumentTypePregnant, r.Find(domain.DocumentTypePregnant).Type())
	assert.Equal(t, domain.DocumentTypeResident, r.Find(domain.DocumentTypeResident).Type())
	assert.Nil(t, r.Find(domain.DocumentTypeUnknown))
}
