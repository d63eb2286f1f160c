package classifier

import (
	"strings"
	"unicode/utf8"

	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/internal/verification/sanitize"
)

// minConfirmLength is the trimmed text length a confirmation needs to exceed
const minConfirmLength = 10

var approvalTokens = map[domain.DocumentType]Tokens{
	domain.DocumentTypeResident: {
		Native: []string{"주민등록", "등본"},
		Latin:  []string{"resident", "address", "registration"},
	},
	domain.DocumentTypePregnant: {
		Native: []string{"임산부", "산모수첩", "진단서"},
		Latin:  []string{"pregnancy", "obstetric", "maternity"},
	},
	domain.DocumentTypeDisabled: {
		Native: []string{"장애인", "복지카드", "장애인등록증"},
		Latin:  []string{"disability", "welfare", "handicap"},
	},
}

// Confirms reports whether text supports the document type the applicant
// declared. It is advisory and never changes the classification.
func Confirms(declared domain.DocumentType, text string) bool {
	tokens, ok := approvalTokens[declared]
	if !ok {
		return false
	}
	if utf8.RuneCountInString(strings.TrimSpace(sanitize.Fold(text))) <= minConfirmLength {
		return false
	}
	return prepare(text).has(tokens)
}
