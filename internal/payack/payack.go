// Package payack recognizes free-text messages in which a customer reports
// that a payment has been made.
package payack

import (
	"regexp"
	"strings"
	"unicode"
)

// Level is the confidence with which a message reads as a payment report.
type Level int

const (
	None Level = iota
	// Vague is a bare "done" that only means "paid" right after the bank
	// transfer instructions were shown.
	Vague
	Strict
)

func (l Level) String() string {
	switch l {
	case Vague:
		return "vague"
	case Strict:
		return "strict"
	default:
		return "none"
	}
}

const (
	openMarks  = `[「『〝（(【"“'‘]*`
	closeMarks = `[」』〟）)】"”'’]*`
	trailMarks = `[。.!！…〜ー~]*`

	noun = `(?:ご?入金|にゅうきん|お?振り?込み?|ふりこみ|お?送金|そうきん|お?支払い?|おしはらい|しはらい|決済|けっさい)`
	done = `(?:済み?|済ませました|完了|了|ずみ|すみ|かんりょう)`
	verb = `(?:いた|致)?し(?:ました|ておりま(?:す|した))`

	// inflected verbs that do not take the noun + する form
	inflected = `(?:お?振り?込(?:みました|んだ|みです)|ふりこみました|ふりこんだ|お?支?払(?:いました|った)|しはらいました|はらいました)`
)

var (
	strictPattern = regexp.MustCompile(`(?i)^` + openMarks +
		`(?:` + noun + `(?:` + done + `(?:です|でした|` + verb + `)?|` + verb + `)|` + inflected + `)` +
		closeMarks + trailMarks + `$`)

	vaguePattern = regexp.MustCompile(`^` + openMarks + `(?:済み?|すみ|完了|かんりょう)` + closeMarks + trailMarks + `$`)
)

// Classify returns the strongest level the whole message matches at.
func Classify(text string) Level {
	s := normalize(text)
	if s == "" {
		return None
	}
	if strictPattern.MatchString(s) {
		return Strict
	}
	if vaguePattern.MatchString(s) {
		return Vague
	}
	return None
}

// IsPaid reports whether text acknowledges a payment. Vague messages count only
// when allowVague is set.
func IsPaid(text string, allowVague bool) bool {
	switch Classify(text) {
	case Strict:
		return true
	case Vague:
		return allowVague
	default:
		return false
	}
}

// normalize drops all whitespace, including ideographic spaces.
func normalize(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
}
