package fieldex

import (
	"regexp"
	"strconv"
	"strings"
)

// makeVocabulary is the fixed list of recognised manufacturer names.  The
// matcher picks the vocabulary entry with the earliest occurrence in the
// text; within the same offset a longer name wins so "Land Rover" is not
// reported as "Rover"-less "Land".
var makeVocabulary = []string{
	"Alfa Romeo",
	"Land Rover",
	"Mercedes-Benz",
	"Mercedes",
	"Acura",
	"Audi",
	"BMW",
	"Buick",
	"Cadillac",
	"Chevrolet",
	"Chrysler",
	"Dodge",
	"Fiat",
	"Ford",
	"Genesis",
	"GMC",
	"Honda",
	"Hyundai",
	"Infiniti",
	"Jaguar",
	"Jeep",
	"Kia",
	"Lexus",
	"Lincoln",
	"Mazda",
	"Mini",
	"Mitsubishi",
	"Nissan",
	"Polestar",
	"Porsche",
	"Ram",
	"Rivian",
	"Subaru",
	"Tesla",
	"Toyota",
	"Volkswagen",
	"Volvo",
}

// modelDelimiters end the model token span.  A comma or the word "with"
// terminates the model per the clause conventions of lease documents.
var modelDelimiterRe = regexp.MustCompile(`(?i)^(with|vin|lease|loan|contract|agreement|for|at|and)$`)

const maxModelTokens = 3

// matchResult carries one vocabulary hit.
type makeMatch struct {
	name  string
	start int
	end   int
}

// findMake returns the first vocabulary hit in document order, or nil.
func findMake(text string) *makeMatch {
	lower := strings.ToLower(text)
	var best *makeMatch
	for _, name := range makeVocabulary {
		idx := indexWord(lower, strings.ToLower(name))
		if idx < 0 {
			continue
		}
		if best == nil || idx < best.start || (idx == best.start && len(name) > len(best.name)) {
			best = &makeMatch{name: name, start: idx, end: idx + len(name)}
		}
	}
	return best
}

// indexWord finds needle in haystack at a word boundary.
func indexWord(haystack, needle string) int {
	from := 0
	for {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return -1
		}
		abs := from + idx
		beforeOK := abs == 0 || !isWordChar(haystack[abs-1])
		afterEnd := abs + len(needle)
		afterOK := afterEnd >= len(haystack) || !isWordChar(haystack[afterEnd])
		if beforeOK && afterOK {
			return abs
		}
		from = abs + 1
	}
}

func isWordChar(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

// modelAfterMake takes the token span immediately following the make,
// truncated at common clause delimiters (comma, "with") and capped at
// maxModelTokens tokens.  Returns "" when nothing usable follows.
func modelAfterMake(text string, m *makeMatch) string {
	rest := text[m.end:]
	// Hard truncation at clause punctuation.
	for _, d := range []string{",", ".", ";", "(", "\n"} {
		if i := strings.Index(rest, d); i >= 0 {
			rest = rest[:i]
		}
	}
	tokens := strings.Fields(rest)
	var out []string
	for _, tok := range tokens {
		if modelDelimiterRe.MatchString(tok) {
			break
		}
		// A number token ends the model span: it is a price, term or year.
		if _, err := strconv.ParseFloat(strings.Trim(tok, "$,"), 64); err == nil {
			break
		}
		out = append(out, tok)
		if len(out) == maxModelTokens {
			break
		}
	}
	return strings.Join(out, " ")
}

// yearBeforeMake recognises the "2023 Toyota Camry" convention: a plausible
// model year in the tokens just before the make.
var yearTokenRe = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)

func yearBeforeMake(text string, m *makeMatch) (int, bool) {
	windowStart := m.start - 12
	if windowStart < 0 {
		windowStart = 0
	}
	window := text[windowStart:m.start]
	match := yearTokenRe.FindStringSubmatch(window)
	if match == nil {
		return 0, false
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return year, true
}
