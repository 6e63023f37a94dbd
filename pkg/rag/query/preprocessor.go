package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Preprocessed is the normalized form of a user question that the
// retrieval stages consume.
type Preprocessed struct {
	Original     string
	Normalized   string
	Standardized string
	Keywords     []string
	ClauseLabel  *string // canonical "article N"
	IsComplete   bool
	Suggestions  []string
}

// TermDictionary configures domain-specific rewriting. Spacing maps
// run-together terms to their spaced form, Synonyms maps a term to the
// alternatives it should also match on.
type TermDictionary struct {
	Spacing            map[string]string
	Synonyms           map[string][]string
	IncompletePatterns []IncompletePattern
}

type IncompletePattern struct {
	Pattern    string
	Suggestion string
}

// DefaultTermDictionary covers common policy-document phrasing.
// Deployments load a corpus-specific dictionary on top of it.
func DefaultTermDictionary() TermDictionary {
	return TermDictionary{
		Spacing: map[string]string{
			"cancellationfee":  "cancellation fee",
			"coveragelimit":    "coverage limit",
			"waitingperiod":    "waiting period",
			"deductibleamount": "deductible amount",
		},
		Synonyms: map[string][]string{
			"fee":       {"charge", "cost"},
			"coverage":  {"benefit", "protection"},
			"terminate": {"cancel", "end"},
			"refund":    {"reimbursement"},
		},
		IncompletePatterns: []IncompletePattern{
			{Pattern: `^(how much|what|when|where|why|who)\??$`, Suggestion: "add the item you are asking about, e.g. \"how much is the cancellation fee\""},
			{Pattern: `^(article|clause)\s*\d+\??$`, Suggestion: "say what you want to know about the clause, e.g. \"what does article 15 cover\""},
		},
	}
}

var clausePattern = regexp.MustCompile(`(?i)\b(?:article|art\.?|clause|§)\s*(\d+)\b`)

// stop words stripped during keyword extraction
var functionWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"do": {}, "does": {}, "did": {}, "can": {}, "could": {}, "will": {}, "would": {},
	"of": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "from": {}, "by": {},
	"with": {}, "about": {}, "and": {}, "or": {}, "my": {}, "your": {}, "it": {},
	"what": {}, "when": {}, "where": {}, "how": {}, "which": {}, "who": {}, "why": {},
	"i": {}, "me": {}, "we": {}, "you": {}, "this": {}, "that": {}, "there": {},
	"much": {}, "many": {}, "be": {}, "been": {}, "if": {}, "then": {}, "than": {},
}

var nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
var whitespacePattern = regexp.MustCompile(`\s+`)

type Preprocessor struct {
	dict               TermDictionary
	incompletePatterns []compiledPattern
}

type compiledPattern struct {
	re         *regexp.Regexp
	suggestion string
}

func NewPreprocessor(dict TermDictionary) *Preprocessor {
	compiled := make([]compiledPattern, 0, len(dict.IncompletePatterns))
	for _, p := range dict.IncompletePatterns {
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			continue
		}
		compiled = append(compiled, compiledPattern{re: re, suggestion: p.Suggestion})
	}
	return &Preprocessor{
		dict:               dict,
		incompletePatterns: compiled,
	}
}

// Preprocess runs the full normalization pipeline:
// whitespace, term spacing, keyword extraction with synonym expansion,
// clause reference extraction, and incomplete-query detection.
func (p *Preprocessor) Preprocess(raw string) *Preprocessed {
	normalized := normalize(raw)
	standardized := p.standardize(normalized)
	keywords := p.expandKeywords(extractKeywords(standardized))
	clause := ExtractClauseLabel(standardized)
	isComplete, suggestions := p.checkCompleteness(standardized)

	return &Preprocessed{
		Original:     raw,
		Normalized:   normalized,
		Standardized: standardized,
		Keywords:     keywords,
		ClauseLabel:  clause,
		IsComplete:   isComplete,
		Suggestions:  suggestions,
	}
}

func normalize(query string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(query, " "))
}

func (p *Preprocessor) standardize(query string) string {
	standardized := strings.ToLower(query)
	for term, replacement := range p.dict.Spacing {
		standardized = strings.ReplaceAll(standardized, term, replacement)
	}
	return standardized
}

func extractKeywords(query string) []string {
	cleaned := nonWordPattern.ReplaceAllString(strings.ToLower(query), " ")
	var keywords []string
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(cleaned) {
		if _, skip := functionWords[word]; skip {
			continue
		}
		if len(word) < 2 {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}

// expandKeywords adds synonym terms for any extracted keyword present
// in the dictionary. The original keywords keep their order; added
// synonyms follow sorted for determinism.
func (p *Preprocessor) expandKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		seen[kw] = struct{}{}
	}

	var added []string
	for _, kw := range keywords {
		for term, synonyms := range p.dict.Synonyms {
			if term != kw {
				continue
			}
			for _, syn := range synonyms {
				for _, synKw := range extractKeywords(syn) {
					if _, dup := seen[synKw]; dup {
						continue
					}
					seen[synKw] = struct{}{}
					added = append(added, synKw)
				}
			}
		}
	}
	sort.Strings(added)

	return append(keywords, added...)
}

// ExtractClauseLabel finds the first clause reference in the query and
// returns it in canonical "article N" form.
func ExtractClauseLabel(query string) *string {
	match := clausePattern.FindStringSubmatch(query)
	if match == nil {
		return nil
	}
	label := fmt.Sprintf("article %s", match[1])
	return &label
}

func (p *Preprocessor) checkCompleteness(query string) (bool, []string) {
	var suggestions []string
	for _, cp := range p.incompletePatterns {
		if cp.re.MatchString(query) {
			suggestions = append(suggestions, cp.suggestion)
		}
	}
	return len(suggestions) == 0, suggestions
}
