package keywords

import (
	"regexp"
	"strings"
)

// Title cleanup removes promotional noise before any brand matching, so a
// bracketed offer can never leak into the extracted phrase.
var excludePatterns = []*regexp.Regexp{
	// Promotional wrappers and slogans.
	regexp.MustCompile(`\(.*?\)`),
	regexp.MustCompile(`\[.*?\]`),
	regexp.MustCompile(`(?i)pre-order`),
	regexp.MustCompile(`(?i)lipa pole pole`),
	regexp.MustCompile(`(?i)on whatsapp`),
	regexp.MustCompile(`(?i)\bsale\b`),
	regexp.MustCompile(`(?i)\bdiscount\b`),
	regexp.MustCompile(`(?i)\boffer\b`),
	regexp.MustCompile(`(?i)\bdeal\b`),
	regexp.MustCompile(`(?i)free shipping`),
	regexp.MustCompile(`(?i)limited time`),

	// Storage and technical specs.
	regexp.MustCompile(`(?i)\d+\.?\d*\s*(gb|tb|mb)\b`),

	// Colors, unless part of an official model name they add nothing.
	regexp.MustCompile(`(?i)\b(black|white|red|blue|green|yellow|pink|purple|gray|grey|silver|gold|rose gold|space gray|midnight|starlight|alpine green|sierra blue|graphite|pacific blue|coral|product red)\b`),

	// Sizes.
	regexp.MustCompile(`(?i)size \d+`),
	regexp.MustCompile(`(?i)\d+\s*(mm|inch)\b`),
	regexp.MustCompile(`\d+"`),

	// Generic filler.
	regexp.MustCompile(`(?i)\bnew\b`),
	regexp.MustCompile(`(?i)\boriginal\b`),
	regexp.MustCompile(`(?i)\bgenuine\b`),
	regexp.MustCompile(`(?i)\bauthentic\b`),
	regexp.MustCompile(`(?i)\bofficial\b`),
	regexp.MustCompile(`(?i)factory sealed`),
}

var brandPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(apple|iphone|ipad|ipod|macbook|imac|apple watch)\b`),
	regexp.MustCompile(`(?i)\b(samsung|galaxy)\b`),
	regexp.MustCompile(`(?i)\b(google|pixel)\b`),
	regexp.MustCompile(`(?i)\b(huawei|honor)\b`),
	regexp.MustCompile(`(?i)\b(xiaomi|redmi|mi)\b`),
	regexp.MustCompile(`(?i)\b(oppo|realme|oneplus)\b`),
	regexp.MustCompile(`(?i)\b(vivo|iqoo)\b`),
	regexp.MustCompile(`(?i)\b(nokia|hmd)\b`),
	regexp.MustCompile(`(?i)\b(sony|xperia)\b`),
	regexp.MustCompile(`(?i)\b(lg)\b`),
	regexp.MustCompile(`(?i)\b(motorola|moto)\b`),
	regexp.MustCompile(`(?i)\b(tecno|infinix|itel)\b`),
	regexp.MustCompile(`(?i)\b(hp|dell|lenovo|thinkpad|ideapad|asus|rog|acer|predator)\b`),
	regexp.MustCompile(`(?i)\b(microsoft|surface|xbox)\b`),
	regexp.MustCompile(`(?i)\b(nintendo|switch|playstation|ps\d)\b`),
}

var modelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(apple\s+)?(iphone\s+\d+[a-z]*(?:\s+pro(?:\s+max)?)?)`),
	regexp.MustCompile(`(?i)\b(samsung\s+)?galaxy\s+[a-z]+\s*\d+[a-z]*`),
	regexp.MustCompile(`(?i)\b(google\s+)?pixel\s+\d+[a-z]*`),
	regexp.MustCompile(`(?i)\b[a-z]+\s+[a-z0-9]+(?:\s+[a-z0-9]+)*`),
}

var (
	spaces       = regexp.MustCompile(`\s+`)
	modelMarker  = regexp.MustCompile(`(?i)\b\d+\b|\b[a-z]{2,}\b`)
	nonKeyword   = regexp.MustCompile(`[^\pL\pN\s-]`)
	minPhraseLen = 5
)

// ExtractKeyword derives the search phrase for a product title. It strips
// promotional noise first, then looks for a brand+model pattern; when no
// brand is recognized it falls back to the first meaningful words of the
// cleaned title. An empty result means the title carried no usable phrase.
func ExtractKeyword(title string) string {
	cleaned := CleanTitle(title)
	if cleaned == "" {
		return ""
	}
	if kw := extractBrandModel(cleaned); kw != "" {
		return kw
	}
	return extractMeaningfulPhrase(cleaned)
}

// CleanTitle strips promotional wrappers, spec noise, and filler words from
// a product title and collapses whitespace.
func CleanTitle(title string) string {
	cleaned := title
	for _, pat := range excludePatterns {
		cleaned = pat.ReplaceAllString(cleaned, " ")
	}
	cleaned = nonKeyword.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(spaces.ReplaceAllString(cleaned, " "))
}

func extractBrandModel(cleaned string) string {
	for _, pat := range modelPatterns {
		match := strings.TrimSpace(pat.FindString(cleaned))
		if match == "" {
			continue
		}
		if validBrandModel(match) {
			return match
		}
	}
	return ""
}

// validBrandModel demands a recognized brand, a model marker, and a
// sensible length before a match is trusted.
func validBrandModel(phrase string) bool {
	if len(phrase) < minPhraseLen {
		return false
	}
	if !modelMarker.MatchString(phrase) {
		return false
	}
	for _, pat := range brandPatterns {
		if pat.MatchString(phrase) {
			return true
		}
	}
	return false
}

func extractMeaningfulPhrase(cleaned string) string {
	var words []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) >= 2 {
			words = append(words, w)
		}
	}

	if len(words) >= 2 {
		n := len(words)
		if n > 3 {
			n = 3
		}
		phrase := strings.Join(words[:n], " ")
		if len(phrase) >= minPhraseLen {
			return phrase
		}
	}

	for _, w := range words {
		if len(w) >= 4 {
			return w
		}
	}
	return ""
}
