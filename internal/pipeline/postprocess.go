package pipeline

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

// Processed is generator output after cleanup and SEO shaping: the full
// article body plus the excerpt destined for the product page.
type Processed struct {
	Body    string
	Excerpt string
}

var (
	anySpace  = regexp.MustCompile(`\s+`)
	manyBlank = regexp.MustCompile(`\n{3,}`)
)

// process cleans raw generator output, shapes it for search, and cuts the
// product-page excerpt.
func process(raw, keyword, productName, price string, excerptWords int) Processed {
	body := cleanContent(raw)
	body = optimizeForSearch(body, keyword, productName)

	excerpt := makeExcerpt(body, excerptWords)
	excerpt += "\n\n" + callToAction(keyword, productName, price)

	return Processed{Body: body, Excerpt: excerpt}
}

// cleanContent collapses whitespace and re-establishes paragraph breaks on
// sentence boundaries.
func cleanContent(raw string) string {
	content := anySpace.ReplaceAllString(raw, " ")
	content = strings.ReplaceAll(content, ". ", ".\n\n")
	content = strings.ReplaceAll(content, "! ", "!\n\n")
	content = strings.ReplaceAll(content, "? ", "?\n\n")
	content = manyBlank.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

// optimizeForSearch makes sure the keyword lands in the opening of the
// article and appears often enough to register, without rewriting what the
// generator produced.
func optimizeForSearch(content, keyword, productName string) string {
	// The keyword must show up within the first 200 characters.
	head := content
	if len(head) > 200 {
		head = head[:200]
	}
	if !strings.Contains(strings.ToLower(head), strings.ToLower(keyword)) {
		content = fmt.Sprintf(
			"When it comes to %s, understanding the key features and benefits is essential for making an informed decision. ",
			keyword) + content
	}

	// Swap the first keyword mention for the full product name.
	content = replaceFirstFold(content, keyword, productName)

	// Top up keyword mentions toward a 2.5% density, between 2 and 5 total.
	words := len(strings.Fields(content))
	target := int(float64(words)*0.025 + 0.5)
	if target < 2 {
		target = 2
	}
	if target > 5 {
		target = 5
	}
	mentions := strings.Count(strings.ToLower(content), strings.ToLower(keyword))
	for i := mentions; i < target; i++ {
		content += fmt.Sprintf(" The %s offers exceptional value and performance.", keyword)
	}

	return content
}

// makeExcerpt takes the first wordLimit words and trims back to the last
// sentence boundary when one falls in the final fifth; otherwise it marks
// the cut with an ellipsis.
func makeExcerpt(content string, wordLimit int) string {
	words := strings.Fields(content)
	if len(words) <= wordLimit {
		return content
	}

	excerpt := strings.Join(words[:wordLimit], " ")
	cut := -1
	for _, end := range []string{".", "!", "?"} {
		if i := strings.LastIndex(excerpt, end); i > cut {
			cut = i
		}
	}

	if cut > int(float64(len(excerpt))*0.8) {
		return excerpt[:cut+1]
	}
	return excerpt + "..."
}

var ctaTemplates = []string{
	"Discover why the %s is the perfect choice for your needs.",
	"Learn more about the %s and its outstanding features.",
	"Find out what makes the %s stand out from the competition.",
	"Explore the complete %s experience and specifications.",
	"See why customers choose the %s for quality and value.",
}

// callToAction appends a closing line. The template is picked by hashing
// the keyword so reruns produce identical output.
func callToAction(keyword, productName, price string) string {
	cta := fmt.Sprintf(pickTemplate(ctaTemplates, keyword), productName)
	if price != "" {
		cta += fmt.Sprintf(" Starting at %s.", price)
	}
	return cta
}

var titleTemplates = []string{
	"Complete %s Guide - Everything You Need to Know",
	"%s Review - Features, Benefits & Expert Analysis",
	"Ultimate %s Buying Guide - %d Edition",
	"%s Explained - Comprehensive Overview & Tips",
	"Best %s Guide - Expert Recommendations & Reviews",
}

// articleTitle builds the post title for a keyword, deterministically.
func articleTitle(keyword string, year int) string {
	tpl := pickTemplate(titleTemplates, keyword)
	if strings.Contains(tpl, "%d") {
		return fmt.Sprintf(tpl, keyword, year)
	}
	return fmt.Sprintf(tpl, keyword)
}

func pickTemplate(templates []string, keyword string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(keyword)))
	return templates[int(h.Sum32())%len(templates)]
}

// replaceFirstFold replaces the first case-insensitive occurrence of old
// with new.
func replaceFirstFold(s, old, new string) string {
	i := strings.Index(strings.ToLower(s), strings.ToLower(old))
	if i < 0 {
		return s
	}
	return s[:i] + new + s[i+len(old):]
}
