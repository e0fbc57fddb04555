package pipeline

import (
	"fmt"
	"strings"
)

// structureArticle lays the processed body out as a blog post: fixed H2
// sections filled from the generator's paragraphs, a recommendation block
// for the product, and a closing call to action linking back to it.
func structureArticle(body, keyword, productName, productURL, price string) string {
	paragraphs := strings.Split(body, "\n\n")
	para := func(i int) string {
		if i < len(paragraphs) {
			return strings.TrimSpace(paragraphs[i])
		}
		return ""
	}

	var b strings.Builder

	fmt.Fprintf(&b, "<h2>Introduction to %s</h2>\n", keyword)
	if p := para(0); p != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n\n", p)
	}

	b.WriteString("<h2>Key Features and Benefits</h2>\n")
	if p := para(1); p != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n\n", p)
	}

	b.WriteString("<h2>Detailed Analysis</h2>\n")
	for i := 2; i < len(paragraphs) && i < 5; i++ {
		if p := para(i); p != "" {
			fmt.Fprintf(&b, "<p>%s</p>\n\n", p)
		}
	}

	fmt.Fprintf(&b, "<h2>Our Recommendation: %s</h2>\n", productName)
	fmt.Fprintf(&b, "<p>Based on our analysis of %s, we highly recommend the %s. "+
		"This product offers exceptional value and performance that meets the highest standards.</p>\n\n",
		keyword, productName)

	if price != "" {
		fmt.Fprintf(&b, "<p><strong>Current Price:</strong> %s</p>\n\n", price)
	}

	if productURL != "" {
		fmt.Fprintf(&b, "<p><a href='%s' class='button' target='_blank'>View %s Details</a></p>\n\n",
			productURL, productName)
	}

	b.WriteString("<h2>Conclusion</h2>\n")
	fmt.Fprintf(&b, "<p>In conclusion, %s represents an important consideration for anyone looking to "+
		"make an informed purchase decision. The %s stands out as an excellent choice that delivers "+
		"on both quality and value.</p>\n\n",
		keyword, productName)

	return b.String()
}

// productSummary wraps the excerpt in the block prepended to the product
// description, with a link through to the full article.
func productSummary(excerpt, articleURL string) string {
	var b strings.Builder
	b.WriteString("<div class='seo-generated-content'>\n")
	b.WriteString("<h3>Product Overview</h3>\n")
	fmt.Fprintf(&b, "<div class='seo-excerpt'>%s</div>\n", excerpt)
	if articleURL != "" {
		fmt.Fprintf(&b, "<p><a href='%s' class='seo-read-more'>Read Full Article</a></p>\n", articleURL)
	}
	b.WriteString("</div>\n")
	return b.String()
}
