package keywords

import (
	"strings"
	"testing"
)

func TestExtractKeyword(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{
			name:  "promotional brackets stripped before matching",
			title: "Galaxy S25 Edge (Pre-order on Whatsapp)",
			want:  "Galaxy S25",
		},
		{
			name:  "iphone with pro max suffix",
			title: "Apple iPhone 17 Pro Max 256GB Space Gray",
			want:  "Apple iPhone 17 Pro Max",
		},
		{
			name:  "pixel with storage noise",
			title: "Google Pixel 10 128GB - Limited Time Offer",
			want:  "Google Pixel 10",
		},
		{
			name:  "samsung with full brand prefix",
			title: "Samsung Galaxy A56 5G Brand New",
			want:  "Samsung Galaxy A56",
		},
		{
			name:  "lipa pole pole slogan removed",
			title: "Infinix Note 40 Lipa Pole Pole",
			want:  "Infinix Note 40",
		},
		{
			name:  "empty title",
			title: "",
			want:  "",
		},
		{
			name:  "only promotional noise",
			title: "(Sale) [Deal] New",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeyword(tt.title)
			if !strings.EqualFold(got, tt.want) {
				t.Errorf("ExtractKeyword(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestExtractKeyword_Deterministic(t *testing.T) {
	title := "Galaxy S25 Edge (Pre-order on Whatsapp) 256GB Silver"
	first := ExtractKeyword(title)
	for i := 0; i < 5; i++ {
		if got := ExtractKeyword(title); got != first {
			t.Fatalf("extraction varied: %q != %q", got, first)
		}
	}
}

func TestCleanTitle(t *testing.T) {
	got := CleanTitle("iPhone 17 Pro (Pre-order) 256GB Midnight - Free Shipping")
	for _, leaked := range []string{"(", ")", "256GB", "Midnight", "Free Shipping"} {
		if strings.Contains(got, leaked) {
			t.Errorf("CleanTitle leaked %q in %q", leaked, got)
		}
	}
	if !strings.Contains(got, "iPhone 17 Pro") {
		t.Errorf("CleanTitle dropped the product: %q", got)
	}
}

func TestExtractMeaningfulPhraseFallback(t *testing.T) {
	// No recognized brand; the cleaned title's leading words win.
	got := ExtractKeyword("Wireless Ergonomic Keyboard with Backlight")
	if got == "" {
		t.Fatal("fallback produced nothing")
	}
	if len(strings.Fields(got)) > 3 {
		t.Errorf("fallback phrase too long: %q", got)
	}
}

