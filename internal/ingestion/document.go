package ingestion

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/billshop/shopai-go/internal/catalog"
	"github.com/billshop/shopai-go/internal/rag"
)

// maxDescriptionBytes bounds the description part of a document; product
// pages often carry long spec tables that only dilute the embedding.
const maxDescriptionBytes = 2000

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// PointID is the stable point identifier for a product.
func PointID(productID int64) string {
	return "product:" + strconv.FormatInt(productID, 10)
}

// Document renders the text embedded for p: the name on the first line,
// then the description with markup removed.
func Document(p catalog.Product) string {
	name := strings.TrimSpace(p.Name)
	desc := cleanText(p.Description)
	if len(desc) > maxDescriptionBytes {
		desc = truncateUTF8(desc, maxDescriptionBytes)
	}
	if desc == "" {
		return name
	}
	return name + "\n" + desc
}

// Metadata is the payload the matcher reads back from a hit.
func Metadata(p catalog.Product) map[string]any {
	return map[string]any{
		"name":           strings.TrimSpace(p.Name),
		"price":          p.Price,
		"product_id":     strconv.FormatInt(p.ID, 10),
		"featured_image": p.FeaturedImage,
	}
}

// ToPoint builds the index point for p from its embedding.
func ToPoint(p catalog.Product, vector []float32) rag.Point {
	return rag.Point{
		ID:       PointID(p.ID),
		Document: Document(p),
		Metadata: Metadata(p),
		Vector:   vector,
	}
}

func cleanText(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	for n > 0 && n < len(s) && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
