package match

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxListed caps the matched_products list.
const maxListed = 5

// Presentation is the storefront-facing rendering of a matched product.
type Presentation struct {
	ProductURL      string
	ImageURL        string
	MatchedProducts []string
	CardHTML        string
}

// Assembler renders match results into links, a summary list and an HTML
// product card. It never fails: missing fields render as empty strings.
type Assembler struct {
	frontendURL  string
	imageBaseURL string
}

// NewAssembler returns an Assembler that links products under frontendURL
// and resolves images against imageBaseURL.
func NewAssembler(frontendURL, imageBaseURL string) *Assembler {
	return &Assembler{
		frontendURL:  strings.TrimRight(frontendURL, "/"),
		imageBaseURL: strings.TrimRight(imageBaseURL, "/"),
	}
}

// Assemble renders res. The card and links are only populated when res has
// a top candidate.
func (a *Assembler) Assemble(res *Result) *Presentation {
	p := &Presentation{MatchedProducts: MatchedProducts(res.Candidates)}
	if res.Top == nil {
		return p
	}
	top := res.Top.Item
	p.ProductURL = a.ProductURL(top)
	p.ImageURL = a.imageBaseURL + "/" + top.FeaturedImage
	p.CardHTML = renderCard(cardData{
		Name:      top.Name,
		URL:       p.ProductURL,
		ImageURL:  p.ImageURL,
		Price:     FormatPrice(top.Price),
		CartMsg:   fmt.Sprintf("tôi muốn thêm %s vào giỏ hàng", top.Name),
		CartLabel: "🛒 Thêm",
	})
	return p
}

// ProductURL builds "<frontend>/san-pham/<slug>-<product_id>".
func (a *Assembler) ProductURL(item CatalogItem) string {
	return fmt.Sprintf("%s/san-pham/%s-%s", a.frontendURL, Slugify(item.Name), item.ProductID)
}

// MatchedProducts formats up to five ranked candidates as
// "<name> (điểm <total>)".
func MatchedProducts(ranked []Candidate) []string {
	n := min(len(ranked), maxListed)
	out := make([]string, 0, n)
	for _, c := range ranked[:n] {
		out = append(out, fmt.Sprintf("%s (điểm %.2f)", c.Item.Name, Round4(c.Total)))
	}
	return out
}

// Round4 rounds f to four decimal places for display.
func Round4(f float64) float64 {
	return math.Round(f*1e4) / 1e4
}

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice truncates price to an integer and groups thousands with commas,
// e.g. 1234000.9 -> "1,234,000".
func FormatPrice(price float64) string {
	return pricePrinter.Sprintf("%d", int64(price))
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify turns a product name into a URL slug: diacritics removed,
// lowercase ASCII letters and digits, separated by single hyphens.
func Slugify(name string) string {
	s, _, err := transform.String(stripMarks, name)
	if err != nil {
		s = name
	}
	s = strings.NewReplacer("đ", "d", "Đ", "D", "'", "").Replace(s)
	s = strings.ToLower(s)

	var b strings.Builder
	pendingDash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

type cardData struct {
	Name      string
	URL       string
	ImageURL  string
	Price     string
	CartMsg   string
	CartLabel string
}

var cardTemplate = template.Must(template.New("card").Parse(`<div class="product-card"
     style="border:1px solid #ccc;border-radius:8px;padding:8px;margin-bottom:8px;display:flex;align-items:center;gap:10px;background:#f8f9fa;max-width:400px;">
  <img src="{{.ImageURL}}" alt="{{.Name}}"
       style="width:70px;height:70px;object-fit:contain;border-radius:6px;" />
  <div style="flex:1;line-height:1.3;">
    <a href="{{.URL}}"
       style="font-weight:bold;font-size:14px;color:#1D4ED8;display:block;margin-bottom:4px;"
       target="_blank">{{.Name}}</a>
    <span style="font-size:13px;color:#16A34A;">💰 {{.Price}}đ</span>
  </div>
  <button class="add-to-cart-btn"
          data-product="{{.Name}}" data-msg="{{.CartMsg}}"
          style="background:#FACC15;color:#000;border:none;padding:4px 8px;border-radius:4px;font-size:12px;font-weight:500;cursor:pointer;">
    {{.CartLabel}}
  </button>
</div>`))

func renderCard(d cardData) string {
	var buf bytes.Buffer
	if err := cardTemplate.Execute(&buf, d); err != nil {
		return ""
	}
	return buf.String()
}
