package slug

import (
	"regexp"
	"strings"
)

var separators = regexp.MustCompile(`[^a-z0-9]+`)

// accents folds the Latin-1 letters that show up in product and category
// names ("Café Crème", "Señorita") to plain ASCII.
var accents = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
	"ç", "c",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i",
	"ñ", "n",
	"ò", "o", "ó", "o", "ô", "o", "ö", "o", "õ", "o", "ø", "o",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ý", "y", "ÿ", "y",
	"ß", "ss", "æ", "ae", "œ", "oe",
)

// Generate lowercases name, folds accents and joins the remaining
// alphanumeric runs with single hyphens.
//
//	"Tops & Tees"  -> "tops-tees"
//	"Café Crème"   -> "cafe-creme"
func Generate(name string) string {
	s := accents.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = separators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
