package rapidharem

import (
	"regexp"
	"strings"

	"goldprice-api/internal/models"
	"goldprice-api/internal/moneyparse"
)

// keyMapping translates the feed's free-text Turkish instrument names
// (diacritic-folded, upper-cased, parenthesised qualifiers stripped) to
// canonical codes. Unmapped keys are dropped.
var keyMapping = map[string]models.Code{
	"GRAM ALTIN":  models.CodeKulceAltin,
	"KULCE ALTIN": models.CodeKulceAltin,
	"22 AYAR":     models.CodeAyar22,
	"HAS ALTIN":   models.CodeAltin,
	"YENI CEYREK": models.CodeCeyrekYeni,
	"ESKI CEYREK": models.CodeCeyrekEski,
	"YENI YARIM":  models.CodeYarimYeni,
	"ESKI YARIM":  models.CodeYarimEski,
	"YENI TAM":    models.CodeTekYeni,
	"ESKI TAM":    models.CodeTekEski,
	"YENI ATA":    models.CodeAtaYeni,
}

var (
	parensRe = regexp.MustCompile(`\([^)]*\)`)
	kgRe     = regexp.MustCompile(`\bKG\b`)
)

var diacriticFolder = strings.NewReplacer(
	"İ", "I", "ı", "i",
	"Ş", "S", "ş", "s",
	"Ğ", "G", "ğ", "g",
	"Ü", "U", "ü", "u",
	"Ö", "O", "ö", "o",
	"Ç", "C", "ç", "c",
)

// normalizeKey folds a raw feed key into the lookup form: upper case,
// Turkish diacritics replaced with ASCII, whitespace collapsed.
func normalizeKey(raw string) string {
	s := diacriticFolder.Replace(strings.TrimSpace(raw))
	s = strings.ToUpper(s)
	return strings.Join(strings.Fields(s), " ")
}

// isKilogram reports whether a normalized key quotes a kilogram-denominated
// instrument, which must be rescaled to gram-equivalent.
func isKilogram(normalized string) bool {
	return kgRe.MatchString(normalized) || strings.Contains(normalized, "KILOGRAM")
}

// entry is one record of the feed's data array.
type entry struct {
	Key  string      `json:"key"`
	Buy  interface{} `json:"buy"`
	Sell interface{} `json:"sell"`
}

// mapEntries normalizes the feed's array into the canonical quote map.
// Kilogram quotes are divided by 1000; unmapped keys are ignored.
func mapEntries(entries []entry) map[models.Code]models.Quote {
	values := make(map[models.Code]models.Quote, len(keyMapping))
	for _, item := range entries {
		normalized := normalizeKey(item.Key)
		stripped := strings.TrimSpace(parensRe.ReplaceAllString(normalized, ""))
		stripped = strings.Join(strings.Fields(stripped), " ")

		code, ok := keyMapping[stripped]
		if !ok {
			code, ok = keyMapping[normalized]
		}
		if !ok {
			continue
		}

		scale := 1.0
		if isKilogram(normalized) {
			scale = 1.0 / 1000.0
		}

		values[code] = models.Quote{
			Buy:  moneyparse.Parse(item.Buy) * scale,
			Sell: moneyparse.Parse(item.Sell) * scale,
		}
	}
	return values
}
