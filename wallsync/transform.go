package wallsync

import "time"

// Record is one row of the wallpapers table: one per resolution variant.
type Record struct {
	Hash           string `json:"hash"`
	ActualDate     string `json:"actual_date"`
	MarketCode     string `json:"market_code"`
	ResolutionCode string `json:"resolution_code"`
	InfoJSON       string `json:"info_json"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// Transform expands one document into its table rows. fallbackToken is used
// when the document carries no timeInfo.startDate. It never fails.
func Transform(doc SourceDocument, country string, fallbackToken string) []Record {
	token := fallbackToken
	if doc.HasStartDate {
		token = doc.StartDate
	}
	actualDate := ParseDateToken(token).Format(time.RFC3339)

	market := doc.MarketCode
	if market == "" {
		market = MarketForCountry(country)
	}

	tags := doc.Resolutions
	if len(tags) == 0 {
		tags = []string{DefaultResolution}
	}

	out := make([]Record, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			tag = DefaultResolution
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		out = append(out, Record{
			Hash:           doc.Hash,
			ActualDate:     actualDate,
			MarketCode:     market,
			ResolutionCode: tag,
			InfoJSON:       doc.Raw,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return out
}
