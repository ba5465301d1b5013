package wallsync

import (
	"fmt"
	"strconv"
)

// DefaultResolution is stored when a document declares no variants, or a variant omits its tag.
const DefaultResolution = "FullHD"

// marketCodes maps the archive's country directory names to Bing market locales.
var marketCodes = map[string]string{
	"China":         "zh-CN",
	"UnitedStates":  "en-US",
	"UnitedKingdom": "en-GB",
	"Japan":         "ja-JP",
	"Germany":       "de-DE",
	"France":        "fr-FR",
	"Spain":         "es-ES",
	"Italy":         "it-IT",
	"Russia":        "ru-RU",
	"SouthKorea":    "ko-KR",
	"Brazil":        "pt-BR",
	"Australia":     "en-AU",
	"Canada":        "en-CA",
	"India":         "en-IN",
}

type dimensions struct {
	Width  int
	Height int
}

var resolutionDimensions = map[string]dimensions{
	"Standard": {1366, 768},
	"FullHD":   {1920, 1080},
	"HD":       {1920, 1200},
	"UHD4K":    {3840, 2160},
}

// resolutionOrdinals is the collector's enum order, used when a variant's
// resolution was serialized as a number.
var resolutionOrdinals = []string{"Standard", "FullHD", "HD", "UHD4K"}

// MarketForCountry returns the locale for a country directory name, or "" when unknown.
func MarketForCountry(country string) string {
	return marketCodes[country]
}

func ResolutionDimensions(code string) (width int, height int, ok bool) {
	d, ok := resolutionDimensions[code]
	if !ok {
		return 0, 0, false
	}
	return d.Width, d.Height, true
}

// ResolutionSize renders a known code as "WxH", or "" for unknown codes.
func ResolutionSize(code string) string {
	w, h, ok := ResolutionDimensions(code)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%dx%d", w, h)
}

func resolutionFromOrdinal(n int64) string {
	if n >= 0 && n < int64(len(resolutionOrdinals)) {
		return resolutionOrdinals[n]
	}
	return strconv.FormatInt(n, 10)
}
