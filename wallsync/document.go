package wallsync

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// SourceDocument holds the fields of one archived wallpaper file that the
// transform reads. Everything else stays in Raw.
type SourceDocument struct {
	Hash       string
	MarketCode string
	// StartDate is timeInfo.startDate; HasStartDate reports whether it was present.
	StartDate    string
	HasStartDate bool
	// Resolutions holds one tag per imageResolutions entry, "" when the entry has none.
	Resolutions []string
	// Raw is the whole document in compact form.
	Raw string
}

var (
	errNotObject = errors.New("document is not a JSON object")
	errNotUTF8   = errors.New("document is not valid UTF-8")
)

// DecodeDocument parses one archive file. It only fails when the content is
// not a UTF-8 JSON object; missing or oddly typed fields degrade to zero values.
func DecodeDocument(content []byte) (SourceDocument, error) {
	if !utf8.Valid(content) {
		return SourceDocument{}, errNotUTF8
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(content, &fields); err != nil {
		return SourceDocument{}, err
	}
	if fields == nil {
		return SourceDocument{}, errNotObject
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, content); err != nil {
		return SourceDocument{}, err
	}

	doc := SourceDocument{
		Hash:       stringField(fields["hash"]),
		MarketCode: stringField(fields["marketCode"]),
		Raw:        compact.String(),
	}

	var timeInfo map[string]json.RawMessage
	if raw, ok := fields["timeInfo"]; ok && json.Unmarshal(raw, &timeInfo) == nil {
		if raw, ok := timeInfo["startDate"]; ok && !isNull(raw) {
			doc.StartDate = scalarText(raw)
			doc.HasStartDate = true
		}
	}

	var variants []json.RawMessage
	if raw, ok := fields["imageResolutions"]; ok && json.Unmarshal(raw, &variants) == nil {
		doc.Resolutions = make([]string, 0, len(variants))
		for _, v := range variants {
			doc.Resolutions = append(doc.Resolutions, resolutionTag(v))
		}
	}
	return doc, nil
}

func resolutionTag(variant json.RawMessage) string {
	var entry map[string]json.RawMessage
	if err := json.Unmarshal(variant, &entry); err != nil {
		return ""
	}
	raw, ok := entry["resolution"]
	if !ok || isNull(raw) {
		return ""
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return resolutionFromOrdinal(n)
	}
	return stringField(raw)
}

func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// scalarText returns a string value as-is and any other scalar as its JSON text,
// so a numeric 20240101 still reads as a date token.
func scalarText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.TrimSpace(string(raw))
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func (d SourceDocument) String() string {
	return fmt.Sprintf("hash=%q market=%q startDate=%q variants=%d", d.Hash, d.MarketCode, d.StartDate, len(d.Resolutions))
}
