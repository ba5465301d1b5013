package wallsync

import (
	"strings"
	"testing"
	"time"
)

func mustDecode(t *testing.T, raw string) SourceDocument {
	t.Helper()
	doc, err := DecodeDocument([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeDocument(%s): %v", raw, err)
	}
	return doc
}

func TestDecodeDocument_RejectsNonObjects(t *testing.T) {
	for _, raw := range []string{`[]`, `null`, `"x"`, `{"hash":`, ``} {
		if _, err := DecodeDocument([]byte(raw)); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestDecodeDocument_RejectsInvalidUTF8(t *testing.T) {
	raw := []byte("{\"hash\":\"a\xffb\"}")
	if _, err := DecodeDocument(raw); err == nil {
		t.Fatalf("expected error for invalid UTF-8")
	}
}

func TestDecodeDocument_ResolutionOrdinals(t *testing.T) {
	doc := mustDecode(t, `{"imageResolutions":[{"resolution":0},{"resolution":3},{"resolution":"HD"},{"resolution":9},{},{"resolution":null}]}`)
	want := []string{"Standard", "UHD4K", "HD", "9", "", ""}
	if strings.Join(doc.Resolutions, ",") != strings.Join(want, ",") {
		t.Fatalf("resolutions = %q, want %q", doc.Resolutions, want)
	}
}

func TestDecodeDocument_NumericStartDate(t *testing.T) {
	doc := mustDecode(t, `{"timeInfo":{"startDate":20240305}}`)
	if !doc.HasStartDate || doc.StartDate != "20240305" {
		t.Fatalf("startDate = %q (present=%v)", doc.StartDate, doc.HasStartDate)
	}
	doc = mustDecode(t, `{"timeInfo":{"startDate":null}}`)
	if doc.HasStartDate {
		t.Fatalf("null startDate should count as absent")
	}
}

func TestTransform_NoVariantsYieldsOneFullHDRecord(t *testing.T) {
	for _, raw := range []string{
		`{"hash":"h1"}`,
		`{"hash":"h1","imageResolutions":[]}`,
		`{"hash":"h1","imageResolutions":"oops"}`,
	} {
		recs := Transform(mustDecode(t, raw), "China", "20240101")
		if len(recs) != 1 {
			t.Fatalf("%s: expected 1 record, got %d", raw, len(recs))
		}
		if recs[0].ResolutionCode != "FullHD" {
			t.Fatalf("%s: resolution = %q", raw, recs[0].ResolutionCode)
		}
	}
}

func TestTransform_OneRecordPerVariant(t *testing.T) {
	raw := `{"hash":"abc","marketCode":"zh-CN","title":"长城","timeInfo":{"startDate":"20240101"},
		"imageResolutions":[{"resolution":"Standard"},{"resolution":"FullHD"},{"url":"x"},{"resolution":"UHD4K"}]}`
	doc := mustDecode(t, raw)
	recs := Transform(doc, "Japan", "20991231")
	if len(recs) != 4 {
		t.Fatalf("expected 4 records, got %d", len(recs))
	}
	wantRes := []string{"Standard", "FullHD", "FullHD", "UHD4K"}
	for i, r := range recs {
		if r.Hash != "abc" || r.MarketCode != "zh-CN" || r.ActualDate != "2024-01-01T00:00:00Z" {
			t.Fatalf("record %d: unexpected shared fields: %+v", i, r)
		}
		if r.InfoJSON != recs[0].InfoJSON {
			t.Fatalf("record %d: info_json differs", i)
		}
		if r.ResolutionCode != wantRes[i] {
			t.Fatalf("record %d: resolution = %q, want %q", i, r.ResolutionCode, wantRes[i])
		}
		if r.CreatedAt == "" || r.CreatedAt != r.UpdatedAt {
			t.Fatalf("record %d: created_at=%q updated_at=%q", i, r.CreatedAt, r.UpdatedAt)
		}
	}
	if !strings.Contains(recs[0].InfoJSON, `"title":"长城"`) {
		t.Fatalf("info_json should keep the document verbatim, got %s", recs[0].InfoJSON)
	}
	if strings.ContainsAny(recs[0].InfoJSON, "\n\t") {
		t.Fatalf("info_json should be compact, got %q", recs[0].InfoJSON)
	}
}

func TestTransform_MarketResolution(t *testing.T) {
	cases := []struct {
		raw     string
		country string
		want    string
	}{
		{`{"marketCode":"en-US"}`, "China", "en-US"},
		{`{}`, "China", "zh-CN"},
		{`{"marketCode":""}`, "SouthKorea", "ko-KR"},
		{`{}`, "Atlantis", ""},
	}
	for _, tc := range cases {
		recs := Transform(mustDecode(t, tc.raw), tc.country, "20240101")
		if recs[0].MarketCode != tc.want {
			t.Fatalf("%s in %s: market = %q, want %q", tc.raw, tc.country, recs[0].MarketCode, tc.want)
		}
	}
}

func TestTransform_DateResolution(t *testing.T) {
	// No startDate: the filename token is used.
	recs := Transform(mustDecode(t, `{}`), "China", FallbackToken("2024-02-03"))
	if recs[0].ActualDate != "2024-02-03T00:00:00Z" {
		t.Fatalf("actual_date = %q", recs[0].ActualDate)
	}

	// A malformed startDate wins over the filename and falls back to now.
	recs = Transform(mustDecode(t, `{"timeInfo":{"startDate":"2024-02-03"}}`), "China", "20240101")
	got, err := time.Parse(time.RFC3339, recs[0].ActualDate)
	if err != nil {
		t.Fatal(err)
	}
	if d := time.Since(got); d < -time.Second || d >= 2*time.Second {
		t.Fatalf("expected current time, got %s", got)
	}
}
