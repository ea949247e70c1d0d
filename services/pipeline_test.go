package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
	"unicode/utf16"

	"github.com/shopspring/decimal"

	"ebay-sales-analytics/models"
)

func TestUploadSinglePricedSource(t *testing.T) {
	p := newTestPipeline(t)

	res, err := p.Upload(context.Background(), []models.Source{
		source("jan.csv",
			"Keyword,URL,Price,Dec Sales,Jan Sales,Date Checked,Status",
			rowPricedA,
			rowAmazonC,
		),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Merged {
		t.Error("single source should not be merged")
	}
	if len(res.Dataset) != 1 {
		t.Fatalf("records: got %d, want 1", len(res.Dataset))
	}

	r := res.Dataset[0]
	if r.Product == "Keyword" {
		t.Error("header row leaked into the dataset")
	}
	if !r.TotalRevenue.Equal(decimal.RequireFromString("2526.01")) {
		t.Errorf("TotalRevenue: got %s, want 2526.01", r.TotalRevenue)
	}
	if r.ListingOrder != 0 {
		t.Errorf("ListingOrder: got %d, want unassigned", r.ListingOrder)
	}

	rep := res.Sources[0]
	if rep.Schema != models.SchemaPriced.String() || rep.Rejected != 1 || rep.Records != 1 {
		t.Errorf("report: %+v", rep)
	}
	if res.UploadID == "" {
		t.Error("UploadID not assigned")
	}
}

func TestUploadSkipsRowsOfOtherWidths(t *testing.T) {
	p := newTestPipeline(t)

	res, err := p.Upload(context.Background(), []models.Source{
		source("ragged.csv",
			rowUnpricedB,
			"tea towels,https://www.ebay.com/itm/111,4,6,2026-01-10 09:00:00,Success",
			"stray,https://www.ebay.com/itm/222,$1.00,4,6,2026-01-10 09:00:00,Success,extra",
		),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(res.Dataset) != 2 {
		t.Errorf("records: got %d, want 2", len(res.Dataset))
	}
	if res.Sources[0].Skipped != 1 {
		t.Errorf("skipped: got %d, want 1", res.Sources[0].Skipped)
	}
}

func TestUploadMergesAndDeduplicates(t *testing.T) {
	p := newTestPipeline(t)

	first := source("dec.csv",
		"heater,https://www.ebay.com/itm/1,$10.00,1,2,2026-01-01 10:00:00,Success",
		"kettle,https://www.ebay.com/itm/2,$20.00,3,4,2026-01-02 10:00:00,Success",
	)
	second := source("jan.csv",
		"heater,https://www.ebay.com/itm/1,$10.00,5,9,2026-01-20 10:00:00,Success",
		"toaster,https://www.ebay.com/itm/3,$30.00,0,1,2026-01-03 10:00:00,Success",
	)

	res, err := p.Upload(context.Background(), []models.Source{first, second})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !res.Merged {
		t.Error("expected merged result")
	}
	if len(res.Dataset) != 3 {
		t.Fatalf("records: got %d, want 3 distinct urls", len(res.Dataset))
	}

	heater := byURL(res.Dataset)["https://www.ebay.com/itm/1"]
	if heater.JanSales != 9 || heater.SourceName != "jan.csv" {
		t.Errorf("heater: got jan=%d source=%s, want 9 from jan.csv", heater.JanSales, heater.SourceName)
	}
	if heater.ListingOrder != 3 {
		t.Errorf("heater ListingOrder: got %d, want 3 (latest check)", heater.ListingOrder)
	}
}

func TestUploadStructuralFailureDoesNotBlockOthers(t *testing.T) {
	p := newTestPipeline(t)

	res, err := p.Upload(context.Background(), []models.Source{
		source("narrow.csv", "a,b", "c,d"),
		source("good.csv", rowUnpricedB),
		{Name: "binary.csv", Content: []byte{0xc3, 0x28, 0xa0, 0xa1, 0x0a}},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(res.Dataset) != 1 {
		t.Fatalf("records: got %d, want 1", len(res.Dataset))
	}
	if res.Sources[0].Error == "" {
		t.Error("narrow.csv should report an error")
	}
	if res.Sources[1].Error != "" {
		t.Errorf("good.csv reported an error: %s", res.Sources[1].Error)
	}
}

func TestUploadNoValidData(t *testing.T) {
	p := newTestPipeline(t)

	_, err := p.Upload(context.Background(), []models.Source{source("amazon.csv", rowAmazonC)})
	if !errors.Is(err, ErrNoValidData) {
		t.Errorf("all rows rejected: got %v, want ErrNoValidData", err)
	}

	_, err = p.Upload(context.Background(), nil)
	if !errors.Is(err, ErrNoValidData) {
		t.Errorf("no sources: got %v, want ErrNoValidData", err)
	}
}

func TestParseSourceStructuralErrors(t *testing.T) {
	p := newTestPipeline(t)

	tests := []struct {
		name    string
		content []byte
	}{
		{"empty", []byte("")},
		{"blank", []byte("  \n\n")},
		{"header only", []byte("Keyword,URL,Price\n")},
		{"two columns", []byte("a,b\nc,d\n")},
		{"invalid utf-8", []byte{'a', ',', 0xc3, 0x28, ',', 'b', '\n'}},
	}

	for _, tt := range tests {
		_, err := p.ParseSource(context.Background(), models.Source{Name: tt.name, Content: tt.content})
		if !errors.Is(err, ErrStructural) {
			t.Errorf("%s: got %v, want ErrStructural", tt.name, err)
		}
	}
}

func TestParseSourceHonorsCancelledContext(t *testing.T) {
	p := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.ParseSource(ctx, source("a.csv", rowPricedA)); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestParseSourceUTF16AndBOM(t *testing.T) {
	p := newTestPipeline(t)

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE})
	for _, u := range utf16.Encode([]rune(rowUnpricedB + "\n")) {
		binary.Write(&buf, binary.LittleEndian, u)
	}

	parsed, err := p.ParseSource(context.Background(), models.Source{Name: "utf16.csv", Content: buf.Bytes()})
	if err != nil {
		t.Fatalf("utf-16: %v", err)
	}
	if len(parsed.Dataset) != 1 || parsed.Dataset[0].Product != "silicone pot holders" {
		t.Errorf("utf-16: unexpected dataset %+v", parsed.Dataset)
	}

	bom := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Keyword,URL\n"+rowUnpricedB+"\n")...)
	parsed, err = p.ParseSource(context.Background(), models.Source{Name: "bom.csv", Content: bom})
	if err != nil {
		t.Fatalf("utf-8 bom: %v", err)
	}
	if len(parsed.Dataset) != 1 {
		t.Errorf("utf-8 bom: header not stripped, got %d records", len(parsed.Dataset))
	}
}

func TestParseSourceCacheHitMatchesMiss(t *testing.T) {
	p := newTestPipeline(t)
	src := source("a.csv", rowPricedA, rowUnpricedB)

	miss, err := p.ParseSource(context.Background(), src)
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	hit, err := p.ParseSource(context.Background(), src)
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}

	if miss.Report.CacheHit || !hit.Report.CacheHit {
		t.Errorf("CacheHit flags: miss=%v hit=%v", miss.Report.CacheHit, hit.Report.CacheHit)
	}
	if !reflect.DeepEqual(miss.Dataset, hit.Dataset) {
		t.Error("cache hit returned a different dataset than the miss")
	}

	hit.Dataset[0].Product = "mutated"
	again, _ := p.ParseSource(context.Background(), src)
	if again.Dataset[0].Product == "mutated" {
		t.Error("mutating a cache hit leaked into the cache")
	}
}

func TestUploadEvictsStaleCacheEntries(t *testing.T) {
	p := newTestPipeline(t)

	if _, err := p.Upload(context.Background(), []models.Source{source("a.csv", rowPricedA)}); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if _, err := p.Upload(context.Background(), []models.Source{source("b.csv", rowUnpricedB)}); err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if n := p.cache.Len(); n != 1 {
		t.Errorf("cache entries after new upload: got %d, want 1", n)
	}

	p.Reset()
	if n := p.cache.Len(); n != 0 {
		t.Errorf("cache entries after Reset: got %d, want 0", n)
	}
}
