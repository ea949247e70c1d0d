package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"ebay-sales-analytics/config"
	"ebay-sales-analytics/services"
	"ebay-sales-analytics/utils"
)

const (
	decCSV = "Keyword,URL,Price,Dec Sales,Jan Sales,Date Checked,Status\n" +
		"Water Heaters,https://www.ebay.com/itm/336302890907,$41.41,16,45,2026-01-24 11:54:57,Success\n" +
		"Kettles,https://www.ebay.com/itm/111,$20.00,10,2,2026-01-02 09:00:00,Success\n"
	janCSV = "silicone pot holders,https://www.ebay.com/itm/174746731680,11,5,2026-01-14 22:52:31,Success\n" +
		"Kettles,https://www.amazon.com/dp/B0001,3,4,2026-01-15 10:00:00,Success\n"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := utils.NewDiscardLogger()
	p, err := services.NewPipeline(config.Default(), logger)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	ts := httptest.NewServer(New(p, services.NewInsightService(logger), 10, logger).Routes())
	t.Cleanup(ts.Close)
	return ts
}

func upload(t *testing.T, ts *httptest.Server, files map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/uploads", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST uploads: %v", err)
	}
	return resp
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestRecordsBeforeUpload(t *testing.T) {
	ts := newTestServer(t)
	if code := getJSON(t, ts.URL+"/api/records", nil); code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", code)
	}
}

func TestUploadAndQuery(t *testing.T) {
	ts := newTestServer(t)

	resp := upload(t, ts, map[string]string{"dec.csv": decCSV, "jan.csv": janCSV})
	var up struct {
		UploadID string `json:"upload_id"`
		Merged   bool   `json:"merged"`
		Records  int    `json:"records"`
	}
	json.NewDecoder(resp.Body).Decode(&up)
	resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status: got %d, want 201", resp.StatusCode)
	}
	if !up.Merged || up.Records != 3 || up.UploadID == "" {
		t.Errorf("upload response: got %+v", up)
	}

	var recs struct {
		Count   int `json:"count"`
		Records []struct {
			URL          string `json:"url"`
			ListingOrder int    `json:"listing_order"`
		} `json:"records"`
	}
	getJSON(t, ts.URL+"/api/records", &recs)
	if recs.Count != 3 {
		t.Fatalf("records count: got %d, want 3", recs.Count)
	}
	if recs.Records[0].URL != "https://www.ebay.com/itm/111" || recs.Records[0].ListingOrder != 1 {
		t.Errorf("first record: got %+v, want the earliest checked kettle", recs.Records[0])
	}

	getJSON(t, ts.URL+"/api/records?category=growing&min_price=30", &recs)
	if recs.Count != 1 || recs.Records[0].URL != "https://www.ebay.com/itm/336302890907" {
		t.Errorf("filtered records: got %+v", recs)
	}

	var summary struct {
		TotalRecords int    `json:"total_records"`
		TotalRevenue string `json:"total_revenue"`
	}
	getJSON(t, ts.URL+"/api/summary?product=Water%20Heaters", &summary)
	if summary.TotalRecords != 1 || summary.TotalRevenue != "2526.01" {
		t.Errorf("summary: got %+v", summary)
	}

	var products struct {
		Names []string `json:"names"`
	}
	getJSON(t, ts.URL+"/api/products", &products)
	if strings.Join(products.Names, "|") != "Kettles|Water Heaters|silicone pot holders" {
		t.Errorf("products: got %v", products.Names)
	}
}

func TestBadFilterRejected(t *testing.T) {
	ts := newTestServer(t)
	upload(t, ts, map[string]string{"dec.csv": decCSV}).Body.Close()

	for _, q := range []string{"category=rocket", "min_price=abc", "checked_within=soon", "min_total_sales=x"} {
		if code := getJSON(t, ts.URL+"/api/records?"+q, nil); code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", q, code)
		}
	}
}

func TestUploadWithoutValidData(t *testing.T) {
	ts := newTestServer(t)
	resp := upload(t, ts, map[string]string{"bad.csv": "a,b\nc,d\n"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", resp.StatusCode)
	}
}

func TestExportRecordsCSV(t *testing.T) {
	ts := newTestServer(t)
	upload(t, ts, map[string]string{"dec.csv": decCSV}).Body.Close()

	resp, err := http.Get(ts.URL + "/api/export/records.csv")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type: got %q", ct)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("csv lines: got %d, want 3", len(lines))
	}
	if !strings.Contains(buf.String(), "2526.01") {
		t.Error("export missing total revenue")
	}
}

func TestResetClearsDataset(t *testing.T) {
	ts := newTestServer(t)
	upload(t, ts, map[string]string{"dec.csv": decCSV}).Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/uploads", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status: got %d, want 204", resp.StatusCode)
	}
	if code := getJSON(t, ts.URL+"/api/summary", nil); code != http.StatusNotFound {
		t.Errorf("summary after reset: got %d, want 404", code)
	}
}

func TestUploadRemovesSpilledFiles(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	prev := maxUploadMemory
	maxUploadMemory = 1
	t.Cleanup(func() { maxUploadMemory = prev })

	ts := newTestServer(t)
	resp := upload(t, ts, map[string]string{"dec.csv": decCSV})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status: got %d, want 201", resp.StatusCode)
	}

	left, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("temp files left after upload: %d", len(left))
	}
}
