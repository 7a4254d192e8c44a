package ui

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, pngHeader, 0o644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	return path
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("expected status %d, got %d", want, rr.Code)
	}
}

func assertBody(t *testing.T, rr *httptest.ResponseRecorder, want ...string) {
	t.Helper()
	body := rr.Body.String()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("body does not contain %q", w)
		}
	}
}

func assertNotBody(t *testing.T, rr *httptest.ResponseRecorder, unwanted string) {
	t.Helper()
	if strings.Contains(rr.Body.String(), unwanted) {
		t.Errorf("body unexpectedly contains %q", unwanted)
	}
}

func TestBackgrounds(t *testing.T) {
	redDwarf := writeImage(t, "red_dwarf.png")
	fallback := writeImage(t, "static.png")

	bg, err := NewBackgrounds(map[string]string{"Red Dwarf": redDwarf}, fallback, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	uri, err := bg.For("Red Dwarf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader); uri != want {
		t.Errorf("unexpected data uri %q", uri)
	}

	// cached: removing the file does not matter any more
	if err := os.Remove(redDwarf); err != nil {
		t.Fatalf("failed to remove image: %v", err)
	}
	again, err := bg.For("Red Dwarf")
	if err != nil || again != uri {
		t.Errorf("expected cached uri, got %q, %v", again, err)
	}

	other, err := bg.For("Hypergiant")
	if err != nil || !strings.HasPrefix(other, "data:image/png;base64,") {
		t.Errorf("expected fallback uri, got %q, %v", other, err)
	}

	none, err := NewBackgrounds(nil, "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty, err := none.For("Red Dwarf"); err != nil || empty != "" {
		t.Errorf("expected no background, got %q, %v", empty, err)
	}
}

func TestBackgroundsRejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.jpg")
	if err := os.WriteFile(path, []byte("just text"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	bg, err := NewBackgrounds(map[string]string{"White Dwarf": path}, "", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := bg.For("White Dwarf"); err == nil || !strings.Contains(err.Error(), "not an image") {
		t.Errorf("expected not an image error, got %v", err)
	}
}

type fakeAPI struct {
	predictStatus int
	predictBody   string
	bulkStatus    int
	bulkBody      string
	uploads       int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/predict":
		w.WriteHeader(f.predictStatus)
		io.WriteString(w, f.predictBody)
	case "/bulk_predict":
		f.uploads++
		w.WriteHeader(f.bulkStatus)
		io.WriteString(w, f.bulkBody)
	default:
		http.NotFound(w, r)
	}
}

func newTestUI(t *testing.T, api *fakeAPI, backgrounds map[string]string) http.Handler {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	bg, err := NewBackgrounds(backgrounds, "", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	handler, err := NewHandler(NewAPIClient(server.URL, time.Second), bg, "../data/sample_dataset.csv", nil)
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}

	mux := http.NewServeMux()
	handler.RegisterHandlers(mux)
	return mux
}

func TestIntroAndSingleForm(t *testing.T) {
	ui := newTestUI(t, &fakeAPI{}, nil)

	rr := httptest.NewRecorder()
	ui.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assertStatus(t, rr, http.StatusOK)
	assertBody(t, rr, "Welcome to the Star Type Predictor")

	rr = httptest.NewRecorder()
	ui.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/single", nil))
	assertStatus(t, rr, http.StatusOK)
	assertBody(t, rr,
		`name="temperature" type="number" min="0" step="100" value="5000"`,
		`value="1.0"`,
		`value="5.0"`,
	)
}

func postSingle(ui http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/single", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	ui.ServeHTTP(rr, req)
	return rr
}

func singleValues() url.Values {
	return url.Values{
		"temperature":        {"3068"},
		"luminosity":         {"0.0024"},
		"radius":             {"0.17"},
		"absolute_magnitude": {"16.12"},
	}
}

func TestSinglePredict(t *testing.T) {
	api := &fakeAPI{predictStatus: http.StatusOK, predictBody: `{"predicted_type":"Brown Dwarf","predicted_probability":1}`}
	ui := newTestUI(t, api, map[string]string{"Brown Dwarf": writeImage(t, "brown.png")})

	rr := postSingle(ui, singleValues())

	assertStatus(t, rr, http.StatusOK)
	assertBody(t, rr, "Predicted Star Type: Brown Dwarf", "data:image/png;base64,", `value="3068"`)
}

func TestSinglePredictShowsServiceError(t *testing.T) {
	api := &fakeAPI{predictStatus: http.StatusInternalServerError, predictBody: `{"detail":"Prediction error: boom"}`}
	ui := newTestUI(t, api, nil)

	rr := postSingle(ui, singleValues())

	assertStatus(t, rr, http.StatusInternalServerError)
	assertBody(t, rr, "Error: Prediction error: boom")
	assertNotBody(t, rr, "Predicted Star Type")
}

func TestSinglePredictRejectsBadInput(t *testing.T) {
	ui := newTestUI(t, &fakeAPI{}, nil)

	values := singleValues()
	values.Set("temperature", "5000.5")
	rr := postSingle(ui, values)
	assertStatus(t, rr, http.StatusBadRequest)
	assertBody(t, rr, "must be a non-negative integer")

	values = singleValues()
	values.Set("radius", "-1")
	rr = postSingle(ui, values)
	assertStatus(t, rr, http.StatusBadRequest)
	assertBody(t, rr, "must not be negative")
}

func postBulk(t *testing.T, ui http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/bulk", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	ui.ServeHTTP(rr, req)
	return rr
}

func TestBulkPredict(t *testing.T) {
	annotated := "Temperature (K),Luminosity(L/Lo),Radius(R/Ro),Absolute magnitude(Mv),Predicted Type\n3068,0.0024,0.17,16.12,Brown Dwarf\n"
	api := &fakeAPI{bulkStatus: http.StatusOK, bulkBody: annotated}
	ui := newTestUI(t, api, nil)

	rr := postBulk(t, ui, "stars.csv", "Temperature (K),Luminosity(L/Lo),Radius(R/Ro),Absolute magnitude(Mv),Star color\n3068,0.0024,0.17,16.12,Red\n")

	assertStatus(t, rr, http.StatusOK)
	assertBody(t, rr,
		"Uploaded Data",
		"<td>Red</td>",
		"<td>Brown Dwarf</td>",
		`href="data:text/csv;base64,`,
		`download="predictions.csv"`,
	)
}

func TestBulkPredictShowsServiceError(t *testing.T) {
	api := &fakeAPI{bulkStatus: http.StatusBadRequest, bulkBody: `{"detail":"Only CSV files are supported."}`}
	ui := newTestUI(t, api, nil)

	rr := postBulk(t, ui, "stars.txt", "a,b\n1,2\n")

	assertStatus(t, rr, http.StatusBadRequest)
	assertBody(t, rr, "Error: Only CSV files are supported.", "Uploaded Data")
	assertNotBody(t, rr, "Download Predictions")
}

func TestBulkPredictLocalParseFailure(t *testing.T) {
	api := &fakeAPI{bulkStatus: http.StatusOK}
	ui := newTestUI(t, api, nil)

	rr := postBulk(t, ui, "stars.csv", "a,b\n1,2,3\n")

	assertStatus(t, rr, http.StatusBadRequest)
	assertBody(t, rr, "Error processing file:")
	if api.uploads != 0 {
		t.Errorf("expected no upload, got %d", api.uploads)
	}
}

func TestSampleDownload(t *testing.T) {
	ui := newTestUI(t, &fakeAPI{}, nil)

	rr := httptest.NewRecorder()
	ui.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sample.csv", nil))

	assertStatus(t, rr, http.StatusOK)
	if cd := rr.Header().Get("Content-Disposition"); cd != "attachment; filename=sample_dataset.csv" {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if !strings.HasPrefix(rr.Body.String(), "Temperature (K),") {
		t.Errorf("unexpected sample body %q", rr.Body.String())
	}
}
