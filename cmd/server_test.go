package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/assessor-cli/internal/fetcher"
	"github.com/sells-group/assessor-cli/internal/model"
	"github.com/sells-group/assessor-cli/internal/pipeline"
	"github.com/sells-group/assessor-cli/internal/registry"
)

func testServer(t *testing.T) http.Handler {
	t.Helper()
	opts := pipeline.Options{
		Schema:    pipeline.DefaultSchema(),
		Directory: registry.DefaultDirectory(""),
		Today:     testNow,
	}
	return buildRouter(newServer(opts, fetcher.Options{}, time.Minute, 1))
}

// uploadRequest builds a multipart upload with one file per period label.
func uploadRequest(t *testing.T, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for label, data := range files {
		fw, err := mw.CreateFormFile(label, label+".csv")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyses", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func createAnalysis(t *testing.T, h http.Handler, files map[string][]byte) string {
	t.Helper()
	rr := serve(h, uploadRequest(t, files))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		RunID  string `json:"run_id"`
		Cached bool   `json:"cached"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RunID)
	assert.False(t, resp.Cached)
	return resp.RunID
}

func sampleUpload() map[string][]byte {
	return map[string][]byte{
		"May 2024":  csvData("74930;João;100", "31704;JOAO;40", "31704;Maria;5"),
		"June 2024": csvData("74930;Ana;50"),
	}
}

func TestRouter_Health(t *testing.T) {
	rr := serve(testServer(t), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_CreateAndCache(t *testing.T) {
	h := testServer(t)
	id := createAnalysis(t, h, sampleUpload())

	// Same content returns the cached analysis.
	rr := serve(h, uploadRequest(t, map[string][]byte{
		"June 2024": csvData("74930;Ana;50"),
		"May 2024":  csvData("74930;João;100", "31704;JOAO;40", "31704;Maria;5"),
	}))
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		RunID   string   `json:"run_id"`
		Cached  bool     `json:"cached"`
		Periods []string `json:"periods"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.RunID)
	assert.True(t, resp.Cached)
	assert.Equal(t, []string{"May 2024", "June 2024"}, resp.Periods)
}

func TestRouter_CreateErrors(t *testing.T) {
	h := testServer(t)

	rr := serve(h, uploadRequest(t, map[string][]byte{}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h, uploadRequest(t, map[string][]byte{"May 2024": []byte("Foo;Bar\n1;2\n")}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "rejected")

	req := httptest.NewRequest(http.MethodPost, "/analyses", bytes.NewReader([]byte("not multipart")))
	req.Header.Set("Content-Type", "text/plain")
	rr = serve(h, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	big := bytes.Repeat([]byte("x"), 2<<20)
	rr = serve(h, uploadRequest(t, map[string][]byte{"May 2024": big}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestRouter_Queries(t *testing.T) {
	h := testServer(t)
	id := createAnalysis(t, h, sampleUpload())
	may := "?period=" + url.QueryEscape("May 2024")

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/ranking"+may, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var ranking []rankRow
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ranking))
	require.Len(t, ranking, 2)
	assert.Equal(t, "Renato Parentoni", ranking[0].AdvisorName)
	assert.Equal(t, "R$ 100,00", ranking[0].Formatted)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/client-counts", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var counts []model.ClientCount
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &counts))
	require.Len(t, counts, 2)
	assert.Equal(t, 2, counts[0].Clients)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/clients"+may+"&advisor=Ander", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var clients []model.ClientRevenue
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &clients))
	require.Len(t, clients, 2)
	assert.Equal(t, "R$ 40,00", clients[0].Formatted)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/categories?advisor=74930", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var cats []model.CategoryTotal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cats))
	assert.Len(t, cats, 5)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/duplicates", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var dups []model.DuplicateFlag
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dups))
	require.Len(t, dups, 1)
	assert.Equal(t, "JOAO", dups[0].ClientKey)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/conflicts", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var conflicts []model.AttributionConflict
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &conflicts))
	require.Len(t, conflicts, 1)
	assert.Equal(t, "74930", conflicts[0].Primary)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/demographics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Male")

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ranking"`)
}

func TestRouter_QueryErrors(t *testing.T) {
	h := testServer(t)
	id := createAnalysis(t, h, sampleUpload())

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/analyses/unknown/ranking", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/clients", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/clients?advisor=Nobody", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/export?table=other", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_AmbiguousAdvisorName(t *testing.T) {
	h := testServer(t)
	id := createAnalysis(t, h, map[string][]byte{
		"May 2024": csvData("11111;Joao;10", "22222;Maria;20", "74930;Ana;5"),
	})
	unknown := "?advisor=" + url.QueryEscape(model.UnknownAdvisor)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/clients"+unknown, nil))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "11111, 22222")

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/export?table=clients&advisor="+url.QueryEscape(model.UnknownAdvisor), nil))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/clients?advisor=22222", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var clients []model.ClientRevenue
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &clients))
	require.Len(t, clients, 1)
	assert.Equal(t, "MARIA", clients[0].ClientKey)
}

func TestRouter_Export(t *testing.T) {
	h := testServer(t)
	id := createAnalysis(t, h, sampleUpload())

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/export?period="+url.QueryEscape("May 2024"), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, contentTypeXLSX, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "dados_filtrados_May_2024.xlsx")

	f, err := xlsx.OpenBinary(rr.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Len(t, f.Sheets[0].Rows, 3)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/export?table=clients&format=csv&advisor=31704", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, contentTypeCSV, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "clientes_Ander_May_2024-June_2024.csv")
	assert.Equal(t, "Cliente,Receita no Mês\nJOAO,40.00\nMARIA,5.00\n", rr.Body.String())
}

func TestRouter_UploadRateLimit(t *testing.T) {
	opts := pipeline.Options{
		Schema:    pipeline.DefaultSchema(),
		Directory: registry.DefaultDirectory(""),
		Today:     testNow,
	}
	h := buildRouter(newServer(opts, fetcher.Options{}, time.Minute, 1).withUploadLimit(1))
	files := map[string][]byte{"May 2024": csvData("74930;João;100")}

	rr := serve(h, uploadRequest(t, files))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = serve(h, uploadRequest(t, files))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// Reads are never limited.
	rr = serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_AgesAgainstRequestDate(t *testing.T) {
	s := newServer(pipeline.Options{
		Schema:    pipeline.DefaultSchema(),
		Directory: registry.DefaultDirectory(""),
	}, fetcher.Options{}, time.Minute, 1)
	clock := time.Date(2024, time.June, 14, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	h := buildRouter(s)
	files := map[string][]byte{"May 2024": csvData("74930;João;100")}

	ageCohorts := func(id string) []string {
		rr := serve(h, httptest.NewRequest(http.MethodGet, "/analyses/"+id+"/demographics", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var d model.Demographics
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
		var cohorts []string
		for _, row := range d.ByAge {
			if row.Clients > 0 {
				cohorts = append(cohorts, row.Cohort)
			}
		}
		return cohorts
	}

	first := createAnalysis(t, h, files)
	assert.Equal(t, []string{"0-24"}, ageCohorts(first), "23 on the day before the birthday")

	clock = time.Date(2025, time.June, 15, 9, 0, 0, 0, time.UTC)
	second := createAnalysis(t, h, files)
	assert.NotEqual(t, first, second, "a new day is not served from cache")
	assert.Equal(t, []string{"25-34"}, ageCohorts(second))
}

func TestContentHash_OrderIndependent(t *testing.T) {
	a := []fetcher.Source{
		{Period: model.ParsePeriod("May 2024"), Name: "a.csv", Data: []byte("1")},
		{Period: model.ParsePeriod("June 2024"), Name: "b.csv", Data: []byte("2")},
	}
	b := []fetcher.Source{a[1], a[0]}
	assert.Equal(t, contentHash(a), contentHash(b))

	c := []fetcher.Source{a[0], {Period: a[1].Period, Name: "b.xlsx", Data: []byte("2")}}
	assert.NotEqual(t, contentHash(a), contentHash(c))
}
