package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withDatasets swaps the dataset registry for the duration of a test.
func withDatasets(t *testing.T, datasets []Dataset) {
	t.Helper()
	saved := Datasets
	Datasets = datasets
	t.Cleanup(func() { Datasets = saved })
}

func zipBytes(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(name)
	require.NoError(t, err)
	_, err = f.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDownloadWritesNonEmptyFiles(t *testing.T) {
	csvBody := []byte("Order Id,Product Name\n1,Pallet jack\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/supply_chain.csv":
			w.Write(csvBody)
		case "/logistics.zip":
			w.Write(zipBytes(t, "supply_chain_logistics_problem.xlsx", []byte("workbook-bytes")))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	withDatasets(t, []Dataset{
		{Name: "supply_chain", URL: server.URL + "/supply_chain.csv", Filename: "supply_chain_dataset.csv"},
		{Name: "logistics_problem", URL: server.URL + "/logistics.zip", Filename: "supply_chain_logistics_problem.zip"},
	})

	dataDir := t.TempDir()
	downloaded, err := NewDownloader(nil).Download(context.Background(), dataDir, false)
	require.NoError(t, err)
	require.Len(t, downloaded, 2)

	data, err := os.ReadFile(filepath.Join(dataDir, "supply_chain_dataset.csv"))
	require.NoError(t, err)
	assert.Equal(t, csvBody, data)

	// The zip archive must be extracted next to the download.
	extracted, err := os.ReadFile(filepath.Join(dataDir, "supply_chain_logistics_problem.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, []byte("workbook-bytes"), extracted)
}

func TestDownloadSkipsExistingFiles(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("fresh"))
	}))
	defer server.Close()

	withDatasets(t, []Dataset{
		{Name: "supply_chain", URL: server.URL + "/f.csv", Filename: "f.csv"},
	})

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "f.csv"), []byte("cached"), 0o644))

	d := NewDownloader(nil)

	_, err := d.Download(context.Background(), dataDir, false)
	require.NoError(t, err)
	assert.Equal(t, 0, hits, "existing file must not be re-fetched")

	_, err = d.Download(context.Background(), dataDir, true)
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "force must overwrite")

	data, err := os.ReadFile(filepath.Join(dataDir, "f.csv"))
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), data)
}

func TestDownloadPropagatesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	withDatasets(t, []Dataset{
		{Name: "supply_chain", URL: server.URL + "/f.csv", Filename: "f.csv"},
	})

	_, err := NewDownloader(nil).Download(context.Background(), t.TempDir(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}
