// Package dataset downloads the logistics datasets and converts their rows
// into text documents for indexing.
package dataset

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Dataset describes one remote dataset file.
type Dataset struct {
	Name        string
	URL         string
	Filename    string
	Description string
}

// Datasets is the fixed registry of logistics data sources.
var Datasets = []Dataset{
	{
		Name:        "supply_chain",
		URL:         "https://raw.githubusercontent.com/ashishpatel26/DataCo-SMART-SUPPLY-CHAIN-FOR-BIG-DATA-ANALYSIS/master/DataCoSupplyChainDataset.csv",
		Filename:    "supply_chain_dataset.csv",
		Description: "DataCo supply chain - sales, shipments and customers",
	},
	{
		Name:        "logistics_problem",
		URL:         "https://raw.githubusercontent.com/ashishpatel26/Supply-Chain-Logistics-Problem-Dataset/master/supply_chain_logistics_problem.zip",
		Filename:    "supply_chain_logistics_problem.zip",
		Description: "Supply chain logistics problem - order list and freight rates workbook",
	},
}

// Downloader fetches datasets into a local raw-data directory.
type Downloader struct {
	client *http.Client
	logger *zap.Logger
}

// NewDownloader creates a Downloader. A nil logger is replaced with a no-op.
func NewDownloader(logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		client: &http.Client{Timeout: 5 * time.Minute},
		logger: logger,
	}
}

// Download fetches every registered dataset into dataDir, extracting zip
// archives in place. Existing files are skipped unless force is set. It
// returns the local path of each dataset file keyed by dataset name.
//
// There is no retry or checksum verification; the first error aborts.
func (d *Downloader) Download(ctx context.Context, dataDir string, force bool) (map[string]string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	downloaded := make(map[string]string, len(Datasets))
	for _, ds := range Datasets {
		path := filepath.Join(dataDir, ds.Filename)

		if !force {
			if info, err := os.Stat(path); err == nil && info.Size() > 0 {
				d.logger.Info("dataset already present, skipping",
					zap.String("dataset", ds.Name),
					zap.String("path", path),
				)
				downloaded[ds.Name] = path
				continue
			}
		}

		d.logger.Info("downloading dataset",
			zap.String("dataset", ds.Name),
			zap.String("url", ds.URL),
		)
		if err := d.fetch(ctx, ds.URL, path); err != nil {
			return nil, fmt.Errorf("downloading %s: %w", ds.Name, err)
		}

		if strings.HasSuffix(path, ".zip") {
			if err := extractZip(path, dataDir); err != nil {
				return nil, fmt.Errorf("extracting %s: %w", ds.Name, err)
			}
			d.logger.Info("extracted archive", zap.String("path", path))
		}

		downloaded[ds.Name] = path
	}
	return downloaded, nil
}

// fetch downloads a single URL to the given path, overwriting any existing
// file.
func (d *Downloader) fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// extractZip unpacks every regular file in the archive into destDir. Entry
// paths must stay inside destDir.
func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		// Flatten: archives ship a single workbook, keep just the base name.
		target := filepath.Join(destDir, filepath.Base(f.Name))
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes destination", f.Name)
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening entry %s: %w", f.Name, err)
		}

		out, err := os.Create(target)
		if err != nil {
			rc.Close()
			return fmt.Errorf("creating %s: %w", target, err)
		}

		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}
	return nil
}
