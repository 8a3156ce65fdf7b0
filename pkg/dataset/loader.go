package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/andrew/logistics-rag/pkg/models"
)

const (
	supplyChainFile = "supply_chain_dataset.csv"
	workbookFile    = "supply_chain_logistics_problem.xlsx"

	orderListSheet    = "OrderList"
	freightRatesSheet = "FreightRates"

	// sampleSeed fixes the supply chain row sample so repeated indexing runs
	// produce the same documents.
	sampleSeed = 42
)

// Loader converts raw dataset files into documents.
type Loader struct {
	logger *zap.Logger

	// MaxSupplyChainRows caps how many supply chain rows are loaded.
	MaxSupplyChainRows int
}

// NewLoader creates a Loader. A nil logger is replaced with a no-op.
func NewLoader(maxSupplyChainRows int, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSupplyChainRows <= 0 {
		maxSupplyChainRows = 500
	}
	return &Loader{logger: logger, MaxSupplyChainRows: maxSupplyChainRows}
}

// LoadDocuments reads whichever dataset files exist under dataDir and returns
// one document per row. Missing dataset files are skipped with a warning;
// a malformed file or a missing required column is an error.
func (l *Loader) LoadDocuments(dataDir string) ([]models.Document, error) {
	var docs []models.Document

	csvPath := filepath.Join(dataDir, supplyChainFile)
	if _, err := os.Stat(csvPath); err == nil {
		supplyDocs, err := l.loadSupplyChain(csvPath)
		if err != nil {
			return nil, fmt.Errorf("loading supply chain dataset: %w", err)
		}
		l.logger.Info("loaded supply chain dataset", zap.Int("documents", len(supplyDocs)))
		docs = append(docs, supplyDocs...)
	} else {
		l.logger.Warn("supply chain dataset not found, skipping", zap.String("path", csvPath))
	}

	xlsxPath := filepath.Join(dataDir, workbookFile)
	if _, err := os.Stat(xlsxPath); err == nil {
		wbDocs, err := l.loadWorkbook(xlsxPath)
		if err != nil {
			return nil, fmt.Errorf("loading logistics workbook: %w", err)
		}
		l.logger.Info("loaded logistics workbook", zap.Int("documents", len(wbDocs)))
		docs = append(docs, wbDocs...)
	} else {
		l.logger.Warn("logistics workbook not found, skipping", zap.String("path", xlsxPath))
	}

	l.logger.Info("documents loaded", zap.Int("total", len(docs)))
	return docs, nil
}

// columns maps header names to their indices and fails on missing headers.
type columns map[string]int

func newColumns(header []string, required ...string) (columns, error) {
	cols := make(columns, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("required column %q not found", name)
		}
	}
	return cols, nil
}

// get returns the named cell of a row, or "N/A" when the cell is absent or
// blank.
func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return "N/A"
	}
	v := strings.TrimSpace(row[i])
	if v == "" {
		return "N/A"
	}
	return v
}

// loadSupplyChain converts the DataCo CSV into shipment order documents.
// The file is latin-1 encoded.
func (l *Loader) loadSupplyChain(path string) ([]models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(f))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols, err := newColumns(header,
		"Order Id",
		"Customer Segment",
		"Product Name",
		"Category Name",
		"Shipping Mode",
		"Delivery Status",
		"Market",
	)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		rows = append(rows, row)
	}

	rows = sampleRows(rows, l.MaxSupplyChainRows)

	docs := make([]models.Document, 0, len(rows))
	for i, row := range rows {
		orderID := cols.get(row, "Order Id")
		if orderID == "N/A" {
			orderID = strconv.Itoa(i)
		}

		// Orders span multiple item rows, so the order id alone does not
		// identify a row. The item id does; the sample position stands in
		// when it is missing.
		itemID := cols.get(row, "Order Item Id")
		if itemID == "N/A" {
			itemID = strconv.Itoa(i)
		}

		content := fmt.Sprintf(`Shipment Order #%s
Customer: %s %s (%s)
Location: %s, %s, %s

Product: %s
Category: %s > %s
Price: $%s
Quantity: %s

Shipping:
- Mode: %s
- Status: %s
- Scheduled days: %s
- Actual days: %s

Market: %s
Region: %s`,
			orderID,
			cols.get(row, "Customer Fname"), cols.get(row, "Customer Lname"), cols.get(row, "Customer Segment"),
			cols.get(row, "Customer City"), cols.get(row, "Customer State"), cols.get(row, "Customer Country"),
			cols.get(row, "Product Name"),
			cols.get(row, "Category Name"), cols.get(row, "Department Name"),
			cols.get(row, "Product Price"),
			cols.get(row, "Order Item Quantity"),
			cols.get(row, "Shipping Mode"),
			cols.get(row, "Delivery Status"),
			cols.get(row, "Days for shipment (scheduled)"),
			cols.get(row, "Days for shipping (real)"),
			cols.get(row, "Market"),
			cols.get(row, "Order Region"),
		)

		docs = append(docs, models.Document{
			ID:      models.NewDocumentID("supply_chain", itemID),
			Content: content,
			Source:  "supply_chain",
			Metadata: map[string]string{
				"source":        "supply_chain",
				"row":           itemID,
				"order_id":      orderID,
				"category":      cols.get(row, "Category Name"),
				"shipping_mode": cols.get(row, "Shipping Mode"),
				"market":        cols.get(row, "Market"),
			},
			Created: time.Now(),
		})
	}
	return docs, nil
}

// sampleRows returns at most max rows, picked with a fixed-seed sample so the
// selection is stable across runs. Row order is preserved.
func sampleRows(rows [][]string, max int) [][]string {
	if len(rows) <= max {
		return rows
	}

	rng := rand.New(rand.NewSource(sampleSeed))
	picked := rng.Perm(len(rows))[:max]
	sort.Ints(picked)

	sampled := make([][]string, 0, max)
	for _, i := range picked {
		sampled = append(sampled, rows[i])
	}
	return sampled
}

// loadWorkbook converts the logistics problem workbook into order and freight
// rate documents. Sheets that are absent are skipped.
func (l *Loader) loadWorkbook(path string) ([]models.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	var docs []models.Document

	sheets := map[string]bool{}
	for _, s := range f.GetSheetList() {
		sheets[s] = true
	}

	if sheets[orderListSheet] {
		orderDocs, err := l.loadOrderList(f)
		if err != nil {
			return nil, err
		}
		docs = append(docs, orderDocs...)
	} else {
		l.logger.Warn("sheet not found in workbook", zap.String("sheet", orderListSheet))
	}

	if sheets[freightRatesSheet] {
		freightDocs, err := l.loadFreightRates(f)
		if err != nil {
			return nil, err
		}
		docs = append(docs, freightDocs...)
	} else {
		l.logger.Warn("sheet not found in workbook", zap.String("sheet", freightRatesSheet))
	}

	return docs, nil
}

func (l *Loader) loadOrderList(f *excelize.File) ([]models.Document, error) {
	rows, err := f.GetRows(orderListSheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", orderListSheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols, err := newColumns(rows[0], "Order ID", "Origin Port", "Carrier", "Plant Code")
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", orderListSheet, err)
	}

	docs := make([]models.Document, 0, len(rows)-1)
	for i, row := range rows[1:] {
		orderID := cols.get(row, "Order ID")
		if orderID == "N/A" {
			orderID = strconv.Itoa(i)
		}

		content := fmt.Sprintf(`Logistics Order
Order ID: %s
Origin port: %s
Destination port: %s
Plant: %s

Units: %s
Weight: %s kg

Service level: %s
Carrier: %s`,
			orderID,
			cols.get(row, "Origin Port"),
			cols.get(row, "Destination Port"),
			cols.get(row, "Plant Code"),
			cols.get(row, "Unit quantity"),
			cols.get(row, "Weight"),
			cols.get(row, "Service Level"),
			cols.get(row, "Carrier"),
		)

		docs = append(docs, models.Document{
			ID:      models.NewDocumentID("order_list", orderID),
			Content: content,
			Source:  "order_list",
			Metadata: map[string]string{
				"source":  "order_list",
				"row":     orderID,
				"origin":  cols.get(row, "Origin Port"),
				"plant":   cols.get(row, "Plant Code"),
				"carrier": cols.get(row, "Carrier"),
			},
			Created: time.Now(),
		})
	}
	return docs, nil
}

func (l *Loader) loadFreightRates(f *excelize.File) ([]models.Document, error) {
	rows, err := f.GetRows(freightRatesSheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", freightRatesSheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols, err := newColumns(rows[0], "Carrier", "orig_port_cd", "dest_port_cd", "rate")
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", freightRatesSheet, err)
	}

	docs := make([]models.Document, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowID := strconv.Itoa(i + 1)

		content := fmt.Sprintf(`Freight Rate
Carrier: %s
Origin port: %s
Destination port: %s

Weight band:
- Minimum: %s kg
- Maximum: %s kg

Rate: $%s
Transport mode: %s
Service code: %s`,
			cols.get(row, "Carrier"),
			cols.get(row, "orig_port_cd"),
			cols.get(row, "dest_port_cd"),
			cols.get(row, "minm_wgh_qty"),
			cols.get(row, "max_wgh_qty"),
			cols.get(row, "rate"),
			cols.get(row, "mode_dsc"),
			cols.get(row, "svc_cd"),
		)

		docs = append(docs, models.Document{
			ID:      models.NewDocumentID("freight_rates", rowID),
			Content: content,
			Source:  "freight_rates",
			Metadata: map[string]string{
				"source":  "freight_rates",
				"row":     rowID,
				"carrier": cols.get(row, "Carrier"),
				"mode":    cols.get(row, "mode_dsc"),
			},
			Created: time.Now(),
		})
	}
	return docs, nil
}
