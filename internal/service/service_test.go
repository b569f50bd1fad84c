package service

import (
	"context"
	"os"
	"testing"

	"github.com/sellerledger/backend-go/internal/cache"
	"github.com/sellerledger/backend-go/internal/domain"
	"github.com/sellerledger/backend-go/internal/engine"
	"github.com/sellerledger/backend-go/internal/repository"
	"github.com/sellerledger/backend-go/internal/repository/memory"
)

const settlementCSV = "order-id,sku,amount,quantity-purchased,transaction-type,posted-date\n" +
	"O1,X1,50,2,Order,2024-01-15\n" +
	"O1,X1,5,,Order,2024-01-15\n" +
	"O2,Y2,-30,1,Refund,2024-02-02\n"

const masterCSV = "Seller SKU,Product Name,COGS\n" +
	"X1,Widget,10\n" +
	"Y2,Gadget,4\n" +
	"Z9,Sleeper,7\n"

type fixture struct {
	uploads  *UploadService
	master   *MasterService
	analysis *AnalysisService
	report   *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	uploadRepo := memory.NewUploadRepository()
	masterRepo := memory.NewMasterRepository()
	resultRepo := memory.NewResultRepository()

	master := NewMasterService(masterRepo, t.TempDir())
	return &fixture{
		uploads:  NewUploadService(uploadRepo, resultRepo, t.TempDir()),
		master:   master,
		analysis: NewAnalysisService(uploadRepo, master, resultRepo, cache.NoopReportCache{}, nil, t.TempDir()),
		report:   NewReportService(uploadRepo, resultRepo, cache.NoopReportCache{}),
	}
}

func TestUploadIngestAndDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upload, err := f.uploads.Ingest(ctx, "jan.csv", "amazon", []byte(settlementCSV))
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if upload.ID == 0 || upload.RowCount != 3 {
		t.Fatalf("unexpected upload: %+v", upload)
	}
	if _, err := os.Stat(upload.FilePath); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}

	if _, err := f.uploads.Ingest(ctx, "jan.csv", "amazon", []byte(settlementCSV)); err != repository.ErrDuplicateFile {
		t.Fatalf("expected ErrDuplicateFile, got %v", err)
	}

	// Same name on another marketplace is a different file.
	if _, err := f.uploads.Ingest(ctx, "jan.csv", "flipkart", []byte(settlementCSV)); err != nil {
		t.Fatalf("cross-marketplace ingest failed: %v", err)
	}
}

func TestUploadDeleteRemovesFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upload, err := f.uploads.Ingest(ctx, "jan.csv", "amazon", []byte(settlementCSV))
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if err := f.uploads.Delete(ctx, upload.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := os.Stat(upload.FilePath); !os.IsNotExist(err) {
		t.Fatalf("stored file should be gone, stat err: %v", err)
	}
	if _, err := f.uploads.Get(ctx, upload.ID); err != repository.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMasterReplaceInfoView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info, err := f.master.Replace(ctx, "amazon", "master.csv", []byte(masterCSV))
	if err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if !info.Exists || info.Total != 3 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.OriginalName != "master.csv" {
		t.Fatalf("unexpected original name: %q", info.OriginalName)
	}

	rows, err := f.master.View(ctx, "amazon")
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 raw rows, got %d", len(rows))
	}
	if rows[0]["Product Name"] != "Widget" {
		t.Fatalf("raw row not preserved: %v", rows[0])
	}

	// A second upload replaces the snapshot wholesale.
	smaller := "Seller SKU,Product Name,COGS\nX1,Widget,12\n"
	info, err = f.master.Replace(ctx, "amazon", "master2.csv", []byte(smaller))
	if err != nil {
		t.Fatalf("second replace failed: %v", err)
	}
	if info.Total != 1 {
		t.Fatalf("snapshot should have been replaced, total=%d", info.Total)
	}
}

func TestMasterSaveEdited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.master.Replace(ctx, "amazon", "master.csv", []byte(masterCSV)); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	edited := []engine.RawRecord{
		{"Seller SKU": "X1", "Product Name": "Widget v2", "COGS": "11"},
	}
	info, err := f.master.SaveEdited(ctx, "amazon", edited)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if info.Total != 1 || info.OriginalName != "master.csv" {
		t.Fatalf("unexpected info after save: %+v", info)
	}

	rows, err := f.master.View(ctx, "amazon")
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if rows[0]["Product Name"] != "Widget v2" {
		t.Fatalf("edit not persisted: %v", rows[0])
	}
}

func TestUploadDeleteRemovesResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upload, err := f.uploads.Ingest(ctx, "jan.csv", "amazon", []byte(settlementCSV))
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if _, _, err := f.analysis.Run(ctx, upload.ID); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if err := f.uploads.Delete(ctx, upload.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := f.analysis.Get(ctx, upload.ID); err != repository.ErrNotFound {
		t.Fatalf("result should be deleted with its upload, got %v", err)
	}
}

func TestMasterUpdateEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.master.Replace(ctx, "amazon", "master.csv", []byte(masterCSV)); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	edits := []domain.MasterRecord{
		{SKU: "X1", ProductName: "Widget v2", UnitCost: 12},
		{SKU: "NOPE", ProductName: "Ghost", UnitCost: 1},
	}
	updated, err := f.master.UpdateEntries(ctx, "amazon", edits)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 updated entry, got %d", updated)
	}

	// Analysis reads the edited snapshot, not the original upload.
	upload, err := f.uploads.Ingest(ctx, "jan.csv", "amazon", []byte(settlementCSV))
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	rec, _, err := f.analysis.Run(ctx, upload.ID)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var o1 *engine.OrderSummary
	for i := range rec.Sheets.OrderSummary {
		if rec.Sheets.OrderSummary[i].OrderID == "O1" {
			o1 = &rec.Sheets.OrderSummary[i]
		}
	}
	if o1 == nil {
		t.Fatalf("order O1 missing: %+v", rec.Sheets.OrderSummary)
	}
	if o1.OrderCost != 24 {
		t.Fatalf("order cost should use the edited unit cost, got %v", o1.OrderCost)
	}
	if o1.ProductNames != "Widget v2" {
		t.Fatalf("product name should use the edited entry, got %q", o1.ProductNames)
	}
}

func TestMasterUpdateEntriesWithoutSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	edits := []domain.MasterRecord{{SKU: "X1", UnitCost: 5}}
	if _, err := f.master.UpdateEntries(ctx, "amazon", edits); err != repository.ErrNotFound {
		t.Fatalf("expected ErrNotFound without a snapshot, got %v", err)
	}
}

func TestAnalysisRunEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upload, err := f.uploads.Ingest(ctx, "jan.csv", "amazon", []byte(settlementCSV))
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if _, err := f.master.Replace(ctx, "amazon", "master.csv", []byte(masterCSV)); err != nil {
		t.Fatalf("master replace failed: %v", err)
	}

	rec, workbook, err := f.analysis.Run(ctx, upload.ID)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(workbook) == 0 {
		t.Fatalf("expected workbook bytes")
	}
	if len(rec.Sheets.OrderSummary) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(rec.Sheets.OrderSummary))
	}

	// O1: amount 55, qty 2 (max wins), cost 2*10, final 35.
	// O2: refund, amount -30, cost 4, final -34.
	if rec.Totals.TotalSales != 25 {
		t.Fatalf("total sales = %v, want 25", rec.Totals.TotalSales)
	}
	if rec.Totals.TotalOrders != 2 {
		t.Fatalf("total orders = %v, want 2", rec.Totals.TotalOrders)
	}

	// Z9 never appears in the settlement file.
	if len(rec.Sheets.InactiveSKUs) != 1 || rec.Sheets.InactiveSKUs[0].SKU != "Z9" {
		t.Fatalf("unexpected inactive skus: %+v", rec.Sheets.InactiveSKUs)
	}

	created := rec.CreatedAt
	rec2, _, err := f.analysis.Run(ctx, upload.ID)
	if err != nil {
		t.Fatalf("re-run failed: %v", err)
	}
	if !rec2.CreatedAt.Equal(created) {
		t.Fatalf("re-run must keep the original creation time")
	}
	if !rec2.UpdatedAt.After(rec2.CreatedAt) && !rec2.UpdatedAt.Equal(rec2.CreatedAt) {
		t.Fatalf("updated_at not refreshed: %+v", rec2)
	}

	summaries, err := f.analysis.List(ctx, "amazon")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(summaries) != 1 || summaries[0].UploadID != upload.ID {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}

func TestAnalysisRunWithoutMaster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upload, err := f.uploads.Ingest(ctx, "jan.csv", "amazon", []byte(settlementCSV))
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	rec, _, err := f.analysis.Run(ctx, upload.ID)
	if err != nil {
		t.Fatalf("run without master failed: %v", err)
	}
	for _, o := range rec.Sheets.OrderSummary {
		if o.MissingCostSKUCount == 0 {
			t.Fatalf("every sku should be missing a cost: %+v", o)
		}
	}
	if rec.Totals.TotalCogs != 0 {
		t.Fatalf("cogs should be zero without a master, got %v", rec.Totals.TotalCogs)
	}
}

func TestAnalysisRunEmptyUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upload, err := f.uploads.Ingest(ctx, "empty.csv", "amazon", []byte("order-id,sku,amount\n"))
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if _, _, err := f.analysis.Run(ctx, upload.ID); err != ErrNoRows {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestFilterOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upload, _ := f.uploads.Ingest(ctx, "jan.csv", "amazon", []byte(settlementCSV))
	if _, _, err := f.analysis.Run(ctx, upload.ID); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	got, err := f.analysis.FilterOrders(ctx, upload.ID, OrderFilter{Type: "refund"})
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if got.Totals.Count != 1 || got.Orders[0].OrderID != "O2" {
		t.Fatalf("unexpected filtered orders: %+v", got)
	}
	if got.Totals.TotalAmount != -30 {
		t.Fatalf("recomputed totals wrong: %+v", got.Totals)
	}

	got, err = f.analysis.FilterOrders(ctx, upload.ID, OrderFilter{SKU: "x1"})
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if got.Totals.Count != 1 || got.Orders[0].OrderID != "O1" {
		t.Fatalf("sku filter should match case-insensitively: %+v", got)
	}
}

func TestSheetRowsAndTopSelling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upload, _ := f.uploads.Ingest(ctx, "jan.csv", "amazon", []byte(settlementCSV))
	if _, _, err := f.analysis.Run(ctx, upload.ID); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	rows, known, err := f.analysis.SheetRows(ctx, upload.ID, "order_summary")
	if err != nil || !known {
		t.Fatalf("sheet load failed: known=%v err=%v", known, err)
	}
	if orders, ok := rows.([]engine.OrderSummary); !ok || len(orders) != 2 {
		t.Fatalf("unexpected sheet payload: %T", rows)
	}

	if _, known, err := f.analysis.SheetRows(ctx, upload.ID, "nope"); err != nil || known {
		t.Fatalf("unknown sheet must report known=false, got known=%v err=%v", known, err)
	}

	ranks, err := f.analysis.TopSelling(ctx, upload.ID, 10)
	if err != nil {
		t.Fatalf("top selling failed: %v", err)
	}
	if len(ranks) != 2 || ranks[0].SKU != "X1" || ranks[0].Quantity != 2 {
		t.Fatalf("unexpected ranks: %+v", ranks)
	}
}

func TestDashboardZeroShape(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	totals, err := f.analysis.Dashboard(ctx, 0, "amazon")
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if *totals != (engine.Totals{}) {
		t.Fatalf("expected zeroed totals, got %+v", totals)
	}
}

func TestMonthlyReportLatestUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upload, _ := f.uploads.Ingest(ctx, "jan.csv", "amazon", []byte(settlementCSV))
	if _, _, err := f.analysis.Run(ctx, upload.ID); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	report, resolvedID, err := f.report.Monthly(ctx, 0, "amazon")
	if err != nil {
		t.Fatalf("monthly report failed: %v", err)
	}
	if resolvedID != upload.ID {
		t.Fatalf("latest upload not resolved: got %d want %d", resolvedID, upload.ID)
	}
	if len(report.Months) != 2 {
		t.Fatalf("expected 2 monthly buckets, got %+v", report.Months)
	}
	// Reverse chronological.
	if report.Months[0].Month != "2024-02" || report.Months[1].Month != "2024-01" {
		t.Fatalf("months out of order: %+v", report.Months)
	}
	if report.Totals.RefundCount != 1 {
		t.Fatalf("expected one refund, got %+v", report.Totals)
	}
}

func TestMonthlyReportMissingResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upload, _ := f.uploads.Ingest(ctx, "jan.csv", "amazon", []byte(settlementCSV))
	if _, _, err := f.report.Monthly(ctx, upload.ID, "amazon"); err != repository.ErrNotFound {
		t.Fatalf("expected ErrNotFound before analysis, got %v", err)
	}
}
