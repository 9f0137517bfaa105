// internal/services/statement_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/javajoker/commission-engine/internal/config"
	"github.com/javajoker/commission-engine/internal/models"
)

const (
	entityStatement    = "statement"
	statementSheet     = "Statement"
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	statementDateStamp = "20060102"
)

// Uploader stores exported statements.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (*UploadResult, error)
}

type StatementService struct {
	store
	uploader Uploader
}

type StatementExport struct {
	VendorID        string          `json:"vendor_id"`
	From            time.Time       `json:"from"`
	To              time.Time       `json:"to"`
	RecordCount     int             `json:"record_count"`
	TotalBase       decimal.Decimal `json:"total_base"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	Key             string          `json:"key"`
	URL             string          `json:"url"`
	Size            int64           `json:"size"`
}

var statementHeaders = []string{
	"Commission ID", "Order Reference", "Transaction Date", "Category", "Commission Type",
	"Base Amount", "Rate (%)", "Commission Amount", "Currency", "Status", "Payment Status", "Paid At",
}

func NewStatementService(db *gorm.DB, cfg *config.Config, uploader Uploader) *StatementService {
	return &StatementService{
		store:    newStore(db, cfg.Database.QueryTimeout),
		uploader: uploader,
	}
}

// ExportVendorStatement renders the vendor's commissions with transaction_date in [from, to)
// as a spreadsheet and uploads it.
func (s *StatementService) ExportVendorStatement(ctx context.Context, vendorID string, from, to time.Time) (*StatementExport, error) {
	const op = "ExportVendorStatement"

	if vendorID == "" {
		return nil, validationError(op, entityStatement, "vendor_id is required", nil)
	}
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return nil, validationError(op, entityStatement, "a window with from before to is required", nil)
	}
	from, to = normalizeTime(from), normalizeTime(to)

	db, cancel := s.conn(ctx)
	defer cancel()

	var records []models.CommissionRecord
	err := db.Where("vendor_id = ? AND transaction_date >= ? AND transaction_date < ?", vendorID, from, to).
		Order("transaction_date ASC").Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, persistenceError(op, entityCommission, vendorID, err)
	}

	body, totalBase, totalCommission, err := buildStatementWorkbook(vendorID, from, to, records)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindPersistence, Entity: entityStatement, ID: vendorID, Reason: "failed to render statement", Err: err}
	}

	key := fmt.Sprintf("statements/%s/%s_%s_%d.xlsx",
		vendorID, from.Format(statementDateStamp), to.Format(statementDateStamp), timeNow().Unix())
	result, err := s.uploader.Upload(ctx, key, xlsxContentType, body)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindPersistence, Entity: entityStatement, ID: vendorID, Reason: "failed to store statement", Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"vendor_id": vendorID,
		"records":   len(records),
		"key":       result.Key,
	}).Info("Vendor statement exported")

	return &StatementExport{
		VendorID:        vendorID,
		From:            from,
		To:              to,
		RecordCount:     len(records),
		TotalBase:       totalBase,
		TotalCommission: totalCommission,
		Key:             result.Key,
		URL:             result.URL,
		Size:            result.Size,
	}, nil
}

func buildStatementWorkbook(vendorID string, from, to time.Time, records []models.CommissionRecord) ([]byte, decimal.Decimal, decimal.Decimal, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", statementSheet); err != nil {
		return nil, decimal.Zero, decimal.Zero, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, decimal.Zero, decimal.Zero, fmt.Errorf("failed to create style: %w", err)
	}

	f.SetCellValue(statementSheet, "A1", "Vendor")
	f.SetCellValue(statementSheet, "B1", vendorID)
	f.SetCellValue(statementSheet, "A2", "Period")
	f.SetCellValue(statementSheet, "B2", from.Format("2006-01-02")+" to "+to.Format("2006-01-02"))

	const headerRow = 4
	for i, header := range statementHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(statementSheet, cell, header)
		f.SetCellStyle(statementSheet, cell, cell, headerStyle)
	}

	totalBase, totalCommission := decimal.Zero, decimal.Zero
	for i := range records {
		r := &records[i]
		row := headerRow + 1 + i

		paidAt := ""
		if r.PaidAt != nil {
			paidAt = r.PaidAt.Format(time.RFC3339)
		}
		values := []interface{}{
			r.ID.String(), r.OrderReference, r.TransactionDate.Format(time.RFC3339), r.Category, string(r.CommissionType),
			r.BaseAmount.InexactFloat64(), r.AppliedRate.InexactFloat64(), r.CommissionAmount.InexactFloat64(),
			r.Currency, string(r.Status), string(r.PaymentStatus), paidAt,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(statementSheet, cell, v)
		}

		totalBase = totalBase.Add(r.BaseAmount)
		totalCommission = totalCommission.Add(r.CommissionAmount)
	}

	totalRow := headerRow + len(records) + 2
	labelCell, _ := excelize.CoordinatesToCellName(1, totalRow)
	baseCell, _ := excelize.CoordinatesToCellName(6, totalRow)
	commissionCell, _ := excelize.CoordinatesToCellName(8, totalRow)
	f.SetCellValue(statementSheet, labelCell, "Total")
	f.SetCellStyle(statementSheet, labelCell, labelCell, headerStyle)
	f.SetCellValue(statementSheet, baseCell, totalBase.InexactFloat64())
	f.SetCellValue(statementSheet, commissionCell, totalCommission.InexactFloat64())

	f.SetColWidth(statementSheet, "A", "A", 38)
	f.SetColWidth(statementSheet, "B", "L", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, decimal.Zero, decimal.Zero, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), totalBase, totalCommission, nil
}
