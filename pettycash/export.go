package pettycash

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/expense-engine/generic"
	"github.com/xuri/excelize/v2"
)

// Exporter renders a MonthLedger as an XLSX workbook with a summary sheet
// and a transactions sheet.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

const (
	summarySheet      = "Summary"
	transactionsSheet = "Transactions"
)

func (x *Exporter) Export(ledger MonthLedger) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	x.writeSummary(file, ledger)

	if _, err := file.NewSheet(transactionsSheet); err != nil {
		return nil, err
	}
	x.writeTransactions(file, ledger)

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename is the suggested download name for a scope's export.
func Filename(scope Scope) string {
	return fmt.Sprintf("petty-cash-%s-%s.xlsx", scope.OfficeID, scope.Month)
}

func (x *Exporter) writeSummary(file *excelize.File, ledger MonthLedger) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(summarySheet, cell, value)
	}

	status := "open"
	if ledger.Closed {
		status = "closed"
	}

	set("A1", "Office")
	set("B1", string(ledger.Scope.OfficeID))
	set("A2", "Month")
	set("B2", ledger.Scope.Month.String())
	set("A3", "Status")
	set("B3", status)
	set("A4", "Opening balance")
	set("B4", money(ledger.Summary.OpeningBalance))
	set("A5", "Total income")
	set("B5", money(ledger.Summary.TotalIncome))
	set("A6", "Total expense")
	set("B6", money(ledger.Summary.TotalExpense))
	set("A7", "Closing balance")
	set("B7", money(ledger.Summary.ClosingBalance))
	set("A8", "Transactions")
	set("B8", len(ledger.Transactions))

	_ = file.SetColWidth(summarySheet, "A", "A", 20)
	_ = file.SetColWidth(summarySheet, "B", "B", 24)
}

func (x *Exporter) writeTransactions(file *excelize.File, ledger MonthLedger) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(transactionsSheet, cell, value)
	}

	headers := []string{
		"Date of payment",
		"Type",
		"Amount",
		"Balance after",
		"Bank",
		"Description",
		"Cheque image",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}

	for i, tx := range ledger.Transactions {
		row := i + 2
		set(fmt.Sprintf("A%d", row), tx.DateOfPayment.String())
		set(fmt.Sprintf("B%d", row), string(tx.Type))
		set(fmt.Sprintf("C%d", row), money(tx.Amount))
		set(fmt.Sprintf("D%d", row), money(tx.BalanceAfter))
		set(fmt.Sprintf("E%d", row), tx.BankName)
		set(fmt.Sprintf("F%d", row), tx.Description)
		set(fmt.Sprintf("G%d", row), tx.ChequeImage.Location())
	}

	_ = file.SetColWidth(transactionsSheet, "A", "B", 16)
	_ = file.SetColWidth(transactionsSheet, "C", "D", 14)
	_ = file.SetColWidth(transactionsSheet, "E", "E", 20)
	_ = file.SetColWidth(transactionsSheet, "F", "G", 40)
}

// money writes amounts as numbers so spreadsheet formulas work on them.
func money(d decimal.Decimal) float64 {
	f, _ := generic.RoundMoney(d).Float64()
	return f
}
