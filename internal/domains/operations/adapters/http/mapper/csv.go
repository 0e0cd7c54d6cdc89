package mapper

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
)

var csvHeader = []string{"operation_id", "date", "type", "status", "customer_id", "book_id", "quantity"}

// WriteCSV writes one row per operation item in the given order.
func WriteCSV(w io.Writer, ops []*domain.Operation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, op := range ops {
		date := op.Date().Format("2006-01-02")
		for _, item := range op.Items {
			row := []string{
				strconv.FormatInt(op.ID, 10),
				date,
				string(op.Type),
				string(op.Status),
				strconv.FormatInt(op.CustomerID, 10),
				strconv.FormatInt(item.BookID, 10),
				strconv.FormatInt(item.Quantity, 10),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
