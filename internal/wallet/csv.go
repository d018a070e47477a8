package wallet

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/custodia/walletcore/pkg/errors"
)

// csvHeader is the fixed export column order.
var csvHeader = []string{
	"txid", "category", "symbol", "amount", "fee",
	"account", "other_account", "address", "extra",
	"comment", "tags", "confirmations", "status",
	"retries", "admin_confirm", "user_confirm", "created_time",
}

// ExportCSV streams every ledger row in the scope to w, header first.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, scope string) error {
	rows, err := s.repo.ListAll(ctx, scope)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return errors.Wrap(errors.KindTransportError, "failed to write csv header", err)
	}
	for _, row := range rows {
		record := []string{
			row.TxID,
			string(row.Category),
			row.Symbol,
			row.Amount.String(),
			row.Fee.String(),
			row.Account,
			row.OtherAccount,
			row.Address,
			row.Extra,
			row.Comment,
			row.Tags,
			strconv.Itoa(row.Confirmations),
			string(row.Status),
			strconv.Itoa(row.Retries),
			strconv.FormatBool(row.AdminConfirm),
			strconv.FormatBool(row.UserConfirm),
			row.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(errors.KindTransportError, "failed to write csv record", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Wrap(errors.KindTransportError, "failed to flush csv export", err)
	}
	return nil
}
