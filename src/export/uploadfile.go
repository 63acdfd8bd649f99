// Package export renders a reconciliation result into the files the desk
// actually ships: the exchange collateral upload, the RMS limits file and the
// review worksheet. The upload and limits layouts are fixed wire contracts
// consumed by exchange software, so every field position below is load
// bearing.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
	"github.com/username/fundrecon/backend/src/utils"
)

// uploadFieldCount is the number of comma-separated fields on every data
// line. Fields 9 through 14 are reserved by the exchange and stay empty.
const uploadFieldCount = 15

// BuildUploadFile renders the collateral upload file. The first line is the
// domain's literal header, the first data line is the proprietary account and
// client lines follow in record order. Clients inside the dead band are not
// uploaded.
func BuildUploadFile(res *models.ReconResult, spec models.OutputSpec, now time.Time) (string, []byte) {
	var buf bytes.Buffer
	date := utils.UploadDate(now)

	buf.WriteString(spec.UploadHeader)
	buf.WriteByte('\n')
	buf.WriteString(uploadLine(date, spec, "", "P", res.Pro.Adjustment, res.Pro.Action))
	buf.WriteByte('\n')
	for i := range res.Records {
		rec := &res.Records[i]
		if !actionable(rec.Action, spec.NilLabel) {
			continue
		}
		buf.WriteString(uploadLine(date, spec, rec.ClientKey, "C", rec.Difference, rec.Action))
		buf.WriteByte('\n')
	}

	return fmt.Sprintf(spec.UploadFilePattern, fileDate(spec, now)), buf.Bytes()
}

// uploadLine builds one fixed 15-field line. The client key stays empty on
// the proprietary line, the account type carries a leading space, and the
// amount is the absolute figure rounded to two decimals with trailing zeros
// trimmed.
func uploadLine(date string, spec models.OutputSpec, clientKey, accountType string, amount decimal.Decimal, action string) string {
	fields := make([]string, uploadFieldCount)
	fields[0] = date
	fields[1] = spec.SegmentCode
	fields[2] = spec.ClearingMemberCode
	fields[3] = spec.TradingMemberCode
	fields[4] = "" // custodial participant code, unused
	fields[5] = clientKey
	fields[6] = " " + accountType
	fields[7] = amount.Abs().Round(2).String()
	fields[14] = actionFlag(action)
	return strings.Join(fields, ",")
}

// actionFlag reduces an action label to the single-letter flag the exchange
// layout expects. Single-letter domains pass through unchanged.
func actionFlag(action string) string {
	if action == "" {
		return ""
	}
	return action[:1]
}

// actionable filters the records worth a line: records inside the dead band
// carry either an empty action or the domain's own neutral label.
func actionable(action, nilLabel string) bool {
	if action == "" {
		return false
	}
	return nilLabel == "" || action != nilLabel
}

func fileDate(spec models.OutputSpec, now time.Time) string {
	if spec.FileDateQuirk {
		return utils.FileDateDayForMonth(now)
	}
	return utils.FileDate(now)
}
