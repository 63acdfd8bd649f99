package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/username/fundrecon/backend/src/models"
)

// limitsFieldCount is the pipe-separated field count of one RMS limits line:
// the client key, six reserved empty fields, the literal "no" flag and the
// rounded amount.
const limitsFieldCount = 9

// BuildLimitsFile renders the RMS trading-limits file. The first line is the
// literal "RMS Limits" banner; one line follows per client whose difference
// rounds to a positive integer, everything else is left out.
func BuildLimitsFile(res *models.ReconResult, spec models.OutputSpec, now time.Time) (string, []byte) {
	var buf bytes.Buffer
	buf.WriteString("RMS Limits\n")

	for i := range res.Records {
		rec := &res.Records[i]
		rounded := rec.Difference.Round(0)
		if rounded.Sign() <= 0 {
			continue
		}
		fields := make([]string, limitsFieldCount)
		fields[0] = rec.ClientKey
		fields[7] = "no"
		fields[8] = rounded.String()
		buf.WriteString(strings.Join(fields, "|"))
		buf.WriteByte('\n')
	}

	return fmt.Sprintf(spec.LimitsFilePattern, fileDate(spec, now)), buf.Bytes()
}
