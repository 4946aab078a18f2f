package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/khanghh/forkexec/forkexec"
	"github.com/olekukonko/tablewriter"
)

const maxCellBytes = 32

func writeResults(w io.Writer, format string, results []*forkexec.ExecutionResult) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "table":
		writeTable(w, results)
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

// writeTable prints one row per call. Traces are omitted, use the json
// format to inspect them.
func writeTable(w io.Writer, results []*forkexec.ExecutionResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Exit", "Reverted", "Gas", "Logs", "Result", "Reason"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for i, res := range results {
		table.Append([]string{
			strconv.Itoa(i),
			string(res.ExitReason),
			strconv.FormatBool(res.Reverted),
			strconv.FormatUint(res.GasUsed, 10),
			strconv.Itoa(len(res.Logs)),
			abbreviate(res.ReturnData),
			res.RevertReason,
		})
	}
	table.Render()
}

func abbreviate(data []byte) string {
	if len(data) <= maxCellBytes {
		return hexutil.Encode(data)
	}
	return fmt.Sprintf("%s... (%d bytes)", hexutil.Encode(data[:maxCellBytes]), len(data))
}
