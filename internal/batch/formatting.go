package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// formatBatchResults formats the batch outcome in the specified format.
func formatBatchResults(items []Item, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(items)
	case "csv":
		return formatCSV(items)
	default: // text
		return formatText(items)
	}
}

// formatJSON formats results as JSON.
func formatJSON(items []Item) (string, error) {
	batchResult := struct {
		Documents []Item `json:"documents"`
	}{Documents: items}

	bts, err := json.MarshalIndent(batchResult, "", "  ")
	return string(bts), err
}

// formatCSV formats results as CSV.
func formatCSV(items []Item) (string, error) {
	csvData := [][]string{
		{"file", "run_id", "pages", "hits", "labeled", "unlabeled", "ocr_committed", "output", "error"},
	}

	for _, item := range items {
		row := []string{item.Path, item.RunID, "0", "0", "0", "0", "false", "", item.Error}
		if item.Result != nil {
			row[2] = strconv.Itoa(item.Result.Pages)
			row[3] = strconv.Itoa(item.Result.Hits)
			row[4] = strconv.Itoa(item.Result.Report.Labeled)
			row[5] = strconv.Itoa(item.Result.Report.Unlabeled)
			row[6] = strconv.FormatBool(item.Result.Decision.Committed)
			row[7] = item.Result.OutputPath
		}
		csvData = append(csvData, row)
	}

	var output strings.Builder
	writer := csv.NewWriter(&output)
	for _, row := range csvData {
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), nil
}

// formatText formats results as plain text.
func formatText(items []Item) (string, error) {
	var output strings.Builder
	for i, item := range items {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString(fmt.Sprintf("# %s\n", item.Path))
		switch {
		case item.Error != "":
			output.WriteString(fmt.Sprintf("error: %s\n", item.Error))
		case item.Result != nil:
			output.WriteString(fmt.Sprintf("redacted %d occurrence(s) across %d page(s)",
				item.Result.Hits, item.Result.Pages))
			if item.Result.Decision.Committed {
				output.WriteString(" (ocr committed)")
			}
			output.WriteString("\n")
			if item.Result.OutputPath != "" {
				output.WriteString(fmt.Sprintf("output: %s\n", item.Result.OutputPath))
			}
		}
	}
	return output.String(), nil
}
