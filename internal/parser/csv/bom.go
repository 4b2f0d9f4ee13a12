package csv

import "strings"

// utf8BOM is written by spreadsheet tools at the start of some season files.
const utf8BOM = "\uFEFF"

// StripHeaderBOM drops a leading UTF-8 byte order mark from the first header
// cell.
func StripHeaderBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	return header
}
