package gstr1

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r") + "\r\n"
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// WriteCSV streams a report result with a metadata preamble, a header from
// the column labels and one line per row.
func WriteCSV(w io.Writer, f Filters, result Result) error {
	streamer := newCSVStreamer(w)
	if err := streamer.writeComment(fmt.Sprintf("# Report: GSTR-1 %s", f.TypeOfBusiness)); err != nil {
		return err
	}
	period := fmt.Sprintf("# Company: %s | From: %s | To: %s", f.Company, f.FromDate, f.ToDate)
	if f.CompanyAddress != "" {
		period += " | Address: " + f.CompanyAddress
	}
	if err := streamer.writeComment(period); err != nil {
		return err
	}
	warnings := "# Warnings: none"
	if len(result.Warnings) > 0 {
		warnings = "# Warnings: " + strings.Join(result.Warnings, "; ")
	}
	if err := streamer.writeComment(warnings); err != nil {
		return err
	}

	columns := visibleColumns(result.Columns)
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Label
	}
	if err := streamer.writeRow(header); err != nil {
		return err
	}
	for _, row := range result.Data {
		line := make([]string, len(columns))
		for i, col := range columns {
			line[i] = row.Value(col.FieldName)
		}
		if err := streamer.writeRow(line); err != nil {
			return err
		}
	}
	return streamer.Flush()
}

func visibleColumns(cols []Column) []Column {
	out := make([]Column, 0, len(cols))
	for _, col := range cols {
		if !col.Hidden {
			out = append(out, col)
		}
	}
	return out
}
