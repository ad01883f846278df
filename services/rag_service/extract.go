package rag_service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/serisow/docanalyzer/plugin_registry"
	"github.com/serisow/docanalyzer/rag_type"
)

const docxMimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// RegisterDefaultLoaders registers the loaders for .pdf, .txt, .csv, .xlsx and .docx.
func RegisterDefaultLoaders(registry *plugin_registry.PluginRegistry, logger *slog.Logger) {
	registry.RegisterLoader(".pdf", func() plugin_registry.Loader { return &PDFLoader{logger: logger} })
	registry.RegisterLoader(".txt", func() plugin_registry.Loader { return &TextLoader{logger: logger} })
	registry.RegisterLoader(".csv", func() plugin_registry.Loader { return &CSVLoader{logger: logger} })
	registry.RegisterLoader(".xlsx", func() plugin_registry.Loader { return &ExcelLoader{logger: logger} })
	registry.RegisterLoader(".docx", func() plugin_registry.Loader { return &WordLoader{logger: logger} })
}

func extractionError(path string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrExtraction, filepath.Base(path), err)
}

func newDocument(path, format, content string) rag_type.Document {
	return rag_type.Document{
		Source:  path,
		Content: content,
		Metadata: map[string]any{
			"source": path,
			"format": format,
		},
	}
}

// PDFLoader emits one document per page that has text.
type PDFLoader struct {
	logger *slog.Logger
}

func (l *PDFLoader) Name() string { return "pdf" }

func (l *PDFLoader) Load(ctx context.Context, path string) ([]rag_type.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		l.logger.Error("Failed to create PDF reader",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, extractionError(path, err)
	}
	defer f.Close()

	totalPage := reader.NumPage()
	l.logger.Debug("Starting PDF text extraction", slog.Int("total_pages", totalPage))

	docs := make([]rag_type.Document, 0, totalPage)
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			l.logger.Warn("Null page encountered", slog.Int("page_number", pageIndex))
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, extractionError(path, fmt.Errorf("page %d: %w", pageIndex, err))
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		doc := newDocument(path, "pdf", text)
		doc.Metadata["page"] = pageIndex
		docs = append(docs, doc)
	}

	l.logger.Info("Extracted text from PDF",
		slog.Int("total_pages", totalPage),
		slog.Int("pages_with_text", len(docs)))

	return docs, nil
}

// TextLoader emits the whole file as one document.
type TextLoader struct {
	logger *slog.Logger
}

func (l *TextLoader) Name() string { return "txt" }

func (l *TextLoader) Load(_ context.Context, path string) ([]rag_type.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, extractionError(path, err)
	}
	if !utf8.Valid(data) {
		return nil, extractionError(path, errors.New("file is not valid UTF-8"))
	}

	l.logger.Debug("Loaded text file",
		slog.String("path", path),
		slog.Int("size", len(data)))

	return []rag_type.Document{newDocument(path, "txt", string(data))}, nil
}

// CSVLoader emits one document per data row, rendered as "column: value" lines.
type CSVLoader struct {
	logger *slog.Logger
}

func (l *CSVLoader) Name() string { return "csv" }

func (l *CSVLoader) Load(ctx context.Context, path string) ([]rag_type.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, extractionError(path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, extractionError(path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var docs []rag_type.Document
	for row := 0; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, extractionError(path, err)
		}

		doc := newDocument(path, "csv", renderRow(header, record))
		doc.Metadata["row"] = row
		docs = append(docs, doc)
	}

	l.logger.Debug("Loaded CSV rows",
		slog.String("path", path),
		slog.Int("rows", len(docs)))

	return docs, nil
}

func renderRow(header, record []string) string {
	lines := make([]string, 0, len(header))
	for i, column := range header {
		value := ""
		if i < len(record) {
			value = record[i]
		}
		lines = append(lines, strings.TrimSpace(column)+": "+strings.TrimSpace(value))
	}
	return strings.Join(lines, "\n")
}

// ExcelLoader emits one document per non-empty sheet.
type ExcelLoader struct {
	logger *slog.Logger
}

func (l *ExcelLoader) Name() string { return "xlsx" }

func (l *ExcelLoader) Load(ctx context.Context, path string) ([]rag_type.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, extractionError(path, err)
	}
	defer f.Close()

	var docs []rag_type.Document
	for i, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, extractionError(path, fmt.Errorf("sheet %q: %w", sheet, err))
		}

		var b strings.Builder
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			if strings.TrimSpace(line) == "" {
				continue
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		if b.Len() == 0 {
			continue
		}

		doc := newDocument(path, "xlsx", strings.TrimSuffix(b.String(), "\n"))
		doc.Metadata["sheet"] = sheet
		doc.Metadata["page_number"] = i + 1
		docs = append(docs, doc)
	}

	l.logger.Debug("Loaded spreadsheet",
		slog.String("path", path),
		slog.Int("sheets", len(docs)))

	return docs, nil
}

// WordLoader emits the document body as one document.
type WordLoader struct {
	logger *slog.Logger
}

func (l *WordLoader) Name() string { return "docx" }

func (l *WordLoader) Load(_ context.Context, path string) ([]rag_type.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, extractionError(path, err)
	}
	defer f.Close()

	result, err := docconv.Convert(f, docxMimeType, false)
	if err != nil {
		l.logger.Error("Failed to convert Word document",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, extractionError(path, err)
	}

	l.logger.Debug("Extracted text from Word document",
		slog.Int("text_length", len(result.Body)))

	return []rag_type.Document{newDocument(path, "docx", result.Body)}, nil
}
