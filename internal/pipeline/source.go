package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/entity"
	"github.com/joseph-ayodele/fleetops-tracker/internal/ocr"
	"github.com/joseph-ayodele/fleetops-tracker/internal/sheet"
)

var errUnsupported = errors.New("unsupported source")

// source is the text or the rows obtained from one input.
type source struct {
	text       string
	rows       [][]string
	method     string
	confidence float32
}

// fingerprint keys the result cache. Rows and text never collide because
// of the prefix.
func (s source) fingerprint() string {
	if s.rows != nil {
		h := xxh3.New()
		for _, row := range s.rows {
			for _, cell := range row {
				_, _ = h.WriteString(cell)
				_, _ = h.WriteString("\x1f")
			}
			_, _ = h.WriteString("\x1e")
		}
		return "rows:" + strconv.FormatUint(h.Sum64(), 16)
	}
	return "text:" + strconv.FormatUint(xxh3.HashString(s.text), 16)
}

func (p *Processor) loadSource(ctx context.Context, file *entity.SourceFile, kind constants.SourceKind, progress ocr.ProgressFunc) (source, error) {
	switch kind {
	case constants.SourceImage, constants.SourcePDF:
		if p.text == nil {
			return source{}, common.SourceReadError("ocr not configured", errUnsupported)
		}
		ctx = ocr.WithContentHash(ctx, hex.EncodeToString(file.ContentHash))
		res, err := p.text.Extract(ctx, file.SourcePath, progress)
		if err != nil {
			return source{}, err
		}
		return source{text: res.Text, method: res.Method, confidence: res.Confidence}, nil

	case constants.SourceText:
		data, err := os.ReadFile(file.SourcePath)
		if err != nil {
			return source{}, common.SourceReadError("read "+file.Filename, err)
		}
		return source{text: sheet.DecodeText(data), method: "text", confidence: 1}, nil

	case constants.SourceSheet, constants.SourceHTML:
		data, err := os.ReadFile(file.SourcePath)
		if err != nil {
			return source{}, common.SourceReadError("read "+file.Filename, err)
		}
		rows, err := sheet.Read(data, file.FileExt)
		if err != nil {
			return source{}, common.SourceReadError("parse "+file.Filename, err)
		}
		if rows == nil {
			rows = [][]string{}
		}
		return source{text: rowsText(rows), rows: rows, method: "sheet", confidence: 1}, nil
	}
	return source{}, common.SourceReadError("unsupported kind "+string(kind), errUnsupported)
}

// rowsText is the tab-separated form of rows stored on the job and sent
// to the LLM fallback.
func rowsText(rows [][]string) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, "\t")
	}
	return strings.Join(lines, "\n")
}
