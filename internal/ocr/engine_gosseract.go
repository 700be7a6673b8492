//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// gosseractEngine runs tesseract in-process. The client is not safe for
// concurrent use, so calls are serialized.
type gosseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewGosseractEngine builds an in-process engine. Close it when done.
func NewGosseractEngine(cfg Config) (Engine, func() error, error) {
	client := gosseract.NewClient()
	lang := cfg.TesseractLang
	if lang == "" {
		lang = "por+eng"
	}
	if err := client.SetLanguage(splitLangs(lang)...); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	psm := gosseract.PSM_SINGLE_BLOCK
	if cfg.PSM > 0 {
		psm = gosseract.PageSegMode(cfg.PSM)
	}
	if err := client.SetPageSegMode(psm); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	if err := client.SetVariable("preserve_interword_spaces", "1"); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	if cfg.TessdataDir != "" {
		client.SetTessdataPrefix(cfg.TessdataDir)
	}
	return &gosseractEngine{client: client}, client.Close, nil
}

func (g *gosseractEngine) Name() string { return "gosseract" }

func (g *gosseractEngine) Recognize(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.client.SetImage(path); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := g.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// splitLangs turns "por+eng" into its parts.
func splitLangs(lang string) []string {
	var out []string
	for _, l := range strings.Split(lang, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
