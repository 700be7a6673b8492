package ocr

import (
	"context"
	"fmt"
	"strconv"
)

// Engine turns one image file into text.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// cliEngine shells out to the tesseract binary.
type cliEngine struct {
	cfg    Config
	runner Runner
}

func newCLIEngine(cfg Config, r Runner) *cliEngine {
	return &cliEngine{cfg: cfg, runner: r}
}

func (c *cliEngine) Name() string { return "tesseract-cli" }

// args builds "tesseract <file> stdout -l <lang> --psm N ..." with
// interword spacing preserved so table columns survive.
func (c *cliEngine) args(path string, extra ...string) []string {
	args := []string{path, "stdout", "-l", c.cfg.TesseractLang, "--psm", strconv.Itoa(c.cfg.PSM)}
	if c.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(c.cfg.OEM))
	}
	if c.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", c.cfg.TessdataDir)
	}
	args = append(args, "-c", "preserve_interword_spaces=1")
	return append(args, extra...)
}

func (c *cliEngine) Recognize(ctx context.Context, path string) (string, error) {
	out, errb, err := c.runner.Run(ctx, c.cfg.Tesseract, c.args(path)...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}
