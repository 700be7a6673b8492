package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
)

// fakeRunner answers by command name and records every call.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	fn    func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	return f.fn(name, args)
}

func (f *fakeRunner) called(name string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.calls {
		if c[0] == name {
			out = append(out, c)
		}
	}
	return out
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.White)
	img.Set(1, 0, color.Black)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestExtractImage(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	writePNG(t, path)

	r := &fakeRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		if args[len(args)-1] == "tsv" {
			return []byte("level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
				"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\t13:00:00\n" +
				"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t70\t4O167\n" +
				"4\t1\t1\t1\t1\t0\t0\t0\t10\t10\t-1\t\n"), nil, nil
		}
		return []byte("13:00:00   4O167   SM Triciclo  \r\n\r\n\r\n\r\n15:10:00   32231\n"), nil, nil
	}}
	e := NewExtractor(Config{EnableTSVConfidence: true}, nil, WithRunner(r))

	var progress []float64
	res, err := e.Extract(context.Background(), path, func(f float64) { progress = append(progress, f) })
	require.NoError(t, err)
	require.Equal(t, "13:00:00   40167   SM Triciclo\n\n15:10:00   32231", res.Text)
	require.Equal(t, "image-ocr", res.Method)
	require.Equal(t, "tesseract-cli", res.Engine)
	require.Equal(t, []float64{0, 1}, progress)
	require.InDelta(t, 0.7*0.8+0.3*heuristicConfidence(res.Text), res.Confidence, 0.001)

	calls := r.called("tesseract")
	require.Len(t, calls, 2)
	joined := strings.Join(calls[0], " ")
	require.Contains(t, joined, "--psm 6")
	require.Contains(t, joined, "preserve_interword_spaces=1")
	require.Contains(t, joined, "-l por+eng")
}

func TestExtractImage_ToolFailureIsSourceRead(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "scan.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not really a jpeg"), 0o600))

	r := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("Error in pixReadStream"), errors.New("exit status 1")
	}}
	_, err := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), path, nil)
	require.ErrorIs(t, err, common.ErrSourceRead)
	require.Equal(t, common.CodeSourceReadFailure, common.ErrorCode(err))
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	t.Parallel()
	_, err := NewExtractor(Config{}, nil).Extract(context.Background(), "schedule.docx", nil)
	require.ErrorIs(t, err, common.ErrSourceRead)
}

func TestExtractPDF_TextLayer(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{fn: func(name string, _ []string) ([]byte, []byte, error) {
		require.Equal(t, "pdftotext", name)
		return []byte("Agendamento   Frota\n08:15         12345\n\f09:00         22222\n\f"), nil, nil
	}}
	res, err := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), "/x/sched.pdf", nil)
	require.NoError(t, err)
	require.Equal(t, "pdf-text", res.Method)
	require.Equal(t, 2, res.Pages)
	require.Contains(t, res.Text, "08:15         12345")
}

func TestExtractPDF_FallsBackToOCR(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{}
	r.fn = func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftotext":
			return []byte("  \n"), nil, nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, p := range []string{"-1.png", "-2.png"} {
				if err := os.WriteFile(prefix+p, []byte("png"), 0o600); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		case "tesseract":
			if strings.HasSuffix(args[0], "-1.png") {
				return []byte("08:00 11111"), nil, nil
			}
			return []byte("09:00 22222"), nil, nil
		}
		return nil, nil, errors.New("unexpected " + name)
	}

	var progress []float64
	res, err := NewExtractor(Config{}, nil, WithRunner(r)).
		Extract(context.Background(), "/x/scan.pdf", func(f float64) { progress = append(progress, f) })
	require.NoError(t, err)
	require.Equal(t, "pdf-ocr", res.Method)
	require.Equal(t, 2, res.Pages)
	require.Equal(t, "08:00 11111\n\n09:00 22222", res.Text)
	require.Equal(t, []float64{0, 0.5, 1}, progress)
}

func TestConvertHEIC_UsesCache(t *testing.T) {
	t.Parallel()
	cache := t.TempDir()
	r := &fakeRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		require.Equal(t, "magick", name)
		return nil, nil, os.WriteFile(args[1], []byte("png"), 0o600)
	}}
	ctx := context.Background()

	out, _, cleanup, err := convertHEICtoPNG(ctx, r, slogDiscard(), "magick", "/in/a.heic", cache, "abc")
	require.NoError(t, err)
	require.Nil(t, cleanup)
	require.Equal(t, filepath.Join(cache, "abc.png"), out)

	_, _, _, err = convertHEICtoPNG(ctx, r, slogDiscard(), "magick", "/in/a.heic", cache, "abc")
	require.NoError(t, err)
	require.Len(t, r.called("magick"), 1)

	_, _, _, err = convertHEICtoPNG(ctx, r, slogDiscard(), "paint", "/in/a.heic", "", "")
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"13:00:00  40167  SM  \r\n": "13:00:00  40167  SM",
		"l3:OO   4O167":             "13:00   40167",
		"Oleo   I0:3O":              "Oleo   10:30",
		"Frota\tModelo":             "Frota\tModelo",
		"a\n\n\n\n\nb":              "a\n\nb",
		"page one\fpage two":        "page one\npage two",
		"Ol 12345 Intervalo":        "Ol 12345 Intervalo",
		"07h3O  AB-l23":             "07h3O  AB-123",
	} {
		require.Equal(t, want, Normalize(in), in)
	}
}

func TestPreprocess(t *testing.T) {
	t.Parallel()
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(0, 0, color.RGBA{R: 40, G: 40, B: 40, A: 255})
	src.Set(1, 0, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	out := Preprocess(src)
	require.Equal(t, image.Rect(0, 0, 6, 4), out.Bounds())
	_, ok := out.(*image.Gray)
	require.True(t, ok)
}

func TestParseTSVConfidence(t *testing.T) {
	t.Parallel()
	require.Zero(t, parseTSVConfidence("level\tconf\n"))
}

func TestGosseractEngineStub(t *testing.T) {
	t.Parallel()
	if engine, closeFn, err := NewGosseractEngine(Config{}); err == nil {
		require.NotNil(t, engine)
		require.NoError(t, closeFn())
		return
	}
	_, _, err := NewGosseractEngine(Config{})
	require.ErrorIs(t, err, ErrGosseractNotEnabled)
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
