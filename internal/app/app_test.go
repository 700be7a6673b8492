package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	t.Setenv("FLEETOPS_CONFIG", "")
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := common.LoadConfig()
	require.NoError(t, err)
	cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "app.db")
	cfg.Server.UploadDir = filepath.Join(t.TempDir(), "uploads")
	cfg.OCR.ArtifactCacheDir = t.TempDir()
	return cfg
}

func TestNew_WiresProcessingStack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extract.FleetFormat = "alphanumeric"
	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer a.Close()

	require.Nil(t, a.LLM)
	require.Equal(t, extract.FleetAlphanumeric, a.Processor.Options().FleetFormat)

	res, err := a.Processor.ExtractText(context.Background(), "08:00 AB-123")
	require.NoError(t, err)
	require.Equal(t, "AB123", res.Records[0].FleetNumber)

	path := filepath.Join(t.TempDir(), "escala.txt")
	require.NoError(t, os.WriteFile(path, []byte("08:00 40167\n09:00 32231"), 0o644))
	stored, err := a.Ingestor.IngestPath(context.Background(), path)
	require.NoError(t, err)
	out, err := a.Processor.ProcessFile(context.Background(), stored.FileID, nil)
	require.NoError(t, err)
	require.Len(t, out.Saved, 2)

	d := a.Deps()
	require.NotNil(t, d.Extractor)
	require.NotNil(t, d.DB)

	a.Close()
	a.Close()
}

func TestNew_LLMEnabledWithKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.APIKey = "sk-test"
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.LLM)
}

func TestNew_BadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
}
