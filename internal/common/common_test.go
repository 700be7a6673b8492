package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

func TestLoadConfig_TOMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleetops.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
driver = "postgres"
dsn = "postgres://localhost/fleet"

[extract]
fleet_format = "alphanumeric"
proximity_window = 2
break_markers = ["pausa"]

[ingest]
debounce = "2s"
`), 0o600))

	t.Setenv("FLEETOPS_CONFIG", path)
	t.Setenv("EXTRACT_PROXIMITY_WINDOW", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "postgres://localhost/fleet", cfg.Database.DSN)
	require.Equal(t, "alphanumeric", cfg.Extract.FleetFormat)
	require.Equal(t, 3, cfg.Extract.ProximityWindow)
	require.Equal(t, []string{"pausa"}, cfg.Extract.BreakMarkers)
	require.Equal(t, 2*time.Second, cfg.Ingest.Debounce)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSAllowedOrigins)
	// untouched defaults survive the overlay
	require.True(t, cfg.Extract.FilterBreakRows)
	require.Equal(t, ":8080", cfg.Server.HTTPAddr)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[database\n"), 0o600))
	t.Setenv("FLEETOPS_CONFIG", path)

	_, err := LoadConfig()
	require.Error(t, err)
	require.Equal(t, CodeConfig, ErrorCode(err))
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Extract.FleetFormat = "plates"
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)

	cfg = defaultConfig()
	cfg.Database.Driver = "oracle"
	require.Error(t, cfg.Validate())
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		err  error
		code string
		http int
		grpc codes.Code
	}{
		{RecognitionEmptyError(), CodeRecognitionEmpty, http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{fmt.Errorf("wrap: %w", extract.ErrRecognitionEmpty), CodeRecognitionEmpty, http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{FormatInvalidError(extract.ErrFormatInvalid), CodeFormatInvalid, http.StatusBadRequest, codes.InvalidArgument},
		{SourceReadError("open scan.png", errors.New("corrupt")), CodeSourceReadFailure, http.StatusUnprocessableEntity, codes.DataLoss},
		{PersistenceError("save records", errors.New("disk full")), CodePersistenceFailure, http.StatusServiceUnavailable, codes.Unavailable},
		{fmt.Errorf("record: %w", ErrNotFound), CodeNotFound, http.StatusNotFound, codes.NotFound},
		{errors.New("boom"), CodeInternal, http.StatusInternalServerError, codes.Internal},
	} {
		require.Equal(t, tc.code, ErrorCode(tc.err), tc.err.Error())
		require.Equal(t, tc.http, HTTPStatus(tc.err), tc.err.Error())
		require.Equal(t, tc.grpc, status.Code(GRPCStatus(tc.err)), tc.err.Error())
	}

	require.ErrorIs(t, SourceReadError("x", errors.New("y")), ErrSourceRead)
	require.ErrorIs(t, PersistenceError("x", errors.New("y")), ErrPersistence)
	require.NoError(t, GRPCStatus(nil))
}

func TestValidator(t *testing.T) {
	t.Parallel()
	v := NewValidator().
		Field("time", "", Required).
		Field("format", "xlsx", OneOf("excel", "csv")).
		Field("file_id", "", OptionalUUID).
		Field("note", "abcdef", MaxLength(3)).
		Field("limit", "0", IntRange(1, 100)).
		Field("offset", "", IntRange(1, 100))
	require.True(t, v.HasErrors())
	require.Len(t, v.Errors(), 4)
	require.ErrorIs(t, v.Error(), ErrValidation)
	require.Contains(t, v.ErrorMessage(), `limit "0": must be an integer in 1..100`)
	require.Equal(t, codes.InvalidArgument, status.Code(GRPCStatus(v.Error())))

	require.NoError(t, NewValidator().Field("format", "CSV", OneOf("excel", "csv")).Error())
}

func TestLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := newLogger(&buf, LogConfig{Level: "warn", Format: "json"})
	logger.Info("extract.skip")
	logger.Warn("extract.empty", "file_id", "f1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "extract.empty", line["msg"])
	require.Equal(t, "f1", line["file_id"])

	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
