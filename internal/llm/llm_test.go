package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

func TestNormalizeAndSanitizeJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      string
		want    []extract.Pair
		dropped []string
	}{
		{
			name: "fenced bare array with synonyms",
			in:   "```json\n[{\"hora\":\"08:15\",\"frota\":12345}]\n```",
			want: []extract.Pair{{Time: "08:15", FleetNumber: "12345"}},
			dropped: []string{
				"array->records", "hora->time", "frota->fleet_number",
			},
		},
		{
			name: "container synonym, unknown keys and incomplete rows",
			in:   `{"rows":[{"time":" 09:00 ","fleet_number":"22222","model":"SM"},{"time":"10:00"},"junk"]}`,
			want: []extract.Pair{{Time: "09:00", FleetNumber: "22222"}},
			dropped: []string{
				"rows->records", "records[0].model(unknown)", "records[1](incomplete)", "records[2](type)",
			},
		},
		{
			name: "already valid",
			in:   `{"records":[]}`,
			want: []extract.Pair{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, dropped, err := NormalizeAndSanitizeJSON([]byte(tt.in), nil)
			require.NoError(t, err)
			require.NoError(t, ValidateScheduleJSON(out))
			require.ElementsMatch(t, tt.dropped, dropped)

			var doc Document
			require.NoError(t, json.Unmarshal(out, &doc))
			require.Equal(t, tt.want, doc.Records)
		})
	}
}

func TestNormalizeAndSanitizeJSON_NoRecords(t *testing.T) {
	t.Parallel()
	_, _, err := NormalizeAndSanitizeJSON([]byte(`{"answer":"none"}`), nil)
	require.Error(t, err)
	_, _, err = NormalizeAndSanitizeJSON([]byte(`not json`), nil)
	require.Error(t, err)
}

func TestValidateScheduleJSON(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateScheduleJSON([]byte(`{"records":[{"time":"8:15","fleet_number":"123"}]}`)))
	require.Error(t, ValidateScheduleJSON([]byte(`{"records":[{"time":"8:15"}]}`)))
	require.Error(t, ValidateScheduleJSON([]byte(`{"records":[{"time":"8:15","fleet_number":123}]}`)))
	require.Error(t, ValidateScheduleJSON([]byte(`{"records":[],"extra":1}`)))
}

func TestRecords_NormalizesAtLLMConfidence(t *testing.T) {
	t.Parallel()
	recs, warns := Records([]extract.Pair{
		{Time: "8h15", FleetNumber: "12345"},
		{Time: "25:00", FleetNumber: "12345"},
	}, extract.DefaultOptions())
	require.Equal(t, []extract.Record{{
		Time: "08:15", FleetNumber: "12345",
		Confidence: extract.ConfidenceLLM, Source: extract.SourceLLM,
	}}, recs)
	require.Len(t, warns, 1)
}

func TestBuildUserPrompt_Truncates(t *testing.T) {
	t.Parallel()
	p := BuildUserPrompt(ExtractRequest{
		Text:         strings.Repeat("08:00 12345\n", 1000),
		FilenameHint: "agenda.pdf",
		Warnings:     []string{"line 3: invalid time"},
	})
	require.True(t, strings.HasPrefix(p, "Filename: agenda.pdf\n"))
	require.Contains(t, p, "- line 3: invalid time")
	require.Contains(t, p, "…(truncated)")
	require.Less(t, len(p), maxPromptChars+200)
}

func TestTransport_RetriesRateLimit(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	tr := Transport{MaxAttempts: 3, Backoff: time.Millisecond}
	raw, err := tr.PostJSON(context.Background(), srv.URL, map[string]string{"a": "b"}, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(raw))
	require.EqualValues(t, 2, calls.Load())
}

func TestTransport_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	}))
	t.Cleanup(srv.Close)

	raw, err := Transport{MaxAttempts: 3, Backoff: time.Millisecond}.PostJSON(context.Background(), srv.URL, struct{}{}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.Status)
	require.False(t, se.Retryable())
	require.JSONEq(t, `{"error":"bad"}`, string(raw))
	require.EqualValues(t, 1, calls.Load())
}

func TestRetryAfter(t *testing.T) {
	require.Equal(t, 2*time.Second, retryAfter("2"))
	require.Equal(t, 30*time.Second, retryAfter("600"))
	require.Zero(t, retryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}
