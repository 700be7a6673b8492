package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func pairsOf(recs []Record) []Pair {
	out := make([]Pair, 0, len(recs))
	for _, r := range recs {
		out = append(out, Pair{Time: r.Time, FleetNumber: r.FleetNumber})
	}
	return out
}

func TestExtract_SecondsStripped(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct{ time, fleet, want string }{
		{"13:00:00", "40167", "13:00"},
		{"07:05:59", "123", "07:05"},
		{"23:59:00", "123456", "23:59"},
		{"00:00:00", "9001", "00:00"},
	} {
		line := fmt.Sprintf("%s   %s   SM Triciclo   Lubrificação", tc.time, tc.fleet)
		res := Extract(line, Options{})
		require.Len(t, res.Records, 1, line)
		require.Equal(t, tc.want, res.Records[0].Time)
		require.Equal(t, tc.fleet, res.Records[0].FleetNumber)
		require.Equal(t, SourceSameLine, res.Records[0].Source)
		require.True(t, res.Records[0].Validated)
	}
}

func TestExtract_ReferenceTable(t *testing.T) {
	t.Parallel()
	raw := "13:00:00  40167  SM Triciclo  Lubrificação  0:20\n" +
		"REFEIÇÃO  -  -  -  1:00\n" +
		"15:10:00  32231  VW Gol  Revisão  0:40"

	res := Extract(raw, Options{})
	require.Equal(t, []Pair{
		{Time: "13:00", FleetNumber: "40167"},
		{Time: "15:10", FleetNumber: "32231"},
	}, pairsOf(res.Records))
	require.Equal(t, SourceSameLine, res.StrategyUsed)
	require.NoError(t, res.Err())
}

func TestExtract_BreakRowsNeverLeak(t *testing.T) {
	t.Parallel()
	raw := "08:00  11111\nAlmoço 12:00 22222\n13:00 33333\nREFEICAO\n12:30\n44444"

	for _, merge := range []bool{false, true} {
		res := Extract(raw, Options{MergeStrategies: merge})
		for _, r := range res.Records {
			require.NotEqual(t, "22222", r.FleetNumber)
			require.NotEqual(t, "12:00", r.Time)
		}
	}

	// the filter can be turned off
	res := Extract("Almoço 12:00 22222", Options{FilterBreakRows: BoolPtr(false)})
	require.Equal(t, []Pair{{Time: "12:00", FleetNumber: "22222"}}, pairsOf(res.Records))
}

func TestExtract_TimeLookAlikeRejected(t *testing.T) {
	t.Parallel()

	res := Extract("07:00:00 0700", Options{})
	require.True(t, res.Empty())
	require.ErrorIs(t, res.Err(), ErrRecognitionEmpty)
	require.Equal(t, StrategyNone, res.StrategyUsed)

	res = Extract("07:00:00 0700 40210", Options{})
	require.Equal(t, []Pair{{Time: "07:00", FleetNumber: "40210"}}, pairsOf(res.Records))

	res = Extract("09:30 930", Options{})
	require.True(t, res.Empty())
}

func TestExtract_TimeShapes(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"7:05 12345":            "07:05",
		"07h30 12345":           "07:30",
		"9.45 12345":            "09:45",
		"8:15 PM 12345":         "20:15",
		"12:10 am 12345":        "00:10",
		"11 am 12345":           "11:00",
		"18:20:05 12345":        "18:20",
		"1:30:00 PM 12345":      "13:30",
		"11:05:30 am 12345":     "11:05",
		"Frota 12345 hora 6H05": "06:05",
	} {
		res := Extract(in, Options{FleetBeforeTime: strings.HasPrefix(in, "Frota")})
		require.Len(t, res.Records, 1, in)
		require.Equal(t, want, res.Records[0].Time, in)
		require.Equal(t, "12345", res.Records[0].FleetNumber, in)
	}
}

func TestExtract_DottedDateIsNotATime(t *testing.T) {
	t.Parallel()
	res := Extract("15.01.2024  08:00  12345", Options{})
	require.Equal(t, []Pair{{Time: "08:00", FleetNumber: "12345"}}, pairsOf(res.Records))
	require.Equal(t, SourceSameLine, res.StrategyUsed)

	res = Extract("2024.01.15  12345  09.45", Options{})
	require.Equal(t, []Pair{{Time: "09:45", FleetNumber: "12345"}}, pairsOf(res.Records))

	// a range keeps its first end
	res = Extract("08:00-09:00  12345", Options{})
	require.Equal(t, []Pair{{Time: "08:00", FleetNumber: "12345"}}, pairsOf(res.Records))
}

func TestExtract_LeadingZeroFleetKept(t *testing.T) {
	t.Parallel()
	res := Extract("08:00  0412  Volvo", Options{})
	require.Equal(t, []Pair{{Time: "08:00", FleetNumber: "0412"}}, pairsOf(res.Records))

	// still rejected when it repeats the line's time
	require.True(t, Extract("04:12  0412  Volvo", Options{}).Empty())
}

func TestExtract_KeepSeconds(t *testing.T) {
	t.Parallel()
	res := Extract("13:00:07  40167", Options{KeepSeconds: true})
	require.Equal(t, "13:00:07", res.Records[0].Time)
}

func TestExtract_HeaderRowIsNotData(t *testing.T) {
	t.Parallel()
	raw := "Agendamento  Frota  Modelo  Serviço\n" +
		"-----------------------------------\n" +
		"08:15  12345  Volvo  Troca de óleo"
	lines := NormalizeLines(raw, Options{})
	require.Len(t, lines, 1)
	require.Equal(t, 3, lines[0].Number)

	// a data row mentioning a header word is kept
	lines = NormalizeLines("08:15  12345  Modelo Frota", Options{})
	require.Len(t, lines, 1)
}

func TestExtract_ColumnStrategy(t *testing.T) {
	t.Parallel()
	// times and fleets live in separate columns, so no line has both in
	// same-line order.
	raw := "Frota    Modelo    Agendamento\n" +
		"40167    Triciclo  13:00\n" +
		"32231    Gol       15:10"

	res := Extract(raw, Options{})
	require.Equal(t, SourceColumn, res.StrategyUsed)
	require.Equal(t, []Pair{
		{Time: "13:00", FleetNumber: "40167"},
		{Time: "15:10", FleetNumber: "32231"},
	}, pairsOf(res.Records))
	require.Equal(t, ConfidenceColumn, res.Records[0].Confidence)
	require.False(t, res.Records[0].Validated)
}

func TestExtract_ColumnStrategyCustomHints(t *testing.T) {
	t.Parallel()
	raw := "Unit    Notes    Slot\n" +
		"40167   oil      13:00"
	opts := Options{HeaderHints: HeaderHints{Time: []string{"slot"}, Fleet: []string{"unit"}}}

	res := Extract(raw, opts)
	require.Equal(t, SourceColumn, res.StrategyUsed)
	require.Equal(t, []Pair{{Time: "13:00", FleetNumber: "40167"}}, pairsOf(res.Records))
}

func TestExtract_Proximity(t *testing.T) {
	t.Parallel()
	raw := "08:00\n11111\n09:00\n22222"

	res := Extract(raw, Options{})
	require.Equal(t, SourceProximity, res.StrategyUsed)
	require.Equal(t, []Pair{
		{Time: "08:00", FleetNumber: "11111"},
		{Time: "09:00", FleetNumber: "22222"},
	}, pairsOf(res.Records))
	require.Equal(t, ConfidenceProximity, res.Records[0].Confidence)
}

func TestExtract_ProximityPrefersOwnLine(t *testing.T) {
	t.Parallel()
	// durations after the time must not take the next row's fleet
	res := Extract("40167  13:00  0:20\n32231  15:10  0:40", Options{})
	require.Equal(t, SourceProximity, res.StrategyUsed)
	require.Equal(t, []Pair{
		{Time: "13:00", FleetNumber: "40167"},
		{Time: "15:10", FleetNumber: "32231"},
	}, pairsOf(res.Records))
}

func TestExtract_ProximityServesFirstTimeOfLineFirst(t *testing.T) {
	t.Parallel()
	res := Extract("08:00  0:20\n11111  22222\n09:00", Options{})
	require.Equal(t, []Pair{
		{Time: "08:00", FleetNumber: "11111"},
		{Time: "09:00", FleetNumber: "22222"},
	}, pairsOf(res.Records))
}

func TestExtract_ProximityWindow(t *testing.T) {
	t.Parallel()
	raw := "08:00\nnotes\n11111"

	require.True(t, Extract(raw, Options{}).Empty())

	res := Extract(raw, Options{ProximityWindow: 2})
	require.Equal(t, []Pair{{Time: "08:00", FleetNumber: "11111"}}, pairsOf(res.Records))
}

func TestExtract_ProximityTieGoesToEarliestFleet(t *testing.T) {
	t.Parallel()
	// 08:00 sits between two fleets at distance 1
	res := Extract("11111\n08:00\n22222", Options{})
	require.Equal(t, []Pair{{Time: "08:00", FleetNumber: "11111"}}, pairsOf(res.Records))
}

func TestExtract_WholeText(t *testing.T) {
	t.Parallel()
	res := Extract("x\ny\n", Options{})
	require.True(t, res.Empty())

	// pairs far apart in line terms still join once the text is flattened
	in := &input{opts: DefaultOptions(), lines: []Line{
		{Index: 0, Text: "08:00"},
		{Index: 3, Text: "11111 09:15 22222"},
	}}
	cands := wholeText(in)
	require.Equal(t, []Pair{
		{Time: "08:00", FleetNumber: "11111"},
		{Time: "09:15", FleetNumber: "22222"},
	}, []Pair{cands[0].Pair, cands[1].Pair})

	// tokens claimed earlier are skipped, and positions map back to lines
	in = &input{opts: DefaultOptions(), lines: []Line{
		{Index: 0, Number: 1, Text: "08:00"},
		{Index: 1, Number: 4, Text: "11111   09:15\t22222"},
	}}
	in.consumed = map[tokenRef]bool{{line: 1, start: 0}: true}
	cands = wholeText(in)
	require.Len(t, cands, 1)
	require.Equal(t, Pair{Time: "09:15", FleetNumber: "22222"}, cands[0].Pair)
	require.Equal(t, 4, cands[0].Line)
	require.Equal(t, tokenRef{line: 4, start: 8}, cands[0].timeAt)
	require.Equal(t, tokenRef{line: 4, start: 14}, cands[0].fleetAt)
}

func TestExtract_InvalidTimesBecomeWarnings(t *testing.T) {
	t.Parallel()
	res := Extract("25:00 12345\n08:00 54321", Options{})
	require.Equal(t, []Pair{{Time: "08:00", FleetNumber: "54321"}}, pairsOf(res.Records))
	require.Contains(t, res.Warnings, `line 1: invalid time "25:00"`)
}

func TestExtract_AlphanumericFleets(t *testing.T) {
	t.Parallel()
	raw := "08:00  AB-123  Sprinter"

	res := Extract(raw, Options{})
	require.Equal(t, []Pair{{Time: "08:00", FleetNumber: "123"}}, pairsOf(res.Records))

	res = Extract(raw, Options{FleetFormat: FleetAlphanumeric})
	require.Equal(t, []Pair{{Time: "08:00", FleetNumber: "AB123"}}, pairsOf(res.Records))
}

func TestExtract_Idempotent(t *testing.T) {
	t.Parallel()
	raw := "15:10:00  32231\n13:00:00  40167\nREFEIÇÃO\n13:00:00  40167\n08:00\n99999"
	first := Extract(raw, Options{MergeStrategies: true})
	second := Extract(raw, Options{MergeStrategies: true})
	require.Equal(t, first, second)
}

func TestExtract_SortedByTime(t *testing.T) {
	t.Parallel()
	res := Extract("17:00 30000\n06:30 10000\n12:15 20000\n6:00 40000", Options{})
	times := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		times = append(times, r.Time)
	}
	require.Equal(t, []string{"06:00", "06:30", "12:15", "17:00"}, times)
}

func TestExtract_MergeAddsUnclaimedPairs(t *testing.T) {
	t.Parallel()
	res := Extract("08:00 11111\n09:00\n22222", Options{MergeStrategies: true})
	require.Equal(t, []Record{
		{Time: "08:00", FleetNumber: "11111", Confidence: ConfidenceSameLine, Source: SourceSameLine, Validated: true},
		{Time: "09:00", FleetNumber: "22222", Confidence: ConfidenceProximity, Source: SourceProximity},
	}, res.Records)
	require.Equal(t, SourceSameLine+"+"+SourceProximity, res.StrategyUsed)

	// tokens paired by same_line are not paired again
	res = Extract("08:00 11111", Options{MergeStrategies: true})
	require.Len(t, res.Records, 1)
	require.Equal(t, SourceSameLine, res.StrategyUsed)
}

func TestExtract_MergeReferenceTable(t *testing.T) {
	t.Parallel()
	raw := "13:00:00  40167  SM Triciclo  Lubrificação  0:20\n" +
		"REFEIÇÃO  -  -  -  1:00\n" +
		"15:10:00  32231  VW Gol  Revisão  0:40"

	res := Extract(raw, Options{MergeStrategies: true})
	require.Equal(t, []Pair{
		{Time: "13:00", FleetNumber: "40167"},
		{Time: "15:10", FleetNumber: "32231"},
	}, pairsOf(res.Records))
	require.Equal(t, SourceSameLine, res.StrategyUsed)
}

func TestExtract_MergeTimeLookAlikeRejected(t *testing.T) {
	t.Parallel()
	merge := Options{MergeStrategies: true}

	require.True(t, Extract("07:00:00 0700", merge).Empty())

	res := Extract("07:00:00 0700\n08:00:00 12345", merge)
	require.Equal(t, []Pair{{Time: "08:00", FleetNumber: "12345"}}, pairsOf(res.Records))
	require.Equal(t, SourceSameLine, res.Records[0].Source)
}

func TestDeduplicate(t *testing.T) {
	t.Parallel()
	recs := []Record{
		{Time: "09:00", FleetNumber: "200", Confidence: ConfidenceWholeText, Source: SourceWholeText},
		{Time: "08:00", FleetNumber: "100", Confidence: ConfidenceProximity, Source: SourceProximity},
		{Time: "09:00", FleetNumber: "200", Confidence: ConfidenceSameLine, Source: SourceSameLine},
		{Time: "08:00", FleetNumber: "100", Confidence: ConfidenceProximity, Source: SourceColumn},
	}
	out := Deduplicate(recs)
	require.Len(t, out, 2)
	require.Equal(t, "08:00", out[0].Time)
	require.Equal(t, SourceProximity, out[0].Source, "ties keep first seen")
	require.Equal(t, SourceSameLine, out[1].Source)

	require.NotNil(t, Deduplicate(nil))
}

func TestMerge(t *testing.T) {
	t.Parallel()
	a := Extract("08:00 11111\n09:00 22222", Options{})
	b := Extract("09:00\n22222\n07:00\n33333", Options{})
	c := Extract("nothing here", Options{})

	m := Merge(a, b, c)
	require.Equal(t, []Pair{
		{Time: "07:00", FleetNumber: "33333"},
		{Time: "08:00", FleetNumber: "11111"},
		{Time: "09:00", FleetNumber: "22222"},
	}, pairsOf(m.Records))
	require.Equal(t, ConfidenceSameLine, m.Records[2].Confidence)
	require.Equal(t, SourceSameLine+"+"+SourceProximity, m.StrategyUsed)
}

func TestExtractRows_HeaderColumns(t *testing.T) {
	t.Parallel()
	res := ExtractRows([][]string{
		{"Agendamento", "Frota"},
		{"08:15", "12345"},
	}, Options{})
	require.Equal(t, SourceColumn, res.StrategyUsed)
	require.Equal(t, []Record{{
		Time: "08:15", FleetNumber: "12345",
		Confidence: ConfidenceColumn, Source: SourceColumn,
	}}, res.Records)
}

func TestExtractRows_SpreadsheetCells(t *testing.T) {
	t.Parallel()
	res := ExtractRows([][]string{
		{"Relatório semanal"},
		{"Modelo", "Frota", "Horário"},
		{"Gol", "32231.0", "0.34375"},
		{"Refeição", "", "0.5"},
		{"Triciclo", "40167 (reserva)", "13:00:00"},
	}, Options{})
	require.Equal(t, []Pair{
		{Time: "08:15", FleetNumber: "32231"},
		{Time: "13:00", FleetNumber: "40167"},
	}, pairsOf(res.Records))
}

func TestExtractRows_FallsBackToText(t *testing.T) {
	t.Parallel()
	res := ExtractRows([][]string{
		{"08:00", "11111", "Volvo"},
		{"09:30", "22222", "Scania"},
	}, Options{})
	require.Equal(t, SourceSameLine, res.StrategyUsed)
	require.Len(t, res.Records, 2)
}

func TestManual(t *testing.T) {
	t.Parallel()
	r, err := Manual(ManualInput{Time: "7h5", FleetNumber: "123"}, Options{})
	require.ErrorIs(t, err, ErrFormatInvalid)
	require.Zero(t, r)

	r, err = Manual(ManualInput{Time: "7h05", FleetNumber: " 40167 "}, Options{})
	require.NoError(t, err)
	require.Equal(t, Record{
		Time: "07:05", FleetNumber: "40167",
		Confidence: ConfidenceManual, Source: SourceManual, Validated: true,
	}, r)

	_, err = Manual(ManualInput{Time: "08:00", FleetNumber: "12"}, Options{})
	require.ErrorIs(t, err, ErrFormatInvalid)
}

func TestNormalizeTime(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"8:15":     "08:15",
		"08h15":    "08:15",
		"8.15":     "08:15",
		"12:00 PM": "12:00",
		"12:00 AM": "00:00",
		"1 p.m.":   "13:00",
		"23:59:59": "23:59",
	} {
		got, ok := NormalizeTime(in, false)
		require.True(t, ok, in)
		require.Equal(t, want, got, in)
	}
	for _, bad := range []string{"24:00", "12:60", "13 pm", "815", "", "10:30:61"} {
		_, ok := NormalizeTime(bad, false)
		require.False(t, ok, bad)
	}
}

func TestPairs(t *testing.T) {
	t.Parallel()
	recs, warns := Pairs([]Pair{
		{Time: "8:00", FleetNumber: "12345"},
		{Time: "8:00", FleetNumber: "12"},
	}, SourceLLM, ConfidenceLLM, Options{})
	require.Equal(t, []Record{{
		Time: "08:00", FleetNumber: "12345", Confidence: ConfidenceLLM, Source: SourceLLM,
	}}, recs)
	require.Equal(t, []string{`invalid fleet number "12"`}, warns)
}
