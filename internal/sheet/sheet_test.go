package sheet

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRead_CSVSniffsDelimiter(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data string
		want [][]string
	}{
		{
			name: "comma",
			data: "Agendamento,Frota\n08:15,12345\n",
			want: [][]string{{"Agendamento", "Frota"}, {"08:15", "12345"}},
		},
		{
			name: "semicolon with bom",
			data: "\ufeffHorário;Frota;Modelo\r\n 09:00 ; 22222 ;\r\n;;\r\n",
			want: [][]string{{"Horário", "Frota", "Modelo"}, {"09:00", "22222"}},
		},
		{
			name: "tab",
			data: "Hora\tFrota\n10:30\t33333\n",
			want: [][]string{{"Hora", "Frota"}, {"10:30", "33333"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rows, err := Read([]byte(tt.data), ".csv")
			require.NoError(t, err)
			require.Equal(t, tt.want, rows)
		})
	}
}

func TestRead_TSV(t *testing.T) {
	t.Parallel()
	rows, err := Read([]byte("a,b\tc\n"), "tsv")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"a,b", "c"}}, rows)
}

func TestRead_HTML(t *testing.T) {
	t.Parallel()
	doc := `<table>
<thead><tr><th>Agendamento</th><th colspan="2">Frota</th><th>Serviço</th></tr></thead>
<tbody>
<tr><td> 08:15 </td><td>12345</td><td></td><td>Revisão<br>geral</td></tr>
<tr><td colspan="4">REFEIÇÃO</td></tr>
<tr><td></td><td></td></tr>
</tbody></table>`
	rows, err := Read([]byte(doc), "HTML")
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Agendamento", "Frota", "", "Serviço"},
		{"08:15", "12345", "", "Revisão geral"},
		{"REFEIÇÃO"},
	}, rows)
}

func TestRead_Workbook(t *testing.T) {
	t.Parallel()
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("Agenda")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Agenda", "A1", &[]any{"Agendamento", "Frota"}))
	require.NoError(t, f.SetSheetRow("Agenda", "A2", &[]any{"08:15", "12345"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	// Sheet1 is empty, so the first sheet with values is used.
	rows, err := Read(buf.Bytes(), "xlsx")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Agendamento", "Frota"}, {"08:15", "12345"}}, rows)
}

func TestRead_Unsupported(t *testing.T) {
	t.Parallel()
	_, err := Read([]byte("x"), "docx")
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestDecodeText(t *testing.T) {
	t.Parallel()
	require.Equal(t, "Refeição", DecodeText([]byte("\ufeffRefeição")))
	require.Equal(t, "Refeição", DecodeText([]byte{'R', 'e', 'f', 'e', 'i', 0xe7, 0xe3, 'o'}))

	rows, err := Read([]byte("Hor\xe1rio;Frota\n08:15;12345\n"), "csv")
	require.NoError(t, err)
	require.Equal(t, "Horário", rows[0][0])
}
