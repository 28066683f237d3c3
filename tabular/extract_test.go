package tabular

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/screenmatch/models"
)

func table(data string) *models.ExportedTable {
	return &models.ExportedTable{Data: []byte(data), FileName: "chartink.csv"}
}

func TestSymbols(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{
			name: "chartink export",
			data: "Sr.,Stock Name,Symbol,Links,% Chg,Price,Volume\n" +
				"1,Tata Consultancy,TCS,P&F | F.A,1.2,3500,100\n" +
				"2,Infosys,INFY,P&F | F.A,0.5,1500,200\n",
			want: []string{"TCS", "INFY"},
		},
		{
			name: "column keyed by name not position",
			data: "Symbol,Name\nTCS,Tata\nINFY,Infosys\n",
			want: []string{"TCS", "INFY"},
		},
		{
			name: "values trimmed",
			data: "Name,Symbol\nTata,  TCS \nInfosys,\tINFY\n",
			want: []string{"TCS", "INFY"},
		},
		{
			name: "blank and missing values skipped",
			data: "Name,Symbol\nTata,TCS\nBlank,   \nShort\nInfosys,INFY\n",
			want: []string{"TCS", "INFY"},
		},
		{
			name: "empty lines skipped",
			data: "Name,Symbol\n\nTata,TCS\n\n\nInfosys,INFY\n",
			want: []string{"TCS", "INFY"},
		},
		{
			name: "duplicates kept in order",
			data: "Symbol\nINFY\nTCS\nINFY\n",
			want: []string{"INFY", "TCS", "INFY"},
		},
		{
			name: "quoted fields",
			data: "Name,Symbol\n\"Bajaj Auto, Ltd\",BAJAJ-AUTO\n\"M&M\",\"M&M\"\n",
			want: []string{"BAJAJ-AUTO", "M&M"},
		},
		{
			name: "byte order mark on header",
			data: "\ufeffSymbol,Name\nTCS,Tata\n",
			want: []string{"TCS"},
		},
		{
			name: "crlf line endings",
			data: "Name,Symbol\r\nTata,TCS\r\nInfosys,INFY\r\n",
			want: []string{"TCS", "INFY"},
		},
		{
			name: "header only",
			data: "Name,Symbol\n",
			want: []string{},
		},
		{
			name: "empty export",
			data: "",
			want: []string{},
		},
		{
			name: "no symbol column",
			data: "Name,Ticker\nTata,TCS\n",
			want: []string{},
		},
	}

	ex := NewExtractor("Symbol")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ex.Symbols(table(tt.data))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Symbols() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSymbols_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bare quote in header", "Na\"me,Symbol\nTata,TCS\n"},
		{"bare quote in row", "Name,Symbol\nTata,T\"CS\n"},
		{"unterminated quote", "Name,Symbol\n\"Tata,TCS\n"},
	}

	ex := NewExtractor("Symbol")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ex.Symbols(table(tt.data))
			require.Error(t, err)
			assert.Equal(t, models.ErrCodeMalformedExport, models.CodeOf(err))
		})
	}
}

func TestSymbols_NilTable(t *testing.T) {
	_, err := NewExtractor("Symbol").Symbols(nil)
	assert.Equal(t, models.ErrCodeMalformedExport, models.CodeOf(err))
}

func TestSymbols_Encoding(t *testing.T) {
	// "é" in windows-1252 is a single 0xE9 byte.
	data := []byte("Name,Symbol\nSoci\xe9t\xe9,SOCGEN\n")

	got, err := NewExtractor("Symbol").Symbols(&models.ExportedTable{Data: data, Encoding: "windows-1252"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SOCGEN"}, got)

	_, err = NewExtractor("Symbol").Symbols(&models.ExportedTable{Data: data, Encoding: "no-such-charset"})
	assert.Equal(t, models.ErrCodeMalformedExport, models.CodeOf(err))
}

func TestSymbols_OutputLengthMatchesNonBlankRows(t *testing.T) {
	data := "Symbol,X\nA,1\n ,2\nB,3\n,4\nC,5\n"
	got, err := NewExtractor("Symbol").Symbols(table(data))
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, []string{"A", "B", "C"}, got)
}
