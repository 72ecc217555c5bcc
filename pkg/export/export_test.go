package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	table := Table{Columns: []string{"Name", "Year"}}
	table.AddRow("I Semestre, 2025", "2025")
	table.AddRow("Summer")

	out, err := NewCSVExporter().Render(table)
	require.NoError(t, err)
	assert.Equal(t, "Name,Year\n\"I Semestre, 2025\",2025\nSummer,\n", string(out))
}

func TestCSVExporterRequiresColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{})
	assert.Error(t, err)
}

func TestTableCheckRejectsRaggedRows(t *testing.T) {
	table := Table{Columns: []string{"A", "B"}, Rows: [][]string{{"only-one"}}}
	_, err := NewCSVExporter().Render(table)
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	table := Table{Title: "Academic periods", Columns: []string{"Name", "Type"}}
	for i := 0; i < 60; i++ {
		table.AddRow("Period", "summer")
	}

	out, err := NewPDFExporter().Render(table)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
