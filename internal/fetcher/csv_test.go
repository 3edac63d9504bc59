package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_Basic(t *testing.T) {
	input := "description,urgency\nReefer unit down,High\nGate lane stuck,Medium\n"
	header, rows, err := ReadCSV(strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"description", "urgency"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Reefer unit down", "High"}, rows[0])
	assert.Equal(t, []string{"Gate lane stuck", "Medium"}, rows[1])
}

func TestReadCSV_SemicolonDelimited(t *testing.T) {
	input := "a;b;c\n1;2;3\n"
	header, rows, err := ReadCSV(strings.NewReader(input), CSVOptions{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1", "2", "3"}, rows[0])
}

func TestReadCSV_TrimsFields(t *testing.T) {
	input := " description , urgency \n Crane fault , Critical \n"
	header, rows, err := ReadCSV(strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"description", "urgency"}, header)
	assert.Equal(t, []string{"Crane fault", "Critical"}, rows[0])
}

func TestReadCSV_Comment(t *testing.T) {
	input := "# export from yard system\ndescription\nTruck queue overflow\n"
	header, rows, err := ReadCSV(strings.NewReader(input), CSVOptions{Comment: '#'})
	require.NoError(t, err)
	assert.Equal(t, []string{"description"}, header)
	require.Len(t, rows, 1)
}

func TestReadCSV_VariableWidthRows(t *testing.T) {
	input := "a,b,c\n1,2\n3,4,5,6\n"
	header, rows, err := ReadCSV(strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "2"}, rows[0])
	assert.Equal(t, []string{"3", "4", "5", "6"}, rows[1])
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	header, rows, err := ReadCSV(strings.NewReader("description,urgency\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"description", "urgency"}, header)
	assert.Empty(t, rows)
}

func TestReadCSV_Empty(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing header row")
}
