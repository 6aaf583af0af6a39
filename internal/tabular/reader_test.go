package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSVRoundTrip(t *testing.T) {
	log, _ := testLogger()
	dir := t.TempDir()
	records := []Record{
		{"id": "1", "name": "alpha"},
		{"id": "2", "name": "beta, with comma"},
	}
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, WriteCSV(log, path, records, []string{"id", "name"}))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestReadCSVHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n"), 0644))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestReadCSVEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zero.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadCSVShortRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name,type\n1,vm\n"), 0644))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Record{"id": "1", "name": "vm", "type": ""}, got[0])
}

func TestReadDataset(t *testing.T) {
	log, _ := testLogger()
	dir := t.TempDir()
	_, err := WriteDataset(log, dir, "subscriptions", []Record{{"subscription_id": "s-1"}})
	require.NoError(t, err)

	got, err := ReadDataset(dir, "subscriptions")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s-1", got[0]["subscription_id"])
}
