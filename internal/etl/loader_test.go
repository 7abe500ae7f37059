package etl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDir_NoInputFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "trader\nt1\n")

	_, err := LoadDir(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoInputFiles)
}

func TestLoadDir_MissingDir(t *testing.T) {
	_, err := LoadDir(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoInputFiles)
}

func TestLoadDir_ConcatenatesInLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "part_2.csv", "trader,trader_pnl\nt3,3\nt4,4\n")
	writeFile(t, dir, "part_1.CSV", "trader,trader_pnl\nt1,1\nt2,\n")
	writeFile(t, dir, "part_3.csv", "trader,trader_pnl\nt5,5\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0o755))

	table, err := LoadDir(context.Background(), dir)
	require.NoError(t, err)

	require.Equal(t, 5, table.Len())
	var traders []string
	for i := range table.Rows {
		traders = append(traders, table.Value(i, "trader").(string))
	}
	assert.Equal(t, []string{"t1", "t2", "t3", "t4", "t5"}, traders)
	assert.Nil(t, table.Value(1, "trader_pnl"), "empty cell is NULL")
	assert.Equal(t, "3", table.Value(2, "trader_pnl"), "cells stay untyped")
}

func TestLoadDir_UnionsColumns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "trader,trader_pnl\nt1,1\n")
	writeFile(t, dir, "b.csv", "trader_label,trader\nwhale,t2\n")

	table, err := LoadDir(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"trader", "trader_pnl", "trader_label"}, table.Columns)
	assert.Nil(t, table.Value(0, "trader_label"))
	assert.Nil(t, table.Value(1, "trader_pnl"))
	assert.Equal(t, "t2", table.Value(1, "trader"))
	assert.Equal(t, "whale", table.Value(1, "trader_label"))
}

func TestReadCSV_StripsBOM(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("\uFEFFtrader,x\nt1,2\n"))
	require.NoError(t, err)
	assert.True(t, table.HasColumn("trader"))
	assert.Equal(t, "t1", table.Value(0, "trader"))
}

func TestReadCSV_ShortRowsPadded(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("trader,x,y\nt1,2\n"))
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Nil(t, table.Value(0, "y"))
}

func TestReadCSV_TooManyFields(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("trader\nt1,extra\n"))
	require.Error(t, err)
}

func TestReadCSV_Empty(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Columns)
}

func TestTable_Project(t *testing.T) {
	table := NewTable([]string{"b", "a", "extra"})
	table.AppendRow([]any{"b1", "a1", "x"})

	rows := table.Project([]string{"a", "b", "missing"})
	require.Len(t, rows, 1)
	assert.Equal(t, []any{"a1", "b1", nil}, rows[0])
}
