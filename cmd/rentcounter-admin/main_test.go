package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseOrg(t *testing.T) {
	id := primitive.NewObjectID()

	got, err := parseOrg(id.Hex(), true)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = parseOrg("", false)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseOrg("", true)
	assert.Error(t, err)
	_, err = parseOrg("not-hex", false)
	assert.Error(t, err)
}

func TestParsePeriod(t *testing.T) {
	from, to, err := parsePeriod("2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), to)

	_, _, err = parsePeriod("2024-03-31", "2024-03-01")
	assert.Error(t, err)
	_, _, err = parsePeriod("03/01/2024", "2024-03-31")
	assert.Error(t, err)
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"seed"},
		{"invoices", "generate"},
		{"circulation", "recalc"},
		{"reports", "export"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestInvoicesGenerate_RequiresFlags(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"invoices", "generate", "--from", "2024-03-01"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
