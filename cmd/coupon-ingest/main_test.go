package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-shop/internal/domain/coupon"
)

func writeFeed(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want offer
		ok   bool
	}{
		{line: "save5,5", want: offer{code: "SAVE5", amount: decimal.RequireFromString("5")}, ok: true},
		{line: " SPRING-10 , 10.005 ", want: offer{code: "SPRING-10", amount: decimal.RequireFromString("10.01")}, ok: true},
		{line: "ABC,5"},
		{line: "SAVE5"},
		{line: "SAVE5,free"},
		{line: "SAVE5,0"},
		{line: "SAVE 5,5"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := parseLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want.code, got.code)
			assert.True(t, tt.want.amount.Equal(got.amount), "amount %s", got.amount)
		})
	}
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFeed(t, dir, "a.csv.gz", "SAVE5,5", "ONLYA1,3", "SPRING10,10"),
		writeFeed(t, dir, "b.csv.gz", "save5,4.5", "ONLYB1,3", "bad line"),
		writeFeed(t, dir, "c.csv.gz", "SPRING10,12", "SAVE5,6"),
	}
	ctx := context.Background()

	filters, err := buildFilters(ctx, files, 1000)
	require.NoError(t, err)

	got, err := collect(ctx, files, filters, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "SAVE5", got[0].Code)
	assert.True(t, decimal.RequireFromString("4.5").Equal(got[0].Amount))
	assert.Equal(t, "SPRING10", got[1].Code)
	assert.True(t, decimal.RequireFromString("10").Equal(got[1].Amount))

	got, err = collect(ctx, files, filters, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SAVE5", got[0].Code)

	got, err = collect(ctx, files, filters, 1)
	require.NoError(t, err)
	codes := make([]string, 0, len(got))
	for _, c := range got {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{"ONLYA1", "ONLYB1", "SAVE5", "SPRING10"}, codes)
}

func TestAccept_LowestAmountWins(t *testing.T) {
	perFeed := []map[string]candidate{
		{"DEAL": {feeds: 1, amount: decimal.NewFromInt(7)}},
		{"DEAL": {feeds: 2, amount: decimal.NewFromInt(3)}},
	}
	got := accept(perFeed, 2)
	require.Equal(t, []coupon.Coupon{{Code: "DEAL", Amount: decimal.NewFromInt(3)}}, got)
}

func TestRun_Validation(t *testing.T) {
	dir := t.TempDir()
	writeFeed(t, dir, "a.csv.gz", "SAVE5,5")

	err := run(context.Background(), filepath.Join(dir, "*.missing"), "postgres://unused", 2, 10)
	assert.ErrorContains(t, err, "no feeds match")

	err = run(context.Background(), filepath.Join(dir, "*.csv.gz"), "postgres://unused", 2, 10)
	assert.ErrorContains(t, err, "quorum 2 must be between 1 and 1")
}
