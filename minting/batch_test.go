package minting

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jlynch25/golang-ticketing/ledger"
	"github.com/jlynch25/golang-ticketing/metadata"
	"github.com/jlynch25/golang-ticketing/ticketing"
	"github.com/jlynch25/golang-ticketing/wallet"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchFixture struct {
	dir       string
	program   *ticketing.Program
	batch     Batch
	authority wallet.Address
}

func newBatchFixture(t *testing.T, hashes, manifest string) *batchFixture {
	t.Helper()
	log, _ := test.NewNullLogger()
	ctx := context.Background()
	dir := t.TempDir()

	template := metadata.Template{
		EventName:    "Blockchain Unplugged",
		Symbol:       "BUPT",
		ImageBaseURI: "https://images.example.com/",
		VIPCount:     1,
	}
	_, err := metadata.Generate(filepath.Join(dir, "metadata"), template, metadata.Seats("A", 3), log)
	require.NoError(t, err)

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		return path
	}

	authority, err := wallet.NewAddress()
	require.NoError(t, err)
	program := ticketing.NewProgram(ledger.NewMemoryStore(), ticketing.WithLogger(log))
	event, err := program.InitializeEvent(ctx, authority, "Blockchain Unplugged", "Genesis Theater", 1735689600)
	require.NoError(t, err)

	return &batchFixture{
		dir:       dir,
		program:   program,
		authority: authority,
		batch: Batch{
			Event:         event.Address,
			Authority:     authority,
			HashesPath:    write("metadata_hashes.csv", hashes),
			ManifestPath:  write("metadata-manifest.csv", manifest),
			DescriptorDir: filepath.Join(dir, "metadata"),
		},
	}
}

func (f *batchFixture) run(t *testing.T) *Report {
	t.Helper()
	log, _ := test.NewNullLogger()
	report, err := f.batch.Run(context.Background(), f.program, log)
	require.NoError(t, err)
	return report
}

const fullManifest = `file_name,unique_id
A1.json,u-1
A2.json,u-2
A3.json,u-3
`

func TestBatchMintsEveryRow(t *testing.T) {
	f := newBatchFixture(t, `file_name,ipfs_hash
A1.json,QmA1
A2.json,QmA2
A3.json,QmA3
`, fullManifest)

	report := f.run(t)
	require.Len(t, report.Minted, 3)
	assert.Empty(t, report.Skipped)

	first := report.Minted[0]
	assert.Equal(t, "u-1", first.UniqueID)
	assert.Equal(t, "A1", first.Ticket.Seat)
	assert.Equal(t, metadata.CategoryVIP, first.Ticket.Category)
	assert.Equal(t, "ipfs://QmA1", first.Ticket.Metadata)
	assert.Equal(t, f.authority, first.Ticket.Owner)
	assert.Equal(t, metadata.CategoryGeneral, report.Minted[2].Ticket.Category)
}

func TestBatchSkipsRowsWithoutManifestEntry(t *testing.T) {
	f := newBatchFixture(t, `file_name,ipfs_hash
A1.json,QmA1
A2.json,QmA2
`, "file_name,unique_id\nA2.json,u-2\n")

	report := f.run(t)
	require.Len(t, report.Minted, 1)
	assert.Equal(t, "A2", report.Minted[0].Ticket.Seat)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "A1.json", report.Skipped[0].FileName)
	assert.Equal(t, "no manifest entry", report.Skipped[0].Reason)
}

func TestBatchSkipsDuplicateSeats(t *testing.T) {
	f := newBatchFixture(t, `file_name,ipfs_hash
A1.json,QmA1
A1.json,QmA1again
`, fullManifest)

	report := f.run(t)
	assert.Len(t, report.Minted, 1)
	require.Len(t, report.Skipped, 1)
	assert.Contains(t, report.Skipped[0].Reason, "seat A1")

	// a second run finds every seat already ticketed
	again := f.run(t)
	assert.Empty(t, again.Minted)
	assert.Len(t, again.Skipped, 2)

	tickets, err := f.program.ListTickets(context.Background(), f.batch.Event)
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

func TestBatchSkipsUnreadableDescriptor(t *testing.T) {
	f := newBatchFixture(t, `file_name,ipfs_hash
B9.json,QmB9
A3.json,QmA3
`, "file_name,unique_id\nB9.json,u-9\nA3.json,u-3\n")

	report := f.run(t)
	require.Len(t, report.Minted, 1)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "B9.json", report.Skipped[0].FileName)
}

func TestBatchStopsOnUnauthorized(t *testing.T) {
	f := newBatchFixture(t, "file_name,ipfs_hash\nA1.json,QmA1\n", fullManifest)
	stranger, err := wallet.NewAddress()
	require.NoError(t, err)
	f.batch.Authority = stranger

	log, _ := test.NewNullLogger()
	report, err := f.batch.Run(context.Background(), f.program, log)
	assert.ErrorIs(t, err, ticketing.ErrUnauthorized)
	require.NotNil(t, report)
	assert.Empty(t, report.Minted)
}

func TestBatchRejectsBadHeader(t *testing.T) {
	f := newBatchFixture(t, "name,hash\nA1.json,QmA1\n", fullManifest)

	log, _ := test.NewNullLogger()
	_, err := f.batch.Run(context.Background(), f.program, log)
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestReadPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.csv")
	body := strings.Join([]string{
		"file_name, ipfs_hash",
		"A1.json, QmA1",
		"",
		"A2.json",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	rows, err := readPairs(path, hashesHeader)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"A1.json", "QmA1"}, {"A2.json", ""}}, rows)

	_, err = readPairs(filepath.Join(t.TempDir(), "missing.csv"), hashesHeader)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
