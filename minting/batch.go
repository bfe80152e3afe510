// Package minting issues tickets in bulk from the files the metadata
// pipeline leaves behind: a hash list of pinned descriptors and the upload
// manifest.
package minting

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jlynch25/golang-ticketing/metadata"
	"github.com/jlynch25/golang-ticketing/ticketing"
	"github.com/jlynch25/golang-ticketing/wallet"
	"github.com/sirupsen/logrus"
)

// ErrBadHeader is returned when a CSV file does not start with the expected
// columns.
var ErrBadHeader = errors.New("unexpected csv header")

var (
	hashesHeader   = []string{"file_name", "ipfs_hash"}
	manifestHeader = []string{"file_name", "unique_id"}
)

// Issuer mints and lists tickets. *ticketing.Program and network.Client
// both satisfy it.
type Issuer interface {
	MintTicket(ctx context.Context, caller wallet.Address, event wallet.Address, req ticketing.MintRequest) (*ticketing.Ticket, error)
	ListTickets(ctx context.Context, event wallet.Address) ([]ticketing.Ticket, error)
}

// Batch describes one bulk mint.
type Batch struct {
	Event     wallet.Address
	Authority wallet.Address
	// HashesPath lists file_name,ipfs_hash for every pinned descriptor.
	HashesPath string
	// ManifestPath lists file_name,unique_id for every uploaded descriptor.
	ManifestPath string
	// DescriptorDir holds the descriptor files named in both lists.
	DescriptorDir string
}

// Minted is one ticket the batch issued.
type Minted struct {
	FileName string
	UniqueID string
	Ticket   *ticketing.Ticket
}

// Skipped is one row the batch did not mint.
type Skipped struct {
	FileName string
	Reason   string
}

// Report summarizes a run.
type Report struct {
	Minted  []Minted
	Skipped []Skipped
}

func (r *Report) skip(log logrus.FieldLogger, file, reason string) {
	log.WithField("file", file).Warnf("Skipping: %s", reason)
	r.Skipped = append(r.Skipped, Skipped{FileName: file, Reason: reason})
}

// Run mints one ticket per hash row, in file order. Seats already ticketed
// for the event, or repeated within the batch, are skipped, so a run can be
// repeated after a partial failure. Errors other than a row being unusable
// stop the run; the report holds what was done up to that point.
func (b Batch) Run(ctx context.Context, issuer Issuer, log logrus.FieldLogger) (*Report, error) {
	hashes, err := readPairs(b.HashesPath, hashesHeader)
	if err != nil {
		return nil, err
	}
	manifest, err := readPairs(b.ManifestPath, manifestHeader)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(manifest))
	for _, row := range manifest {
		ids[row[0]] = row[1]
	}

	existing, err := issuer.ListTickets(ctx, b.Event)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	seats := make(map[string]bool, len(existing)+len(hashes))
	for _, t := range existing {
		seats[t.Seat] = true
	}

	log = log.WithField("event", b.Event)
	log.Infof("Starting minting process: %d descriptors", len(hashes))

	report := &Report{}
	for _, row := range hashes {
		file, hash := row[0], row[1]

		uniqueID, ok := ids[file]
		if !ok {
			report.skip(log, file, "no manifest entry")
			continue
		}
		if hash == "" {
			report.skip(log, file, "no ipfs hash")
			continue
		}

		desc, err := metadata.ReadDescriptor(filepath.Join(b.DescriptorDir, file))
		if err != nil {
			report.skip(log, file, err.Error())
			continue
		}
		seat, category := desc.Seat(), desc.Category()
		if seats[seat] {
			report.skip(log, file, fmt.Sprintf("seat %s already ticketed", seat))
			continue
		}

		ticket, err := issuer.MintTicket(ctx, b.Authority, b.Event, ticketing.MintRequest{
			Seat:     seat,
			Category: category,
			Metadata: metadata.IPFSRef(hash),
		})
		if errors.Is(err, ticketing.ErrInvalidArgument) {
			report.skip(log, file, err.Error())
			continue
		}
		if err != nil {
			return report, fmt.Errorf("mint %s: %w", file, err)
		}

		seats[seat] = true
		report.Minted = append(report.Minted, Minted{FileName: file, UniqueID: uniqueID, Ticket: ticket})
		log.WithFields(logrus.Fields{
			"file":      file,
			"ipfs_hash": hash,
			"unique_id": uniqueID,
			"ticket":    ticket.Address,
		}).Info("Minted ticket")
	}

	log.Infof("Minting complete: %d minted, %d skipped", len(report.Minted), len(report.Skipped))
	return report, nil
}

// readPairs reads a two column CSV file with the given header.
func readPairs(path string, header []string) ([][2]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	first, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: %w: empty file", path, ErrBadHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(first) < 2 || !strings.EqualFold(first[0], header[0]) || !strings.EqualFold(first[1], header[1]) {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrBadHeader, first)
	}

	var rows [][2]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		row := [2]string{strings.TrimSpace(rec[0])}
		if len(rec) > 1 {
			row[1] = strings.TrimSpace(rec[1])
		}
		rows = append(rows, row)
	}
}
