package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jlynch25/golang-ticketing/ticketing"
)

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printEvent(e *ticketing.Event) {
	date := time.Unix(e.Date, 0)
	fmt.Fprintf(a.out, "Event:     %s\n", e.Address)
	fmt.Fprintf(a.out, "Name:      %s\n", e.Name)
	fmt.Fprintf(a.out, "Venue:     %s\n", e.Venue)
	fmt.Fprintf(a.out, "Date:      %s (%s)\n", date.UTC().Format(time.RFC3339), humanize.Time(date))
	fmt.Fprintf(a.out, "Authority: %s\n", e.Authority)
}

func (a *app) printTicket(t *ticketing.Ticket) {
	fmt.Fprintf(a.out, "Ticket:   %s\n", t.Address)
	fmt.Fprintf(a.out, "Event:    %s\n", t.Event)
	fmt.Fprintf(a.out, "Owner:    %s\n", t.Owner)
	fmt.Fprintf(a.out, "Seat:     %s\n", t.Seat)
	fmt.Fprintf(a.out, "Category: %s\n", t.Category)
	fmt.Fprintf(a.out, "Scanned:  %t\n", t.Scanned)
	fmt.Fprintf(a.out, "Mint:     %s\n", t.Mint)
	fmt.Fprintf(a.out, "Metadata: %s\n", t.Metadata)
}
