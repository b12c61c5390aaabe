// Package console prints operator-facing banners and tables.
package console

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/element-fi/yieldforgood/go/pkg/addressbook"
)

// Printer writes banners to an operator terminal. Color is enabled only when
// the writer is a terminal.
type Printer struct {
	out   io.Writer
	bold  *color.Color
	green *color.Color
	warn  *color.Color
}

// NewPrinter returns a Printer for w.
func NewPrinter(w io.Writer) *Printer {
	p := &Printer{
		out:   w,
		bold:  color.New(color.Bold),
		green: color.New(color.FgHiGreen),
		warn:  color.New(color.FgYellow),
	}
	if IsTerminal(w) {
		p.bold.EnableColor()
		p.green.EnableColor()
		p.warn.EnableColor()
	} else {
		p.bold.DisableColor()
		p.green.DisableColor()
		p.warn.DisableColor()
	}
	return p
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) DeployContract(name string) {
	p.bold.Fprintf(p.out, "Deploying %s contract...\n\n", name)
}

func (p *Printer) SuccessfulDeploy(name, address string) {
	p.green.Fprintf(p.out, "Successfully deployed %s contract! 🎉\n", name)
	fmt.Fprintf(p.out, "Address: %s\n", address)
}

func (p *Printer) SuccessfulMint(symbol, amount, txHash string) {
	p.green.Fprintf(p.out, "Successfully minted %s %s tokens! 🎉\n", amount, symbol)
	p.bold.Fprintf(p.out, "Transaction hash: %s\n", txHash)
}

// Notice prints an informational line such as a skipped network.
func (p *Printer) Notice(format string, args ...interface{}) {
	p.warn.Fprintf(p.out, format+"\n", args...)
}

// Tranches renders the tranche list of each symbol as a table.
func (p *Printer) Tranches(tranches map[string][]addressbook.Tranche, symbols []string, now time.Time) {
	table := tablewriter.NewWriter(p.out)
	table.SetHeader([]string{"Symbol", "Address", "Expiration", "Date", "Active", "Donation"})
	table.SetAutoWrapText(false)

	for _, symbol := range symbols {
		for _, t := range tranches[symbol] {
			active := "no"
			if t.Active(now) {
				active = "yes"
			}
			table.Append([]string{
				symbol,
				t.Address,
				strconv.FormatInt(t.Expiration, 10),
				t.ExpiresAt().UTC().Format(time.DateOnly),
				active,
				t.DonationAddress,
			})
		}
	}
	table.Render()
}
