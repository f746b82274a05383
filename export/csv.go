// Package export renders a transaction list as a downloadable CSV file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/goliatone/go-expense-ledger/domain"
)

const (
	// FileName is the suggested download name.
	FileName = "Expensify.csv"
	// ContentType is sent with the download.
	ContentType = "text/csv; charset=utf-8"
	// DefaultCurrencySymbol prefixes every price.
	DefaultCurrencySymbol = "₦"
	// DateLayout renders dates as dd/MM/yyyy.
	DateLayout = "02/01/2006"
)

// Header is the first row of every export.
var Header = []string{"Date", "Author", "Author Email", "Price", "Description", "Type"}

// Option configures a CSV exporter.
type Option func(*CSV)

// WithCurrencySymbol sets the price prefix. An empty symbol keeps the default.
func WithCurrencySymbol(symbol string) Option {
	return func(c *CSV) {
		if symbol != "" {
			c.symbol = symbol
		}
	}
}

// WithLocation renders dates in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *CSV) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// CSV formats transactions one row each.
type CSV struct {
	symbol  string
	loc     *time.Location
	printer *message.Printer
}

// NewCSV builds an exporter with en-US number formatting.
func NewCSV(opts ...Option) *CSV {
	c := &CSV{
		symbol:  DefaultCurrencySymbol,
		loc:     time.UTC,
		printer: message.NewPrinter(language.AmericanEnglish),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Price renders p with two decimals and thousands grouping, prefixed by the
// currency symbol.
func (c *CSV) Price(p float64) string {
	return c.symbol + " " + c.printer.Sprintf("%.2f", p)
}

// Row renders one transaction. A transaction without a joined author gets
// empty author columns.
func (c *CSV) Row(tx domain.Transaction) []string {
	var name, email string
	if tx.Author != nil {
		name, email = tx.Author.DisplayName, tx.Author.Email
	}
	return []string{
		tx.Date.In(c.loc).Format(DateLayout),
		name,
		email,
		c.Price(tx.Price),
		tx.Description,
		tx.Type.String(),
	}
}

// Write streams the header and one row per transaction to w, in list order.
func (c *CSV) Write(w io.Writer, list []domain.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range list {
		if err := cw.Write(c.Row(tx)); err != nil {
			return fmt.Errorf("write csv row %s: %w", tx.TransactionID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
