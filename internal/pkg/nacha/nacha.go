// Package nacha writes ACH direct-deposit files in the NACHA fixed-width format.
//
// A file carries a single PPD credit batch: file header (1), batch header (5),
// one entry detail (6) per payee, batch control (8) and file control (9),
// padded with all-9 records to a whole number of 10-record blocks.
// A batch needs at least one entry, so a file with nothing to pay has no batch
// and reports a batch count of zero.
package nacha

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RecordLength   = 94
	BlockingFactor = 10

	serviceClassCredits = "220"
	secPPD              = "PPD"

	TransactionCheckingCredit = "22"
	TransactionSavingsCredit  = "32"

	individualIDLength = 15
)

var ErrInvalidEntry = errors.New("invalid ACH entry")

// Originator identifies the sending company and banks
type Originator struct {
	ImmediateDestination     string
	ImmediateDestinationName string
	ImmediateOrigin          string
	ImmediateOriginName      string
	CompanyName              string
	CompanyID                string
	// ODFI is the 8-digit routing prefix of the originating bank
	ODFI string
}

// Entry is one credit to a receiver's account
type Entry struct {
	IndividualID  string
	Name          string
	RoutingNumber string
	AccountNumber string
	Savings       bool
	Amount        decimal.Decimal
}

type File struct {
	Originator       Originator
	EntryDescription string
	DescriptiveDate  time.Time
	EffectiveDate    time.Time
	CreatedAt        time.Time
	FileIDModifier   byte
	Entries          []Entry
}

// Totals summarises the batch the way the control records report it
type Totals struct {
	BatchCount  int
	EntryCount  int
	EntryHash   int64
	CreditCents int64
	BlockCount  int
}

// Records renders every line of the file, padding included, without line terminators.
// Entries with a non-positive amount are omitted.
func (f *File) Records() ([]string, Totals, error) {
	var totals Totals

	entries := make([]string, 0, len(f.Entries))
	for _, e := range f.Entries {
		cents := e.Amount.Round(2).Shift(2).IntPart()
		if cents <= 0 {
			continue
		}
		if len(e.RoutingNumber) != 9 || !isDigits(e.RoutingNumber) {
			return nil, Totals{}, fmt.Errorf("%w: routing number of %s must be 9 digits", ErrInvalidEntry, e.IndividualID)
		}
		if strings.TrimSpace(e.AccountNumber) == "" || len(e.AccountNumber) > 17 {
			return nil, Totals{}, fmt.Errorf("%w: account number of %s must be 1-17 characters", ErrInvalidEntry, e.IndividualID)
		}
		if len(strings.TrimSpace(e.IndividualID)) > individualIDLength {
			return nil, Totals{}, fmt.Errorf("%w: individual id %s is longer than %d characters", ErrInvalidEntry, e.IndividualID, individualIDLength)
		}

		totals.EntryCount++
		rdfi, _ := strconv.ParseInt(e.RoutingNumber[:8], 10, 64)
		totals.EntryHash += rdfi
		totals.CreditCents += cents

		entries = append(entries, f.entryDetail(e, cents, totals.EntryCount))
	}
	totals.EntryHash %= 10_000_000_000

	records := make([]string, 0, len(entries)+BlockingFactor)
	records = append(records, f.fileHeader())
	if len(entries) > 0 {
		totals.BatchCount = 1
		records = append(records, f.batchHeader())
		records = append(records, entries...)
		records = append(records, f.batchControl(totals))
	}

	totals.BlockCount = (len(records) + 1 + BlockingFactor - 1) / BlockingFactor
	records = append(records, f.fileControl(totals))

	filler := strings.Repeat("9", RecordLength)
	for len(records)%BlockingFactor != 0 {
		records = append(records, filler)
	}

	for i, r := range records {
		if len(r) != RecordLength {
			return nil, Totals{}, fmt.Errorf("record %d is %d characters", i+1, len(r))
		}
	}
	return records, totals, nil
}

// WriteTo writes the file with CRLF record separators
func (f *File) WriteTo(w io.Writer) (int64, error) {
	records, _, err := f.Records()
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	var written int64
	for _, r := range records {
		n, err := bw.WriteString(r + "\r\n")
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

func (f *File) fileHeader() string {
	modifier := f.FileIDModifier
	if modifier == 0 {
		modifier = 'A'
	}
	o := f.Originator
	return "1" +
		"01" +
		numericRight(o.ImmediateDestination, 10, ' ') +
		numericRight(o.ImmediateOrigin, 10, ' ') +
		f.CreatedAt.Format("060102") +
		f.CreatedAt.Format("1504") +
		string(modifier) +
		"094" +
		fmt.Sprintf("%02d", BlockingFactor) +
		"1" +
		alpha(o.ImmediateDestinationName, 23) +
		alpha(o.ImmediateOriginName, 23) +
		alpha("", 8)
}

func (f *File) batchHeader() string {
	o := f.Originator
	return "5" +
		serviceClassCredits +
		alpha(o.CompanyName, 16) +
		alpha("", 20) +
		alpha(o.CompanyID, 10) +
		secPPD +
		alpha(f.EntryDescription, 10) +
		f.DescriptiveDate.Format("060102") +
		f.EffectiveDate.Format("060102") +
		alpha("", 3) +
		"1" +
		numeric(o.ODFI, 8) +
		numeric("1", 7)
}

func (f *File) entryDetail(e Entry, cents int64, seq int) string {
	code := TransactionCheckingCredit
	if e.Savings {
		code = TransactionSavingsCredit
	}
	return "6" +
		code +
		e.RoutingNumber[:8] +
		e.RoutingNumber[8:9] +
		alpha(e.AccountNumber, 17) +
		fmt.Sprintf("%010d", cents) +
		alpha(e.IndividualID, individualIDLength) +
		alpha(e.Name, 22) +
		alpha("", 2) +
		"0" +
		numeric(f.Originator.ODFI, 8) +
		fmt.Sprintf("%07d", seq)
}

func (f *File) batchControl(t Totals) string {
	return "8" +
		serviceClassCredits +
		fmt.Sprintf("%06d", t.EntryCount) +
		fmt.Sprintf("%010d", t.EntryHash) +
		fmt.Sprintf("%012d", 0) +
		fmt.Sprintf("%012d", t.CreditCents) +
		alpha(f.Originator.CompanyID, 10) +
		alpha("", 19) +
		alpha("", 6) +
		numeric(f.Originator.ODFI, 8) +
		numeric("1", 7)
}

func (f *File) fileControl(t Totals) string {
	return "9" +
		fmt.Sprintf("%06d", t.BatchCount) +
		fmt.Sprintf("%06d", t.BlockCount) +
		fmt.Sprintf("%08d", t.EntryCount) +
		fmt.Sprintf("%010d", t.EntryHash) +
		fmt.Sprintf("%012d", 0) +
		fmt.Sprintf("%012d", t.CreditCents) +
		alpha("", 39)
}

// alpha upper-cases, left-justifies and space-pads or truncates to width
func alpha(s string, width int) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return ' '
		}
		return r
	}, s)
	if len(s) > width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// numeric right-justifies zero-padded, keeping the rightmost digits when too long
func numeric(s string, width int) string {
	return numericRight(s, width, '0')
}

func numericRight(s string, width int, pad byte) string {
	s = strings.TrimSpace(s)
	if len(s) > width {
		return s[len(s)-width:]
	}
	return strings.Repeat(string(pad), width-len(s)) + s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
