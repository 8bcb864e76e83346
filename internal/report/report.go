package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"golang.org/x/term"

	"github.com/verte-zerg/typegate/internal/generator"
	"github.com/verte-zerg/typegate/internal/model"
)

const (
	timeLayout = "2006-01-02 15:04"
	colorDim   = "\x1b[2m"
	colorMark  = "\x1b[1m"
	colorReset = "\x1b[0m"
)

// Options controls rendering.
type Options struct {
	// Width truncates lines; 0 disables truncation.
	Width int
	Color bool
}

// TerminalOptions detects color support and width for w.
func TerminalOptions(w io.Writer) Options {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return Options{}
	}
	opts := Options{Color: os.Getenv("NO_COLOR") == ""}
	if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
		opts.Width = width
	}
	return opts
}

// CodeHeaders are the column titles of a code listing.
var CodeHeaders = []string{"#", "Code", "Status", "Generated", "By", "Used At", "Used By"}

// ClientHeaders are the column titles of a client listing.
var ClientHeaders = []string{"#", "Client", "Status", "Authorized", "Last Login", "Code", "Banned At", "Unbanned At"}

// CodeRow formats the code at index i.
func CodeRow(i int, lc model.LicenseCode) []string {
	status := "unused"
	if lc.Used {
		status = "used"
	}
	return []string{
		strconv.Itoa(i + 1),
		lc.Code,
		status,
		FormatTime(&lc.GeneratedAt),
		lc.GeneratedBy,
		FormatTime(lc.UsedAt),
		deref(lc.UsedBy),
	}
}

// ClientRow formats the authorization at index i.
func ClientRow(i int, e model.AuthorizationEntry) []string {
	return []string{
		strconv.Itoa(i + 1),
		clientLabel(e),
		statusLabel(e.Active),
		FormatTime(&e.AuthorizedAt),
		FormatTime(&e.LastLogin),
		deref(e.SourceCode),
		FormatTime(e.BannedAt),
		FormatTime(e.UnbannedAt),
	}
}

// RenderCodes prints license codes in generation order.
func RenderCodes(w io.Writer, codes []model.LicenseCode, opts Options) error {
	if len(codes) == 0 {
		_, err := fmt.Fprintln(w, "No license codes found.")
		return err
	}
	rows := make([][]string, 0, len(codes))
	for i, lc := range codes {
		rows = append(rows, CodeRow(i, lc))
	}
	return writeTable(w, CodeHeaders, rows, map[int]bool{0: true}, opts, func(i int) string {
		if codes[i].Used {
			return colorDim
		}
		return ""
	})
}

// RenderClients prints authorizations in insertion order. Indexes are the
// 1-based values accepted by ban/unban.
func RenderClients(w io.Writer, entries []model.AuthorizationEntry, opts Options) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No authorized clients found.")
		return err
	}
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, ClientRow(i, e))
	}
	return writeTable(w, ClientHeaders, rows, map[int]bool{0: true}, opts, func(i int) string {
		switch {
		case entries[i].Current:
			return colorMark
		case !entries[i].Active:
			return colorDim
		}
		return ""
	})
}

// RenderTopics prints the selectable topics with their subjects.
func RenderTopics(w io.Writer, opts Options) error {
	rows := make([][]string, 0, len(generator.Topics))
	for _, topic := range generator.Topics {
		rows = append(rows, []string{topic, generator.Subject(topic)})
	}
	return writeTable(w, []string{"Topic", "Subjects"}, rows, nil, opts, nil)
}

// RenderGenerated prints a freshly generated code.
func RenderGenerated(w io.Writer, lc model.LicenseCode) error {
	_, err := fmt.Fprintf(w, "Generated license code: %s\n", lc.Code)
	return err
}

func writeTable(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool, opts Options, rowColor func(int) string) error {
	lines := formatTable(headers, rows, rightAlign)
	for i, line := range lines {
		line = truncate(line, opts.Width)
		if opts.Color && rowColor != nil && i > 0 {
			if c := rowColor(i - 1); c != "" {
				line = c + line + colorReset
			}
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// statusLabel names an authorization state for display.
func statusLabel(active bool) string {
	if active {
		return "active"
	}
	return "banned"
}

func clientLabel(e model.AuthorizationEntry) string {
	if e.Current {
		return e.Identifier + " (you)"
	}
	return e.Identifier
}

// FormatTime renders t in local time, or "-" when unset.
func FormatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
