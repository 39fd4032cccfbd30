package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadOptions controls ratings/catalog parsing.
type LoadOptions struct {
	// Separator between fields. Single-character separators ("," or "\t")
	// parse as quote-aware CSV, so titles like "American President, The"
	// survive. "::" handles MovieLens .dat files. Empty defaults to ",".
	Separator string
	// HasHeader skips the first line. Header lines are also autodetected
	// by a non-numeric rating field.
	HasHeader bool
}

func (o LoadOptions) sep() string {
	if o.Separator == "" {
		return ","
	}
	return o.Separator
}

// rowReader yields one record per input row. io.EOF ends the stream; a
// *csv.ParseError marks a malformed row the caller should skip.
type rowReader interface {
	read() ([]string, error)
}

func newRowReader(r io.Reader, sep string) rowReader {
	if len(sep) == 1 {
		cr := csv.NewReader(r)
		cr.Comma = rune(sep[0])
		cr.FieldsPerRecord = -1
		return &csvRows{r: cr}
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &splitRows{scanner: sc, sep: sep}
}

type csvRows struct {
	r *csv.Reader
}

func (c *csvRows) read() ([]string, error) {
	return c.r.Read()
}

// splitRows handles multi-character separators csv.Reader cannot express.
type splitRows struct {
	scanner *bufio.Scanner
	sep     string
}

func (s *splitRows) read() ([]string, error) {
	for s.scanner.Scan() {
		raw := strings.TrimSpace(s.scanner.Text())
		if raw == "" {
			continue
		}
		return strings.Split(raw, s.sep), nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// skippable reports whether a row error is a per-row defect rather than a
// broken input stream.
func skippable(err error) bool {
	var parseErr *csv.ParseError
	return errors.As(err, &parseErr)
}

// LoadRatings reads user,item,rating[,timestamp] rows. Malformed rows are
// skipped, not fatal; the skip count comes back so callers can report it.
func LoadRatings(path string, opts LoadOptions) ([]Interaction, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open ratings file: %w", err)
	}
	defer f.Close()

	var (
		interactions []Interaction
		skipped      int
		line         int
	)

	rows := newRowReader(f, opts.sep())
	for {
		fields, err := rows.read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			if skippable(err) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("failed to read ratings file: %w", err)
		}
		if line == 1 && opts.HasHeader {
			continue
		}
		if len(fields) < 3 {
			skipped++
			continue
		}

		rating, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			// Header autodetect: a non-numeric rating on line 1 is a header.
			if line == 1 {
				continue
			}
			skipped++
			continue
		}

		in := Interaction{
			UserID: strings.TrimSpace(fields[0]),
			ItemID: strings.TrimSpace(fields[1]),
			Rating: rating,
		}
		if in.UserID == "" || in.ItemID == "" {
			skipped++
			continue
		}
		if len(fields) >= 4 {
			if ts, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64); err == nil {
				in.Timestamp = time.Unix(ts, 0).UTC()
			}
		}
		interactions = append(interactions, in)
	}

	return interactions, skipped, nil
}

// LoadItems reads id,title[,genres[,description]] rows into a catalog map.
// Genres use the MovieLens pipe convention ("Action|Sci-Fi").
func LoadItems(path string, opts LoadOptions) (map[string]Item, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open items file: %w", err)
	}
	defer f.Close()

	items := make(map[string]Item)
	var skipped, line int

	rows := newRowReader(f, opts.sep())
	for {
		fields, err := rows.read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			if skippable(err) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("failed to read items file: %w", err)
		}
		if line == 1 && opts.HasHeader {
			continue
		}
		if len(fields) < 2 {
			skipped++
			continue
		}

		it := Item{
			ID:    strings.TrimSpace(fields[0]),
			Title: strings.TrimSpace(fields[1]),
		}
		if it.ID == "" {
			skipped++
			continue
		}
		if len(fields) >= 3 && fields[2] != "" {
			it.Genres = strings.Split(strings.TrimSpace(fields[2]), "|")
		}
		if len(fields) >= 4 {
			it.Description = strings.TrimSpace(fields[3])
		}
		items[it.ID] = it
	}

	return items, skipped, nil
}
