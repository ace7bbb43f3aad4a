// Package ingest reads the statement collection produced by the extraction stage.
package ingest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/ppiankov/contrapair/internal/model"
)

var (
	// ErrEmptyText means a statement has no text after trimming
	ErrEmptyText = errors.New("statement text is empty")

	// ErrDuplicateID means two statements carry the same identifier
	ErrDuplicateID = errors.New("duplicate statement id")
)

// Options controls how statements are loaded
type Options struct {
	// MaxStatements keeps only the first N statements (0 = all)
	MaxStatements int

	// SkipEmpty drops statements with empty text instead of failing
	SkipEmpty bool
}

// Result is a loaded and normalized statement collection
type Result struct {
	Statements []model.Statement
	Skipped    int // statements dropped for empty text
	Truncated  int // statements dropped by MaxStatements
}

// LoadFile reads statements from a JSON array or JSON Lines file
func LoadFile(path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open statements: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Load(f, opts)
}

// Load reads statements from r and normalizes them
func Load(r io.Reader, opts Options) (*Result, error) {
	raw, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return Normalize(raw, opts)
}

// Decode parses a JSON array of statements or one statement object per line
func Decode(r io.Reader) ([]model.Statement, error) {
	br := bufio.NewReader(r)

	first, err := peekNonSpace(br)
	if err == io.EOF {
		return []model.Statement{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read statements: %w", err)
	}

	dec := json.NewDecoder(br)

	if first == '[' {
		var statements []model.Statement
		if err := dec.Decode(&statements); err != nil {
			return nil, fmt.Errorf("decode statements: %w", err)
		}
		if statements == nil {
			statements = []model.Statement{}
		}
		return statements, nil
	}

	statements := []model.Statement{}
	for {
		var s model.Statement
		err := dec.Decode(&s)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode statement %d: %w", len(statements), err)
		}
		statements = append(statements, s)
	}
	return statements, nil
}

// Normalize validates statements, fills missing ids and domains, and applies the limit.
// Ids are assigned as stmt-<position> in the loaded order.
func Normalize(statements []model.Statement, opts Options) (*Result, error) {
	res := &Result{Statements: make([]model.Statement, 0, len(statements))}
	seen := make(map[string]int, len(statements))

	for i, s := range statements {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			if opts.SkipEmpty {
				res.Skipped++
				continue
			}
			return nil, fmt.Errorf("statement %d: %w", i, ErrEmptyText)
		}

		if s.ID == "" {
			s.ID = fmt.Sprintf("stmt-%d", i)
		}
		if prev, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("statements %d and %d share id %q: %w", prev, i, s.ID, ErrDuplicateID)
		}
		seen[s.ID] = i

		if s.Domain == "" {
			s.Domain = domainOf(s.SourceURL)
		}

		res.Statements = append(res.Statements, s)
	}

	if opts.MaxStatements > 0 && len(res.Statements) > opts.MaxStatements {
		res.Truncated = len(res.Statements) - opts.MaxStatements
		res.Statements = res.Statements[:opts.MaxStatements]
	}

	return res, nil
}

// Describe summarizes a statement collection
func Describe(statements []model.Statement) model.DatasetStats {
	stats := model.DatasetStats{Statements: len(statements)}
	sources := make(map[string]struct{})
	domains := make(map[string]struct{})

	for _, s := range statements {
		if s.HasOpinion {
			stats.OpinionStatements++
		}
		if s.SourceURL != "" {
			sources[s.SourceURL] = struct{}{}
		}
		if s.Domain != "" {
			domains[s.Domain] = struct{}{}
		}
	}

	stats.UniqueSources = len(sources)
	stats.UniqueDomains = len(domains)
	return stats
}

// Texts returns the statement texts in order
func Texts(statements []model.Statement) []string {
	out := make([]string, len(statements))
	for i, s := range statements {
		out[i] = s.Text
	}
	return out
}

func domainOf(sourceURL string) string {
	if sourceURL == "" {
		return ""
	}
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b, br.UnreadByte()
	}
}
