package rf2

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"rf2boot/internal/core/errors"
	"rf2boot/internal/shared/observability"
	"rf2boot/internal/shared/util"
)

// Family selects the header and column rules applied to a file.
type Family int

const (
	FamilyComponent Family = iota
	FamilyIdentifier
	FamilyRefset
)

func (f Family) String() string {
	switch f {
	case FamilyIdentifier:
		return "identifier"
	case FamilyRefset:
		return "refset"
	default:
		return "component"
	}
}

// Layout is the header layout detected when a file is opened. Only identifier
// files have a legacy layout; every other family is LayoutStandard.
type Layout int

const (
	LayoutStandard Layout = iota
	LayoutLegacyIdentifier
)

// EffectiveTimeColumn is the index of the effective time for rows in this layout.
func (l Layout) EffectiveTimeColumn() int {
	if l == LayoutLegacyIdentifier {
		return 2
	}
	return 1
}

const (
	minHeaderColumns = 5
	refsetMinColumns = 6
	cancelCheckEvery = 8192
	maxLineBytes     = 16 << 20
)

// Line is one data row handed to a read callback. Fields always has
// len(Header) entries; refset rows that were short are padded with "".
type Line struct {
	Fields []string
	Header []string
	Layout Layout
	Path   string
	Number int
}

// ReadOptions restricts which rows reach the callback. When Versioned is set
// only rows whose effective time equals Version are forwarded.
type ReadOptions struct {
	Version   string
	Versioned bool
}

// ReadFile opens path and streams its rows to fn. It returns the number of
// data lines read, including rows skipped by the version restriction.
func ReadFile(ctx context.Context, path string, family Family, opts ReadOptions, fn func(Line)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, formatError(path, 0, err, "could not open release file %s", filepath.Base(path))
	}
	defer f.Close()

	n, err := Read(ctx, f, path, family, opts, fn)
	if err == nil {
		observability.FilesRead.WithLabelValues(family.String()).Inc()
		observability.LinesRead.Add(float64(n))
	}
	return n, err
}

// Read validates the header of r and streams its rows to fn. name is used in
// errors and log records.
func Read(ctx context.Context, r io.Reader, name string, family Family, opts ReadOptions, fn func(Line)) (int, error) {
	base := filepath.Base(name)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, formatError(name, 1, err, "could not read header of %s", base)
		}
		return 0, formatError(name, 1, nil, "invalid release content: no header line in %s", base)
	}
	header := strings.Split(trimLine(strings.TrimPrefix(scanner.Text(), "\uFEFF")), "\t")
	layout, err := checkHeader(header, family, name)
	if err != nil {
		return 0, err
	}

	columns := len(header)
	dateCol := layout.EffectiveTimeColumn()
	warn := util.NewLimiter(1, 10)
	logf := func(msg string, args ...any) {
		if warn.Allow() {
			slog.Warn(msg, args...)
		}
	}

	read := 0
	number := 1
	for scanner.Scan() {
		number++
		if number%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return read, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read cancelled"), errors.CtxPath, name)
			}
		}
		text := trimLine(scanner.Text())
		if text == "" {
			logf("skipping empty line", "path", base, "line", number)
			continue
		}
		read++

		fields := strings.Split(text, "\t")
		if len(fields) != columns {
			if family != FamilyRefset || len(fields) > columns {
				return read, formatError(name, number, nil,
					"invalid release content: wrong number of columns in line %d of %s, expected %d found %d",
					number, base, columns, len(fields))
			}
			if len(fields) < refsetMinColumns {
				return read, formatError(name, number, nil,
					"invalid release content: less than %d columns in line %d of %s, found %d",
					refsetMinColumns, number, base, len(fields))
			}
			logf("short refset row, trailing values treated as empty",
				"path", base, "line", number, "expected", columns, "found", len(fields))
			padded := make([]string, columns)
			copy(padded, fields)
			fields = padded
		}

		if opts.Versioned && fields[dateCol] != opts.Version {
			continue
		}
		fn(Line{Fields: fields, Header: header, Layout: layout, Path: name, Number: number})
	}
	if err := scanner.Err(); err != nil {
		return read, formatError(name, number+1, err, "could not read line %d of %s", number+1, base)
	}

	if suppressed := warn.Suppressed(); suppressed > 0 {
		observability.WarningsSuppressed.Add(float64(suppressed))
		slog.Warn("further row warnings suppressed", "path", base, "count", suppressed)
	}
	slog.Debug("release file read", "path", base, "family", family.String(), "lines", read)
	return read, nil
}

func checkHeader(header []string, family Family, name string) (Layout, error) {
	base := filepath.Base(name)
	if len(header) < minHeaderColumns {
		return LayoutStandard, formatError(name, 1, nil,
			"invalid release content: less than five tab separated columns found in first line of %s", base)
	}
	if family == FamilyIdentifier {
		switch header[0] {
		case "alternateIdentifier":
			return LayoutStandard, nil
		case "identifierSchemeId":
			return LayoutLegacyIdentifier, nil
		}
		return LayoutStandard, formatError(name, 1, nil,
			"invalid release content: 'alternateIdentifier' or 'identifierSchemeId' not found as first column of %s", base)
	}
	if header[0] != "id" {
		return LayoutStandard, formatError(name, 1, nil,
			"invalid release content: 'id' not found as first column of %s", base)
	}
	return LayoutStandard, nil
}

func trimLine(s string) string {
	return strings.TrimSuffix(s, "\r")
}

func formatError(path string, line int, cause error, format string, args ...any) error {
	de := &errors.DomainError{
		Code:    errors.CodeFormat,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
	de.WithContext(errors.CtxPath, path)
	if line > 0 {
		de.WithContext(errors.CtxLine, line)
	}
	return de
}
