// Package cmdutil provides helpers shared by skinmap commands.
package cmdutil

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/agentstation/skinmap"
	"github.com/agentstation/skinmap/pkg/constants"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/records"
)

// ReadRecords reads every input file in order. Row indexes stay relative
// to their own file.
func ReadRecords(paths []string) ([]*records.Record, error) {
	var out []*records.Record
	for _, path := range paths {
		recs, err := records.ReadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// CreateFile creates path for writing. "-" writes to stdout.
func CreateFile(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{stdout}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions) //nolint:gosec
	if err != nil {
		return nil, errors.WrapIO("create", path, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// RefTypes is a repeatable flag of "system/type" reference types. Values
// may also be comma separated.
type RefTypes []string

var _ pflag.Value = (*RefTypes)(nil)

// Set implements pflag.Value.
func (r *RefTypes) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(v)
		if _, err := parseRefType(v); err != nil {
			return err
		}
		*r = append(*r, v)
	}
	return nil
}

// String implements pflag.Value.
func (r *RefTypes) String() string {
	return strings.Join(*r, ",")
}

// Type implements pflag.Value.
func (r *RefTypes) Type() string {
	return "system/type"
}

func parseRefType(v string) ([2]string, error) {
	system, typ, ok := strings.Cut(v, "/")
	if !ok || system == "" || typ == "" {
		return [2]string{}, errors.NewValidationError("skip-ref", v, "expected system/type")
	}
	return [2]string{system, typ}, nil
}

// RefTypeOptions turns "system/type" flag values into engine options.
func RefTypeOptions(values []string) ([]skinmap.Option, error) {
	opts := make([]skinmap.Option, 0, len(values))
	for _, v := range values {
		t, err := parseRefType(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, skinmap.WithoutRefType(t[0], t[1]))
	}
	return opts, nil
}

// WriteFile creates path and fills it with write.
func WriteFile(path string, stdout io.Writer, write func(io.Writer) error) error {
	w, err := CreateFile(path, stdout)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
