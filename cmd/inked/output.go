package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"inked/internal/core"
	"inked/internal/query"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPens(w io.Writer, views []query.PenView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBRAND\tMODEL\tNIB\tSTATUS\tINK")
	for _, v := range views {
		ink := "-"
		if v.Ink != nil {
			ink = fmt.Sprintf("%s %s (%s)", v.Ink.Brand, v.Ink.Name, v.Ink.Color)
		}
		nib := strings.TrimSpace(v.Nib.Size + " " + v.Nib.Material)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", v.ID, v.Brand, v.Model, nib, v.Status, ink)
	}
	return tw.Flush()
}

func printInks(w io.Writer, views []query.InkView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBRAND\tNAME\tCOLOR\tPENS")
	for _, v := range views {
		pens := "-"
		if len(v.PenIDs) > 0 {
			pens = strings.Join(v.PenIDs, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.ID, v.Brand, v.Name, v.Color, pens)
	}
	return tw.Flush()
}

// resultError turns a blocking validation result into an error listing the
// offending fields.
func resultError(res core.Result) error {
	if !res.HasBlocking() {
		return nil
	}
	return errors.New(violationSummary(res))
}

// promptConfirmer asks on out and reads a y/N answer from in. Anything but
// y or yes declines.
func promptConfirmer(in io.Reader, out io.Writer) core.Confirmer {
	reader := bufio.NewReader(in)
	return core.ConfirmFunc(func(_ context.Context, p core.Prompt) (bool, error) {
		fmt.Fprintf(out, "%s [y/N] ", p.Message)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	})
}

// readLogo loads an image file as a logo upload. The content type comes
// from the file extension.
func readLogo(path string) (*core.LogoUpload, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("read logo: %w", err)
	}
	contentType, _, _ := strings.Cut(mime.TypeByExtension(strings.ToLower(filepath.Ext(path))), ";")
	upload := &core.LogoUpload{ContentType: contentType, Data: data}
	if err := upload.Validate(); err != nil {
		return nil, err
	}
	return upload, nil
}
