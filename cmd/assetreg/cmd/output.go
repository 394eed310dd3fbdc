package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/assetreg/pkg/catalog"
	"github.com/ssargent/assetreg/pkg/names"
	"github.com/ssargent/assetreg/pkg/registry"
)

// output renders v in the configured format. table is used for the table format.
func output(w io.Writer, v interface{}, table func(*tabwriter.Writer)) error {
	switch container.Config().Output.Format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(v)
	case "cbor":
		return cbor.NewEncoder(w).Encode(v)
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

// FileReport is the inspect result for one file.
type FileReport struct {
	File     string            `json:"file" yaml:"file" cbor:"file"`
	Summary  *registry.Summary `json:"summary,omitempty" yaml:"summary,omitempty" cbor:"summary,omitempty"`
	Problems string            `json:"problems,omitempty" yaml:"problems,omitempty" cbor:"problems,omitempty"`
	Error    string            `json:"error,omitempty" yaml:"error,omitempty" cbor:"error,omitempty"`
	Kind     string            `json:"kind,omitempty" yaml:"kind,omitempty" cbor:"kind,omitempty"`
}

func summaryTable(tw *tabwriter.Writer, s registry.Summary) {
	fmt.Fprintf(tw, "GUID:\t%s (%s)\n", s.GUID, s.UUID)
	fmt.Fprintf(tw, "Version:\t%s (%d)\n", s.Version, s.VersionOrdinal)
	fmt.Fprintf(tw, "Filter editor-only:\t%t\n", s.FilterEditorOnlyData)
	fmt.Fprintf(tw, "Names:\t%d (%d wide, %d bytes)\n", s.Names, s.WideNames, s.NameStringBytes)
	fmt.Fprintf(tw, "Hash algorithm:\t%s\n", s.NameHashAlgorithm)
	fmt.Fprintf(tw, "Texts:\t%d\n", s.Store.Texts)
	fmt.Fprintf(tw, "Store names:\t%d numbered, %d numberless\n", s.Store.Names, s.Store.NumberlessNames)
	fmt.Fprintf(tw, "Export paths:\t%d numbered, %d numberless\n", s.Store.ExportPaths, s.Store.NumberlessExportPaths)
	fmt.Fprintf(tw, "String pools:\t%d ansi, %d wide\n", s.Store.AnsiStrings, s.Store.WideStrings)
	fmt.Fprintf(tw, "Pairs:\t%d numbered, %d numberless\n", s.Store.Pairs, s.Store.NumberlessPairs)
	fmt.Fprintf(tw, "Assets:\t%d (%d bundles)\n", s.Assets, s.Bundles)
	if s.TrailerBytes > 0 {
		fmt.Fprintf(tw, "Trailer:\t%d bytes\n", s.TrailerBytes)
	}
}

func reportsTable(reports []FileReport) func(*tabwriter.Writer) {
	return func(tw *tabwriter.Writer) {
		for i, r := range reports {
			if i > 0 {
				fmt.Fprintln(tw)
			}
			fmt.Fprintf(tw, "File:\t%s\n", r.File)
			if r.Error != "" {
				fmt.Fprintf(tw, "Error:\t%s\n", r.Error)
				continue
			}
			summaryTable(tw, *r.Summary)
			if r.Problems != "" {
				fmt.Fprintf(tw, "Problems:\t%s\n", strings.ReplaceAll(r.Problems, "\n", "; "))
			}
		}
	}
}

func namesTable(rows []names.Row) func(*tabwriter.Writer) {
	return func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "INDEX\tWIDTH\tUNITS\tHASH\tNAME")
		for _, r := range rows {
			width := "narrow"
			if r.Wide {
				width = "wide"
			}
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", r.Index, width, r.Units, r.Hash, r.Name)
		}
	}
}

func pairsTable(pairs []registry.ResolvedPair) func(*tabwriter.Writer) {
	return func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "KEY\tNUMBERED\tKIND\tVALUE")
		for _, p := range pairs {
			fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", p.Key, p.Numbered, p.Kind, p.Value)
		}
	}
}

func entriesTable(entries []catalog.Entry) func(*tabwriter.Writer) {
	return func(tw *tabwriter.Writer) {
		if len(entries) == 0 {
			fmt.Fprintln(tw, "No registries found")
			return
		}
		fmt.Fprintln(tw, "ID\tNAME\tVERSION\tNAMES\tASSETS\tSIZE\tADDED")
		for _, e := range entries {
			name := e.Name
			if len(name) > 40 {
				name = name[:37] + "..."
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				e.ID, name, e.Summary.Version, e.Summary.Names, e.Summary.Assets, e.Size,
				e.AddedAt.Format("2006-01-02 15:04"))
		}
	}
}

func entryTable(e catalog.Entry) func(*tabwriter.Writer) {
	return func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "ID:\t%s\n", e.ID)
		fmt.Fprintf(tw, "Name:\t%s\n", e.Name)
		fmt.Fprintf(tw, "Digest:\tblake3:%s\n", e.Digest)
		fmt.Fprintf(tw, "Size:\t%d bytes (%d stored)\n", e.Size, e.StoredSize)
		fmt.Fprintf(tw, "Added:\t%s\n", e.AddedAt.Format("2006-01-02T15:04:05Z07:00"))
		summaryTable(tw, e.Summary)
	}
}
