package cmd

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/assetreg/pkg/codec"
	"github.com/ssargent/assetreg/pkg/registry"
)

func decodeOptions() []registry.Option {
	return []registry.Option{
		registry.WithLimits(container.Config().Limits.ToCodec()),
		registry.WithLogger(container.Logger()),
	}
}

func readRegistry(path string) (*registry.Registry, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	reg, err := registry.DecodeBytes(raw, decodeOptions()...)
	if err != nil {
		return nil, raw, fmt.Errorf("%s: %w", path, err)
	}
	return reg, raw, nil
}

// forEachFile runs fn over files with bounded parallelism. Results land at
// the file's index so output order matches argument order.
func forEachFile(cmd *cobra.Command, files []string, fn func(i int, path string)) error {
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(i, path)
			return nil
		})
	}
	return g.Wait()
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Decode containers and print their summaries",
		Long: `Decode one or more asset registry containers and print a summary of each.
Files are decoded in parallel. Cross-references are validated unless
--no-validate is given.

Examples:
  assetreg inspect AssetRegistry.bin
  assetreg inspect -o json a.bin b.bin`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noValidate, _ := cmd.Flags().GetBool("no-validate")
			reports := make([]FileReport, len(args))

			err := forEachFile(cmd, args, func(i int, path string) {
				reports[i].File = path
				reg, _, err := readRegistry(path)
				if err != nil {
					reports[i].Error = err.Error()
					if k := codec.KindOf(err); k != codec.KindUnknown {
						reports[i].Kind = k.String()
					}
					return
				}
				s := reg.Summarize()
				reports[i].Summary = &s
				if !noValidate {
					if err := reg.Validate(); err != nil {
						reports[i].Problems = err.Error()
					}
				}
			})
			if err != nil {
				return err
			}

			if err := output(cmd.OutOrStdout(), reports, reportsTable(reports)); err != nil {
				return err
			}
			failed := 0
			for _, r := range reports {
				if r.Error != "" || r.Problems != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(reports))
			}
			return nil
		},
	}
	cmd.Flags().Bool("no-validate", false, "Skip cross-reference validation")
	return cmd
}

func newNamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "names <file>",
		Short: "List a container's names batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := readRegistry(args[0])
			if err != nil {
				return err
			}
			rows := reg.Names.Rows()
			return output(cmd.OutOrStdout(), rows, namesTable(rows))
		},
	}
}

func newPairsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pairs <file>",
		Short: "List a container's tag pairs with keys and values resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := readRegistry(args[0])
			if err != nil {
				return err
			}
			pairs, err := reg.ResolvedPairs()
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), pairs, pairsTable(pairs))
		},
	}
}

// RoundtripReport records whether re-encoding a file reproduced its bytes.
type RoundtripReport struct {
	File          string `json:"file" yaml:"file" cbor:"file"`
	Size          int    `json:"size" yaml:"size" cbor:"size"`
	EncodedSize   int    `json:"encoded_size" yaml:"encoded_size" cbor:"encoded_size"`
	Identical     bool   `json:"identical" yaml:"identical" cbor:"identical"`
	FirstMismatch int    `json:"first_mismatch" yaml:"first_mismatch" cbor:"first_mismatch"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty" cbor:"error,omitempty"`
}

func firstMismatch(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) == len(b) {
		return -1
	}
	return n
}

func newRoundtripCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roundtrip <file>...",
		Short: "Decode and re-encode containers, checking the bytes are reproduced",
		Long: `Decode each container, encode it again and compare the result with the
original bytes. Containers written at an older version are re-encoded at the
latest version and are expected to differ.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports := make([]RoundtripReport, len(args))
			err := forEachFile(cmd, args, func(i int, path string) {
				rep := RoundtripReport{File: path, FirstMismatch: -1}
				defer func() { reports[i] = rep }()

				reg, raw, err := readRegistry(path)
				rep.Size = len(raw)
				if err != nil {
					rep.Error = err.Error()
					return
				}
				encoded, err := reg.EncodeBytes(registry.WithLogger(container.Logger()))
				if err != nil {
					rep.Error = err.Error()
					return
				}
				rep.EncodedSize = len(encoded)
				rep.Identical = bytes.Equal(raw, encoded)
				rep.FirstMismatch = firstMismatch(raw, encoded)
			})
			if err != nil {
				return err
			}

			err = output(cmd.OutOrStdout(), reports, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "FILE\tSIZE\tENCODED\tRESULT")
				for _, r := range reports {
					result := "identical"
					switch {
					case r.Error != "":
						result = "error: " + r.Error
					case !r.Identical:
						result = fmt.Sprintf("differs at offset %d", r.FirstMismatch)
					}
					fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", r.File, r.Size, r.EncodedSize, result)
				}
			})
			if err != nil {
				return err
			}
			bad := 0
			for _, r := range reports {
				if !r.Identical {
					bad++
				}
			}
			if bad > 0 {
				return fmt.Errorf("%d of %d files did not round-trip", bad, len(reports))
			}
			return nil
		},
	}
}

func newSampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample <out>",
		Short: "Write a small valid container for experimentation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Sample()
			if err != nil {
				return err
			}
			raw, err := reg.EncodeBytes()
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], raw, 0644); err != nil {
				return fmt.Errorf("failed to write sample: %w", err)
			}
			cmd.Printf("Wrote %d bytes to %s\n", len(raw), args[0])
			return nil
		},
	}
}
