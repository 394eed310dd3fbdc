package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ssargent/assetreg/pkg/asset"
	"github.com/ssargent/assetreg/pkg/version"
)

// VersionInfo describes one rung of the format version ladder.
type VersionInfo struct {
	Ordinal      uint32   `json:"ordinal" yaml:"ordinal" cbor:"ordinal"`
	Name         string   `json:"name" yaml:"name" cbor:"name"`
	Decodable    bool     `json:"decodable" yaml:"decodable" cbor:"decodable"`
	HeaderFields []string `json:"header_fields,omitempty" yaml:"header_fields,omitempty" cbor:"header_fields,omitempty"`
	AssetFields  []string `json:"asset_fields,omitempty" yaml:"asset_fields,omitempty" cbor:"asset_fields,omitempty"`
}

func versionInfo(v version.Version) VersionInfo {
	info := VersionInfo{Ordinal: uint32(v), Name: v.String(), Decodable: v.Decodable()}
	if info.Decodable {
		info.HeaderFields = version.HeaderFields().Present(v)
		info.AssetFields = asset.Fields().Present(v)
	}
	return info
}

func newVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions [version]",
		Short: "Show the format version ladder and which fields each version carries",
		Long: `Show every known format version, or a single version given by name or
ordinal, with the header and asset fields present at that version.

Examples:
  assetreg versions
  assetreg versions ClassPaths
  assetreg versions 14`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versions := version.All()
			if len(args) == 1 {
				v, err := version.Parse(args[0])
				if err != nil {
					return err
				}
				versions = []version.Version{v}
			}
			infos := make([]VersionInfo, len(versions))
			for i, v := range versions {
				infos[i] = versionInfo(v)
			}
			return output(cmd.OutOrStdout(), infos, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ORDINAL\tNAME\tDECODABLE\tASSET FIELDS")
				for _, info := range infos {
					fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n", info.Ordinal, info.Name, info.Decodable, strings.Join(info.AssetFields, ","))
				}
			})
		},
	}
}
