// Package version defines the asset registry format version ladder, the
// container header, and the table that gates version-dependent fields.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is an asset registry format ordinal. Ordinals are totally ordered;
// a field introduced at version V is present in every file with version >= V.
type Version uint32

const (
	PreVersioning Version = iota
	HardSoftDependencies
	AddAssetRegistryState
	ChangedAssetData
	RemovedMD5Hash
	AddedHardManage
	AddedCookedMD5Hash
	AddedDependencyFlags
	FixedTags
	WorkspaceDomain
	PackageImportedClasses
	PackageFileSummaryVersionChange
	ObjectResourceOptionalVersionChange
	AddedChunkHashes
	ClassPaths
	RemoveAssetPathFNames
	AddedHeader

	// Latest is the only version the encoder writes.
	Latest = AddedHeader
	// Oldest is the first layout built from a names batch and store data.
	Oldest = FixedTags
)

var versionNames = [...]string{
	PreVersioning:                       "PreVersioning",
	HardSoftDependencies:                "HardSoftDependencies",
	AddAssetRegistryState:               "AddAssetRegistryState",
	ChangedAssetData:                    "ChangedAssetData",
	RemovedMD5Hash:                      "RemovedMD5Hash",
	AddedHardManage:                     "AddedHardManage",
	AddedCookedMD5Hash:                  "AddedCookedMD5Hash",
	AddedDependencyFlags:                "AddedDependencyFlags",
	FixedTags:                           "FixedTags",
	WorkspaceDomain:                     "WorkspaceDomain",
	PackageImportedClasses:              "PackageImportedClasses",
	PackageFileSummaryVersionChange:     "PackageFileSummaryVersionChange",
	ObjectResourceOptionalVersionChange: "ObjectResourceOptionalVersionChange",
	AddedChunkHashes:                    "AddedChunkHashes",
	ClassPaths:                          "ClassPaths",
	RemoveAssetPathFNames:               "RemoveAssetPathFNames",
	AddedHeader:                         "AddedHeader",
}

func (v Version) String() string {
	if v.Known() {
		return versionNames[v]
	}
	return fmt.Sprintf("Version(%d)", uint32(v))
}

// Known reports whether v is a recognised ordinal.
func (v Version) Known() bool {
	return v <= Latest
}

// Decodable reports whether files of version v can be decoded.
func (v Version) Decodable() bool {
	return v >= Oldest && v <= Latest
}

// Parse accepts a version name (case-insensitive) or its ordinal.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		v := Version(n)
		if !v.Known() {
			return 0, fmt.Errorf("unknown version ordinal %d", n)
		}
		return v, nil
	}
	for i, name := range versionNames {
		if strings.EqualFold(name, s) {
			return Version(i), nil
		}
	}
	if strings.EqualFold(s, "latest") {
		return Latest, nil
	}
	return 0, fmt.Errorf("unknown version %q", s)
}

// All returns every known version in ascending order.
func All() []Version {
	out := make([]Version, 0, len(versionNames))
	for v := PreVersioning; v <= Latest; v++ {
		out = append(out, v)
	}
	return out
}
