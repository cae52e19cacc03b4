package l4perception

// Filter downsamples input with VoxelGrid and keeps only the representatives
// inside region. When exclude is non-nil, representatives inside it are
// discarded as well; it is meant for the ego-vehicle footprint around the
// sensor origin, which otherwise shows up as self-returns.
//
// Both regions use inclusive bounds. Empty input yields an empty set. Feeding
// the output back in with the same arguments returns it unchanged.
func Filter(input PointSet, voxelSize float64, region Region, exclude *Region) (PointSet, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}
	if exclude != nil {
		if err := exclude.Validate(); err != nil {
			return nil, err
		}
	}

	voxels, err := VoxelGrid(input, voxelSize)
	if err != nil {
		return nil, err
	}

	// Compact in place: voxels is already a private copy.
	kept := voxels[:0]
	var outside, excluded int
	for _, p := range voxels {
		if !region.Contains(p) {
			outside++
			continue
		}
		if exclude != nil && exclude.Contains(p) {
			excluded++
			continue
		}
		kept = append(kept, p)
	}

	tracef("filter: in=%d voxels=%d outside=%d ego=%d out=%d",
		len(input), len(voxels), outside, excluded, len(kept))
	return kept, nil
}
