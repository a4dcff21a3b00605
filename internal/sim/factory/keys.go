package factory

import (
	"sort"

	"voxelfactory.io/internal/sim/factory/logic/mathx"
)

func chunkOf(pos Vec3i) (cx, cz int) {
	return mathx.FloorDiv(pos.X, ChunkSize), mathx.FloorDiv(pos.Z, ChunkSize)
}

func sortedKeys[V any](m map[Vec3i]V) []Vec3i {
	keys := make([]Vec3i, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessVec3i(keys[i], keys[j]) })
	return keys
}

func sortVec3i(keys []Vec3i) {
	sort.Slice(keys, func(i, j int) bool { return lessVec3i(keys[i], keys[j]) })
}

func sortChunkKeys(keys []ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
}
