package factor

import "strings"

// ParseName derives a factor name from a layer source identifier. The last
// path segment is split on dots; a trailing "shp" extension selects the token
// before it, otherwise the final token is the name.
//
//	C:\data\Wetlands.shp           -> Wetlands
//	SGID10.WATER.LakesNHDHighRes   -> LakesNHDHighRes
//	/data/opensgid.water.lakes_nhd -> lakes_nhd
func ParseName(source string) string {
	segment := source
	if i := strings.LastIndexAny(source, `/\`); i >= 0 {
		segment = source[i+1:]
	}

	tokens := strings.Split(segment, ".")
	if len(tokens) > 1 && strings.EqualFold(tokens[len(tokens)-1], "shp") {
		return tokens[len(tokens)-2]
	}
	return tokens[len(tokens)-1]
}
