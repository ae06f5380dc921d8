package factor

import "github.com/sells-group/tank-risk/internal/rules"

// Category tables for the built-in attribute factors.
var (
	AquiferZones = map[string]int{
		"Discharge":          1,
		"Secondary recharge": 2,
		"Primary recharge":   5,
	}
	AssessmentStatus = map[string]int{
		"Fully Supporting": 2,
		"Impaired":         5,
		"Not Assessed":     5,
	}
)

// DefaultDefinitions returns the built-in risk factors.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Name: "Aquifer_RechargeDischargeAreas", Kind: Attribute,
			ValueField: "aquiferVal", SeverityField: "aquiferSev",
			Required: []string{"ZONE"},
			Score:    rules.Category("ZONE", AquiferZones),
		},
		{
			Name: "Wetlands", Kind: InPolygon,
			ValueField: "wetLandsVal", SeverityField: "wetLandsSev",
			Score: rules.Polygon(),
		},
		{
			Name: "LakesNHDHighRes", Kind: Distance,
			ValueField: "lakesVal", SeverityField: "lakeSev",
			Score: rules.Distance(),
		},
		{
			Name: "StreamsNHDHighRes", Kind: Distance,
			ValueField: "streamsVal", SeverityField: "streamsSev",
			Score: rules.Distance(),
		},
		{
			Name: "DWQAssessmentUnits", Kind: Attribute,
			ValueField: "assessmentVal", SeverityField: "assessmentSev",
			Required: []string{"STATUS2006"},
			Score:    rules.Category("STATUS2006", AssessmentStatus),
		},
		{
			// No severity rule has been agreed for soil texture.
			Name: "Soils", Kind: Attribute,
			ValueField: "soilVal", SeverityField: "soilSev",
			Required: []string{"TEX_DEF"},
			Score:    rules.Unrated("TEX_DEF"),
		},
		{
			// No severity rule has been agreed for groundwater depth.
			Name: "ShallowGroundWater", Kind: Attribute,
			ValueField: "shallowWaterVal", SeverityField: "shallowWaterSev",
			Required: []string{"DEPTH"},
			Score:    rules.Unrated("DEPTH"),
		},
		{
			Name: "CensusTracts2010", Kind: Attribute,
			ValueField: "censusVal", SeverityField: "censusSev",
			Required: []string{"POP100", "AREALAND"},
			Score:    rules.Density("POP100", "AREALAND"),
		},
		{
			Name: "GroundWaterZones", Kind: Attribute,
			ValueField: "udwspzVal", SeverityField: "udwspzSev",
			Required: []string{"ProtZone"},
			Score:    rules.ProtectionZone("ProtZone"),
		},
		{
			Name: "SurfaceWaterZones", Kind: Attribute,
			ValueField: "udwspzVal", SeverityField: "udwspzSev",
			Required: []string{"ProtZone"},
			Score:    rules.ProtectionZone("ProtZone"),
		},
		{
			// Water rights points of diversion.
			Name: "wrpod", Kind: Distance,
			ValueField: "podVal", SeverityField: "podSev",
			Score: rules.Distance(),
		},
	}
}

// DefaultAliases maps the dataset names used by newer data sources to the
// built-in factor names.
func DefaultAliases() map[string]string {
	return map[string]string{
		"aquifer_recharge_discharge_areas":             "Aquifer_RechargeDischargeAreas",
		"wetlands":                                     "Wetlands",
		"ut_wetlands":                                  "Wetlands",
		"lakes_nhd":                                    "LakesNHDHighRes",
		"streams_nhd":                                  "StreamsNHDHighRes",
		"dwq_assessment_units":                         "DWQAssessmentUnits",
		"soils":                                        "Soils",
		"soil":                                         "Soils",
		"shallow_ground_water":                         "ShallowGroundWater",
		"census_tracts_2020":                           "CensusTracts2010",
		"utah_ddw_groundwater_source_protection_zones": "GroundWaterZones",
		"points_of_diversion":                          "wrpod",
		"podview":                                      "wrpod",
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(DefaultDefinitions(), DefaultAliases())
	if err != nil {
		panic(err)
	}
	return c
}
