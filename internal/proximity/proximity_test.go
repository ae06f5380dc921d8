package proximity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScratch(t *testing.T) {
	s := NewScratch()
	s.Put("zones", []NearRow{
		{AssetID: "e1", TargetID: 4, Distance: 0.0},
		{AssetID: "e2", TargetID: 4, Distance: 10.0},
		{AssetID: "e3", TargetID: NoTarget},
		{AssetID: "e4", TargetID: 2, Distance: 3.0},
	})
	assert.Equal(t, []int64{4, 2}, s.TargetIDs("zones"))

	recs := s.Records("zones", map[int64]map[string]any{4: {"ProtZone": 1}})
	assert.Equal(t, []Record{
		{AssetID: "e1", Distance: 0.0, Attributes: map[string]any{"ProtZone": 1}},
		{AssetID: "e2", Distance: 10.0, Attributes: map[string]any{"ProtZone": 1}},
		{AssetID: "e3"},
		{AssetID: "e4", Distance: 3.0},
	}, recs)

	s.Drop("zones")
	assert.Empty(t, s.TargetIDs("zones"))
	assert.Empty(t, s.Records("zones", nil))
}
