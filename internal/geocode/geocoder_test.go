package geocode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"googlemaps.github.io/maps"
)

func comp(longName string, types ...string) maps.AddressComponent {
	return maps.AddressComponent{LongName: longName, Types: types}
}

func TestDistrictPrefersLevel2(t *testing.T) {
	region := regionFromComponents([]maps.AddressComponent{
		comp("Sindh", "administrative_area_level_1"),
		comp("Karachi", "administrative_area_level_2"),
	})
	assert.Equal(t, "Karachi", region.District)
}

func TestDistrictFallsBackToLevel1(t *testing.T) {
	region := regionFromComponents([]maps.AddressComponent{
		comp("Sindh", "administrative_area_level_1"),
	})
	assert.Equal(t, "Sindh", region.District)
}

func TestTehsilPrefersLevel3(t *testing.T) {
	region := regionFromComponents([]maps.AddressComponent{
		comp("Karachi South", "administrative_area_level_3"),
		comp("Saddar", "sublocality_level_1", "sublocality"),
	})
	assert.Equal(t, "Karachi South", region.Tehsil)

	region = regionFromComponents([]maps.AddressComponent{
		comp("Saddar", "sublocality_level_1", "sublocality"),
	})
	assert.Equal(t, "Saddar", region.Tehsil)
}

func TestVillagePriorityChain(t *testing.T) {
	region := regionFromComponents([]maps.AddressComponent{
		comp("Karachi", "locality"),
		comp("Clifton", "sublocality"),
		comp("Block 2", "neighborhood"),
	})
	assert.Equal(t, "Karachi", region.Village)

	region = regionFromComponents([]maps.AddressComponent{
		comp("Clifton", "sublocality"),
		comp("Block 2", "neighborhood"),
	})
	assert.Equal(t, "Clifton", region.Village)

	region = regionFromComponents([]maps.AddressComponent{
		comp("Block 2", "neighborhood"),
	})
	assert.Equal(t, "Block 2", region.Village)
}

func TestCountryComponent(t *testing.T) {
	region := regionFromComponents([]maps.AddressComponent{
		comp("Pakistan", "country", "political"),
	})
	assert.Equal(t, "Pakistan", region.Country)
}

func TestEmptyComponentsYieldEmptyRegion(t *testing.T) {
	assert.Equal(t, Region{}, regionFromComponents(nil))
}

func TestFullAddressMapsAllFields(t *testing.T) {
	region := regionFromComponents([]maps.AddressComponent{
		comp("Block 2", "neighborhood"),
		comp("Clifton", "sublocality_level_1", "sublocality"),
		comp("Karachi", "locality"),
		comp("Karachi South", "administrative_area_level_3"),
		comp("Karachi Division", "administrative_area_level_2"),
		comp("Sindh", "administrative_area_level_1"),
		comp("Pakistan", "country"),
	})
	assert.Equal(t, Region{
		District: "Karachi Division",
		Tehsil:   "Karachi South",
		Village:  "Karachi",
		Country:  "Pakistan",
	}, region)
}

func TestDisabledGeocoderReturnsEmpty(t *testing.T) {
	assert.Equal(t, Region{}, Disabled{}.Geocode(nil, 24.8607, 67.0011))
}
