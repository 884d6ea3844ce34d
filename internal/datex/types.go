// Package datex fetches and decodes the gzip-compressed DATEX II documents
// published by NDW: measurement.xml.gz (site metadata), trafficspeed.xml.gz
// (per-lane measurements) and traveltime.xml.gz (route travel times).
package datex

// SiteRecord is one measurementSiteRecord from the metadata document.
type SiteRecord struct {
	ID        string                `xml:"id,attr"`
	Name      string                `xml:"measurementSiteName>values>value"`
	Lanes     *int                  `xml:"measurementSiteNumberOfLanes"`
	Equipment string                `xml:"measurementEquipmentTypeUsed>values>value"`
	Side      string                `xml:"measurementSide"`
	Location  SiteLocation          `xml:"measurementSiteLocation"`
	Specifics []CharacteristicIndex `xml:"measurementSpecificCharacteristics"`
}

type SiteLocation struct {
	Latitude  *float64 `xml:"locationForDisplay>latitude"`
	Longitude *float64 `xml:"locationForDisplay>longitude"`
}

// CharacteristicIndex is one indexed measurement descriptor. Its index
// attribute is the position in the site's raw measurement array.
type CharacteristicIndex struct {
	Index int                     `xml:"index,attr"`
	Inner SpecificCharacteristics `xml:"measurementSpecificCharacteristics"`
}

type SpecificCharacteristics struct {
	VehicleType string `xml:"specificVehicleCharacteristics>vehicleType"`
	Lane        string `xml:"specificLane"`
	ValueType   string `xml:"specificMeasurementValueType"`
}

// SiteMeasurement is one siteMeasurements element, shared by the speed and
// travel-time documents.
type SiteMeasurement struct {
	SiteRef SiteReference        `xml:"measurementSiteReference"`
	Time    string               `xml:"measurementTimeDefault"`
	Values  []MeasuredValueIndex `xml:"measuredValue"`
}

type SiteReference struct {
	ID string `xml:"id,attr"`
}

type MeasuredValueIndex struct {
	Index int           `xml:"index,attr"`
	Inner MeasuredValue `xml:"measuredValue"`
}

type MeasuredValue struct {
	BasicData BasicData               `xml:"basicData"`
	Extension *MeasuredValueExtension `xml:"measuredValueExtension"`
}

// BasicData carries exactly one measurement; Type discriminates which.
type BasicData struct {
	Type       string      `xml:"http://www.w3.org/2001/XMLSchema-instance type,attr"`
	FlowRate   *int        `xml:"vehicleFlow>vehicleFlowRate"`
	Speed      *float64    `xml:"averageVehicleSpeed>speed"`
	TravelTime *TravelTime `xml:"travelTime"`
}

type TravelTime struct {
	Accuracy    *float64 `xml:"accuracy,attr"`
	Quality     *float64 `xml:"supplierCalculatedDataQuality,attr"`
	InputValues *int     `xml:"numberOfInputValuesUsed,attr"`
	Duration    *float64 `xml:"duration"`
}

// MeasuredValueExtension holds the optional free-flow reference sub-block.
// Its absence is a normal outcome, not an error.
type MeasuredValueExtension struct {
	Reference *ReferenceValue `xml:"basicDataReferenceValue"`
}

type ReferenceValue struct {
	TravelTime *ReferenceTravelTime `xml:"travelTimeData"`
}

type ReferenceTravelTime struct {
	Duration *float64 `xml:"duration"`
}

const (
	ValueTypeFlow  = "trafficFlow"
	ValueTypeSpeed = "trafficSpeed"

	VehicleTypeAny = "anyVehicle"

	BasicDataFlow       = "TrafficFlow"
	BasicDataSpeed      = "TrafficSpeed"
	BasicDataTravelTime = "TravelTimeData"
)
