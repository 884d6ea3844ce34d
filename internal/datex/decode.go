package datex

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DecodeSiteRecords streams measurementSiteRecord elements from the metadata
// document and calls fn for each. Returning an error from fn aborts the scan.
func DecodeSiteRecords(r io.Reader, fn func(SiteRecord) error) error {
	return decodeEach(r, "measurementSiteRecord", func(d *xml.Decoder, start xml.StartElement) error {
		var rec SiteRecord
		if err := d.DecodeElement(&rec, &start); err != nil {
			return fmt.Errorf("decode site record: %w", err)
		}
		return fn(rec)
	})
}

// DecodeSiteMeasurements streams siteMeasurements elements from a speed or
// travel-time snapshot and calls fn for each.
func DecodeSiteMeasurements(r io.Reader, fn func(SiteMeasurement) error) error {
	return decodeEach(r, "siteMeasurements", func(d *xml.Decoder, start xml.StartElement) error {
		var m SiteMeasurement
		if err := d.DecodeElement(&m, &start); err != nil {
			return fmt.Errorf("decode site measurements: %w", err)
		}
		return fn(m)
	})
}

func decodeEach(r io.Reader, local string, fn func(*xml.Decoder, xml.StartElement) error) error {
	d := xml.NewDecoder(r)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != local {
			continue
		}
		if err := fn(d, start); err != nil {
			return err
		}
	}
}

// TypeName strips a namespace prefix from an xsi:type value, so both
// "TrafficSpeed" and "ns:TrafficSpeed" compare equal.
func TypeName(xsiType string) string {
	if i := strings.LastIndexByte(xsiType, ':'); i >= 0 {
		return xsiType[i+1:]
	}
	return xsiType
}
