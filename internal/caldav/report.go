package caldav

import (
	"encoding/xml"
	"fmt"
	"time"
)

// calendarQuery builds the REPORT body asking for every VEVENT overlapping
// the window.
func calendarQuery(from, to time.Time) []byte {
	body := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop>
    <C:calendar-data/>
  </D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR">
      <C:comp-filter name="VEVENT">
        <C:time-range start="%s" end="%s"/>
      </C:comp-filter>
    </C:comp-filter>
  </C:filter>
</C:calendar-query>`,
		from.UTC().Format(reportTimeLayout),
		to.UTC().Format(reportTimeLayout))
	return []byte(body)
}

type multistatus struct {
	XMLName   xml.Name       `xml:"DAV: multistatus"`
	Responses []davResponse  `xml:"response"`
}

type davResponse struct {
	Href     string        `xml:"href"`
	Propstat []davPropstat `xml:"propstat"`
}

type davPropstat struct {
	Status string  `xml:"status"`
	Prop   davProp `xml:"prop"`
}

type davProp struct {
	CalendarData string `xml:"urn:ietf:params:xml:ns:caldav calendar-data"`
}

// parseMultistatus pulls the calendar-data payloads out of a REPORT
// response, skipping propstats that did not succeed.
func parseMultistatus(body []byte) ([][]byte, error) {
	var ms multistatus
	if err := xml.Unmarshal(body, &ms); err != nil {
		return nil, fmt.Errorf("caldav: parse multistatus: %w", err)
	}
	var payloads [][]byte
	for _, resp := range ms.Responses {
		for _, ps := range resp.Propstat {
			if ps.Prop.CalendarData == "" {
				continue
			}
			payloads = append(payloads, []byte(ps.Prop.CalendarData))
		}
	}
	return payloads, nil
}
