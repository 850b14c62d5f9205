package transformers

import (
	"strings"

	"data-migration/domain/entities"
)

// invalidAddresses are placeholder values DoS uses instead of an address.
var invalidAddresses = map[string]struct{}{
	"not available": {},
}

// ukCounties are the county names recognised in address segments.
var ukCounties = []string{
	"Bedfordshire", "Berkshire", "Bristol", "Buckinghamshire", "Cambridgeshire",
	"Cheshire", "City of London", "Cornwall", "County Durham", "Cumbria",
	"Derbyshire", "Devon", "Dorset", "East Riding of Yorkshire", "East Sussex",
	"Essex", "Gloucestershire", "Greater London", "Greater Manchester", "Hampshire",
	"Herefordshire", "Hertfordshire", "Isle of Wight", "Kent", "Lancashire",
	"Leicestershire", "Lincolnshire", "Merseyside", "Norfolk", "North Yorkshire",
	"Northamptonshire", "Northumberland", "Nottinghamshire", "Oxfordshire", "Rutland",
	"Shropshire", "Somerset", "South Yorkshire", "Staffordshire", "Suffolk",
	"Surrey", "Tyne and Wear", "Warwickshire", "West Midlands", "West Sussex",
	"West Yorkshire", "Wiltshire", "Worcestershire",
}

var countyIndex = func() map[string]string {
	idx := make(map[string]string, len(ukCounties))
	for _, c := range ukCounties {
		idx[normalise(c)] = c
	}
	return idx
}()

// normalise trims, collapses inner whitespace and lowercases text.
func normalise(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FormatAddress turns a DoS "$" separated address into a structured address.
// Segments repeating the town or their predecessor are dropped and the last
// segment naming a county becomes the county. It returns nil when the address
// is missing or a known placeholder.
func FormatAddress(address, town, postcode *string) *entities.Address {
	raw := deref(address)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if _, invalid := invalidAddresses[normalise(raw)]; invalid {
		return nil
	}

	townNorm := normalise(deref(town))
	var segments []string
	for _, part := range strings.Split(raw, "$") {
		seg := strings.TrimSpace(part)
		if seg == "" {
			continue
		}
		if townNorm != "" && normalise(seg) == townNorm {
			continue
		}
		if n := len(segments); n > 0 && normalise(segments[n-1]) == normalise(seg) {
			continue
		}
		segments = append(segments, seg)
	}

	var county *string
	for i := len(segments) - 1; i >= 0; i-- {
		if name, ok := countyIndex[normalise(segments[i])]; ok {
			c := name
			county = &c
			segments = append(segments[:i:i], segments[i+1:]...)
			break
		}
	}

	out := &entities.Address{
		County:   county,
		Town:     town,
		Postcode: postcode,
	}
	if len(segments) > 0 {
		out.Line1 = &segments[0]
	}
	if len(segments) > 1 {
		out.Line2 = &segments[1]
	}
	return out
}
