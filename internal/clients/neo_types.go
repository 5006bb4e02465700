package clients

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexFloat tolerates the NeoWs habit of mixing JSON numbers, numeric
// strings, and nulls in the same fields. Anything unparsable - and zero,
// which the feed uses as "no data" - decodes to absent instead of failing
// the surrounding record.
type FlexFloat struct {
	value *float64
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	f.value = nil

	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v == 0 {
		return nil
	}
	f.value = &v
	return nil
}

// Ptr returns the parsed value, or nil when the field was absent,
// malformed, or zero.
func (f FlexFloat) Ptr() *float64 { return f.value }

// FeedResponse is the NeoWs /feed payload: objects grouped by date.
type FeedResponse struct {
	ElementCount     int                    `json:"element_count"`
	NearEarthObjects map[string][]NeoObject `json:"near_earth_objects"`
}

// NeoObject is one near-earth object as reported by NeoWs, either inside
// a feed or from a single-object lookup.
type NeoObject struct {
	NeoReferenceID    string            `json:"neo_reference_id"`
	Name              string            `json:"name"`
	NasaJplURL        string            `json:"nasa_jpl_url"`
	AbsoluteMagnitude FlexFloat         `json:"absolute_magnitude_h"`
	EstimatedDiameter EstimatedDiameter `json:"estimated_diameter"`
	IsHazardous       bool              `json:"is_potentially_hazardous_asteroid"`
	IsSentryObject    bool              `json:"is_sentry_object"`
	CloseApproaches   []ApproachData    `json:"close_approach_data"`
}

type EstimatedDiameter struct {
	Kilometers DiameterRange `json:"kilometers"`
}

type DiameterRange struct {
	Min FlexFloat `json:"estimated_diameter_min"`
	Max FlexFloat `json:"estimated_diameter_max"`
}

// ApproachData is one close-approach record nested under a NeoObject.
type ApproachData struct {
	CloseApproachDate     string           `json:"close_approach_date"`
	CloseApproachDateFull string           `json:"close_approach_date_full"`
	RelativeVelocity      RelativeVelocity `json:"relative_velocity"`
	MissDistance          MissDistance     `json:"miss_distance"`
	OrbitingBody          string           `json:"orbiting_body"`
}

type RelativeVelocity struct {
	KilometersPerHour   FlexFloat `json:"kilometers_per_hour"`
	KilometersPerSecond FlexFloat `json:"kilometers_per_second"`
}

type MissDistance struct {
	Astronomical FlexFloat `json:"astronomical"`
	Lunar        FlexFloat `json:"lunar"`
	Kilometers   FlexFloat `json:"kilometers"`
}

// ParseFeed decodes a raw /feed payload.
func ParseFeed(data []byte) (*FeedResponse, error) {
	var feed FeedResponse
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// ParseObject decodes a raw single-object lookup payload.
func ParseObject(data []byte) (*NeoObject, error) {
	var obj NeoObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}
