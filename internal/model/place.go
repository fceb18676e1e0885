package model

// PlaceRecord is one row of the joined gazetteer. After disambiguation each
// distinct AlternateName maps to exactly one record, the most populous
// candidate sharing that surface string.
type PlaceRecord struct {
	GeonameID     int     `json:"geoname_id"`
	Name          string  `json:"name"`
	ASCIIName     string  `json:"ascii_name"`
	AlternateName string  `json:"alternate_name"` // the match surface string
	Alt           bool    `json:"alt"`            // whether an alternate name was actually present
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	FeatureCode   string  `json:"feature_code"`
	FeatureName   string  `json:"feature_name,omitempty"`
	CountryCode   string  `json:"country_code"`
	Country       string  `json:"country,omitempty"`
	Region        string  `json:"region,omitempty"`
	Subregion     string  `json:"subregion,omitempty"`
	AdminCode1    string  `json:"admin_code1,omitempty"`
	AdminName1    string  `json:"admin_name1,omitempty"`
	AdminCode2    string  `json:"admin_code2,omitempty"`
	AdminName2    string  `json:"admin_name2,omitempty"`
	Population    int64   `json:"population"`
}

// Pattern pairs an entity label with an exact surface string for the
// rule-based tagger.
type Pattern struct {
	Label  string `json:"label"`
	Phrase string `json:"pattern"`
}

// Country holds the metadata kept per country.
type Country struct {
	Name         string            `json:"name"`
	Alpha2       string            `json:"alpha2Code"`
	Capital      string            `json:"capital,omitempty"`
	Region       string            `json:"region,omitempty"`
	Subregion    string            `json:"subregion,omitempty"`
	Population   int64             `json:"population"`
	Translations map[string]string `json:"translations,omitempty"`
}

// CountryMap maps a display name (or injected alias) to its country record.
type CountryMap map[string]Country
