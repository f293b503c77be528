// Package gazetteer provides an offline place-name index loaded from a
// Natural Earth populated-places CSV export. Lookups are purely advisory:
// a miss means the caller drops or skips the waypoint, never fails.
package gazetteer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Place is one populated-place record.
type Place struct {
	Name        string
	Lat         float64
	Lon         float64
	Admin1      string
	CountryCode string
}

// Label renders the display label, abbreviating US states and Canadian
// provinces: "Phoenix, AZ, US".
func (p Place) Label() string {
	parts := []string{p.Name}
	if region := AbbrevRegion(p.Admin1, p.CountryCode); region != "" {
		parts = append(parts, region)
	}
	if p.CountryCode != "" {
		parts = append(parts, p.CountryCode)
	}
	return strings.Join(parts, ", ")
}

// Index maps normalized place-name keys to places.
type Index struct {
	places map[string]Place
}

// Empty returns an index with no entries; every lookup misses.
func Empty() *Index {
	return &Index{places: map[string]Place{}}
}

// Load reads a populated-places CSV file into an index.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gazetteer: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads populated-places CSV rows. Column names are matched
// case-insensitively against the variants different Natural Earth exports
// use; rows missing a name or coordinates are skipped.
func Parse(r io.Reader) (*Index, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read gazetteer header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	pick := func(candidates ...string) int {
		for _, c := range candidates {
			if i, ok := cols[c]; ok {
				return i
			}
		}
		return -1
	}

	nameCol := pick("nameascii", "name_en", "name")
	latCol := pick("latitude", "lat", "y")
	lonCol := pick("longitude", "lon", "x")
	admin1Col := pick("adm1name", "admin1_name", "admin1")
	isoCol := pick("iso_a2", "iso2", "country", "country_code")

	if nameCol < 0 || latCol < 0 || lonCol < 0 {
		return nil, fmt.Errorf("gazetteer header lacks name/lat/lon columns")
	}

	ix := Empty()
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read gazetteer row: %w", err)
		}

		name := strings.TrimSpace(field(row, nameCol))
		if name == "" {
			continue
		}
		lat, latErr := strconv.ParseFloat(field(row, latCol), 64)
		lon, lonErr := strconv.ParseFloat(field(row, lonCol), 64)
		if latErr != nil || lonErr != nil {
			continue
		}

		key := NormalizeKey(name)
		if key == "" {
			continue
		}
		ix.places[key] = Place{
			Name:        name,
			Lat:         lat,
			Lon:         lon,
			Admin1:      strings.TrimSpace(field(row, admin1Col)),
			CountryCode: strings.ToUpper(strings.TrimSpace(field(row, isoCol))),
		}
	}
	return ix, nil
}

// Len reports the number of indexed places.
func (ix *Index) Len() int { return len(ix.places) }

// Lookup resolves a raw destination key to a place. It tries the key
// as-is, then its normalized pretty form.
func (ix *Index) Lookup(rawKey string) (Place, bool) {
	if rawKey == "" {
		return Place{}, false
	}
	if p, ok := ix.places[strings.ToLower(rawKey)]; ok {
		return p, true
	}
	if p, ok := ix.places[NormalizeKey(FormatName(rawKey))]; ok {
		return p, true
	}
	return Place{}, false
}

// FormatName turns a raw destination key like "new_york" into a display
// name like "New York".
func FormatName(raw string) string {
	if raw == "" {
		return "Unknown"
	}
	words := strings.Split(raw, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// NormalizeKey lowercases a name, strips punctuation, and joins words with
// underscores so feed keys and CSV names hash alike.
func NormalizeKey(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = strings.NewReplacer("'", "", ".", "", ",", "", "(", "", ")", "", "/", "", "’", "", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), "_")
}

// AbbrevRegion abbreviates US state and Canadian province names; other
// regions pass through unchanged.
func AbbrevRegion(admin1, countryCode string) string {
	if admin1 == "" {
		return ""
	}
	if countryCode == "US" || countryCode == "CA" {
		if abbr, ok := regionCodes[strings.ToLower(strings.TrimSpace(admin1))]; ok {
			return abbr
		}
	}
	return admin1
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// regionCodes maps US state, US territory, and Canadian province names to
// their postal abbreviations.
var regionCodes = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"district of columbia": "DC", "florida": "FL", "georgia": "GA",
	"hawaii": "HI", "idaho": "ID", "illinois": "IL", "indiana": "IN",
	"iowa": "IA", "kansas": "KS", "kentucky": "KY", "louisiana": "LA",
	"maine": "ME", "maryland": "MD", "massachusetts": "MA", "michigan": "MI",
	"minnesota": "MN", "mississippi": "MS", "missouri": "MO", "montana": "MT",
	"nebraska": "NE", "nevada": "NV", "new hampshire": "NH", "new jersey": "NJ",
	"new mexico": "NM", "new york": "NY", "north carolina": "NC",
	"north dakota": "ND", "ohio": "OH", "oklahoma": "OK", "oregon": "OR",
	"pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA",
	"west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",

	"puerto rico": "PR", "guam": "GU", "american samoa": "AS",
	"u.s. virgin islands": "VI", "northern mariana islands": "MP",

	"alberta": "AB", "british columbia": "BC", "manitoba": "MB",
	"new brunswick": "NB", "newfoundland and labrador": "NL",
	"nova scotia": "NS", "ontario": "ON", "prince edward island": "PE",
	"quebec": "QC", "saskatchewan": "SK",
	"northwest territories": "NT", "nunavut": "NU", "yukon": "YT",
}
