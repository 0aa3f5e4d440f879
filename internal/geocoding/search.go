package geocoding

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// minQueryLen is the shortest query worth sending to the geocoding service.
const minQueryLen = 3

// dedupeEpsilon treats two candidates closer than ~11 m as the same place.
const dedupeEpsilon = 0.0001

// Precision indicates how specific a geocoded match is.
type Precision string

const (
	PrecisionHouse  Precision = "house"
	PrecisionStreet Precision = "street"
	PrecisionArea   Precision = "area"
)

// Candidate is one ranked geocoding match.
type Candidate struct {
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	DisplayName   string    `json:"display_name"`
	Name          string    `json:"name"`
	City          string    `json:"city"`
	Country       string    `json:"country"`
	CountryCode   string    `json:"country_code"`
	StreetNumber  string    `json:"street_number,omitempty"`
	StreetName    string    `json:"street_name,omitempty"`
	Neighbourhood string    `json:"neighbourhood,omitempty"`
	Postcode      string    `json:"postcode,omitempty"`
	PlaceType     string    `json:"place_type"`
	Importance    float64   `json:"importance"`
	Precision     Precision `json:"precision"`
}

// searchClient is the interface satisfied by Client.
type searchClient interface {
	Search(ctx context.Context, params url.Values) ([]rawResult, error)
}

// Searcher resolves free-text queries into ranked location candidates by
// fanning several search strategies out against the geocoding service.
type Searcher struct {
	client searchClient
	log    *slog.Logger
}

// NewSearcher constructs a Searcher.
func NewSearcher(client searchClient, log *slog.Logger) *Searcher {
	return &Searcher{client: client, log: log}
}

var digitsRe = regexp.MustCompile(`\d+`)

// strategies builds the query-parameter sets to try for a query. House-number
// coverage in the raw index is spotty, so the raw query at house-level zoom
// is complemented by a structured street+housenumber variant (when the query
// contains digits) and a broader digit-stripped one.
func strategies(query string) []url.Values {
	out := []url.Values{{
		"q":              {query},
		"format":         {"json"},
		"addressdetails": {"1"},
		"limit":          {"10"},
		"extratags":      {"1"},
		"namedetails":    {"1"},
		"dedupe":         {"1"},
		"zoom":           {"18"},
	}}

	if number := digitsRe.FindString(query); number != "" {
		out = append(out, url.Values{
			"street":         {strings.TrimSpace(digitsRe.ReplaceAllString(query, ""))},
			"housenumber":    {number},
			"format":         {"json"},
			"addressdetails": {"1"},
			"limit":          {"5"},
			"extratags":      {"1"},
		})
	}

	out = append(out, url.Values{
		"q":              {strings.TrimSpace(digitsRe.ReplaceAllString(query, ""))},
		"format":         {"json"},
		"addressdetails": {"1"},
		"limit":          {"8"},
		"extratags":      {"1"},
		"namedetails":    {"1"},
		"dedupe":         {"1"},
	})

	return out
}

// Search returns ranked candidates for the query, best first.
//
// Queries shorter than 3 characters return an empty list without touching
// the network. Each strategy's failure is absorbed: it logs a warning and
// contributes nothing. When every strategy fails the result is an empty
// list, indistinguishable from "no matches".
func (s *Searcher) Search(ctx context.Context, query string) []Candidate {
	query = strings.TrimSpace(query)
	if len(query) < minQueryLen {
		return []Candidate{}
	}

	params := strategies(query)
	perStrategy := make([][]rawResult, len(params))

	g, gCtx := errgroup.WithContext(ctx)
	for i, p := range params {
		g.Go(func() error {
			rows, err := s.client.Search(gCtx, p)
			if err != nil {
				s.log.Warn("geocoding strategy failed", "strategy", i+1, "query", query, "err", err)
				return nil
			}
			perStrategy[i] = rows
			return nil
		})
	}
	_ = g.Wait()

	var merged []rawResult
	for _, rows := range perStrategy {
		merged = append(merged, rows...)
	}

	candidates := make([]Candidate, 0, len(merged))
	for _, row := range merged {
		c, ok := mapCandidate(row, query)
		if !ok {
			continue
		}
		candidates = append(candidates, c)
	}

	candidates = dedupe(candidates)
	rank(candidates)
	return candidates
}

// mapCandidate converts one raw row into a Candidate. Rows with unparsable
// coordinates are dropped.
func mapCandidate(row rawResult, query string) (Candidate, bool) {
	lat, latErr := strconv.ParseFloat(row.Lat, 64)
	lng, lngErr := strconv.ParseFloat(row.Lon, 64)
	if latErr != nil || lngErr != nil {
		return Candidate{}, false
	}

	addr := row.Address
	city := firstNonEmpty(addr.City, addr.Town, addr.Village, addr.Municipality)

	importance := row.Importance
	if number := digitsRe.FindString(query); number != "" && addr.HouseNumber == number {
		// Exact house-number match outranks anything the service scores.
		importance++
	}

	precision := PrecisionArea
	switch {
	case addr.HouseNumber != "":
		precision = PrecisionHouse
	case addr.Road != "":
		precision = PrecisionStreet
	}

	placeType := row.Type
	if placeType == "" {
		placeType = row.Class
	}
	if placeType == "" {
		placeType = "unknown"
	}

	displayName := buildDisplayName(row)
	if displayName == "" {
		displayName = row.DisplayName
	}

	return Candidate{
		Lat:           lat,
		Lng:           lng,
		DisplayName:   displayName,
		Name:          firstNonEmpty(row.Name, addr.Road),
		City:          city,
		Country:       addr.Country,
		CountryCode:   strings.ToUpper(addr.CountryCode),
		StreetNumber:  addr.HouseNumber,
		StreetName:    addr.Road,
		Neighbourhood: firstNonEmpty(addr.Neighbourhood, addr.Suburb),
		Postcode:      addr.Postcode,
		PlaceType:     placeType,
		Importance:    importance,
		Precision:     precision,
	}, true
}

// buildDisplayName composes a label from address components in priority
// order, skipping whatever is missing.
func buildDisplayName(row rawResult) string {
	addr := row.Address
	var parts []string

	switch {
	case addr.HouseNumber != "" && addr.Road != "":
		parts = append(parts, addr.HouseNumber+" "+addr.Road)
	case addr.Road != "":
		parts = append(parts, addr.Road)
	case row.Name != "":
		parts = append(parts, row.Name)
	}

	if n := firstNonEmpty(addr.Neighbourhood, addr.Suburb); n != "" {
		parts = append(parts, n)
	}
	if city := firstNonEmpty(addr.City, addr.Town, addr.Village, addr.Municipality); city != "" {
		parts = append(parts, city)
	}
	if region := firstNonEmpty(addr.County, addr.State); region != "" {
		parts = append(parts, region)
	}
	if addr.Country != "" {
		parts = append(parts, addr.Country)
	}

	return strings.Join(parts, ", ")
}

// dedupe drops candidates within dedupeEpsilon of an earlier one on both
// axes. First occurrence wins, so strategy order matters.
func dedupe(candidates []Candidate) []Candidate {
	out := candidates[:0]
	for _, c := range candidates {
		duplicate := false
		for _, kept := range out {
			if abs(kept.Lat-c.Lat) < dedupeEpsilon && abs(kept.Lng-c.Lng) < dedupeEpsilon {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, c)
		}
	}
	return out
}

// rank sorts best-first: candidates with a street number before those
// without, then by importance descending. Stable so equal candidates keep
// their merge order.
func rank(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if (a.StreetNumber != "") != (b.StreetNumber != "") {
			return a.StreetNumber != ""
		}
		return a.Importance > b.Importance
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
