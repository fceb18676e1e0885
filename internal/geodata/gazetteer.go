package geodata

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/lcvriend/toponym-extraction/internal/cache"
	"github.com/lcvriend/toponym-extraction/internal/model"
)

// Loader builds the joined gazetteer from the raw geonames tables. The
// result is cached on disk keyed by a content hash of the raw inputs, so a
// cached build is only trusted while the raw tables are unchanged.
type Loader struct {
	dir        string
	citiesFile string
	languages  []string
	disk       *cache.DiskCache
}

// NewLoader creates a gazetteer loader reading raw tables from dir and
// caching the joined result in cacheDir.
func NewLoader(dir, citiesFile string, languages []string, cacheDir string) *Loader {
	return &Loader{
		dir:        dir,
		citiesFile: citiesFile,
		languages:  languages,
		disk:       cache.NewDiskCache(cacheDir, 0),
	}
}

// Load returns the joined, disambiguated gazetteer, from cache when the raw
// tables are unchanged since the cached build.
func (l *Loader) Load() ([]model.PlaceRecord, error) {
	sources := SourceFiles(l.dir, l.citiesFile)
	key := cache.Key("gazetteer:" + l.dir)

	var hash string
	if len(sources) > 0 {
		var err error
		hash, err = cache.HashFiles(sources...)
		if err != nil {
			return nil, fmt.Errorf("hash gazetteer sources: %w", err)
		}
		if data, ok := l.disk.GetDerived(key, hash); ok {
			var records []model.PlaceRecord
			if err := json.Unmarshal(data, &records); err == nil {
				return records, nil
			}
			// Corrupt cache entry: fall through to a fresh build.
			_ = l.disk.Delete(key)
		}
	}

	tables, err := LoadTables(l.dir, l.citiesFile, l.languages)
	if err != nil {
		return nil, err
	}
	records := Disambiguate(Join(tables))

	if hash != "" {
		if data, err := json.Marshal(records); err == nil {
			_ = l.disk.SetDerived(key, data, hash)
		}
	}
	return records, nil
}

// Invalidate drops the cached gazetteer build.
func (l *Loader) Invalidate() error {
	return l.disk.Delete(cache.Key("gazetteer:" + l.dir))
}

// Join denormalizes the raw tables into one PlaceRecord per (city,
// alternate name) pair. A city without alternate names yields one record
// carrying its primary name as the match surface, with Alt false.
func Join(t *Tables) []model.PlaceRecord {
	altsByID := make(map[int][]string, len(t.Alternates))
	for _, alt := range t.Alternates {
		altsByID[alt.GeonameID] = append(altsByID[alt.GeonameID], alt.AlternateName)
	}

	var records []model.PlaceRecord
	for _, city := range t.Cities {
		base := model.PlaceRecord{
			GeonameID:   city.GeonameID,
			Name:        city.Name,
			ASCIIName:   city.ASCIIName,
			Latitude:    city.Latitude,
			Longitude:   city.Longitude,
			FeatureCode: city.FeatureCode,
			FeatureName: t.Features[city.FeatureCode],
			CountryCode: city.CountryCode,
			Country:     t.Countries[city.CountryCode],
			AdminCode1:  city.AdminCode1,
			AdminName1:  t.Admin1[city.CountryCode+"."+city.AdminCode1],
			AdminCode2:  city.AdminCode2,
			AdminName2:  t.Admin2[city.CountryCode+"."+city.AdminCode1+"."+city.AdminCode2],
			Population:  city.Population,
		}

		alts := altsByID[city.GeonameID]
		if len(alts) == 0 {
			rec := base
			rec.AlternateName = city.Name
			rec.Alt = false
			records = append(records, rec)
			continue
		}
		for _, alt := range alts {
			rec := base
			rec.AlternateName = alt
			rec.Alt = true
			records = append(records, rec)
		}
	}
	return records
}

// Disambiguate keeps one record per distinct alternate name: when a surface
// string is shared by multiple places, the most populous wins. Output is
// ordered by alternate name for deterministic downstream processing.
func Disambiguate(records []model.PlaceRecord) []model.PlaceRecord {
	sorted := make([]model.PlaceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].AlternateName != sorted[j].AlternateName {
			return sorted[i].AlternateName < sorted[j].AlternateName
		}
		return sorted[i].Population > sorted[j].Population
	})

	out := sorted[:0]
	prev := ""
	for i, rec := range sorted {
		if i > 0 && rec.AlternateName == prev {
			continue
		}
		out = append(out, rec)
		prev = rec.AlternateName
	}
	return out
}

// InjectAliases clones, for every canonical key with a matching alternate
// name, the existing record once per supplied alias. Unknown keys are
// ignored. Run before Disambiguate if aliases may collide.
func InjectAliases(records []model.PlaceRecord, aliases map[string][]string) []model.PlaceRecord {
	byName := make(map[string]model.PlaceRecord, len(records))
	for _, rec := range records {
		if _, ok := byName[rec.AlternateName]; !ok {
			byName[rec.AlternateName] = rec
		}
	}

	out := records
	keys := make([]string, 0, len(aliases))
	for key := range aliases {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		rec, ok := byName[key]
		if !ok {
			continue
		}
		for _, alias := range aliases[key] {
			clone := rec
			clone.AlternateName = alias
			out = append(out, clone)
		}
	}
	return out
}

// EnrichRegions attaches region and subregion from the country metadata.
// translate optionally maps the gazetteer's country names onto the names
// used by the metadata source.
func EnrichRegions(records []model.PlaceRecord, countries model.CountryMap, translate map[string]string) {
	byAlpha2 := make(map[string]model.Country, len(countries))
	for _, c := range countries {
		byAlpha2[c.Alpha2] = c
	}
	for i := range records {
		name := records[i].Country
		if alt, ok := translate[name]; ok {
			name = alt
		}
		c, ok := countries[name]
		if !ok {
			c, ok = byAlpha2[records[i].CountryCode]
		}
		if ok {
			records[i].Region = c.Region
			records[i].Subregion = c.Subregion
		}
	}
}

// LoadAliases reads a JSON alias table: an object mapping a canonical key to
// a list of alternate spellings.
func LoadAliases(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: alias table %s", model.ErrResourceMissing, path)
		}
		return nil, fmt.Errorf("read alias table: %w", err)
	}
	aliases := make(map[string][]string)
	if err := json.Unmarshal(data, &aliases); err != nil {
		return nil, fmt.Errorf("parse alias table %s: %w", path, err)
	}
	return aliases, nil
}
