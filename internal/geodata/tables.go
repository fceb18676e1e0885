package geodata

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lcvriend/toponym-extraction/internal/model"
)

// Raw geonames table file names. The loader accepts either the plain .txt
// file or a .zip archive with the same stem containing it.
const (
	FileAlternates = "alternateNamesV2.txt"
	FileFeatures   = "featureCodes_en.txt"
	FileCountries  = "countryInfo.txt"
	FileAdmin1     = "admin1CodesASCII.txt"
	FileAdmin2     = "admin2Codes.txt"
)

// CityRow is one record of the geonames cities table.
type CityRow struct {
	GeonameID   int
	Name        string
	ASCIIName   string
	Latitude    float64
	Longitude   float64
	FeatureCode string
	CountryCode string
	AdminCode1  string
	AdminCode2  string
	Population  int64
}

// AltNameRow is one record of the alternate names table.
type AltNameRow struct {
	GeonameID     int
	Language      string
	AlternateName string
}

// Tables holds the raw geonames tables after loading. The lookup tables are
// keyed the way the join needs them: features by short code, admin names by
// their compound code split into parts.
type Tables struct {
	Cities     []CityRow
	Alternates []AltNameRow
	Features   map[string]string // short feature code -> feature name
	Countries  map[string]string // country code -> country name
	Admin1     map[string]string // "CC.A1" -> admin level 1 name
	Admin2     map[string]string // "CC.A1.A2" -> admin level 2 name
}

// LoadTables reads the raw geonames tables from dir. Alternate names are
// filtered to geoname ids present in the city table and, when languages is
// non-empty, to those languages. Missing tables fail with ErrResourceMissing
// naming the file.
func LoadTables(dir, citiesFile string, languages []string) (*Tables, error) {
	t := &Tables{
		Features:  make(map[string]string),
		Countries: make(map[string]string),
		Admin1:    make(map[string]string),
		Admin2:    make(map[string]string),
	}

	ids := make(map[int]bool)
	err := scanTable(dir, citiesFile, func(fields []string) error {
		if len(fields) < 15 {
			return nil
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("city record with non-numeric id %q", fields[0])
		}
		lat, _ := strconv.ParseFloat(fields[4], 64)
		lng, _ := strconv.ParseFloat(fields[5], 64)
		pop, _ := strconv.ParseInt(fields[14], 10, 64)
		t.Cities = append(t.Cities, CityRow{
			GeonameID:   id,
			Name:        fields[1],
			ASCIIName:   fields[2],
			Latitude:    lat,
			Longitude:   lng,
			FeatureCode: fields[7],
			CountryCode: fields[8],
			AdminCode1:  fields[10],
			AdminCode2:  fields[11],
			Population:  pop,
		})
		ids[id] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	langs := make(map[string]bool, len(languages))
	for _, l := range languages {
		langs[l] = true
	}
	err = scanTable(dir, FileAlternates, func(fields []string) error {
		if len(fields) < 4 {
			return nil
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil || !ids[id] {
			return nil
		}
		if len(langs) > 0 && !langs[fields[2]] {
			return nil
		}
		t.Alternates = append(t.Alternates, AltNameRow{
			GeonameID:     id,
			Language:      fields[2],
			AlternateName: fields[3],
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The feature table keys are long classification strings ("P.PPL");
	// the short join key is the suffix after the last separator.
	err = scanTable(dir, FileFeatures, func(fields []string) error {
		if len(fields) < 2 {
			return nil
		}
		code := fields[0]
		if i := strings.LastIndex(code, "."); i >= 0 {
			code = code[i+1:]
		}
		t.Features[code] = fields[1]
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = scanTable(dir, FileCountries, func(fields []string) error {
		if len(fields) < 5 {
			return nil
		}
		t.Countries[fields[0]] = fields[4]
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = scanTable(dir, FileAdmin1, func(fields []string) error {
		if len(fields) < 2 {
			return nil
		}
		t.Admin1[fields[0]] = fields[1]
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = scanTable(dir, FileAdmin2, func(fields []string) error {
		if len(fields) < 2 {
			return nil
		}
		t.Admin2[fields[0]] = fields[1]
		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

// SourceFiles returns the paths of the raw tables actually present in dir,
// for content hashing. Zipped variants count as their zip.
func SourceFiles(dir, citiesFile string) []string {
	var paths []string
	for _, name := range []string{citiesFile, FileAlternates, FileFeatures, FileCountries, FileAdmin1, FileAdmin2} {
		if p := resolveTable(dir, name); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// scanTable streams a tab-separated geonames table line by line. Comment
// lines starting with '#' are skipped. Geonames dumps are unquoted, so a
// plain tab split is the correct parse.
func scanTable(dir, name string, fn func(fields []string) error) error {
	path := resolveTable(dir, name)
	if path == "" {
		return fmt.Errorf("%w: table %s not found in %s", model.ErrResourceMissing, name, dir)
	}

	var reader io.ReadCloser
	if strings.HasSuffix(path, ".zip") {
		zr, err := zip.OpenReader(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer func() { _ = zr.Close() }()
		inner, err := zr.Open(name)
		if err != nil {
			return fmt.Errorf("%w: %s inside %s", model.ErrResourceMissing, name, path)
		}
		reader = inner
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		reader = f
	}
	defer func() { _ = reader.Close() }()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(strings.Split(line, "\t")); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", name, err)
	}
	return nil
}

// resolveTable finds the table file in dir, preferring the plain file over a
// zip of the same stem. Returns "" when neither exists.
func resolveTable(dir, name string) string {
	plain := filepath.Join(dir, name)
	if _, err := os.Stat(plain); err == nil {
		return plain
	}
	zipped := filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+".zip")
	if _, err := os.Stat(zipped); err == nil {
		return zipped
	}
	return ""
}
