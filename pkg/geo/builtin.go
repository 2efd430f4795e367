package geo

import (
	_ "embed"
	"fmt"
	"sync"
)

// BuiltinSource names the bundled boundary layer in logs and errors
const BuiltinSource = "builtin:ne_110m_admin_0_countries"

// Natural Earth 1:110m admin-0 countries (public domain), properties cut
// down to NAME_LONG, NAME, ISO_A2 and CONTINENT.
//
//go:embed data/ne_110m_admin_0_countries.geojson
var builtinData []byte

var builtinCountries = sync.OnceValues(func() ([]*Country, error) {
	countries, err := ParseCountries(builtinData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", BuiltinSource, err)
	}
	return countries, nil
})

// Builtin returns the bundled world boundaries. The slice is shared and must
// not be modified.
func Builtin() ([]*Country, error) {
	return builtinCountries()
}

// LoadOrBuiltin loads path, or the bundled boundaries when path is empty
func LoadOrBuiltin(path string) ([]*Country, error) {
	if path == "" {
		return Builtin()
	}
	return LoadCountries(path)
}
