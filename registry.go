package ds

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-version"
)

type protocolFactory func() *Protocol

// protocolRegistry is the lookup table of wire protocols a Client can be
// pointed at. Years are plain strings ("2014".."2020") rather than dotted
// semver, so comparisons use go-version rather than plain string less-than
// (string comparison already happens to work for these six years, but
// would silently break the moment a two-digit or dotted revision joined
// the table).
type protocolRegistry struct {
	byVersion map[string]protocolFactory
}

func newProtocolRegistry() *protocolRegistry {
	return &protocolRegistry{byVersion: map[string]protocolFactory{
		"2014": NewProtocol2014,
		"2015": NewProtocol2015,
		"2016": NewProtocol2016,
		"2018": NewProtocol2018,
		"2019": NewProtocol2019,
		"2020": NewProtocol2020,
	}}
}

func (r *protocolRegistry) Get(year string) (*Protocol, error) {
	f, ok := r.byVersion[year]
	if !ok {
		return nil, wrapErr("ds", fmt.Errorf("unknown protocol version %q", year))
	}
	return f(), nil
}

// Latest returns the newest registered protocol by year.
func (r *protocolRegistry) Latest() (*Protocol, error) {
	versions := make([]*version.Version, 0, len(r.byVersion))
	lookup := make(map[string]string, len(r.byVersion))
	for y := range r.byVersion {
		v, err := version.NewVersion(y)
		if err != nil {
			continue
		}
		versions = append(versions, v)
		lookup[v.String()] = y
	}
	if len(versions) == 0 {
		return nil, wrapErr("ds", fmt.Errorf("no protocols registered"))
	}
	sort.Sort(version.Collection(versions))
	return r.Get(lookup[versions[len(versions)-1].String()])
}

// Years lists every registered protocol year in ascending order.
func (r *protocolRegistry) Years() []string {
	out := make([]string, 0, len(r.byVersion))
	for y := range r.byVersion {
		out = append(out, y)
	}
	sort.Strings(out)
	return out
}
