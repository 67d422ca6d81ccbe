package tranche

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultBaseURL is the ZINC tranche file server.
const DefaultBaseURL = "https://files2.docking.org/3D"

var (
	ErrUnknownSubset = errors.New("tranche: unknown subset")
	ErrUnknownKey    = errors.New("tranche: unknown key")
	ErrUnknownLevel  = errors.New("tranche: unknown level")
	ErrUnknownFormat = errors.New("tranche: unsupported format")
)

// Params selects a set of tranches.
type Params struct {
	// Subset, when set, replaces MW and LogP with a predefined grid.
	Subset string

	MW   []string
	LogP []string

	Reactivity     string
	Purchasability string
	// Exclusive selects only the named level instead of every level
	// up to and including it.
	ReacExclusive  bool
	PurchExclusive bool

	PH     []string
	Charge []string

	Format  string
	BaseURL string
}

// DefaultParams returns the selection used when nothing is configured.
func DefaultParams() Params {
	return Params{
		MW:             []string{"250"},
		LogP:           []string{"0"},
		Reactivity:     "standard",
		Purchasability: "in-stock",
		ReacExclusive:  true,
		PurchExclusive: true,
		PH:             []string{"ref"},
		Charge:         []string{"0"},
		Format:         "smi",
		BaseURL:        DefaultBaseURL,
	}
}

// Grid returns the MW and LogP keys in effect, resolving Subset.
func (p Params) Grid() (mw, logp []string, err error) {
	if p.Subset == "" {
		return p.MW, p.LogP, nil
	}
	s, ok := subsets[p.Subset]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownSubset, p.Subset)
	}
	return s.mw, s.logp, nil
}

// Codes returns the six-letter tranche codes selected by p. The order is
// the cartesian product of mw, logp, reactivity, purchasability, ph and
// charge, with charge varying fastest.
func Codes(p Params) ([]string, error) {
	mw, logp, err := p.Grid()
	if err != nil {
		return nil, err
	}

	dims := make([][]string, 6)
	if dims[0], err = resolve(mwTable, mw); err != nil {
		return nil, fmt.Errorf("mw: %w", err)
	}
	if dims[1], err = resolve(logpTable, logp); err != nil {
		return nil, fmt.Errorf("logp: %w", err)
	}
	if dims[2], err = levels(reactivityLevels, p.Reactivity, p.ReacExclusive); err != nil {
		return nil, fmt.Errorf("reactivity: %w", err)
	}
	if dims[3], err = levels(purchasabilityLevels, p.Purchasability, p.PurchExclusive); err != nil {
		return nil, fmt.Errorf("purchasability: %w", err)
	}
	if dims[4], err = resolve(phTable, p.PH); err != nil {
		return nil, fmt.Errorf("ph: %w", err)
	}
	if dims[5], err = resolve(chargeTable, p.Charge); err != nil {
		return nil, fmt.Errorf("charge: %w", err)
	}

	codes := []string{""}
	for _, dim := range dims {
		next := make([]string, 0, len(codes)*len(dim))
		for _, prefix := range codes {
			for _, c := range dim {
				next = append(next, prefix+c)
			}
		}
		codes = next
	}
	return codes, nil
}

// URLs returns the download URL of every tranche selected by p.
func URLs(p Params) ([]string, error) {
	suffix, err := suffixFor(p.Format)
	if err != nil {
		return nil, err
	}
	codes, err := Codes(p)
	if err != nil {
		return nil, err
	}

	base := p.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	urls := make([]string, len(codes))
	for i, c := range codes {
		urls[i] = makeURL(base, c, suffix)
	}
	return urls, nil
}

// URL returns the download URL for a single tranche code.
func URL(code, format, base string) (string, error) {
	if len(code) < 6 {
		return "", fmt.Errorf("tranche: code %q is too short", code)
	}
	suffix, err := suffixFor(format)
	if err != nil {
		return "", err
	}
	if base == "" {
		base = DefaultBaseURL
	}
	return makeURL(base, code, suffix), nil
}

func makeURL(base, code, suffix string) string {
	return strings.TrimRight(base, "/") + "/" + code[:2] + "/" + code[2:6] + "/" + code + suffix
}

func suffixFor(format string) (string, error) {
	f := strings.ToLower(strings.Trim(format, "."))
	suffix, ok := formatSuffix[f]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return suffix, nil
}

// resolve maps keys to codes, dropping duplicates while keeping order.
func resolve(t table, keys []string) ([]string, error) {
	var codes []string
	for _, k := range keys {
		code, ok := lookup(t, k)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownKey, k)
		}
		codes = appendUnique(codes, code)
	}
	return codes, nil
}

// lookup matches k exactly or, for numeric keys, by value so that "2.50"
// finds "2.5".
func lookup(t table, k string) (string, bool) {
	k = strings.TrimSpace(k)
	for _, e := range t {
		if e.key == k {
			return e.code, true
		}
	}
	v, err := strconv.ParseFloat(k, 64)
	if err != nil {
		return "", false
	}
	for _, e := range t {
		if ev, err := strconv.ParseFloat(e.key, 64); err == nil && ev == v {
			return e.code, true
		}
	}
	return "", false
}

func levels(t table, selected string, exclusive bool) ([]string, error) {
	idx := -1
	for i, e := range t {
		if e.key == selected {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w %q", ErrUnknownLevel, selected)
	}
	if exclusive {
		return []string{t[idx].code}, nil
	}

	var codes []string
	for _, e := range t[:idx+1] {
		codes = appendUnique(codes, e.code)
	}
	return codes, nil
}

func appendUnique(s []string, v string) []string {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// ParseList splits a comma-separated list, trimming blanks.
func ParseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Subsets returns the names of the predefined subsets, sorted.
func Subsets() []string {
	names := make([]string, 0, len(subsets))
	for name := range subsets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Formats returns the supported file formats, sorted.
func Formats() []string {
	names := make([]string, 0, len(formatSuffix))
	for name := range formatSuffix {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Levels lists the reactivity and purchasability level names in order.
func Levels() (reactivity, purchasability []string) {
	return reactivityLevels.keys(), purchasabilityLevels.keys()
}
