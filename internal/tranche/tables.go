package tranche

// entry maps a user-facing key to a one-letter tranche code.
type entry struct {
	key  string
	code string
}

// table is an ordered key to code mapping.
type table []entry

func (t table) keys() []string {
	keys := make([]string, len(t))
	for i, e := range t {
		keys[i] = e.key
	}
	return keys
}

var mwTable = table{
	{"200", "A"},
	{"250", "B"},
	{"300", "C"},
	{"325", "D"},
	{"350", "E"},
	{"375", "F"},
	{"400", "G"},
	{"425", "H"},
	{"450", "I"},
	{"500", "J"},
	{">500", "K"},
}

var logpTable = table{
	{"-1", "A"},
	{"0", "B"},
	{"1", "C"},
	{"2", "D"},
	{"2.5", "E"},
	{"3", "F"},
	{"3.5", "G"},
	{"4", "H"},
	{"4.5", "I"},
	{"5", "J"},
	{">5", "K"},
}

// Levels are cumulative: selecting one non-exclusively includes every
// level before it.
var reactivityLevels = table{
	{"anodyne", "A"},
	{"bother", "B"},
	{"clean", "C"},
	{"standard", "E"},
	{"mild", "E"},
	{"reactive", "G"},
	{"hot", "I"},
}

var purchasabilityLevels = table{
	{"base-in-stock", "A"},
	{"in-stock", "B"},
	{"agent", "C"},
	{"wait-ok", "D"},
	{"boutique", "E"},
	{"annotated", "F"},
}

var phTable = table{
	{"ref", "R"},
	{"mid", "M"},
	{"high", "H"},
	{"low", "L"},
}

var chargeTable = table{
	{"-2", "L"},
	{"-1", "M"},
	{"0", "N"},
	{"1", "O"},
	{"2", "P"},
}

type subset struct {
	mw   []string
	logp []string
}

var subsets = map[string]subset{
	"none": {},
	"all": {
		mw:   mwTable.keys(),
		logp: logpTable.keys(),
	},
	"shards":       {mw: []string{"200"}, logp: logpTable.keys()},
	"fragments":    {mw: []string{"200", "250"}, logp: []string{"-1", "0", "1", "2", "2.5", "3", "3.5"}},
	"flagments":    {mw: []string{"250", "300", "325"}, logp: []string{"-1", "0", "1", "2", "2.5", "3", "3.5"}},
	"goldilocks":   {mw: []string{"300", "325", "350"}, logp: []string{"2", "2.5", "3"}},
	"leadlike":     {mw: []string{"300", "325", "350"}, logp: []string{"-1", "0", "1", "2", "2.5", "3", "3.5"}},
	"lugs":         {mw: []string{"350", "375", "400", "425", "450"}, logp: []string{"-1", "0", "1", "2", "2.5", "3", "3.5", "4", "4.5"}},
	"druglike":     {mw: []string{"250", "300", "325", "350", "375", "400", "425", "450", "500"}, logp: []string{"-1", "0", "1", "2", "2.5", "3", "3.5", "4", "4.5", "5"}},
	"big_n_greasy": {mw: []string{"500", ">500"}, logp: []string{"4.5", "5", ">5"}},
}

var formatSuffix = map[string]string{
	"smi":   ".smi",
	"txt":   ".txt",
	"sdf":   ".xaa.sdf.gz",
	"mol2":  ".xaa.mol2.gz",
	"db2":   ".xaa.db2.gz",
	"pdbqt": ".xaa.pdbqt.gz",
}
