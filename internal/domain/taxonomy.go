package domain

// TaxonomyEntry maps a count-category short name to its export taxonomy:
// scientific name, the refuge alpha code, and the ITIS taxonomic serial
// number. Entries are compiled once and never mutated.
type TaxonomyEntry struct {
	ScientificName string
	TaxonCode      string
	TSN            string
}

// taxonomy keys every count category. Intergrades, domestics, and
// unknown-size buckets have no ITIS serial; the empty TSN exports as an
// empty field.
var taxonomy = map[string]TaxonomyEntry{
	"Dusky":        {ScientificName: "Branta canadensis occidentalis", TaxonCode: "DCGO", TSN: "175015"},
	"Western":      {ScientificName: "Branta canadensis moffitti", TaxonCode: "WCGO", TSN: "175017"},
	"Lesser":       {ScientificName: "Branta canadensis parvipes", TaxonCode: "LCGO", TSN: "175014"},
	"Vancouver":    {ScientificName: "Branta canadensis fulva", TaxonCode: "VCGO", TSN: "175016"},
	"Wusky":        {ScientificName: "Branta canadensis occidentalis x moffitti", TaxonCode: "WDGO", TSN: ""},
	"Cackling":     {ScientificName: "Branta hutchinsii minima", TaxonCode: "CACG", TSN: "714724"},
	"Taverners":    {ScientificName: "Branta hutchinsii taverneri", TaxonCode: "TAGO", TSN: "714726"},
	"Aleutian":     {ScientificName: "Branta hutchinsii leucopareia", TaxonCode: "ALGO", TSN: "714725"},
	"Snow":         {ScientificName: "Anser caerulescens", TaxonCode: "SNGO", TSN: "175038"},
	"Ross":         {ScientificName: "Anser rossii", TaxonCode: "ROGO", TSN: "175066"},
	"WhiteFronted": {ScientificName: "Anser albifrons", TaxonCode: "GWFG", TSN: "175020"},
	"Tule":         {ScientificName: "Anser albifrons elgasi", TaxonCode: "TWFG", TSN: "175024"},
	"Brant":        {ScientificName: "Branta bernicla", TaxonCode: "BRAN", TSN: "175011"},
	"Emperor":      {ScientificName: "Anser canagicus", TaxonCode: "EMGO", TSN: "175063"},
	"Domestic":     {ScientificName: "Anser anser domesticus", TaxonCode: "DOGO", TSN: ""},
	"UnknownSmall": {ScientificName: "Branta hutchinsii", TaxonCode: "UNSG", TSN: "714068"},
	"UnknownLarge": {ScientificName: "Branta canadensis", TaxonCode: "UNLG", TSN: "174999"},
}

// LookupTaxonomy returns the taxonomy entry for a short name. A missing
// short name is a lookup miss, not an error; callers export unset fields.
func LookupTaxonomy(shortName string) (TaxonomyEntry, bool) {
	e, ok := taxonomy[shortName]
	return e, ok
}
