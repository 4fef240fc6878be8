package gateway

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Operation is one of the closed set of supported PubChem lookups.
type Operation int

const (
	OpLookupByCID Operation = iota + 1
	OpSearchByName
	OpSearchByFormula
	OpSearchBySMILES
	OpSearchByInChIKey
	OpGetProperties
	OpBatchGetProperties
	OpGetCompoundRecord
	OpGetSynonyms
	OpGetClassification
	OpGetXrefs
	OpGetSubstance
	OpGetAssayDescription
	OpSimilaritySearch
	OpSubstructureSearch
	OpSearchSubstanceByName
	OpGetSubstanceSynonyms
	OpGetBioassayResults
	OpSearchByExactStructure
	OpGetConformers
	OpGet3DRecord
)

const (
	defaultMaxResults = 10
	maxMaxResults     = 100
	maxBatchIDs       = 100
	defaultThreshold  = 90
)

var (
	formulaPattern  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	inchiKeyPattern = regexp.MustCompile(`^[A-Z]{14}-[A-Z]{10}-[A-Z]$`)
)

// UpstreamQuery is the single PUG REST request an invocation resolves to.
type UpstreamQuery struct {
	Path  string
	Query url.Values
}

type operation struct {
	name        string
	description string
	schema      map[string]any
	build       func(Args) (UpstreamQuery, error)
}

// operations lists the supported set in the order tools are advertised.
var operations = []Operation{
	OpLookupByCID, OpSearchByName, OpSearchByFormula, OpSearchBySMILES, OpSearchByInChIKey,
	OpGetProperties, OpBatchGetProperties, OpGetCompoundRecord, OpGetSynonyms,
	OpGetClassification, OpGetXrefs, OpGetSubstance, OpGetAssayDescription,
	OpSimilaritySearch, OpSubstructureSearch, OpSearchByExactStructure,
	OpGet3DRecord, OpGetConformers,
	OpSearchSubstanceByName, OpGetSubstanceSynonyms, OpGetBioassayResults,
}

var operationTable = map[Operation]operation{
	OpLookupByCID: {
		name:        "lookup_by_cid",
		description: "Look up a compound by PubChem CID. Returns its title, IUPAC name, formula, weight, SMILES, InChI and InChIKey.",
		schema:      objectSchema([]string{"cid"}, map[string]any{"cid": cidProp("PubChem Compound ID")}),
		build: func(a Args) (UpstreamQuery, error) {
			cid, err := a.identifier("cid")
			if err != nil {
				return UpstreamQuery{}, err
			}
			return compoundProperties(strconv.FormatInt(cid, 10), identityProperties), nil
		},
	},
	OpSearchByName: {
		name:        "search_by_name",
		description: "Search compounds by common, trade or systematic name. Returns every matching CID.",
		schema:      objectSchema([]string{"name"}, map[string]any{"name": stringProp("Compound name, e.g. aspirin")}),
		build: func(a Args) (UpstreamQuery, error) {
			name, err := a.requiredString("name")
			if err != nil {
				return UpstreamQuery{}, err
			}
			return UpstreamQuery{Path: "/compound/name/" + url.PathEscape(name) + "/cids/JSON"}, nil
		},
	},
	OpSearchByFormula: {
		name:        "search_by_formula",
		description: "Search compounds by molecular formula, e.g. C9H8O4. Returns matching CIDs.",
		schema: objectSchema([]string{"formula"}, map[string]any{
			"formula":              stringProp("Molecular formula in Hill notation"),
			"max_results":          maxResultsProp(),
			"allow_other_elements": map[string]any{"type": "boolean", "description": "Also match formulas containing additional elements", "default": false},
		}),
		build: func(a Args) (UpstreamQuery, error) {
			formula, err := a.requiredString("formula")
			if err != nil {
				return UpstreamQuery{}, err
			}
			if !formulaPattern.MatchString(formula) {
				return UpstreamQuery{}, invalidArg("argument %q must contain only element symbols and counts", "formula")
			}
			limit, err := a.optionalInt("max_results", defaultMaxResults, 1, maxMaxResults)
			if err != nil {
				return UpstreamQuery{}, err
			}
			other, err := a.optionalBool("allow_other_elements", false)
			if err != nil {
				return UpstreamQuery{}, err
			}
			return UpstreamQuery{
				Path: "/compound/fastformula/" + formula + "/cids/JSON",
				Query: url.Values{
					"MaxRecords":         {strconv.Itoa(limit)},
					"AllowOtherElements": {strconv.FormatBool(other)},
				},
			}, nil
		},
	},
	OpSearchBySMILES: {
		name:        "search_by_smiles",
		description: "Find the CID of a compound given as a SMILES string.",
		schema:      objectSchema([]string{"smiles"}, map[string]any{"smiles": stringProp("SMILES string")}),
		build: func(a Args) (UpstreamQuery, error) {
			smiles, err := a.requiredString("smiles")
			if err != nil {
				return UpstreamQuery{}, err
			}
			return UpstreamQuery{Path: "/compound/smiles/cids/JSON", Query: url.Values{"smiles": {smiles}}}, nil
		},
	},
	OpSearchByInChIKey: {
		name:        "search_by_inchikey",
		description: "Find the CID of a compound given its standard InChIKey.",
		schema:      objectSchema([]string{"inchikey"}, map[string]any{"inchikey": stringProp("27-character InChIKey, e.g. BSYNRYMUTXBXSQ-UHFFFAOYSA-N")}),
		build: func(a Args) (UpstreamQuery, error) {
			key, err := a.requiredString("inchikey")
			if err != nil {
				return UpstreamQuery{}, err
			}
			key = strings.ToUpper(key)
			if !inchiKeyPattern.MatchString(key) {
				return UpstreamQuery{}, invalidArg("argument %q is not a standard InChIKey", "inchikey")
			}
			return UpstreamQuery{Path: "/compound/inchikey/" + key + "/cids/JSON"}, nil
		},
	},
	OpGetProperties: {
		name:        "get_properties",
		description: "Get computed physical and chemical properties of a compound by CID.",
		schema: objectSchema([]string{"cid"}, map[string]any{
			"cid":        cidProp("PubChem Compound ID"),
			"properties": propertiesProp(),
		}),
		build: func(a Args) (UpstreamQuery, error) {
			cid, err := a.identifier("cid")
			if err != nil {
				return UpstreamQuery{}, err
			}
			props, err := requestedProperties(a)
			if err != nil {
				return UpstreamQuery{}, err
			}
			return compoundProperties(strconv.FormatInt(cid, 10), props), nil
		},
	},
	OpBatchGetProperties: {
		name:        "batch_get_properties",
		description: fmt.Sprintf("Get properties for up to %d compounds in one lookup.", maxBatchIDs),
		schema: objectSchema([]string{"cids"}, map[string]any{
			"cids": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "integer", "minimum": 1},
				"minItems": 1,
				"maxItems": maxBatchIDs,
			},
			"properties": propertiesProp(),
		}),
		build: func(a Args) (UpstreamQuery, error) {
			cids, err := a.identifiers("cids", maxBatchIDs)
			if err != nil {
				return UpstreamQuery{}, err
			}
			props, err := requestedProperties(a)
			if err != nil {
				return UpstreamQuery{}, err
			}
			ids := make([]string, len(cids))
			for i, c := range cids {
				ids[i] = strconv.FormatInt(c, 10)
			}
			return compoundProperties(strings.Join(ids, ","), props), nil
		},
	},
	OpGetCompoundRecord: {
		name:        "get_compound_record",
		description: "Get the full PubChem compound record (atoms, bonds, coordinates, descriptors) by CID.",
		schema:      objectSchema([]string{"cid"}, map[string]any{"cid": cidProp("PubChem Compound ID")}),
		build:       cidPath("/compound/cid/%d/record/JSON"),
	},
	OpGetSynonyms: {
		name:        "get_synonyms",
		description: "Get the known names and synonyms of a compound by CID.",
		schema:      objectSchema([]string{"cid"}, map[string]any{"cid": cidProp("PubChem Compound ID")}),
		build:       cidPath("/compound/cid/%d/synonyms/JSON"),
	},
	OpGetClassification: {
		name:        "get_classification",
		description: "Get the classification hierarchies a compound belongs to by CID.",
		schema:      objectSchema([]string{"cid"}, map[string]any{"cid": cidProp("PubChem Compound ID")}),
		build:       cidPath("/compound/cid/%d/classification/JSON"),
	},
	OpGetXrefs: {
		name:        "get_xrefs",
		description: "Get cross-references (PubMed IDs, patents, registry IDs, ...) of a compound by CID.",
		schema: objectSchema([]string{"cid", "xref_type"}, map[string]any{
			"cid": cidProp("PubChem Compound ID"),
			"xref_type": map[string]any{
				"type":        "string",
				"enum":        xrefTypes,
				"description": "Cross-reference kind",
			},
		}),
		build: func(a Args) (UpstreamQuery, error) {
			cid, err := a.identifier("cid")
			if err != nil {
				return UpstreamQuery{}, err
			}
			raw, err := a.requiredString("xref_type")
			if err != nil {
				return UpstreamQuery{}, err
			}
			xref, ok := resolveXrefType(raw)
			if !ok {
				return UpstreamQuery{}, invalidArg("unsupported xref_type %q", raw)
			}
			return UpstreamQuery{Path: fmt.Sprintf("/compound/cid/%d/xrefs/%s/JSON", cid, xref)}, nil
		},
	},
	OpGetSubstance: {
		name:        "get_substance",
		description: "Get a depositor-supplied substance record by PubChem SID.",
		schema:      objectSchema([]string{"sid"}, map[string]any{"sid": cidProp("PubChem Substance ID")}),
		build:       idPath("sid", "/substance/sid/%d/record/JSON"),
	},
	OpGetAssayDescription: {
		name:        "get_assay_description",
		description: "Get the description and protocol of a bioassay by PubChem AID.",
		schema:      objectSchema([]string{"aid"}, map[string]any{"aid": cidProp("PubChem BioAssay ID")}),
		build:       idPath("aid", "/assay/aid/%d/description/JSON"),
	},
	OpSimilaritySearch: {
		name:        "similarity_search",
		description: "Find compounds whose 2D fingerprint is similar to a SMILES structure. Returns matching CIDs.",
		schema: objectSchema([]string{"smiles"}, map[string]any{
			"smiles":      stringProp("Query structure as SMILES"),
			"threshold":   map[string]any{"type": "integer", "minimum": 0, "maximum": 100, "default": defaultThreshold, "description": "Minimum Tanimoto similarity in percent"},
			"max_results": maxResultsProp(),
		}),
		build: func(a Args) (UpstreamQuery, error) {
			smiles, err := a.requiredString("smiles")
			if err != nil {
				return UpstreamQuery{}, err
			}
			threshold, err := a.optionalInt("threshold", defaultThreshold, 0, 100)
			if err != nil {
				return UpstreamQuery{}, err
			}
			limit, err := a.optionalInt("max_results", defaultMaxResults, 1, maxMaxResults)
			if err != nil {
				return UpstreamQuery{}, err
			}
			return UpstreamQuery{
				Path: "/compound/fastsimilarity_2d/smiles/cids/JSON",
				Query: url.Values{
					"smiles":     {smiles},
					"Threshold":  {strconv.Itoa(threshold)},
					"MaxRecords": {strconv.Itoa(limit)},
				},
			}, nil
		},
	},
	OpSubstructureSearch: {
		name:        "substructure_search",
		description: "Find compounds containing a SMILES substructure. Returns matching CIDs.",
		schema: objectSchema([]string{"smiles"}, map[string]any{
			"smiles":      stringProp("Substructure as SMILES"),
			"max_results": maxResultsProp(),
		}),
		build: func(a Args) (UpstreamQuery, error) {
			smiles, err := a.requiredString("smiles")
			if err != nil {
				return UpstreamQuery{}, err
			}
			limit, err := a.optionalInt("max_results", defaultMaxResults, 1, maxMaxResults)
			if err != nil {
				return UpstreamQuery{}, err
			}
			return UpstreamQuery{
				Path: "/compound/fastsubstructure/smiles/cids/JSON",
				Query: url.Values{
					"smiles":     {smiles},
					"MaxRecords": {strconv.Itoa(limit)},
				},
			}, nil
		},
	},
	OpSearchByExactStructure: {
		name:        "search_by_exact_structure",
		description: "Find compounds with exactly the given SMILES structure, including stereo and isotopes. Returns matching CIDs.",
		schema:      objectSchema([]string{"smiles"}, map[string]any{"smiles": stringProp("Structure as SMILES")}),
		build: func(a Args) (UpstreamQuery, error) {
			smiles, err := a.requiredString("smiles")
			if err != nil {
				return UpstreamQuery{}, err
			}
			return UpstreamQuery{Path: "/compound/fastidentity/smiles/cids/JSON", Query: url.Values{"smiles": {smiles}}}, nil
		},
	},
	OpGet3DRecord: {
		name:        "get_compound_3d_record",
		description: "Get the compound record with computed 3D coordinates by CID.",
		schema:      objectSchema([]string{"cid"}, map[string]any{"cid": cidProp("PubChem Compound ID")}),
		build: func(a Args) (UpstreamQuery, error) {
			cid, err := a.identifier("cid")
			if err != nil {
				return UpstreamQuery{}, err
			}
			return UpstreamQuery{
				Path:  fmt.Sprintf("/compound/cid/%d/record/JSON", cid),
				Query: url.Values{"record_type": {"3d"}},
			}, nil
		},
	},
	OpGetConformers: {
		name:        "get_compound_conformers",
		description: "List the conformer IDs PubChem computed for a compound by CID.",
		schema:      objectSchema([]string{"cid"}, map[string]any{"cid": cidProp("PubChem Compound ID")}),
		build:       cidPath("/compound/cid/%d/conformers/JSON"),
	},
	OpSearchSubstanceByName: {
		name:        "search_substance_by_name",
		description: "Search depositor-supplied substances by name. Returns matching SIDs.",
		schema:      objectSchema([]string{"name"}, map[string]any{"name": stringProp("Substance name")}),
		build: func(a Args) (UpstreamQuery, error) {
			name, err := a.requiredString("name")
			if err != nil {
				return UpstreamQuery{}, err
			}
			return UpstreamQuery{Path: "/substance/name/" + url.PathEscape(name) + "/sids/JSON"}, nil
		},
	},
	OpGetSubstanceSynonyms: {
		name:        "get_substance_synonyms",
		description: "Get the names a depositor gave a substance by PubChem SID.",
		schema:      objectSchema([]string{"sid"}, map[string]any{"sid": cidProp("PubChem Substance ID")}),
		build:       idPath("sid", "/substance/sid/%d/synonyms/JSON"),
	},
	OpGetBioassayResults: {
		name: "get_bioassay_results",
		description: "Get results of a bioassay by AID. With a CID, returns the concise activity rows for that compound; " +
			"without one, returns the SIDs tested.",
		schema: objectSchema([]string{"aid"}, map[string]any{
			"aid": cidProp("PubChem BioAssay ID"),
			"cid": cidProp("Optional PubChem Compound ID to restrict results to"),
		}),
		build: func(a Args) (UpstreamQuery, error) {
			aid, err := a.identifier("aid")
			if err != nil {
				return UpstreamQuery{}, err
			}
			if v, ok := a["cid"]; !ok || v == nil {
				return UpstreamQuery{Path: fmt.Sprintf("/assay/aid/%d/sids/JSON", aid)}, nil
			}
			cid, err := a.identifier("cid")
			if err != nil {
				return UpstreamQuery{}, err
			}
			return UpstreamQuery{
				Path:  fmt.Sprintf("/assay/aid/%d/concise/JSON", aid),
				Query: url.Values{"cid": {strconv.FormatInt(cid, 10)}},
			}, nil
		},
	},
}

var operationsByName = func() map[string]Operation {
	m := make(map[string]Operation, len(operationTable))
	for op, def := range operationTable {
		m[def.name] = op
	}
	return m
}()

// ParseOperation resolves a tool name to its Operation.
func ParseOperation(name string) (Operation, bool) {
	op, ok := operationsByName[name]
	return op, ok
}

func (o Operation) String() string {
	if def, ok := operationTable[o]; ok {
		return def.name
	}
	return "Operation(" + strconv.Itoa(int(o)) + ")"
}

// Build validates args for o and returns the upstream request it maps to.
func (o Operation) Build(args Args) (UpstreamQuery, error) {
	def, ok := operationTable[o]
	if !ok {
		return UpstreamQuery{}, invalidArg("unsupported operation %s", o)
	}
	return def.build(args)
}

func compoundProperties(cids string, props []string) UpstreamQuery {
	return UpstreamQuery{Path: "/compound/cid/" + cids + "/property/" + strings.Join(props, ",") + "/JSON"}
}

func requestedProperties(a Args) ([]string, error) {
	names, present, err := a.optionalStrings("properties")
	if err != nil {
		return nil, err
	}
	if !present || len(names) == 0 {
		return defaultProperties, nil
	}
	return resolveProperties(names)
}

func cidPath(format string) func(Args) (UpstreamQuery, error) {
	return idPath("cid", format)
}

func idPath(key, format string) func(Args) (UpstreamQuery, error) {
	return func(a Args) (UpstreamQuery, error) {
		id, err := a.identifier(key)
		if err != nil {
			return UpstreamQuery{}, err
		}
		return UpstreamQuery{Path: fmt.Sprintf(format, id)}, nil
	}
}

func objectSchema(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "minLength": 1, "description": desc}
}

func cidProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "minimum": 1, "description": desc}
}

func maxResultsProp() map[string]any {
	return map[string]any{"type": "integer", "minimum": 1, "maximum": maxMaxResults, "default": defaultMaxResults}
}

func propertiesProp() map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": "PubChem property names such as MolecularWeight or XLogP; shorthands " + strings.Join(sortedAliases(), ", ") + " are also accepted",
	}
}
