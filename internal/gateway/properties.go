package gateway

import (
	"sort"
	"strings"
)

// knownProperties is the PUG REST compound property table.
var knownProperties = []string{
	"Title", "IUPACName", "MolecularFormula", "MolecularWeight",
	"SMILES", "ConnectivitySMILES", "CanonicalSMILES", "IsomericSMILES",
	"InChI", "InChIKey", "XLogP", "ExactMass", "MonoisotopicMass", "TPSA",
	"Complexity", "Charge", "HBondDonorCount", "HBondAcceptorCount",
	"RotatableBondCount", "HeavyAtomCount", "IsotopeAtomCount",
	"AtomStereoCount", "DefinedAtomStereoCount", "UndefinedAtomStereoCount",
	"BondStereoCount", "DefinedBondStereoCount", "UndefinedBondStereoCount",
	"CovalentUnitCount", "PatentCount", "PatentFamilyCount", "LiteratureCount",
	"Volume3D", "XStericQuadrupole3D", "YStericQuadrupole3D", "ZStericQuadrupole3D",
	"FeatureCount3D", "FeatureAcceptorCount3D", "FeatureDonorCount3D",
	"FeatureAnionCount3D", "FeatureCationCount3D", "FeatureRingCount3D",
	"FeatureHydrophobeCount3D", "ConformerModelRMSD3D", "EffectiveRotorCount3D",
	"ConformerCount3D", "Fingerprint2D",
}

// propertyAliases are shorthand names agents tend to use.
var propertyAliases = map[string]string{
	"mw":         "MolecularWeight",
	"weight":     "MolecularWeight",
	"formula":    "MolecularFormula",
	"logp":       "XLogP",
	"hbd":        "HBondDonorCount",
	"hba":        "HBondAcceptorCount",
	"rb":         "RotatableBondCount",
	"smiles":     "CanonicalSMILES",
	"name":       "IUPACName",
	"iupac":      "IUPACName",
	"mass":       "ExactMass",
	"polararea":  "TPSA",
	"heavyatoms": "HeavyAtomCount",
}

var propertyIndex = func() map[string]string {
	idx := make(map[string]string, len(knownProperties)+len(propertyAliases))
	for _, p := range knownProperties {
		idx[strings.ToLower(p)] = p
	}
	for alias, p := range propertyAliases {
		idx[alias] = p
	}
	return idx
}()

var (
	identityProperties = []string{
		"Title", "IUPACName", "MolecularFormula", "MolecularWeight",
		"CanonicalSMILES", "IsomericSMILES", "InChI", "InChIKey",
	}
	defaultProperties = []string{
		"Title", "MolecularFormula", "MolecularWeight", "CanonicalSMILES", "IsomericSMILES",
		"IUPACName", "XLogP", "TPSA", "HBondDonorCount", "HBondAcceptorCount",
		"RotatableBondCount", "ExactMass", "MonoisotopicMass", "Complexity", "Charge",
	}
)

// resolveProperties canonicalizes requested property names, dropping duplicates and keeping order.
func resolveProperties(requested []string) ([]string, error) {
	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested))
	for _, r := range requested {
		key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(r))
		p, ok := propertyIndex[key]
		if !ok {
			return nil, invalidArg("unknown property %q", r)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// xrefTypes are the cross-reference kinds PUG REST serves under /xrefs/{type}.
var xrefTypes = []string{
	"RegistryID", "RN", "PubMedID", "MMDBID", "ProteinGI", "NucleotideGI",
	"TaxonomyID", "MIMID", "GeneID", "ProbeID", "PatentID", "SourceName", "SourceCategory",
}

func resolveXrefType(s string) (string, bool) {
	for _, x := range xrefTypes {
		if strings.EqualFold(x, s) {
			return x, true
		}
	}
	return "", false
}

func sortedAliases() []string {
	out := make([]string, 0, len(propertyAliases))
	for a := range propertyAliases {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
