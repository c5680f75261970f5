package report

// Flag is one selectable option of a checklist.
type Flag struct {
	ID    string
	Label string
}

// FlagSet is an ordered list of options. Reports store only the IDs that
// were selected; the set decides what is printed and in which order.
type FlagSet []Flag

var EventTypeFlags = FlagSet{
	{ID: "dispensing-error", Label: "Erreur de dispensation"},
	{ID: "prescription-error", Label: "Erreur de prescription"},
	{ID: "adverse-reaction", Label: "Effet indésirable médicamenteux"},
	{ID: "product-defect", Label: "Défaut qualité produit"},
	{ID: "cold-chain", Label: "Rupture de la chaîne du froid"},
	{ID: "counterfeit", Label: "Suspicion de falsification"},
	{ID: "stock-out", Label: "Rupture d'approvisionnement"},
	{ID: "patient-complaint", Label: "Réclamation patient"},
	{ID: "other", Label: "Autre"},
}

var SeverityFlags = FlagSet{
	{ID: "none", Label: "Sans conséquence"},
	{ID: "minor", Label: "Mineure"},
	{ID: "significant", Label: "Significative"},
	{ID: "major", Label: "Majeure"},
	{ID: "critical", Label: "Critique"},
}

// Selected reports, in set order, whether each flag appears in ids.
func (fs FlagSet) Selected(ids []string) []bool {
	chosen := make(map[string]bool, len(ids))
	for _, id := range ids {
		chosen[id] = true
	}
	out := make([]bool, len(fs))
	for i, f := range fs {
		out[i] = chosen[f.ID]
	}
	return out
}

// Unknown returns the ids that are not part of the set.
func (fs FlagSet) Unknown(ids []string) []string {
	known := make(map[string]bool, len(fs))
	for _, f := range fs {
		known[f.ID] = true
	}
	var out []string
	for _, id := range ids {
		if !known[id] {
			out = append(out, id)
		}
	}
	return out
}
