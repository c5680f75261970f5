package reference

// Default is the catalog shipped with the application.
func Default() *StaticCatalog {
	c := &StaticCatalog{
		CategoryList: []Category{
			{Code: "M", Label: "Processus de management"},
			{Code: "R", Label: "Processus de réalisation"},
			{Code: "S", Label: "Processus support"},
		},
		Processes: []Process{
			{Code: "P1", Name: "Pilotage et amélioration continue", Category: "M", KPIs: []string{"K-EI-01", "K-REV-01"}},
			{Code: "P2", Name: "Achats et approvisionnement", Category: "R", KPIs: []string{"K-STK-01"}},
			{Code: "P3", Name: "Dispensation", Category: "R", KPIs: []string{"K-DISP-01", "K-DISP-02"}},
			{Code: "P4", Name: "Préparations magistrales", Category: "R", KPIs: []string{"K-PREP-01"}},
			{Code: "P5", Name: "Gestion des stocks", Category: "S", KPIs: []string{"K-STK-01", "K-STK-02"}},
			{Code: "P6", Name: "Ressources humaines et formation", Category: "S", KPIs: []string{"K-FORM-01"}},
			{Code: "P7", Name: "Réclamations et pharmacovigilance", Category: "M", KPIs: []string{"K-REC-01", "K-EI-01"}},
		},
		KPIs: []KPI{
			{Code: "K-EI-01", Label: "Événements indésirables déclarés", Unit: "nb", Target: 3, HigherIsBetter: true},
			{Code: "K-REV-01", Label: "Revues de processus réalisées", Unit: "%", Target: 100, HigherIsBetter: true},
			{Code: "K-STK-01", Label: "Taux de ruptures fournisseur", Unit: "%", Target: 2},
			{Code: "K-STK-02", Label: "Produits périmés détruits", Unit: "nb", Target: 10},
			{Code: "K-DISP-01", Label: "Taux d'erreurs de délivrance", Unit: "%", Target: 0.5},
			{Code: "K-DISP-02", Label: "Ordonnances avec intervention pharmaceutique", Unit: "%", Target: 1, HigherIsBetter: true},
			{Code: "K-PREP-01", Label: "Préparations non conformes", Unit: "nb", Target: 0},
			{Code: "K-FORM-01", Label: "Heures de formation par collaborateur", Unit: "h", Target: 14, HigherIsBetter: true},
			{Code: "K-REC-01", Label: "Délai moyen de traitement des réclamations", Unit: "j", Target: 7},
		},
		Steps: map[string][]string{
			"PR-DISP-01": {
				"Accueillir le patient et recueillir l'ordonnance",
				"Vérifier la recevabilité de l'ordonnance et l'identité du prescripteur",
				"Réaliser l'analyse pharmaceutique et consulter le dossier pharmaceutique",
				"Préparer et contrôler les médicaments délivrés",
				"Délivrer en donnant les conseils de bon usage",
				"Enregistrer la délivrance à l'ordonnancier",
			},
		},
		FallbackSteps: []string{
			"Identifier le besoin et les personnes concernées",
			"Réaliser l'activité selon les instructions en vigueur",
			"Contrôler le résultat obtenu",
			"Enregistrer et archiver les preuves",
		},
	}
	c.index()
	return c
}
