package sentiment

// French financial sentiment term sets. Positive and negative cover general
// market vocabulary plus terms that are specifically good or bad news for
// Morocco (recognition, investment, sanctions, sovereignty contestation).

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

var positiveWords = wordSet(
	"hausse", "croissance", "augmentation", "progression", "amélioration",
	"bénéfice", "bénéfices", "profit", "gain", "gains", "succès", "performance",
	"excellente", "excellent", "positive", "positif", "optimiste", "confiance",
	"investissement", "investissements", "opportunité", "potentiel", "forte",
	"soutenu", "résilient", "robuste", "dynamique", "prometteur", "attractif",
	"rentable", "lucratif", "florissant", "prospère", "expansion", "développement",
	"innovation", "modernisation", "efficacité", "productivité", "compétitivité",
	"leadership", "excellence", "performant", "remarquable", "remarquables",
	"résoudre", "solution", "résolution", "résolu", "régler", "dépasser",
	"surmonter", "historique", "tournant", "progrès", "avancée", "réussite",
	"pacifier", "apaiser", "normaliser", "stabiliser",
	"reconnaissance", "soutien", "appui", "solidarité", "partenariat",
	"coopération", "accord", "entente", "consensus", "validation",
	"approbation", "souveraineté", "intégrité", "unité", "cohésion",
	"stabilité", "financement", "infrastructure", "création", "emplois",
	"emploi", "embauche", "exportation", "exportations", "commerce", "échange",
	"réforme", "diversification", "attractivité", "tourisme", "délégation",
	"récompense", "prix", "distinction", "certification", "victoire",
	"triomphe", "diplomatie", "sahara", "autonomie", "normalisation",
	"ambassade", "consulat",
	"sahara marocain", "moment historique", "relations diplomatiques",
	"reconnaissance internationale", "succès diplomatique",
)

var positivePhrases = wordSet(
	"création emplois", "création emploi",
	"sahara marocain", "provinces sud", "régions sud",
	"reconnaissance internationale", "soutien international", "appui international",
	"croissance économique", "développement économique", "investissement étranger",
	"moment historique",
)

var negativeWords = wordSet(
	"baisse", "chute", "déclin", "récession", "crise", "difficulté",
	"difficultés", "problème", "problèmes", "négative", "négatif", "pessimiste",
	"inquiétude", "inquiétudes", "risque", "risques", "incertitude",
	"volatilité", "instabilité", "tension", "tensions", "conflit", "conflits",
	"déséquilibre", "déficit", "perte", "pertes", "défaillance", "faillite",
	"chômage", "inflation", "dévaluation", "dépression", "stagnation",
	"ralentissement", "affaiblissement", "dégradation", "détérioration",
	"menace", "menaces", "danger", "alerte", "préoccupation", "anxiété",
	"pessimisme", "décroissance", "contraction", "réduction", "diminution",
	"contestation", "rejet", "refus", "opposition", "hostilité",
	"condamnation", "critique", "attaque", "accusation", "sanction",
	"sanctions", "embargo", "boycott", "blocus", "isolement",
	"marginalisation", "désinvestissement", "retrait", "fermeture",
	"licenciement", "licenciements", "restructuration", "délocalisation",
	"grève", "grèves", "manifestation", "manifestations", "protestation",
	"émeute", "violence", "trouble", "troubles", "corruption", "scandale",
	"enquête", "procès", "attentat", "terrorisme", "catastrophe", "désastre",
	"accident", "tragédie", "sécheresse", "inondation", "rupture",
	"ingérence", "séparatisme", "sécession", "séparatiste", "revendication",
	"polisario", "rasd", "référendum",
	"crise économique", "tension diplomatique", "crise diplomatique",
	"fermeture usine", "plan social", "perte emploi", "suppression poste",
)

var negativePhrases = wordSet(
	"sanctions contre", "embargo contre", "boycott contre",
	"contre maroc", "contre marocain",
	"fermeture usine", "crise économique", "crise maroc",
	"perte emploi", "perte emplois", "suppression poste",
	"gel relations", "contestation territoriale",
)

var intensifiers = wordSet(
	"très", "extrêmement", "fortement", "considérablement", "significativement",
	"substantiellement", "drastiquement", "radicalement", "complètement",
	"totalement", "absolument", "parfaitement",
)

var negators = wordSet(
	"pas", "non", "aucun", "aucune", "jamais", "rien", "personne",
	"sans", "nullement", "guère",
)

var resolutionWords = wordSet(
	"résoudre", "solution", "régler", "résolution", "résout", "résolu",
	"dépasser", "surmonter", "vaincre", "terminer", "finir", "clôturer",
	"apaiser", "pacifier", "normaliser", "historique",
)

var moroccoContext = wordSet(
	"maroc", "marocain", "marocaine", "marocains", "marocaines", "royaume",
	"masi", "casablanca", "rabat", "marrakech", "fès", "fes", "tanger",
	"agadir", "autonomie",
)

var moroccoContextPhrases = wordSet(
	"sahara marocain", "provinces sud", "régions sud",
)
