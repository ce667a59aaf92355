package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/cvforge-backend/internal/types"
)

// Prompt builders for the four model calls: CV extraction, job analysis,
// the strategist chat, and document generation. Prompts are French because
// the product is; the JSON field names they request match the Go types.

func cvExtractionPrompt(cvText string) string {
	var b strings.Builder
	b.WriteString("Tu es un expert ATS (Applicant Tracking System). Analyse ce CV et extrais les données en JSON strict.\n\n")
	b.WriteString("CV À ANALYSER:\n\"\"\"\n")
	b.WriteString(cvText)
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString("IMPORTANT: Réponds UNIQUEMENT avec un JSON valide, sans texte avant ou après.\n\n")
	b.WriteString(`Structure JSON attendue:
{
  "personalInfo": {
    "fullName": "string",
    "email": "string",
    "phone": "string",
    "location": "string",
    "linkedinUrl": "string ou null",
    "githubUrl": "string ou null",
    "portfolioUrl": "string ou null"
  },
  "experiences": [
    {
      "title": "string",
      "company": "string",
      "location": "string",
      "startDate": "string (MM/YYYY ou YYYY)",
      "endDate": "string (MM/YYYY ou YYYY ou Présent)",
      "bullets": ["string - point clé de l'expérience"]
    }
  ],
  "education": [
    { "degree": "string", "school": "string", "location": "string", "startDate": "string", "endDate": "string" }
  ],
  "projects": [
    { "name": "string", "description": "string", "techStack": ["string"], "year": "string" }
  ],
  "skills": {
    "languages": ["string - langages de programmation"],
    "frameworks": ["string - frameworks et bibliothèques"],
    "aiAndData": ["string - outils IA et data"],
    "toolsAndCloud": ["string - outils et cloud"],
    "softSkills": ["string - compétences humaines"]
  },
  "languages": [
    { "language": "string", "level": "string (Natif, Courant, Intermédiaire, Débutant)" }
  ]
}

Extrais toutes les informations disponibles. Si une information n'est pas présente, utilise une valeur vide ou un tableau vide.`)
	return b.String()
}

func jobAnalysisPrompt(cv types.CVData, jobDescription string) string {
	cvJSON, _ := json.MarshalIndent(cv, "", "  ")

	var b strings.Builder
	b.WriteString("Tu es un expert ATS. Compare ce profil candidat avec cette offre d'emploi.\n\n")
	b.WriteString("PROFIL DU CANDIDAT:\n")
	b.Write(cvJSON)
	b.WriteString("\n\nOFFRE D'EMPLOI:\n\"\"\"\n")
	b.WriteString(jobDescription)
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString(`MISSION:
1. Identifie les 3 compétences manquantes les plus CRITIQUES (celles qui empêcheraient le recrutement)
2. Calcule un score de compatibilité (0-100)
3. Extrais les mots-clés importants de l'offre
4. Liste les compétences du candidat qui matchent

IMPORTANT: Réponds UNIQUEMENT avec un JSON valide.

Structure JSON attendue:
{
  "score": 75,
  "gaps": [
    {
      "skill": "string - nom de la compétence manquante",
      "severity": "critical" | "moderate" | "minor",
      "category": "string - ex: Backend, DevOps, Soft Skills",
      "suggestion": "string - comment le candidat pourrait combler ce gap"
    }
  ],
  "keywords": ["string - mots-clés importants de l'offre"],
  "matchedSkills": ["string - compétences du candidat qui correspondent"],
  "jobTitle": "string - titre du poste",
  "company": "string - nom de l'entreprise si mentionné"
}

Limite les gaps à 3 maximum, les plus critiques, classés du plus sévère au moins sévère.`)
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "Aucun"
	}
	return strings.Join(items, ", ")
}

func cvContextBlock(cv types.CVData) string {
	var b strings.Builder
	b.WriteString("PROFIL COMPLET DU CANDIDAT:\n")
	b.WriteString(fmt.Sprintf("- Nom: %s\n", cv.PersonalInfo.FullName))
	b.WriteString(fmt.Sprintf("- Email: %s\n", cv.PersonalInfo.Email))
	b.WriteString(fmt.Sprintf("- Localisation: %s\n\n", cv.PersonalInfo.Location))

	b.WriteString("COMPÉTENCES DÉCLARÉES:\n")
	b.WriteString(fmt.Sprintf("- Langages: %s\n", joinOrNone(cv.Skills.Languages)))
	b.WriteString(fmt.Sprintf("- Frameworks: %s\n", joinOrNone(cv.Skills.Frameworks)))
	b.WriteString(fmt.Sprintf("- IA & Data: %s\n", joinOrNone(cv.Skills.AIAndData)))
	b.WriteString(fmt.Sprintf("- Outils & Cloud: %s\n", joinOrNone(cv.Skills.ToolsAndCloud)))
	b.WriteString(fmt.Sprintf("- Soft Skills: %s\n\n", joinOrNone(cv.Skills.SoftSkills)))

	b.WriteString("EXPÉRIENCES DÉTAILLÉES:\n")
	for _, e := range cv.Experiences {
		bullets := e.Bullets
		if len(bullets) > 3 {
			bullets = bullets[:3]
		}
		b.WriteString(fmt.Sprintf("- %s chez %s (%s - %s)\n  Points clés: %s\n", e.Title, e.Company, e.StartDate, e.EndDate, strings.Join(bullets, "; ")))
	}

	b.WriteString("\nPROJETS:\n")
	for _, p := range cv.Projects {
		b.WriteString(fmt.Sprintf("- %s: %s (Stack: %s)\n", p.Name, p.Description, strings.Join(p.TechStack, ", ")))
	}

	b.WriteString("\nFORMATION:\n")
	for _, e := range cv.Education {
		b.WriteString(fmt.Sprintf("- %s à %s (%s - %s)\n", e.Degree, e.School, e.StartDate, e.EndDate))
	}
	return b.String()
}

func approachLabel(approach string) string {
	switch approach {
	case types.ApproachAddSkill:
		return "Ajout de compétence"
	case types.ApproachTransferable:
		return "Compétence transférable"
	default:
		return "Fast Learner"
	}
}

func strategistSystemPrompt(cv types.CVData, analysis types.AnalysisResult, currentGapIndex int, strategies []types.Strategy) string {
	currentGap := analysis.Gaps[currentGapIndex]

	var prev strings.Builder
	for _, s := range strategies {
		prev.WriteString(fmt.Sprintf("- %s: %s\n", s.GapSkill, approachLabel(s.Approach)))
	}
	previousStrategies := strings.TrimSpace(prev.String())
	if previousStrategies == "" {
		previousStrategies = "Aucune pour le moment"
	}

	var b strings.Builder
	b.WriteString("Tu es un coach carrière bienveillant mais rigoureux.\n\n")
	b.WriteString("RÈGLE D'OR: NE JAMAIS INVENTER DE FAITS. Tu ne peux que reformuler ce que le candidat possède déjà.\n\n")
	b.WriteString("CONTEXTE:\n")
	b.WriteString(fmt.Sprintf("- Poste visé: %s chez %s\n", analysis.JobTitle, analysis.Company))
	b.WriteString(fmt.Sprintf("- Score actuel: %d%%\n", analysis.Score))
	b.WriteString(fmt.Sprintf("- Gap en cours d'exploration: %q (%s)\n\n", currentGap.Skill, currentGap.Severity))
	b.WriteString(cvContextBlock(cv))
	b.WriteString("\nSTRATÉGIES DÉJÀ VALIDÉES:\n")
	b.WriteString(previousStrategies)
	b.WriteString(fmt.Sprintf(`

TA MISSION POUR CE GAP %q:
1. ANALYSE D'ABORD SON CV: Cherche si le candidat a déjà des compétences proches ou transférables
2. Si tu trouves une compétence liée dans son CV, mentionne-la et demande des précisions
3. Si rien dans le CV ne correspond, pose UNE question simple pour explorer

IMPORTANT:
- Sois bref (2-3 phrases max)
- Pose une seule question PERTINENTE basée sur son CV
- Ne pose pas de questions sur des compétences qu'il a déjà
- Reste encourageant mais réaliste`, currentGap.Skill))
	return b.String()
}

func strategistResponsePrompt(userMessage, currentGap string, hasRelatedExperience bool, exchangeCount int, nextGap string, cv types.CVData) string {
	shouldValidateNow := exchangeCount >= 2

	nextGapAnnouncement := "Félicite-le car tous les gaps sont couverts."
	if nextGap != "" {
		nextGapAnnouncement = fmt.Sprintf("Annonce ensuite: \"Passons maintenant à %s.\"", nextGap)
	}

	var b strings.Builder
	b.WriteString(cvContextBlock(cv))
	b.WriteString(fmt.Sprintf("\nNE POSE PAS de questions sur des compétences que le candidat a DÉJÀ dans son CV.\nSi le gap %q est lié à une compétence déjà présente, propose directement d'ajouter/reformuler.\n\n", currentGap))

	if hasRelatedExperience {
		b.WriteString(fmt.Sprintf("Le candidat a indiqué avoir une expérience liée à %q.\n", currentGap))
	} else {
		b.WriteString(fmt.Sprintf("Le candidat a indiqué ne PAS avoir d'expérience directe avec %q.\n", currentGap))
	}
	b.WriteString(fmt.Sprintf("Message du candidat: %q\n\n", userMessage))
	b.WriteString(fmt.Sprintf("NOMBRE D'ÉCHANGES SUR CE GAP: %d\n", exchangeCount))

	if shouldValidateNow {
		if hasRelatedExperience {
			b.WriteString(fmt.Sprintf("IL EST TEMPS DE VALIDER LA STRATÉGIE ET PASSER AU GAP SUIVANT. %s\n", nextGapAnnouncement))
			b.WriteString(fmt.Sprintf(`
Génère une réponse JSON STRICTE (pas de texte avant ou après):
{
  "message": "string - confirme la stratégie adoptée puis annonce le gap suivant",
  "strategy": {
    "gapSkill": %q,
    "approach": "add_skill",
    "details": "string - comment reformuler/ajouter cette compétence basé sur ce qu'il a dit",
    "validated": true
  },
  "moveToNextGap": true
}
`, currentGap))
		} else {
			b.WriteString(fmt.Sprintf("IL EST TEMPS DE PROPOSER FAST LEARNER ET PASSER AU GAP SUIVANT. %s\n", nextGapAnnouncement))
			b.WriteString(fmt.Sprintf(`
Génère une réponse JSON STRICTE (pas de texte avant ou après):
{
  "message": "string - propose Fast Learner (capacité d'apprentissage rapide), puis annonce le gap suivant",
  "strategy": {
    "gapSkill": %q,
    "approach": "fast_learner",
    "details": "Mettre en avant la capacité d'apprentissage rapide du candidat",
    "validated": true
  },
  "moveToNextGap": true
}
`, currentGap))
		}
	} else {
		if hasRelatedExperience {
			b.WriteString("CONSIGNE: Pose UNE question de suivi pour préciser son expérience, OU valide si tu as assez d'infos.\n")
			b.WriteString(fmt.Sprintf(`
Génère une réponse JSON STRICTE (pas de texte avant ou après):
{
  "message": "string - pose une question de suivi OU valide",
  "strategy": {
    "gapSkill": %q,
    "approach": "add_skill",
    "details": "string - comment reformuler/ajouter cette compétence basé sur ce qu'il a dit",
    "validated": true
  },
  "moveToNextGap": true si tu valides, false si tu poses une question
}
`, currentGap))
		} else {
			b.WriteString("CONSIGNE: Regarde son CV et explore s'il a des compétences PROCHES ou TRANSFÉRABLES.\n")
			b.WriteString(`
Génère une réponse JSON STRICTE (pas de texte avant ou après):
{
  "message": "string - pose une question sur des compétences proches EN TE BASANT SUR SON CV",
  "strategy": null,
  "moveToNextGap": false
}
`)
		}
	}

	b.WriteString("\nIMPORTANT: Réponds UNIQUEMENT avec le JSON valide, sans markdown ni texte additionnel.")
	return b.String()
}

func documentGenerationPrompt(cv types.CVData, analysis types.AnalysisResult, strategies []types.Strategy, jobDescription string) string {
	cvJSON, _ := json.MarshalIndent(cv, "", "  ")

	var strat strings.Builder
	for _, s := range strategies {
		strat.WriteString(fmt.Sprintf("- %s: %s - %s\n", s.GapSkill, s.Approach, s.Details))
	}

	var b strings.Builder
	b.WriteString("Tu es un expert en rédaction de CV et lettres de motivation en LaTeX.\n\n")
	b.WriteString("RÈGLE D'OR: NE JAMAIS INVENTER DE FAITS. Reformule uniquement ce que le candidat possède déjà.\n\n")
	b.WriteString("PROFIL DU CANDIDAT:\n")
	b.Write(cvJSON)
	b.WriteString("\n\nOFFRE D'EMPLOI:\n\"\"\"\n")
	b.WriteString(jobDescription)
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString("ANALYSE:\n")
	b.WriteString(fmt.Sprintf("- Score: %d%%\n", analysis.Score))
	b.WriteString(fmt.Sprintf("- Poste visé: %s\n", analysis.JobTitle))
	b.WriteString(fmt.Sprintf("- Entreprise: %s\n", analysis.Company))
	b.WriteString(fmt.Sprintf("- Mots-clés à intégrer: %s\n\n", strings.Join(analysis.Keywords, ", ")))
	b.WriteString("STRATÉGIES DÉFINIES POUR LES GAPS:\n")
	b.WriteString(strat.String())
	b.WriteString(fmt.Sprintf(`
MISSION:
Génère DEUX documents LaTeX complets, compilables avec pdflatex (documentclass article, packages standards uniquement).

1. CV - Reformule les bullet points pour:
   - Utiliser les mots-clés de l'offre
   - Mettre en avant les compétences matchées
   - Intégrer les stratégies définies (si approach = "add_skill" ou "transferable")

2. Lettre de motivation - Structure:
   - Accroche: Pourquoi cette entreprise (personnalisé)
   - Fit technique: Compétences qui matchent avec exemples concrets
   - Adaptabilité: Pour les gaps avec strategy "fast_learner", mettre en avant la capacité d'apprentissage
   - Conclusion: Motivation et disponibilité

FORMAT DE SORTIE OBLIGATOIRE (pas de texte en dehors des marqueurs):
%s
\documentclass... (CV complet)
%s
%s
\documentclass... (lettre complète)
%s`, cvStartMarker, cvEndMarker, coverStartMarker, coverEndMarker))
	return b.String()
}
