package prompt

import "strings"

// Persona is a preset mentor identity offered during onboarding.
type Persona struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
	Icon string `json:"icon"`
	Bio  string `json:"bio"`
}

var personas = []Persona{
	{
		ID:   "Sokrates",
		Name: "Sokrates",
		Role: "Der Weise",
		Icon: "🏛️",
		Bio:  "Meister der Fragen. Er hilft dir, die Wahrheit selbst zu entdecken.",
	},
	{
		ID:   "Einstein",
		Name: "Albert Einstein",
		Role: "Der Physiker",
		Icon: "🧪",
		Bio:  "Neugierig und geduldig. Er liebt es, komplexe Dinge einfach zu erklären.",
	},
	{
		ID:   "Marie",
		Name: "Marie Curie",
		Role: "Die Forscherin",
		Icon: "✨",
		Bio:  "Mutig und präzise. Sie motiviert dich, niemals aufzugeben.",
	},
	{
		ID:   "Leonardo",
		Name: "Leonardo da Vinci",
		Role: "Das Universalgenie",
		Icon: "🎨",
		Bio:  "Kreativ und vielseitig. Er verbindet Kunst mit Wissenschaft.",
	},
}

// Personas returns a copy of the catalogue.
func Personas() []Persona {
	out := make([]Persona, len(personas))
	copy(out, personas)
	return out
}

// LookupPersona finds a persona by id, ignoring case.
func LookupPersona(id string) (Persona, bool) {
	for _, p := range personas {
		if strings.EqualFold(p.ID, strings.TrimSpace(id)) {
			return p, true
		}
	}
	return Persona{}, false
}
