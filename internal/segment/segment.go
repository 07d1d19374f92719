// Package segment maps a tenant's business vertical to the entity labels
// shown in navigation and page headings.
package segment

import "strings"

const (
	BeautySalon = "beauty-salon"
	Nails       = "nails"
	Lashes      = "lashes"
	Barbershop  = "barbershop"
	Law         = "law"
)

// Keys lists the known segments in display order.
var Keys = []string{BeautySalon, Nails, Lashes, Barbershop, Law}

type Label struct {
	Singular string `json:"singular"`
	Plural   string `json:"plural"`
}

type Labels struct {
	Clients       Label `json:"clients"`
	Professionals Label `json:"professionals"`
	Services      Label `json:"services"`
	Appointments  Label `json:"appointments"`
	Cases         Label `json:"cases"`
}

var defaults = Labels{
	Clients:       Label{"Cliente", "Clientes"},
	Professionals: Label{"Profissional", "Profissionais"},
	Services:      Label{"Serviço", "Serviços"},
	Appointments:  Label{"Agendamento", "Agendamentos"},
	Cases:         Label{"Caso", "Casos"},
}

var names = map[string]string{
	BeautySalon: "Salão de beleza",
	Nails:       "Manicure e nail designer",
	Lashes:      "Design de cílios",
	Barbershop:  "Barbearia",
	Law:         "Escritório de advocacia",
}

// Default returns the labels used when no segment is configured.
func Default() Labels { return defaults }

// For returns the labels of a segment. Unknown or empty keys get the defaults.
func For(key string) Labels {
	l := defaults
	switch normalize(key) {
	case Nails, Lashes:
		l.Professionals = Label{"Especialista", "Especialistas"}
		l.Services = Label{"Procedimento", "Procedimentos"}
	case Barbershop:
		l.Professionals = Label{"Barbeiro", "Barbeiros"}
		l.Services = Label{"Corte", "Cortes"}
	case Law:
		l.Professionals = Label{"Advogado", "Advogados"}
		l.Services = Label{"Atendimento", "Atendimentos"}
		l.Appointments = Label{"Atendimento", "Atendimentos"}
	}
	return l
}

// CasesEnabled reports whether the cases section exists for the segment.
func CasesEnabled(key string) bool {
	return normalize(key) == Law
}

// Known reports whether key names a supported segment.
func Known(key string) bool {
	_, ok := names[normalize(key)]
	return ok
}

// Name is the human name of a segment, or "" when unknown.
func Name(key string) string {
	return names[normalize(key)]
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
