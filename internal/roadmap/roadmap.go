// Package roadmap holds the campaign landing content (headline, phases,
// call to action) and renders it for the terminal. The same content backs
// the HTML pages in internal/web.
package roadmap

// Status of a phase or of one item within it.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusInProgress Status = "in-progress"
	StatusUpcoming   Status = "upcoming"
)

// Badge returns the displayed badge text for the status.
func (s Status) Badge() string {
	switch s {
	case StatusCompleted:
		return "Concluído"
	case StatusInProgress:
		return "Em Andamento"
	}
	return "Planejado"
}

// Item is one line in a phase checklist.
type Item struct {
	Text   string
	Status Status
}

// Phase is one stage of the campaign roadmap.
type Phase struct {
	Number      int
	Title       string
	Subtitle    string
	Description string
	Status      Status
	Items       []Item
}

// Campaign copy.
const (
	Tagline       = "Roadmap de Desenvolvimento"
	Brand         = "Smartdog"
	Headline      = "O seu pet pode salvar um animal perdido"
	Lead          = "Crie esperança com uma simples foto."
	CounterLabel  = "Pets Contribuindo"
	CTATitle      = "Faça Parte dessa campanha"
	CTABody       = "A sua ajuda pode salvar um animal perdido."
	CTAButton     = "Contribuir com Imagens"
	FooterPurpose = "Tecnologia desenvolvida com propósito social"
	FooterCopy    = "© 2024 Smartdog. Criando esperança com uma simples foto."
)

var phases = []Phase{
	{
		Number:      1,
		Title:       "Resgate o Futuro dos Pets perdidos",
		Subtitle:    "Contribua enviando foto do seu pet",
		Description: "As imagens enviadas serão utilizadas para treinar IA a reconhecer focinhos.",
		Status:      StatusCompleted,
		Items: []Item{
			{"Plataforma de upload desenvolvida", StatusCompleted},
			{"Sistema de validação implementado", StatusCompleted},
			{"Parcerias com ONGs estabelecidas", StatusCompleted},
		},
	},
	{
		Number:      2,
		Title:       "Lançamento MVP",
		Subtitle:    "Disponibilização gratuita de IA para reconhecimento facial e focinho de cães e gatos com acurácia de 99%",
		Description: "Redução do número de animais nas ruas no mundo todo",
		Status:      StatusInProgress,
		Items: []Item{
			{"Arquitetura do modelo definida", StatusCompleted},
			{"Treinamento inicial em andamento", StatusInProgress},
			{"Testes de acurácia", StatusInProgress},
		},
	},
	{
		Number:      3,
		Title:       "Conexão Global",
		Subtitle:    "Criação de medidas e prevenção de risco à saúde pública",
		Description: "Diminuição do número de zoonoses. Zero animais nas ruas",
		Status:      StatusUpcoming,
		Items: []Item{
			{"API pública disponível", StatusUpcoming},
			{"Integração com sistemas existentes", StatusUpcoming},
			{"Programa de certificação", StatusUpcoming},
		},
	},
}

// Phases returns a copy of the roadmap phases in order.
func Phases() []Phase {
	out := make([]Phase, len(phases))
	for i, p := range phases {
		p.Items = append([]Item(nil), p.Items...)
		out[i] = p
	}
	return out
}
