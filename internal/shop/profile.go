// Package shop holds the static shop profile and service catalog.
package shop

// Profile is the single source of shop contact data for every screen.
type Profile struct {
	Name        string `yaml:"name"`
	Address     string `yaml:"address"`
	Phone       string `yaml:"phone"`
	Mobile      string `yaml:"mobile"`
	Email       string `yaml:"email"`
	WhatsAppURL string `yaml:"whatsapp_url"`
	MapsURL     string `yaml:"maps_url"`
}

// DefaultProfile returns the shop's published contact data.
func DefaultProfile() Profile {
	return Profile{
		Name:        "Taller Lira Motors",
		Address:     "Calle Inmaculada Concepción 16, Carabanchel, 28019, Madrid",
		Phone:       "919 473 545",
		Mobile:      "603 473 062",
		Email:       "Liramotors16@gmail.com",
		WhatsAppURL: "https://wa.me/34603473062?text=Hola%20Taller%20Lira%20Motors,%20quiero%20consultar%20una%20cita",
		MapsURL:     "https://maps.google.com/maps?q=Calle+Inmaculada+Concepción+16,+Carabanchel,+28019,+Madrid&z=15&output=embed",
	}
}

// ServiceOption is one entry of the bookable service catalog.
type ServiceOption struct {
	Value string
	Label string
}

// OtherService is the free-text catalog entry. When picked, the request
// carries its own description and the webhook payload uses that instead
// of a catalog label.
const OtherService = "otro"

// Services is the bookable service catalog, in display order.
var Services = []ServiceOption{
	{Value: "cambio-aceite", Label: "Cambio de aceite y filtros"},
	{Value: "revision-itv", Label: "Revisión pre-ITV"},
	{Value: "diagnosis", Label: "Diagnosis electrónica"},
	{Value: "pastillas-freno", Label: "Cambio de pastillas de freno"},
	{Value: "revision-general", Label: "Revisión general"},
	{Value: "aire-acondicionado", Label: "Recarga de aire acondicionado"},
	{Value: OtherService, Label: "Otro"},
}

// ServiceLabel resolves the human-readable label for a service value.
// Unknown values resolve to the empty string.
func ServiceLabel(value string) string {
	for _, opt := range Services {
		if opt.Value == value {
			return opt.Label
		}
	}
	return ""
}

// ValidService reports whether value is in the catalog.
func ValidService(value string) bool {
	return ServiceLabel(value) != ""
}
