// Package fields names the form fields shared by the form host, the diff
// rules and the record mappers.
package fields

// Ambassador (section 1).
const (
	TipoDocumento       = "tipoDocumento"
	NumeroDocumento     = "numeroDocumento"
	NombreCompleto      = "nombreCompleto"
	Sexo                = "sexo"
	Correo              = "correo"
	Celular             = "celular"
	Region              = "region"
	Provincia           = "provincia"
	Distrito            = "distrito"
	PerfilEmbajador     = "perfilEmbajador"
	PerfilEmbajadorOtro = "perfilEmbajadorOtro"
	DRE                 = "dre"
	UGEL                = "ugel"
	CodigoModular       = "codigoModular"
)

// Replica (section 2). CodigoModular, DRE and UGEL are shared with section 1.
const (
	Fecha      = "fecha"
	HoraInicio = "horaInicio"
	HoraFin    = "horaFin"
	FotosURL   = "fotosUrl"
)

// Participant (section 3).
const (
	PerfilParticipante     = "perfilParticipante"
	PerfilParticipanteOtro = "perfilParticipanteOtro"
	NivelEducativo         = "nivelEducativo"
	Grado                  = "grado"
)

// Profile values with gating behavior.
const (
	ProfileOther    = "Otro"
	ProfileMINEDU   = "Especialista MINEDU"
	ProfilePIP      = "Profesor de Innovación Pedagógica (PIP)"
	ProfileStudent  = "Estudiante"
	DocumentDNI     = "DNI"
	NivelPrimaria   = "PRIMARIA"
	NivelSecundaria = "SECUNDARIA"
)

// Choice is one entry of a static select.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var (
	DocumentTypes = []Choice{
		{Value: "DNI", Label: "DNI"},
		{Value: "CE", Label: "Carné de Extranjería"},
		{Value: "PAS", Label: "Pasaporte"},
	}

	Sexes = []Choice{
		{Value: "M", Label: "Masculino"},
		{Value: "F", Label: "Femenino"},
	}

	AmbassadorProfiles = []Choice{
		{Value: "Coordinador de Innovación y Soporte Tecnológico (CIST)", Label: "Coordinador de Innovación y Soporte Tecnológico (CIST)"},
		{Value: "Especialista en Educación", Label: "Especialista en Educación"},
		{Value: "ATET", Label: "ATET"},
		{Value: ProfilePIP, Label: ProfilePIP},
		{Value: ProfileMINEDU, Label: ProfileMINEDU},
		{Value: ProfileOther, Label: ProfileOther},
	}

	ParticipantProfiles = []Choice{
		{Value: ProfileStudent, Label: "Estudiante"},
		{Value: "Docente", Label: "Docente"},
		{Value: "Director", Label: "Director"},
		{Value: "Padre de familia", Label: "Padre de familia"},
		{Value: "Especialista", Label: "Especialista"},
		{Value: ProfileOther, Label: ProfileOther},
	}

	Niveles = []Choice{
		{Value: NivelPrimaria, Label: "Primaria"},
		{Value: NivelSecundaria, Label: "Secundaria"},
	}
)

// Grades returns the grade choices of an education level.
func Grades(nivel string) []Choice {
	n := 0
	switch nivel {
	case NivelPrimaria:
		n = 6
	case NivelSecundaria:
		n = 5
	}
	out := make([]Choice, 0, n)
	for i := 1; i <= n; i++ {
		v := string(rune('0' + i))
		out = append(out, Choice{Value: v, Label: v + "°"})
	}
	return out
}

// HasChoice reports whether value is one of choices.
func HasChoice(choices []Choice, value string) bool {
	for _, c := range choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

// AmbassadorShowsEducation reports whether the DRE/UGEL chain applies to profile.
func AmbassadorShowsEducation(profile string) bool {
	return profile != "" && profile != ProfileMINEDU && profile != ProfileOther
}
