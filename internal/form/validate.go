package form

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"fieldreg/internal/diff"
	"fieldreg/internal/fields"
)

// ValidationError is a field-scoped input problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the first message reported for field.
func (v ValidationErrors) Field(field string) (string, bool) {
	for _, e := range v {
		if e.Field == field {
			return e.Message, true
		}
	}
	return "", false
}

var (
	dniPattern   = regexp.MustCompile(`^\d{8}$`)
	phonePattern = regexp.MustCompile(`^\d{9,15}$`)
)

type checker struct {
	v    diff.Values
	errs ValidationErrors
}

func (c *checker) add(field, msg string) {
	c.errs = append(c.errs, ValidationError{Field: field, Message: msg})
}

func (c *checker) required(field, msg string) {
	if strings.TrimSpace(c.v[field]) == "" {
		c.add(field, msg)
	}
}

func (c *checker) minLen(field string, n int, msg string) {
	if len([]rune(strings.TrimSpace(c.v[field]))) < n {
		c.add(field, msg)
	}
}

func (c *checker) choice(field string, choices []fields.Choice, msg string) {
	if v := c.v[field]; v == "" || !fields.HasChoice(choices, v) {
		c.add(field, msg)
	}
}

func (c *checker) email(field string, optional bool) {
	v := strings.TrimSpace(c.v[field])
	if v == "" && optional {
		return
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		c.add(field, "Correo inválido")
	}
}

func (c *checker) phone(field string, optional bool) {
	v := c.v[field]
	if v == "" && optional {
		return
	}
	if !phonePattern.MatchString(v) {
		c.add(field, "Solo números (9-15)")
	}
}

func (c *checker) document() {
	c.choice(fields.TipoDocumento, fields.DocumentTypes, "Seleccione un tipo de documento")
	c.required(fields.NumeroDocumento, "Ingrese el número de documento")
	if c.v[fields.TipoDocumento] == fields.DocumentDNI && !dniPattern.MatchString(c.v[fields.NumeroDocumento]) {
		c.add(fields.NumeroDocumento, "DNI debe tener 8 dígitos")
	}
}

func (c *checker) result() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}

func validateAmbassador(v diff.Values) error {
	c := &checker{v: v}
	c.document()
	c.minLen(fields.NombreCompleto, 3, "Ingrese nombre y apellidos")
	c.choice(fields.Sexo, fields.Sexes, "Seleccione sexo")
	c.email(fields.Correo, false)
	c.phone(fields.Celular, false)
	c.required(fields.Region, "Seleccione región")
	c.required(fields.Provincia, "Seleccione provincia")
	c.required(fields.Distrito, "Seleccione distrito")
	c.choice(fields.PerfilEmbajador, fields.AmbassadorProfiles, "Seleccione un perfil")

	profile := v[fields.PerfilEmbajador]
	if profile != fields.ProfileMINEDU && profile != fields.ProfileOther {
		c.required(fields.DRE, "Seleccione DRE/GRE")
		c.required(fields.UGEL, "Seleccione UGEL")
	}
	if profile == fields.ProfileOther {
		c.minLen(fields.PerfilEmbajadorOtro, 3, "Especifique el perfil (mín. 3 caracteres)")
	}
	if profile == fields.ProfilePIP {
		c.required(fields.CodigoModular, "Ingrese código modular")
	}
	return c.result()
}

func validateReplica(v diff.Values) error {
	c := &checker{v: v}
	c.required(fields.CodigoModular, "Ingrese código modular")
	c.required(fields.DRE, "Seleccione DRE/GRE")
	c.required(fields.UGEL, "Seleccione UGEL")
	c.required(fields.Fecha, "Seleccione fecha")
	c.required(fields.HoraInicio, "Seleccione hora de inicio")
	c.required(fields.HoraFin, "Seleccione hora de fin")

	start, end := v[fields.HoraInicio], v[fields.HoraFin]
	if start != "" && end != "" && end <= start {
		c.add(fields.HoraFin, "La hora de fin debe ser posterior a la de inicio")
	}
	if u, err := url.ParseRequestURI(v[fields.FotosURL]); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		c.add(fields.FotosURL, "Ingrese un enlace válido")
	}
	return c.result()
}

func validateParticipant(v diff.Values) error {
	c := &checker{v: v}
	c.minLen(fields.NombreCompleto, 3, "Ingrese nombres y apellidos")
	c.document()
	c.choice(fields.Sexo, fields.Sexes, "Seleccione sexo")
	c.email(fields.Correo, true)
	c.phone(fields.Celular, true)
	c.choice(fields.PerfilParticipante, fields.ParticipantProfiles, "Seleccione un perfil")

	switch v[fields.PerfilParticipante] {
	case fields.ProfileStudent:
		c.choice(fields.NivelEducativo, fields.Niveles, "Seleccione nivel")
		c.choice(fields.Grado, fields.Grades(v[fields.NivelEducativo]), "Seleccione grado")
	case fields.ProfileOther:
		c.minLen(fields.PerfilParticipanteOtro, 3, "Especifique el perfil (mín. 3 caracteres)")
	}
	return c.result()
}
