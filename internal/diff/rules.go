package diff

import (
	"regexp"
	"time"

	"fieldreg/internal/fields"
)

// AmbassadorRules map the ambassador form to the embajadores resource.
// Geography ids are numeric and nullify their descendants. The education
// chain sends the selected option ids; saved names are mapped to ids when
// the form is hydrated. Fields that profile gating can clear go out as null
// when blank.
var AmbassadorRules = Rules{
	FullName(fields.NombreCompleto, "nombre", "apellido"),
	Direct(fields.TipoDocumento, "tipo_de_documento_de_identificacion"),
	Direct(fields.NumeroDocumento, "numero_de_documento_de_identificacion"),
	Direct(fields.Sexo, "sexo"),
	Direct(fields.Correo, "correo_electronico"),
	Numeric(fields.Celular, "telefono"),
	Numeric(fields.Region, "id_region").Nullifying("id_provincia", "id_distrito"),
	Numeric(fields.Provincia, "id_provincia").Nullifying("id_distrito"),
	Numeric(fields.Distrito, "id_distrito"),
	Choice(fields.PerfilEmbajador, fields.PerfilEmbajadorOtro, fields.ProfileOther, "perfil"),
	Nullable(fields.DRE, "dre").Nullifying("ugel"),
	Nullable(fields.UGEL, "ugel"),
	Nullable(fields.CodigoModular, "cod_mod"),
}

// ReplicaRules map the replica form to the replicas resource. fecha is
// recomputed from the date and start time in loc.
func ReplicaRules(loc *time.Location) Rules {
	return Rules{
		Direct(fields.CodigoModular, "codigo_modular"),
		Direct(fields.DRE, "dre"),
		Direct(fields.UGEL, "ugel"),
		Computed("fecha", func(v Values) any {
			ts, ok := EventTime(v[fields.Fecha], v[fields.HoraInicio], loc)
			if !ok {
				return nil
			}
			return ts
		}, fields.Fecha, fields.HoraInicio),
		Direct(fields.HoraInicio, "hora_inicio"),
		Direct(fields.HoraFin, "hora_fin"),
		Direct(fields.FotosURL, "enlace_fotografias"),
	}
}

var clockPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// EventTime combines a YYYY-MM-DD date and an HH:MM clock in loc into an
// RFC3339 UTC timestamp. A missing or malformed clock counts as midnight.
func EventTime(date, clock string, loc *time.Location) (string, bool) {
	if date == "" {
		return "", false
	}
	if loc == nil {
		loc = time.UTC
	}
	if !clockPattern.MatchString(clock) {
		clock = "00:00"
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return "", false
	}
	return t.UTC().Format(time.RFC3339), true
}
