package records

import (
	"strings"
	"time"

	"fieldreg/internal/diff"
	"fieldreg/internal/fields"
)

// AmbassadorFromValues builds a create payload from ambassador form values.
func AmbassadorFromValues(v diff.Values) Ambassador {
	given, surname := diff.SplitFullName(v[fields.NombreCompleto])
	a := Ambassador{
		Nombre:            given,
		Apellido:          surname,
		Perfil:            diff.ChoiceValue(v[fields.PerfilEmbajador], v[fields.PerfilEmbajadorOtro], fields.ProfileOther),
		CorreoElectronico: v[fields.Correo],
		Sexo:              v[fields.Sexo],
		TipoDocumento:     v[fields.TipoDocumento],
		NumeroDocumento:   v[fields.NumeroDocumento],
		DRE:               Text(v[fields.DRE]),
		UGEL:              Text(v[fields.UGEL]),
		CodMod:            v[fields.CodigoModular],
	}
	a.Telefono = numberPtr(v[fields.Celular])
	a.IDRegion = numberPtr(v[fields.Region])
	a.IDProvincia = numberPtr(v[fields.Provincia])
	a.IDDistrito = numberPtr(v[fields.Distrito])
	return a
}

// AmbassadorDefaults maps a stored ambassador back to form values. A profile
// outside the known list becomes "Otro" with the stored text as elaboration.
func AmbassadorDefaults(a Ambassador) diff.Values {
	v := diff.Values{
		fields.TipoDocumento:   a.TipoDocumento,
		fields.NumeroDocumento: a.NumeroDocumento,
		fields.NombreCompleto:  strings.TrimSpace(a.FullName()),
		fields.Sexo:            a.Sexo,
		fields.Correo:          a.CorreoElectronico,
		fields.Celular:         formatID(a.Telefono),
		fields.Region:          formatID(a.IDRegion),
		fields.Provincia:       formatID(a.IDProvincia),
		fields.Distrito:        formatID(a.IDDistrito),
		fields.DRE:             string(a.DRE),
		fields.UGEL:            string(a.UGEL),
		fields.CodigoModular:   a.CodMod,
	}
	if a.Perfil != "" && fields.HasChoice(fields.AmbassadorProfiles, a.Perfil) {
		v[fields.PerfilEmbajador] = a.Perfil
	} else {
		v[fields.PerfilEmbajador] = fields.ProfileOther
		v[fields.PerfilEmbajadorOtro] = a.Perfil
	}
	return v
}

// ReplicaFromValues builds a create payload from replica form values. The
// event date and start time are combined into an RFC3339 timestamp in loc.
func ReplicaFromValues(v diff.Values, ambassadorID int64, loc *time.Location) Replica {
	r := Replica{
		IDEmbajador:       ambassadorID,
		CodigoModular:     v[fields.CodigoModular],
		DRE:               v[fields.DRE],
		UGEL:              v[fields.UGEL],
		HoraInicio:        v[fields.HoraInicio],
		HoraFin:           v[fields.HoraFin],
		EnlaceFotografias: v[fields.FotosURL],
	}
	if ts, ok := diff.EventTime(v[fields.Fecha], v[fields.HoraInicio], loc); ok {
		r.Fecha = ts
	}
	return r
}

// ReplicaDefaults maps a stored replica back to form values.
func ReplicaDefaults(r Replica, loc *time.Location) diff.Values {
	if loc == nil {
		loc = time.UTC
	}
	v := diff.Values{
		fields.CodigoModular: r.CodigoModular,
		fields.DRE:           r.DRE,
		fields.UGEL:          r.UGEL,
		fields.HoraInicio:    clock(r.HoraInicio),
		fields.HoraFin:       clock(r.HoraFin),
		fields.FotosURL:      r.EnlaceFotografias,
	}
	if t, err := time.Parse(time.RFC3339, r.Fecha); err == nil {
		v[fields.Fecha] = t.In(loc).Format("2006-01-02")
	}
	return v
}

// RegistrationFromValues builds a participant record. Level and grade only
// apply to students.
func RegistrationFromValues(v diff.Values, ambassadorID, replicaID int64, codigoModular string) Registration {
	reg := Registration{
		IDEmbajador:        ambassadorID,
		IDReplica:          replicaID,
		CodigoModular:      codigoModular,
		NombresApellidos:   v[fields.NombreCompleto],
		TipoDocumento:      v[fields.TipoDocumento],
		NumeroDocumento:    v[fields.NumeroDocumento],
		Sexo:               v[fields.Sexo],
		CorreoElectronico:  v[fields.Correo],
		Celular:            v[fields.Celular],
		PerfilParticipante: diff.ChoiceValue(v[fields.PerfilParticipante], v[fields.PerfilParticipanteOtro], fields.ProfileOther),
	}
	if v[fields.PerfilParticipante] == fields.ProfileStudent {
		reg.NivelEducativo = v[fields.NivelEducativo]
		reg.Grado = v[fields.Grado]
	}
	return reg
}

func numberPtr(s string) *int64 {
	n := diff.ToNumber(s)
	if !n.Valid {
		return nil
	}
	if i, ok := n.Any().(int64); ok {
		return int64Ptr(i)
	}
	return nil
}

// clock trims "15:39:00" to "15:39".
func clock(s string) string {
	if len(s) >= 5 && s[2] == ':' {
		return s[:5]
	}
	return s
}
