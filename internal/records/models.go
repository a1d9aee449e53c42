package records

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Ambassador is an embajadores record.
type Ambassador struct {
	ID                int64  `json:"id,omitempty"`
	Nombre            string `json:"nombre"`
	Apellido          string `json:"apellido"`
	Perfil            string `json:"perfil"`
	CorreoElectronico string `json:"correo_electronico"`
	Telefono          *int64 `json:"telefono,omitempty"`
	Sexo              string `json:"sexo,omitempty"`
	TipoDocumento     string `json:"tipo_de_documento_de_identificacion,omitempty"`
	NumeroDocumento   string `json:"numero_de_documento_de_identificacion,omitempty"`
	DRE               Text   `json:"dre,omitempty"`
	UGEL              Text   `json:"ugel,omitempty"`
	IDRegion          *int64 `json:"id_region,omitempty"`
	IDProvincia       *int64 `json:"id_provincia,omitempty"`
	IDDistrito        *int64 `json:"id_distrito,omitempty"`
	CodMod            string `json:"cod_mod,omitempty"`
}

// FullName joins given name and surname.
func (a Ambassador) FullName() string {
	switch {
	case a.Nombre == "":
		return a.Apellido
	case a.Apellido == "":
		return a.Nombre
	}
	return a.Nombre + " " + a.Apellido
}

// Replica is a replicas record: one training event run by an ambassador.
type Replica struct {
	ID                int64  `json:"id,omitempty"`
	CodigoModular     string `json:"codigo_modular,omitempty"`
	DRE               string `json:"dre,omitempty"`
	UGEL              string `json:"ugel,omitempty"`
	Fecha             string `json:"fecha,omitempty"`
	HoraInicio        string `json:"hora_inicio,omitempty"`
	HoraFin           string `json:"hora_fin,omitempty"`
	EnlaceFotografias string `json:"enlace_fotografias,omitempty"`
	CreateAt          string `json:"create_at,omitempty"`
	IDEmbajador       int64  `json:"id_embajador"`
	RegistrosCount    *int   `json:"registrosCount,omitempty"`
}

// Registration is a registros record: one participant of a replica.
type Registration struct {
	ID                 int64  `json:"id,omitempty"`
	CodigoModular      string `json:"codigo_modular,omitempty"`
	NombresApellidos   string `json:"nombres_apellidos,omitempty"`
	TipoDocumento      string `json:"tipo_documento,omitempty"`
	NumeroDocumento    string `json:"numero_documento,omitempty"`
	Sexo               string `json:"sexo,omitempty"`
	CorreoElectronico  string `json:"correo_electronico,omitempty"`
	Celular            string `json:"celular,omitempty"`
	PerfilParticipante string `json:"perfil_participante,omitempty"`
	NivelEducativo     string `json:"nivel_educativo,omitempty"`
	Grado              string `json:"grado,omitempty"`
	Adicional          string `json:"adicional,omitempty"`
	CreateAt           string `json:"create_at,omitempty"`
	IDEmbajador        int64  `json:"id_embajador"`
	IDReplica          int64  `json:"id_replica,omitempty"`
}

// Text is a string the backend may return as a JSON number. Older
// embajadores rows store DRE/UGEL ids, newer ones store names.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*t = Text(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

func int64Ptr(n int64) *int64 { return &n }

func formatID(p *int64) string {
	if p == nil || *p == 0 {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}
