package records

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldreg/internal/diff"
	"fieldreg/internal/fields"
)

func TestAmbassadorDefaultsUnknownProfile(t *testing.T) {
	v := AmbassadorDefaults(Ambassador{
		Nombre:      "Rosa",
		Apellido:    "Huamán",
		Perfil:      "Bibliotecaria",
		Telefono:    int64Ptr(987654321),
		IDRegion:    int64Ptr(8),
		IDProvincia: int64Ptr(801),
		DRE:         "DRE CUSCO",
	})

	assert.Equal(t, "Rosa Huamán", v[fields.NombreCompleto])
	assert.Equal(t, fields.ProfileOther, v[fields.PerfilEmbajador])
	assert.Equal(t, "Bibliotecaria", v[fields.PerfilEmbajadorOtro])
	assert.Equal(t, "987654321", v[fields.Celular])
	assert.Equal(t, "8", v[fields.Region])
	assert.Equal(t, "801", v[fields.Provincia])
	assert.Empty(t, v[fields.Distrito])
	assert.Equal(t, "DRE CUSCO", v[fields.DRE])
}

func TestAmbassadorFromValues(t *testing.T) {
	a := AmbassadorFromValues(diff.Values{
		fields.NombreCompleto:      "Ana Maria Torres",
		fields.PerfilEmbajador:     fields.ProfileOther,
		fields.PerfilEmbajadorOtro: "Field Tech",
		fields.Celular:             "98x",
		fields.Region:              "15",
	})
	assert.Equal(t, "Ana Maria", a.Nombre)
	assert.Equal(t, "Torres", a.Apellido)
	assert.Equal(t, "Field Tech", a.Perfil)
	assert.Nil(t, a.Telefono)
	require.NotNil(t, a.IDRegion)
	assert.Equal(t, int64(15), *a.IDRegion)
	assert.Nil(t, a.IDProvincia)
}

func TestReplicaRoundTrip(t *testing.T) {
	lima, err := time.LoadLocation("America/Lima")
	require.NoError(t, err)

	r := ReplicaFromValues(diff.Values{
		fields.CodigoModular: "0201234",
		fields.Fecha:         "2025-09-03",
		fields.HoraInicio:    "15:39",
		fields.HoraFin:       "18:39",
	}, 892, lima)
	assert.Equal(t, "2025-09-03T20:39:00Z", r.Fecha)
	assert.Equal(t, int64(892), r.IDEmbajador)

	r.HoraInicio = "15:39:00"
	v := ReplicaDefaults(r, lima)
	assert.Equal(t, "2025-09-03", v[fields.Fecha])
	assert.Equal(t, "15:39", v[fields.HoraInicio])
}

func TestRegistrationLevelOnlyForStudents(t *testing.T) {
	values := diff.Values{
		fields.NombreCompleto:     "Luis Quispe",
		fields.PerfilParticipante: "Docente",
		fields.NivelEducativo:     fields.NivelPrimaria,
		fields.Grado:              "3",
	}
	reg := RegistrationFromValues(values, 892, 9, "0201234")
	assert.Empty(t, reg.NivelEducativo)
	assert.Empty(t, reg.Grado)
	assert.Equal(t, int64(9), reg.IDReplica)

	values[fields.PerfilParticipante] = fields.ProfileStudent
	reg = RegistrationFromValues(values, 892, 9, "0201234")
	assert.Equal(t, fields.NivelPrimaria, reg.NivelEducativo)
	assert.Equal(t, "3", reg.Grado)
}
