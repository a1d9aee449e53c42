package form

import (
	"fieldreg/internal/cascade"
	"fieldreg/internal/diff"
	"fieldreg/internal/fields"
)

// View is a JSON-friendly snapshot of a form.
type View struct {
	Kind    Kind                       `json:"kind"`
	Values  diff.Values                `json:"values"`
	Dirty   []string                   `json:"dirty"`
	Hidden  []string                   `json:"hidden,omitempty"`
	Levels  cascade.Snapshot           `json:"levels,omitempty"`
	Choices map[string][]fields.Choice `json:"choices,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

// Snapshot returns the current view.
func (f *Form) Snapshot() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := View{
		Kind:    f.kind,
		Values:  f.currentLocked(),
		Dirty:   f.dirty.Keys(),
		Choices: f.choicesLocked(),
	}
	for _, k := range kindFields[f.kind] {
		if !f.visibleLocked(k) {
			v.Hidden = append(v.Hidden, k)
		}
	}
	if f.ctrl != nil {
		v.Levels = f.ctrl.Snapshot()
	}
	if f.rootErr != nil {
		v.Error = f.rootErr.Error()
	}
	return v
}

// Visible reports whether key is shown for the current profile.
func (f *Form) Visible(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visibleLocked(key)
}

func (f *Form) visibleLocked(key string) bool {
	switch f.kind {
	case KindAmbassador:
		profile := f.values[fields.PerfilEmbajador]
		switch key {
		case fields.DRE, fields.UGEL:
			return fields.AmbassadorShowsEducation(profile)
		case fields.CodigoModular:
			return profile == fields.ProfilePIP
		case fields.PerfilEmbajadorOtro:
			return profile == fields.ProfileOther
		}
	case KindParticipant:
		profile := f.values[fields.PerfilParticipante]
		switch key {
		case fields.NivelEducativo, fields.Grado:
			return profile == fields.ProfileStudent
		case fields.PerfilParticipanteOtro:
			return profile == fields.ProfileOther
		}
	}
	return true
}

func (f *Form) choicesLocked() map[string][]fields.Choice {
	switch f.kind {
	case KindAmbassador:
		return map[string][]fields.Choice{
			fields.TipoDocumento:   fields.DocumentTypes,
			fields.Sexo:            fields.Sexes,
			fields.PerfilEmbajador: fields.AmbassadorProfiles,
		}
	case KindParticipant:
		return map[string][]fields.Choice{
			fields.TipoDocumento:      fields.DocumentTypes,
			fields.Sexo:               fields.Sexes,
			fields.PerfilParticipante: fields.ParticipantProfiles,
			fields.NivelEducativo:     fields.Niveles,
			fields.Grado:              fields.Grades(f.values[fields.NivelEducativo]),
		}
	}
	return nil
}
