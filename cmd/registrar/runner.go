package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"fieldreg/internal/cascade"
	"fieldreg/internal/fields"
	"fieldreg/internal/form"
	"fieldreg/internal/options"
	"fieldreg/internal/records"
	"fieldreg/internal/registration"
)

// workflow is the part of registration.Service a terminal session drives.
type workflow interface {
	OpenForm(ctx context.Context, sessionID string, req registration.OpenRequest) (registration.FormState, error)
	Await(ctx context.Context, sessionID, formID string) (registration.FormState, error)
	SetField(ctx context.Context, sessionID, formID, key, value string) (registration.FieldResult, error)
	ReloadOptions(ctx context.Context, sessionID, formID, level string) (registration.FormState, error)
	Submit(ctx context.Context, sessionID, formID string) (registration.SubmitResult, error)
	CloseForm(ctx context.Context, sessionID, formID string) error
}

var fieldLabels = map[string]string{
	fields.TipoDocumento:          "Tipo de documento",
	fields.NumeroDocumento:        "Número de documento",
	fields.NombreCompleto:         "Nombres y apellidos",
	fields.Sexo:                   "Sexo",
	fields.Correo:                 "Correo electrónico",
	fields.Celular:                "Celular",
	fields.Region:                 "Región",
	fields.Provincia:              "Provincia",
	fields.Distrito:               "Distrito",
	fields.PerfilEmbajador:        "Perfil",
	fields.PerfilEmbajadorOtro:    "Especifique el perfil",
	fields.DRE:                    "DRE/GRE",
	fields.UGEL:                   "UGEL",
	fields.CodigoModular:          "Código modular",
	fields.Fecha:                  "Fecha (AAAA-MM-DD)",
	fields.HoraInicio:             "Hora de inicio (HH:MM)",
	fields.HoraFin:                "Hora de fin (HH:MM)",
	fields.FotosURL:               "Enlace a las fotografías",
	fields.PerfilParticipante:     "Perfil del participante",
	fields.PerfilParticipanteOtro: "Especifique el perfil",
	fields.NivelEducativo:         "Nivel educativo",
	fields.Grado:                  "Grado",
}

func label(key string) string {
	if l, ok := fieldLabels[key]; ok {
		return l
	}
	return key
}

// runner fills one form field by field and submits it.
type runner struct {
	flow      workflow
	prompt    PromptDriver
	sessionID string
}

// fill opens a form, prompts every visible field and submits until the
// backend accepts it or the user gives up.
func (r *runner) fill(ctx context.Context, req registration.OpenRequest) (registration.SubmitResult, error) {
	st, err := r.flow.OpenForm(ctx, r.sessionID, req)
	if err != nil {
		return registration.SubmitResult{}, err
	}
	defer func() { _ = r.flow.CloseForm(context.WithoutCancel(ctx), r.sessionID, st.ID) }()

	pending := st.Kind.Fields()
	for {
		if err := r.ask(ctx, st.ID, pending); err != nil {
			return registration.SubmitResult{}, err
		}
		res, err := r.flow.Submit(ctx, r.sessionID, st.ID)
		if err == nil {
			return res, nil
		}

		var verrs form.ValidationErrors
		if errors.As(err, &verrs) {
			pending = pending[:0]
			for _, v := range verrs {
				if err := r.prompt.Info(ctx, fmt.Sprintf("  %s: %s", label(v.Field), v.Message)); err != nil {
					return registration.SubmitResult{}, err
				}
				if !slices.Contains(pending, v.Field) {
					pending = append(pending, v.Field)
				}
			}
			continue
		}

		var perr *records.PersistenceError
		if !errors.As(err, &perr) {
			return registration.SubmitResult{}, err
		}
		// The form keeps its values after a failed write; a retry resends them.
		if err := r.prompt.Info(ctx, "No se pudo guardar: "+perr.Message); err != nil {
			return registration.SubmitResult{}, err
		}
		retry, err := r.prompt.Confirm(ctx, "¿Reintentar?", true)
		if err != nil {
			return registration.SubmitResult{}, err
		}
		if !retry {
			return registration.SubmitResult{}, perr
		}
		pending = nil
	}
}

// ask prompts keys in order. Visibility and choices are re-read after every
// edit because an answer can hide, clear or reload later fields.
func (r *runner) ask(ctx context.Context, formID string, keys []string) error {
	for _, key := range keys {
		st, err := r.flow.Await(ctx, r.sessionID, formID)
		if err != nil {
			return err
		}
		if slices.Contains(st.Hidden, key) {
			continue
		}
		value, err := r.askField(ctx, st, key)
		if err != nil {
			return err
		}
		if _, err := r.flow.SetField(ctx, r.sessionID, formID, key, value); err != nil {
			if err := r.prompt.Info(ctx, fmt.Sprintf("  %s: %v", label(key), err)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *runner) askField(ctx context.Context, st registration.FormState, key string) (string, error) {
	current := st.Values[key]

	if lv, ok := st.Levels.Level(options.Level(key)); ok {
		return r.askLevel(ctx, st, lv)
	}
	if choices, ok := st.Choices[key]; ok && len(choices) > 0 {
		labels := make([]string, len(choices))
		def := -1
		for i, c := range choices {
			labels[i] = c.Label
			if c.Value == current {
				def = i
			}
		}
		i, err := r.prompt.Select(ctx, SelectConfig{Message: label(key), Options: labels, DefaultIndex: def})
		if err != nil {
			return "", err
		}
		return choices[i].Value, nil
	}
	v, err := r.prompt.Input(ctx, InputConfig{Message: label(key), Default: current})
	return strings.TrimSpace(v), err
}

// askLevel prompts a cascade level. A level whose options failed to load can
// be retried; an empty answer is kept when no options are available.
func (r *runner) askLevel(ctx context.Context, st registration.FormState, lv cascade.LevelState) (string, error) {
	for lv.State != cascade.Loaded && lv.Error != "" {
		if err := r.prompt.Info(ctx, fmt.Sprintf("  %s: no se pudieron cargar las opciones (%s)", label(string(lv.Key)), lv.Error)); err != nil {
			return "", err
		}
		retry, err := r.prompt.Confirm(ctx, "¿Reintentar?", true)
		if err != nil || !retry {
			return lv.Selected, err
		}
		st, err = r.flow.ReloadOptions(ctx, r.sessionID, st.ID, string(lv.Key))
		if err != nil {
			return "", err
		}
		if st, err = r.flow.Await(ctx, r.sessionID, st.ID); err != nil {
			return "", err
		}
		lv, _ = st.Levels.Level(lv.Key)
	}
	if len(lv.Options) == 0 {
		return lv.Selected, nil
	}

	labels := make([]string, len(lv.Options))
	def := -1
	for i, o := range lv.Options {
		labels[i] = o.Label
		if o.ID == lv.Selected {
			def = i
		}
	}
	i, err := r.prompt.Select(ctx, SelectConfig{Message: label(string(lv.Key)), Options: labels, DefaultIndex: def})
	if err != nil {
		return "", err
	}
	return lv.Options[i].ID, nil
}
