package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldreg/internal/cascade"
	"fieldreg/internal/diff"
	"fieldreg/internal/fields"
	"fieldreg/internal/form"
	"fieldreg/internal/options"
	"fieldreg/internal/records"
	"fieldreg/internal/registration"
)

// scriptedDriver answers prompts from queues.
type scriptedDriver struct {
	inputs   []string
	selects  []int
	confirms []bool
	asked    []string
	infos    []string
}

func (d *scriptedDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	d.asked = append(d.asked, cfg.Message)
	v := d.inputs[0]
	d.inputs = d.inputs[1:]
	return v, nil
}

func (d *scriptedDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	d.asked = append(d.asked, cfg.Message)
	v := d.selects[0]
	d.selects = d.selects[1:]
	return v, nil
}

func (d *scriptedDriver) Confirm(_ context.Context, _ string, _ bool) (bool, error) {
	v := d.confirms[0]
	d.confirms = d.confirms[1:]
	return v, nil
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

// fakeFlow serves a fixed form state and scripted submit outcomes.
type fakeFlow struct {
	state   registration.FormState
	sets    []string
	submits []error
	closed  bool
	reloads int
}

func (f *fakeFlow) OpenForm(context.Context, string, registration.OpenRequest) (registration.FormState, error) {
	return f.state, nil
}

func (f *fakeFlow) Await(context.Context, string, string) (registration.FormState, error) {
	return f.state, nil
}

func (f *fakeFlow) SetField(_ context.Context, _, _, key, value string) (registration.FieldResult, error) {
	f.sets = append(f.sets, key+"="+value)
	f.state.Values[key] = value
	return registration.FieldResult{Changed: []string{key}, Form: f.state}, nil
}

func (f *fakeFlow) ReloadOptions(_ context.Context, _, _, level string) (registration.FormState, error) {
	f.reloads++
	for i, lv := range f.state.Levels {
		if string(lv.Key) == level {
			f.state.Levels[i].State = cascade.Loaded
			f.state.Levels[i].Error = ""
			f.state.Levels[i].Options = []options.Option{{ID: "8", Label: "CUSCO"}}
		}
	}
	return f.state, nil
}

func (f *fakeFlow) Submit(context.Context, string, string) (registration.SubmitResult, error) {
	err := f.submits[0]
	f.submits = f.submits[1:]
	if err != nil {
		return registration.SubmitResult{}, err
	}
	return registration.SubmitResult{Payload: diff.Payload{}}, nil
}

func (f *fakeFlow) CloseForm(context.Context, string, string) error {
	f.closed = true
	return nil
}

func TestFillRepromptsInvalidFields(t *testing.T) {
	flow := &fakeFlow{
		state: registration.FormState{ID: "f-1", View: form.View{
			Kind:   form.KindParticipant,
			Values: diff.Values{},
			Hidden: []string{fields.NivelEducativo, fields.Grado, fields.PerfilParticipanteOtro},
			Choices: map[string][]fields.Choice{
				fields.TipoDocumento:      fields.DocumentTypes,
				fields.Sexo:               fields.Sexes,
				fields.PerfilParticipante: fields.ParticipantProfiles,
			},
		}},
		submits: []error{
			form.ValidationErrors{{Field: fields.Correo, Message: "Correo inválido"}},
			nil,
		},
	}
	driver := &scriptedDriver{
		// nombre, documento, correo, celular, then the corrected correo
		inputs:  []string{"Rosa Huaman", "71234567", "rosa@", "", "rosa@example.pe"},
		selects: []int{0, 1, 1},
	}
	r := &runner{flow: flow, prompt: driver, sessionID: "cli"}

	_, err := r.fill(context.Background(), registration.OpenRequest{Kind: "participant", ReplicaID: 7})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"nombreCompleto=Rosa Huaman",
		"tipoDocumento=DNI",
		"numeroDocumento=71234567",
		"sexo=F",
		"correo=rosa@",
		"celular=",
		"perfilParticipante=Docente",
		"correo=rosa@example.pe",
	}, flow.sets)
	assert.Equal(t, []string{"  Correo electrónico: Correo inválido"}, driver.infos)
	assert.True(t, flow.closed)
}

func TestFillRetriesPersistenceFailure(t *testing.T) {
	flow := &fakeFlow{
		state:   registration.FormState{ID: "f-1", View: form.View{Kind: form.KindReplica, Values: diff.Values{}, Hidden: form.KindReplica.Fields()}},
		submits: []error{&records.PersistenceError{Op: "create_replica", Status: 500, Message: "boom"}, nil},
	}
	driver := &scriptedDriver{confirms: []bool{true}}
	r := &runner{flow: flow, prompt: driver, sessionID: "cli"}

	_, err := r.fill(context.Background(), registration.OpenRequest{Kind: "replica"})
	require.NoError(t, err)
	assert.Empty(t, flow.sets)
	assert.Equal(t, []string{"No se pudo guardar: boom"}, driver.infos)
}

func TestAskLevelReloadsFailedOptions(t *testing.T) {
	flow := &fakeFlow{state: registration.FormState{ID: "f-1", View: form.View{
		Kind:   form.KindAmbassador,
		Values: diff.Values{},
		Levels: cascade.Snapshot{{Key: options.LevelRegion, State: cascade.NotLoaded, Error: "load options region [timeout]"}},
	}}}
	driver := &scriptedDriver{confirms: []bool{true}, selects: []int{0}}
	r := &runner{flow: flow, prompt: driver, sessionID: "cli"}

	lv, _ := flow.state.Levels.Level(options.LevelRegion)
	got, err := r.askLevel(context.Background(), flow.state, lv)
	require.NoError(t, err)
	assert.Equal(t, "8", got)
	assert.Equal(t, 1, flow.reloads)
}
