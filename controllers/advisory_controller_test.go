package controllers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmhelper/farmhelper_backend/controllers"
	"github.com/farmhelper/farmhelper_backend/services"
)

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) GenerateText(context.Context, string) (string, error) {
	return g.reply, g.err
}

type stubSynthesizer struct {
	audio []byte
	err   error
}

func (s *stubSynthesizer) Synthesize(context.Context, string) ([]byte, error) {
	return s.audio, s.err
}

const advisoryReply = `Here is your advisory:
{
  "farmer": {"locality": "Pune", "crop": "wheat", "growth_stage": "vegetative", "soil_type": "loam"},
  "overview": "Balanced NPK with organic compost.",
  "fertilizer_recommendations": [
    {"type": "NPK 10-26-26", "quantity": 50, "unit": "kg/acre", "application_time": "before sowing"}
  ],
  "organic_alternatives": ["compost", "vermicompost", "green manure"],
  "irrigation_advice": "Irrigate every 10 days.",
  "soil_health_tips": ["rotate crops", "add compost", "avoid waterlogging"],
  "caution": ["do not over-apply urea", "keep fertilizer away from seedlings"],
  "speech_index": "Gehun ke liye santulit khaad daalein."
}
Hope this helps!`

func newAdvisoryController(t *testing.T, gen services.TextGenerator, synth services.SpeechSynthesizer) *controllers.AdvisoryController {
	t.Helper()
	svc := services.NewAdvisoryService(gen, synth, t.TempDir(), "/audio")
	return controllers.NewAdvisoryController(svc)
}

func TestSoilMissingRequiredFields(t *testing.T) {
	e := newTestEcho()
	ac := newAdvisoryController(t, &stubGenerator{reply: advisoryReply}, nil)

	for _, body := range []string{
		`{}`,
		`{"cropType":"wheat","growthStage":"vegetative","soilType":"loam"}`,
		`{"locality":"Pune","growthStage":"vegetative","soilType":"loam"}`,
		`{"locality":"Pune","cropType":"wheat","soilType":"loam"}`,
		`{"locality":"Pune","cropType":"wheat","growthStage":"vegetative"}`,
	} {
		rec := postJSON(e, "/api/ai/soil", body, ac.Soil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
		assert.Contains(t, rec.Body.String(), "Enter all Fields")
	}
}

func TestSoilMessageIsOptional(t *testing.T) {
	e := newTestEcho()
	ac := newAdvisoryController(t, &stubGenerator{reply: advisoryReply}, nil)

	rec := postJSON(e, "/api/ai/soil", `{"locality":"Pune","cropType":"wheat","growthStage":"vegetative","soilType":"loam"}`, ac.Soil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSoilSuccess(t *testing.T) {
	e := newTestEcho()
	ac := newAdvisoryController(t, &stubGenerator{reply: advisoryReply}, &stubSynthesizer{audio: []byte("mp3")})

	rec := postJSON(e, "/api/ai/soil", `{"locality":"Pune","cropType":"wheat","growthStage":"vegetative","soilType":"loam","message":"yellow leaves"}`, ac.Soil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
		Audio   string                 `json:"audio"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "Success!", resp.Message)
	// The overview comes straight out of the embedded model object
	assert.Equal(t, "Balanced NPK with organic compost.", resp.Data["overview"])
	assert.Contains(t, resp.Data, "fertilizer_recommendations")
	assert.Contains(t, resp.Data, "speech_index")
	assert.Contains(t, resp.Audio, "/audio/")
}

func TestSoilNoJSONInModelReply(t *testing.T) {
	e := newTestEcho()
	ac := newAdvisoryController(t, &stubGenerator{reply: "I am unable to answer in JSON."}, nil)

	rec := postJSON(e, "/api/ai/soil", `{"locality":"Pune","cropType":"wheat","growthStage":"vegetative","soilType":"loam"}`, ac.Soil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not be parsed")
}

func TestSoilGeneratorFailure(t *testing.T) {
	e := newTestEcho()
	ac := newAdvisoryController(t, &stubGenerator{err: errors.New("quota exhausted")}, nil)

	rec := postJSON(e, "/api/ai/soil", `{"locality":"Pune","cropType":"wheat","growthStage":"vegetative","soilType":"loam"}`, ac.Soil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable")
}

func TestSoilSynthesisFailureStillSucceeds(t *testing.T) {
	e := newTestEcho()
	ac := newAdvisoryController(t, &stubGenerator{reply: advisoryReply}, &stubSynthesizer{err: errors.New("tts down")})

	rec := postJSON(e, "/api/ai/soil", `{"locality":"Pune","cropType":"wheat","growthStage":"vegetative","soilType":"loam"}`, ac.Soil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Audio string `json:"audio"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Audio)
}
