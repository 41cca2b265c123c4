package models

import "encoding/json"

// AdvisoryRequest carries the farmer's soil/crop parameters. Message is
// optional context for the prompt; the other four fields are required.
type AdvisoryRequest struct {
	Locality    string `json:"locality" validate:"required"`
	CropType    string `json:"cropType" validate:"required"`
	GrowthStage string `json:"growthStage" validate:"required"`
	SoilType    string `json:"soilType" validate:"required"`
	Message     string `json:"message"`
}

// FarmerProfile echoes the request fields inside the generated advisory.
type FarmerProfile struct {
	Locality    string `json:"locality"`
	Crop        string `json:"crop"`
	GrowthStage string `json:"growth_stage"`
	SoilType    string `json:"soil_type"`
}

type FertilizerRecommendation struct {
	Type            string  `json:"type"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
	ApplicationTime string  `json:"application_time"`
}

// Advisory is the structured recommendation object the model is instructed to
// emit. SpeechIndex is a short spoken-language summary fed to text-to-speech.
type Advisory struct {
	Farmer                    FarmerProfile              `json:"farmer"`
	Overview                  string                     `json:"overview"`
	FertilizerRecommendations []FertilizerRecommendation `json:"fertilizer_recommendations"`
	OrganicAlternatives       []string                   `json:"organic_alternatives"`
	IrrigationAdvice          string                     `json:"irrigation_advice"`
	SoilHealthTips            []string                   `json:"soil_health_tips"`
	Caution                   []string                   `json:"caution"`
	SpeechIndex               string                     `json:"speech_index"`
}

// AdvisoryResult pairs the raw extracted JSON (returned to the client
// untouched so no model-emitted field is lost) with the decoded advisory and
// the URL of the synthesized narration, empty when synthesis failed.
type AdvisoryResult struct {
	Raw      json.RawMessage
	Advisory Advisory
	AudioURL string
}
