package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/farmhelper/farmhelper_backend/models"
)

var (
	// ErrNoJSONFound means the model reply contained no brace-delimited block.
	ErrNoJSONFound = errors.New("no JSON found in the text")
	// ErrInvalidJSON means a block was found but did not parse.
	ErrInvalidJSON = errors.New("extracted block is not valid JSON")
)

// BuildSoilFertilizerPrompt renders the agronomist instruction prompt with the
// farmer's parameters and the strict output-format contract.
func BuildSoilFertilizerPrompt(req models.AdvisoryRequest) string {
	var b strings.Builder

	b.WriteString(`You are an expert agronomist and soil scientist.
Your task is to generate a simple, practical, and safe fertilizer and soil health recommendation for farmers.

General Instructions:
- Always output valid JSON only, no explanations, no extra text, no markdown code fences.
- Keep the language easy to understand for farmers.
- Base suggestions on sustainable and safe practices.
- If unsure about missing data, still produce valid JSON with best common practices for the given crop/region.
- Recommendations must avoid excessive chemical fertilizer and suggest balanced use of organic amendments.

Farmer Profile:
`)
	fmt.Fprintf(&b, "- Locality/Region: %s\n", req.Locality)
	fmt.Fprintf(&b, "- Crop: %s\n", req.CropType)
	fmt.Fprintf(&b, "- Growth Stage: %s (e.g., seedling, vegetative, flowering, fruiting, harvest)\n", req.GrowthStage)
	fmt.Fprintf(&b, "- Soil Type: %s (e.g., sandy, clay, loam)\n", req.SoilType)
	if req.Message != "" {
		fmt.Fprintf(&b, "- Additional notes from farmer: %s\n", req.Message)
	}

	b.WriteString(`
Rules:
- Output must be in the exact JSON format below.
- Use practical fertilizers (NPK, compost, manure, etc.) with quantity guidance.
- Add irrigation advice if relevant.
- Include soil health improvement tips for the long run.
- Keep all numbers in integers or decimals only.
- Output must start with { and end with }, no trailing commas.
- Additionally, provide a field "speech_index" which contains a very short and simple Hindi summary of the advice (1-2 sentences, spoken style).

Output Format (JSON Object):
{
  "farmer": {
    "locality": string,
    "crop": string,
    "growth_stage": string,
    "soil_type": string
  },
  "overview": string,
  "fertilizer_recommendations": [
    { "type": string, "quantity": number, "unit": string, "application_time": string }
  ],
  "organic_alternatives": [ string, string, string ],
  "irrigation_advice": string,
  "soil_health_tips": [ string, string, string ],
  "caution": [ string, string ],
  "speech_index": string
}`)

	return b.String()
}

// ExtractJSON recovers the first top-level brace-delimited block from
// free-form model text and validates it as JSON. Generative models are not
// guaranteed to emit pure JSON even when instructed to; scanning from the
// first '{' to the last '}' is a permissive recovery that trades precision
// (unbalanced braces inside string values would break it) for simplicity.
// The returned bytes are the model's object verbatim, fields untouched.
func ExtractJSON(text string) (json.RawMessage, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoJSONFound
	}

	raw := []byte(text[start : end+1])
	if !json.Valid(raw) {
		return nil, ErrInvalidJSON
	}

	return json.RawMessage(raw), nil
}

// AdvisoryService orchestrates prompt building, text generation, JSON
// extraction and optional speech synthesis.
type AdvisoryService struct {
	generator    TextGenerator
	synthesizer  SpeechSynthesizer
	audioDir     string
	audioBaseURL string
	logger       *log.Logger
}

func NewAdvisoryService(generator TextGenerator, synthesizer SpeechSynthesizer, audioDir, audioBaseURL string) *AdvisoryService {
	return &AdvisoryService{
		generator:    generator,
		synthesizer:  synthesizer,
		audioDir:     audioDir,
		audioBaseURL: strings.TrimRight(audioBaseURL, "/"),
		logger:       log.New(os.Stdout, "[ADVISORY] ", log.LstdFlags),
	}
}

// Generate runs the full advisory pipeline. Text generation and extraction
// failures abort; speech synthesis failures degrade to a response without
// audio.
func (s *AdvisoryService) Generate(ctx context.Context, req models.AdvisoryRequest) (*models.AdvisoryResult, error) {
	prompt := BuildSoilFertilizerPrompt(req)

	text, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("text generation: %w", err)
	}

	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var advisory models.Advisory
	if err := json.Unmarshal(raw, &advisory); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	result := &models.AdvisoryResult{
		Raw:      raw,
		Advisory: advisory,
	}

	result.AudioURL = s.synthesizeSpeech(ctx, advisory.SpeechIndex)

	return result, nil
}

// synthesizeSpeech writes the narration to a per-request file and returns its
// URL, or "" when synthesis is unavailable or fails.
func (s *AdvisoryService) synthesizeSpeech(ctx context.Context, speechIndex string) string {
	if s.synthesizer == nil || speechIndex == "" {
		return ""
	}

	audio, err := s.synthesizer.Synthesize(ctx, speechIndex)
	if err != nil {
		s.logger.Printf("speech synthesis failed, returning advisory without audio: %v", err)
		return ""
	}

	filename := uuid.NewString() + ".mp3"
	path := filepath.Join(s.audioDir, filename)
	if err := os.WriteFile(path, audio, 0644); err != nil {
		s.logger.Printf("failed to write audio artifact %s: %v", path, err)
		return ""
	}

	return s.audioBaseURL + "/" + filename
}
