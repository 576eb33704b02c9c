package schemas_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"architect-assistant/internal/schemas"
)

func TestParseNarrativeResponse(t *testing.T) {
	testCases := []struct {
		name               string
		raw                string
		expectedNarrative  string
		expectedCompliance string
		expectedDegraded   bool
	}{
		{
			name:               "valid json",
			raw:                `{"narrative": "A minimalist villa.", "compliance_check": "Consider fire exits."}`,
			expectedNarrative:  "A minimalist villa.",
			expectedCompliance: "Consider fire exits.",
			expectedDegraded:   false,
		},
		{
			name: "json wrapped in markdown fences",
			raw: "```json\n" +
				`{"narrative": "A brick warehouse loft.", "compliance_check": "Check egress width."}` +
				"\n```",
			expectedNarrative:  "A brick warehouse loft.",
			expectedCompliance: "Check egress width.",
			expectedDegraded:   false,
		},
		{
			name:               "fences without language tag",
			raw:                "```\n{\"narrative\": \"Glass pavilion.\", \"compliance_check\": \"Energy code.\"}\n```",
			expectedNarrative:  "Glass pavilion.",
			expectedCompliance: "Energy code.",
			expectedDegraded:   false,
		},
		{
			name:               "missing narrative key",
			raw:                `{"compliance_check": "Accessibility ramp required."}`,
			expectedNarrative:  schemas.FallbackNarrative,
			expectedCompliance: "Accessibility ramp required.",
			expectedDegraded:   true,
		},
		{
			name:               "missing compliance key",
			raw:                `{"narrative": "Curved concrete shell."}`,
			expectedNarrative:  "Curved concrete shell.",
			expectedCompliance: schemas.FallbackComplianceCheck,
			expectedDegraded:   true,
		},
		{
			name:               "wrong value types",
			raw:                `{"narrative": 42, "compliance_check": ["a", "b"]}`,
			expectedNarrative:  schemas.FallbackNarrative,
			expectedCompliance: schemas.FallbackComplianceCheck,
			expectedDegraded:   true,
		},
		{
			name:               "empty string values",
			raw:                `{"narrative": "", "compliance_check": "   "}`,
			expectedNarrative:  schemas.FallbackNarrative,
			expectedCompliance: schemas.FallbackComplianceCheck,
			expectedDegraded:   true,
		},
		{
			name:               "plain text instead of json",
			raw:                "The design features a cantilevered roof over a glass atrium.",
			expectedNarrative:  schemas.FallbackNarrative,
			expectedCompliance: schemas.FallbackComplianceCheck,
			expectedDegraded:   true,
		},
		{
			name:               "empty input",
			raw:                "",
			expectedNarrative:  schemas.FallbackNarrative,
			expectedCompliance: schemas.FallbackComplianceCheck,
			expectedDegraded:   true,
		},
		{
			name:               "extra keys are ignored",
			raw:                `{"narrative": "Atrium house.", "compliance_check": "Daylight factor.", "mood": "calm"}`,
			expectedNarrative:  "Atrium house.",
			expectedCompliance: "Daylight factor.",
			expectedDegraded:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := schemas.ParseNarrativeResponse(tc.raw)

			assert.Equal(t, tc.expectedNarrative, result.Narrative)
			assert.Equal(t, tc.expectedCompliance, result.ComplianceCheck)
			assert.Equal(t, tc.expectedDegraded, result.Degraded)
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, schemas.StripCodeFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, schemas.StripCodeFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, schemas.StripCodeFences(`{"a": 1}`))
	assert.Equal(t, "", schemas.StripCodeFences("```json```"))
}
