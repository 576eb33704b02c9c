// Package schemas разбирает свободные ответы текстовой модели
// в структурированные данные итерации.
package schemas

import (
	"encoding/json"
	"strings"
)

// Тексты-заглушки, используемые когда модель не вернула соответствующий ключ.
const (
	FallbackNarrative       = "No narrative generated."
	FallbackComplianceCheck = "No compliance check performed."
)

// NarrativeResult - результат разбора ответа модели.
// Degraded показывает, что хотя бы одно поле заменено заглушкой.
type NarrativeResult struct {
	Narrative       string
	ComplianceCheck string
	Degraded        bool
}

// ParseNarrativeResponse разбирает сырой ответ модели с описанием дизайна.
//
// Модель просят вернуть JSON с ключами narrative и compliance_check, но ответ
// может быть обернут в Markdown-ограждения или вовсе не быть валидным JSON.
// Функция тотальна: при любом входе возвращается пригодный результат,
// отсутствующие или некорректные поля заменяются заглушками.
func ParseNarrativeResponse(raw string) NarrativeResult {
	cleaned := StripCodeFences(raw)

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return NarrativeResult{
			Narrative:       FallbackNarrative,
			ComplianceCheck: FallbackComplianceCheck,
			Degraded:        true,
		}
	}

	result := NarrativeResult{}
	result.Narrative, result.Degraded = stringField(payload, "narrative", FallbackNarrative)

	var degraded bool
	result.ComplianceCheck, degraded = stringField(payload, "compliance_check", FallbackComplianceCheck)
	result.Degraded = result.Degraded || degraded

	return result
}

// stringField достает строковое поле из payload, возвращая заглушку
// при отсутствии ключа, неверном типе или пустом значении.
func stringField(payload map[string]json.RawMessage, key, fallback string) (string, bool) {
	rawValue, ok := payload[key]
	if !ok {
		return fallback, true
	}

	var value string
	if err := json.Unmarshal(rawValue, &value); err != nil {
		return fallback, true
	}

	if strings.TrimSpace(value) == "" {
		return fallback, true
	}

	return value, false
}

// StripCodeFences удаляет Markdown-ограждения кода вокруг ответа модели.
func StripCodeFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
