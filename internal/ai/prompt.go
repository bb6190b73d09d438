package ai

import (
	"fmt"

	"github.com/dayoung-p/maumlog/internal/models"
)

const basePrompt = `당신은 감정 치유를 도와주는 공감적이고 따뜻한 상담사입니다.
사용자의 감정과 상황에 공감하고, 이해하며, 적절한 위로와 조언을 제공해주세요.
대화는 한국어로 진행합니다.

항상 공감하는 태도로 경청하며, 사용자의 감정을 인정하고 존중해주세요.
판단하지 말고 이해하려 노력하며, 필요시 전문적 도움을 권유하세요.`

// SystemPrompt builds the counselor system prompt. When an emotion is set,
// its description is appended as conversation context.
func SystemPrompt(emotion models.Emotion) string {
	if emotion == "" {
		return basePrompt
	}
	return fmt.Sprintf("%s\n\n사용자는 현재 '%s' 감정을 느끼고 있습니다. %s에 대한 이해와 공감이 필요합니다.",
		basePrompt, emotion, emotion.Description())
}

// Greeting returns the deterministic first assistant turn. It is templated
// rather than model-generated, so the first turn never costs an API call
// and cannot fail.
func Greeting(emotion models.Emotion) string {
	if emotion == "" {
		return "안녕하세요. 오늘은 어떤 감정을 느끼고 계신가요? 저에게 편하게 말씀해주세요."
	}
	return fmt.Sprintf("안녕하세요. 오늘 '%s'을(를) 느끼고 계시는군요. 어떤 일이 있으셨나요? 저에게 편하게 말씀해주세요.", emotion)
}
